package viewer

import (
	"context"
	"errors"
	"math"

	"github.com/emrgen/panorama/internal/geometry"
	"github.com/emrgen/panorama/internal/model"
)

// MinOffsetChange is the smallest offset change, in degrees, worth saving.
const MinOffsetChange = 0.1

var (
	ErrNotAdjusting   = errors.New("adjust mode is off")
	ErrNoSelection    = errors.New("no marker selected")
	ErrSelfMarker     = errors.New("cannot adjust a link pointing to this photo")
	ErrMarkerNotFound = errors.New("selected marker could not be found")
	ErrInvalidYaw     = errors.New("unable to determine where you clicked")
)

// OffsetWriter saves the offset of a link and returns the updated source.
type OffsetWriter interface {
	SetLinkOffset(ctx context.Context, sourceID, targetID string, offset float64) (*model.Panophoto, error)
}

type Outcome int

const (
	// Ignored means the click did not apply to any marker.
	Ignored Outcome = iota
	// Unchanged means the new offset was too close to the current one.
	Unchanged
	// Saved means the new offset was written.
	Saved
)

// AdjustSession is the adjust mode of a viewer showing one photo: the user
// selects a marker, then clicks the direction it should point to.
type AdjustSession struct {
	writer    OffsetWriter
	photo     *model.Panophoto
	neighbors map[string]*model.Panophoto
	enabled   bool
	selected  string
}

func NewAdjustSession(writer OffsetWriter, photo *model.Panophoto, neighbors map[string]*model.Panophoto) *AdjustSession {
	return &AdjustSession{
		writer:    writer,
		photo:     photo,
		neighbors: neighbors,
	}
}

func (s *AdjustSession) Enable() {
	s.enabled = true
}

// Disable leaves adjust mode and drops the selection.
func (s *AdjustSession) Disable() {
	s.enabled = false
	s.selected = ""
}

func (s *AdjustSession) Enabled() bool {
	return s.enabled
}

func (s *AdjustSession) Selected() string {
	return s.selected
}

func (s *AdjustSession) Photo() *model.Panophoto {
	return s.photo
}

// Select picks the marker of the link to targetID.
func (s *AdjustSession) Select(targetID string) error {
	if !s.enabled {
		return ErrNotAdjusting
	}
	if targetID == s.photo.ID {
		s.selected = ""
		return ErrSelfMarker
	}
	if _, ok := s.photo.LinkList().Find(targetID); !ok {
		return ErrMarkerNotFound
	}

	s.selected = targetID

	return nil
}

func (s *AdjustSession) Clear() {
	s.selected = ""
}

// Markers renders the photo with the current selection highlighted.
func (s *AdjustSession) Markers() []Marker {
	return BuildMarkers(s.photo, s.neighbors, MarkerOptions{
		HighlightTargetID: s.selected,
		AdjustMode:        s.enabled,
	})
}

// ApplyClickRadians is ApplyClick for a yaw in radians.
func (s *AdjustSession) ApplyClickRadians(ctx context.Context, yaw float64) (Outcome, error) {
	return s.ApplyClick(ctx, geometry.RadiansToDegrees(yaw))
}

// ApplyClick turns a click at yaw degrees into the offset of the selected
// link, so its marker lands where the user clicked. The selection is cleared
// once a write was attempted.
func (s *AdjustSession) ApplyClick(ctx context.Context, yaw float64) (Outcome, error) {
	if !s.enabled || s.selected == "" {
		return Ignored, nil
	}
	if math.IsNaN(yaw) || math.IsInf(yaw, 0) {
		return Ignored, ErrInvalidYaw
	}

	link, ok := s.photo.LinkList().Find(s.selected)
	if !ok {
		s.selected = ""
		return Ignored, ErrMarkerNotFound
	}

	base := geometry.NormalizeDegrees(markerAzimuth(s.photo, link, s.neighbors[link.Target]))
	current := geometry.NormalizeOffsetDegrees(link.AzimuthOffset)
	offset := geometry.NormalizeOffsetDegrees(geometry.NormalizeDegrees(yaw) - base)

	if geometry.AngularDistance(offset, current) < MinOffsetChange {
		return Unchanged, nil
	}

	defer s.Clear()

	updated, err := s.writer.SetLinkOffset(ctx, s.photo.ID, link.Target, offset)
	if err != nil {
		return Ignored, err
	}
	if updated != nil {
		s.photo = updated
	}

	return Saved, nil
}
