// Package viewer projects panophoto links into what a panorama viewer and the
// project canvas render. The angle math is the same as the one used when the
// links are written, so markers point where the service says they do.
package viewer

import (
	"fmt"

	"github.com/emrgen/panorama/internal/geometry"
	"github.com/emrgen/panorama/internal/model"
)

const (
	markerImage  = "drone.png"
	markerSize   = 64
	markerPitch  = -0.1
	defaultLabel = "View linked photo"
)

type MarkerOptions struct {
	HighlightTargetID string
	AdjustMode        bool
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// MarkerData is attached to a marker so a click can be traced back to its link.
type MarkerData struct {
	TargetID      string  `json:"targetId"`
	Azimuth       float64 `json:"azimuth"`
	AzimuthOffset float64 `json:"azimuthOffset"`
	Label         string  `json:"label"`
}

type MarkerStyle struct {
	Cursor  string  `json:"cursor"`
	Opacity float64 `json:"opacity"`
	Filter  string  `json:"filter,omitempty"`
}

// Marker is a link rendered at a yaw on the panorama. Yaw and pitch are degrees.
type Marker struct {
	ID      string       `json:"id"`
	Image   string       `json:"image"`
	Size    Size         `json:"size"`
	Yaw     float64      `json:"yaw"`
	Pitch   float64      `json:"pitch"`
	Tooltip string       `json:"tooltip"`
	Data    MarkerData   `json:"data"`
	Style   *MarkerStyle `json:"style,omitempty"`
}

// BuildMarkers returns one marker per link of photo, skipping links to photo
// itself. neighbors supplies names and positions of the linked photos; missing
// entries only cost the label, or the azimuth of a legacy link.
func BuildMarkers(photo *model.Panophoto, neighbors map[string]*model.Panophoto, opts MarkerOptions) []Marker {
	if photo == nil {
		return nil
	}

	markers := make([]Marker, 0, len(photo.LinkList()))
	for i, link := range photo.LinkList() {
		if link.Target == "" || link.Target == photo.ID {
			continue
		}

		neighbor := neighbors[link.Target]
		azimuth := markerAzimuth(photo, link, neighbor)
		label := defaultLabel
		if neighbor != nil && neighbor.Name != "" {
			label = neighbor.Name
		}

		marker := Marker{
			ID:      fmt.Sprintf("link-%s-%d", link.Target, i),
			Image:   markerImage,
			Size:    Size{Width: markerSize, Height: markerSize},
			Yaw:     geometry.NormalizeDegrees(azimuth + link.AzimuthOffset),
			Pitch:   markerPitch,
			Tooltip: label,
			Data: MarkerData{
				TargetID:      link.Target,
				Azimuth:       azimuth,
				AzimuthOffset: link.AzimuthOffset,
				Label:         label,
			},
		}

		if opts.AdjustMode {
			highlighted := opts.HighlightTargetID != "" && opts.HighlightTargetID == link.Target
			marker.Style = &MarkerStyle{Cursor: "pointer", Opacity: 0.65}
			if highlighted {
				marker.Style.Opacity = 1
				marker.Style.Filter = "drop-shadow(0 0 12px #10b981)"
			}
		}

		markers = append(markers, marker)
	}

	return markers
}

// markerAzimuth is the stored azimuth, or for a legacy link the one computed
// from the two positions.
func markerAzimuth(photo *model.Panophoto, link model.Link, neighbor *model.Panophoto) float64 {
	if !link.Legacy() {
		return link.Azimuth
	}
	if neighbor == nil {
		return 0
	}
	return geometry.Azimuth(photo.Position(), neighbor.Position())
}
