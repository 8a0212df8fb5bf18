package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/emrgen/panorama/internal/blob"
	"github.com/emrgen/panorama/internal/cache"
	"github.com/emrgen/panorama/internal/geometry"
	"github.com/emrgen/panorama/internal/metrics"
	"github.com/emrgen/panorama/internal/model"
	"github.com/emrgen/panorama/internal/store"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// PanophotoService manages panophotos and keeps their links symmetric.
type PanophotoService struct {
	store    store.Store
	blobs    blob.Store
	cache    cache.PanophotoCache
	projects *ProjectService
}

// NewPanophotoService creates a new panophoto service.
func NewPanophotoService(store store.Store, blobs blob.Store, cache cache.PanophotoCache, projects *ProjectService) *PanophotoService {
	return &PanophotoService{
		store:    store,
		blobs:    blobs,
		cache:    cache,
		projects: projects,
	}
}

// LinkResult holds both ends of a link after a link or unlink.
type LinkResult struct {
	Source *model.Panophoto `json:"source"`
	Target *model.Panophoto `json:"target"`
}

// MoveResult is returned by MovePhoto and RecalculateNeighborAzimuths.
type MoveResult struct {
	Photo               *model.Panophoto `json:"photo"`
	AffectedNeighborIDs []string         `json:"affectedNeighborIds"`
	CascadeResult
}

// CreatePhoto uploads the image and creates an unplaced panophoto in the project.
func (s *PanophotoService) CreatePhoto(ctx context.Context, projectID, name string, image io.Reader, contentType, ext string) (*model.Panophoto, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidArgument(ErrNameRequired)
	}
	if image == nil {
		return nil, invalidArgument(ErrImageRequired)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, invalidArgument(ErrNotAnImage)
	}

	project, err := s.projects.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if ext == "" {
		ext = ".bin"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	id := uuid.New().String()
	key := fmt.Sprintf("panophotos/%s%s", id, strings.ToLower(ext))
	url, err := s.blobs.Put(ctx, key, image, contentType)
	if err != nil {
		logrus.Errorf("failed to upload panophoto image %s: %v", key, err)
		return nil, storageFailure(err)
	}

	photo := &model.Panophoto{
		ID:        id,
		ProjectID: project.ID,
		Name:      name,
		ImageURL:  url,
		ImageKey:  key,
	}
	photo.SetLinks(nil)

	if err := s.store.CreatePanophoto(ctx, photo); err != nil {
		logrus.Errorf("failed to create panophoto %s: %v", id, err)
		if err := s.blobs.Delete(ctx, key); err != nil {
			logrus.Warnf("failed to release image %s of unsaved panophoto: %v", key, err)
		}
		return nil, storageFailure(err)
	}

	logrus.Infof("created panophoto %s in project %s", photo.ID, project.ID)

	return photo, nil
}

// GetPhoto returns a panophoto, reading through the cache.
func (s *PanophotoService) GetPhoto(ctx context.Context, id string) (*model.Panophoto, error) {
	if _, err := parseID(id, "panophoto"); err != nil {
		return nil, err
	}

	cached, err := s.cache.GetPanophoto(ctx, id)
	if err != nil {
		logrus.Warnf("panophoto cache read failed for %s: %v", id, err)
	}
	if cached != nil {
		return cached, nil
	}

	photo, err := s.loadPhoto(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetPanophoto(ctx, photo); err != nil {
		logrus.Warnf("panophoto cache write failed for %s: %v", id, err)
	}

	return photo, nil
}

// ListPhotos returns the panophotos of a project, oldest first.
func (s *PanophotoService) ListPhotos(ctx context.Context, projectID string) ([]*model.Panophoto, error) {
	id, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}

	photos, err := s.store.ListPanophotos(ctx, id)
	if err != nil {
		return nil, storageFailure(err)
	}

	return photos, nil
}

// Neighbors loads the linked panophotos of photo that still exist, keyed by id.
func (s *PanophotoService) Neighbors(ctx context.Context, photo *model.Panophoto) (map[string]*model.Panophoto, error) {
	ids := lo.FilterMap(photo.LinkList().TargetIDs(), func(id string, _ int) (uuid.UUID, bool) {
		parsed, err := uuid.Parse(id)
		return parsed, err == nil
	})
	if len(ids) == 0 {
		return map[string]*model.Panophoto{}, nil
	}

	photos, err := s.store.ListPanophotosFromIDs(ctx, ids)
	if err != nil {
		return nil, storageFailure(err)
	}

	return lo.KeyBy(photos, func(p *model.Panophoto) string { return p.ID }), nil
}

// LinkPhotos links two panophotos of the same project in both directions.
// Each side stores its own azimuth toward the other.
func (s *PanophotoService) LinkPhotos(ctx context.Context, sourceID, targetID string) (*LinkResult, error) {
	if sourceID == targetID {
		return nil, invalidArgument(ErrSelfLink)
	}

	source, target, err := s.loadPair(ctx, sourceID, targetID)
	if err != nil {
		return nil, err
	}
	if source.ProjectID != target.ProjectID {
		return nil, invalidArgument(ErrCrossProjectLink)
	}

	logrus.Infof("linking panophoto %s <-> %s", source.ID, target.ID)

	defer s.invalidate(ctx, source.ID, target.ID)

	if err := s.upsertLink(ctx, source, target.ID, azimuthBetween(source, target)); err != nil {
		logrus.Errorf("failed to link %s -> %s: %v", source.ID, target.ID, err)
		return nil, storageFailure(err)
	}
	if err := s.upsertLink(ctx, target, source.ID, azimuthBetween(target, source)); err != nil {
		logrus.Errorf("failed to link %s -> %s: %v", target.ID, source.ID, err)
		return nil, storageFailure(err)
	}

	return &LinkResult{Source: source, Target: target}, nil
}

// UnlinkPhotos removes the link between two panophotos on both sides. It does
// not fail when the photos were not linked.
func (s *PanophotoService) UnlinkPhotos(ctx context.Context, sourceID, targetID string) (*LinkResult, error) {
	source, target, err := s.loadPair(ctx, sourceID, targetID)
	if err != nil {
		return nil, err
	}

	logrus.Infof("unlinking panophoto %s <-> %s", source.ID, target.ID)

	defer s.invalidate(ctx, source.ID, target.ID)

	if err := s.removeLink(ctx, source, target.ID); err != nil {
		logrus.Errorf("failed to unlink %s -> %s: %v", source.ID, target.ID, err)
		return nil, storageFailure(err)
	}
	if source.ID == target.ID {
		return &LinkResult{Source: source, Target: source}, nil
	}
	if err := s.removeLink(ctx, target, source.ID); err != nil {
		logrus.Errorf("failed to unlink %s -> %s: %v", target.ID, source.ID, err)
		return nil, storageFailure(err)
	}

	return &LinkResult{Source: source, Target: target}, nil
}

// MovePhoto places the photo at pos on levelID, or on its current level when
// levelID is nil, and recomputes the azimuths of its links in both directions.
// An unplaced photo moved without a level lands on the first level.
func (s *PanophotoService) MovePhoto(ctx context.Context, photoID string, pos geometry.Point, levelID *string) (*MoveResult, error) {
	if !validPosition(pos) {
		return nil, invalidArgument(ErrInvalidPosition)
	}

	photo, err := s.loadPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.loadProject(ctx, photo.ProjectID)
	if err != nil {
		return nil, err
	}

	target := ""
	switch {
	case levelID != nil && *levelID != "":
		if _, ok := project.Level(*levelID); !ok {
			return nil, notFound(fmt.Errorf("%w: %s", ErrLevelNotFound, *levelID))
		}
		target = *levelID
	case photo.Placed():
		target = *photo.LevelID
	default:
		target = project.LevelList()[0].ID
	}

	former := lo.FromPtr(photo.LevelID)
	photo.LevelID = lo.ToPtr(target)
	photo.SetPosition(pos)

	logrus.Infof("moving panophoto %s to (%v, %v) on level %s", photo.ID, pos.X, pos.Y, target)

	result, err := s.RecalculateNeighborAzimuths(ctx, photo)
	if err != nil {
		return nil, err
	}

	if former != "" && former != target {
		if err := s.projects.ClearLevelStartReference(ctx, project.ID, photo.ID, former); err != nil {
			result.warn("move.clear_level_start", err)
		}
	}

	return result, nil
}

// RecalculateNeighborAzimuths saves photo with fresh azimuths toward every
// distinct neighbor, then updates each neighbor's azimuth back to photo.
// Offsets are kept. Neighbor failures are reported as warnings.
func (s *PanophotoService) RecalculateNeighborAzimuths(ctx context.Context, photo *model.Panophoto) (*MoveResult, error) {
	result := &MoveResult{Photo: photo, AffectedNeighborIDs: []string{}}

	var neighbors []*model.Panophoto
	links := photo.LinkList()
	for _, id := range links.TargetIDs() {
		if id == photo.ID {
			continue
		}
		neighbor, err := s.loadPhoto(ctx, id)
		if err != nil {
			result.warn("recalculate.load_neighbor", fmt.Errorf("neighbor %s of %s: %w", id, photo.ID, err))
			continue
		}
		links, _ = links.Upsert(neighbor.ID, azimuthBetween(photo, neighbor))
		neighbors = append(neighbors, neighbor)
	}
	photo.SetLinks(links)

	if err := s.store.UpdatePanophoto(ctx, photo); err != nil {
		logrus.Errorf("failed to save panophoto %s: %v", photo.ID, err)
		return nil, storageFailure(err)
	}

	for _, neighbor := range neighbors {
		if err := s.upsertLink(ctx, neighbor, photo.ID, azimuthBetween(neighbor, photo)); err != nil {
			result.warn("recalculate.reverse_link", fmt.Errorf("neighbor %s of %s: %w", neighbor.ID, photo.ID, err))
			continue
		}
		result.AffectedNeighborIDs = append(result.AffectedNeighborIDs, neighbor.ID)
	}

	s.invalidate(ctx, append([]string{photo.ID}, result.AffectedNeighborIDs...)...)

	return result, nil
}

// SetLinkOffset changes only the offset of the source -> target link. A
// legacy entry is upgraded to the structured form on the way.
func (s *PanophotoService) SetLinkOffset(ctx context.Context, sourceID, targetID string, offset float64) (*model.Panophoto, error) {
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return nil, invalidArgument(ErrInvalidOffset)
	}

	source, err := s.loadPhoto(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	links := source.LinkList()
	link, ok := links.Find(targetID)
	if !ok {
		return nil, notFound(fmt.Errorf("%w: %s -> %s", ErrLinkNotFound, source.ID, targetID))
	}

	if link.Legacy() {
		azimuth := 0.0
		if target, err := s.loadPhoto(ctx, targetID); err == nil {
			azimuth = azimuthBetween(source, target)
		}
		links, _ = links.Upsert(targetID, azimuth)
	}
	links, _ = links.SetOffset(targetID, geometry.NormalizeOffsetDegrees(offset))
	source.SetLinks(links)

	if err := s.store.UpdatePanophoto(ctx, source); err != nil {
		logrus.Errorf("failed to set link offset %s -> %s: %v", source.ID, targetID, err)
		return nil, storageFailure(err)
	}
	metrics.LinkMutations.WithLabelValues("offset").Inc()

	s.invalidate(ctx, source.ID)

	return source, nil
}

func (s *PanophotoService) loadPhoto(ctx context.Context, id string) (*model.Panophoto, error) {
	parsed, err := parseID(id, "panophoto")
	if err != nil {
		return nil, err
	}

	photo, err := s.store.GetPanophoto(ctx, parsed)
	if err != nil {
		return nil, fromStore(err, fmt.Errorf("%w: %s", ErrPanophotoNotFound, id))
	}

	return photo, nil
}

func (s *PanophotoService) loadPair(ctx context.Context, sourceID, targetID string) (*model.Panophoto, *model.Panophoto, error) {
	if _, err := parseID(sourceID, "source"); err != nil {
		return nil, nil, err
	}
	if _, err := parseID(targetID, "target"); err != nil {
		return nil, nil, err
	}
	if sourceID == targetID {
		source, err := s.loadPhoto(ctx, sourceID)
		return source, source, err
	}

	source, err := s.loadPhoto(ctx, sourceID)
	if err != nil {
		return nil, nil, err
	}
	target, err := s.loadPhoto(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}

	return source, target, nil
}

func (s *PanophotoService) invalidate(ctx context.Context, ids ...string) {
	if err := s.cache.Invalidate(ctx, ids...); err != nil && !errors.Is(err, context.Canceled) {
		logrus.Warnf("failed to invalidate cached panophotos %v: %v", ids, err)
	}
}

func validPosition(pos geometry.Point) bool {
	for _, v := range []float64{pos.X, pos.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
