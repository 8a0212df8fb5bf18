package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/emrgen/panorama/internal/blob"
	"github.com/emrgen/panorama/internal/model"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// UnplaceResult is returned by UnplacePhoto.
type UnplaceResult struct {
	Photo               *model.Panophoto   `json:"photo"`
	Neighbors           []*model.Panophoto `json:"neighbors"`
	AffectedNeighborIDs []string           `json:"affectedNeighborIds"`
	CascadeResult
}

// UnplacePhoto takes the photo off its level and severs all of its links.
// The photo is saved first; cleaning the neighbors and the former level start
// is best effort and reported through the result warnings.
func (s *PanophotoService) UnplacePhoto(ctx context.Context, photoID string) (*UnplaceResult, error) {
	photo, err := s.loadPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}

	former := lo.FromPtr(photo.LevelID)
	neighborIDs := lo.Without(photo.LinkList().TargetIDs(), photo.ID)

	photo.Unplace()
	if err := s.store.UpdatePanophoto(ctx, photo); err != nil {
		logrus.Errorf("failed to unplace panophoto %s: %v", photo.ID, err)
		return nil, storageFailure(err)
	}

	logrus.Infof("unplaced panophoto %s from level %q, %d neighbors", photo.ID, former, len(neighborIDs))

	result := &UnplaceResult{Photo: photo, Neighbors: []*model.Panophoto{}}
	if former != "" {
		if err := s.projects.ClearLevelStartReference(ctx, photo.ProjectID, photo.ID, former); err != nil {
			result.warn("unplace.clear_level_start", err)
		}
	}

	result.Neighbors = s.removeReverseLinks(ctx, "unplace", photo.ID, neighborIDs, &result.CascadeResult)
	result.AffectedNeighborIDs = lo.Map(result.Neighbors, func(p *model.Panophoto, _ int) string { return p.ID })

	s.invalidate(ctx, append([]string{photo.ID}, neighborIDs...)...)

	return result, nil
}

// DeletePhoto permanently deletes the photo. The record goes first; then the
// reverse links, the level and project start references and the image blob
// are cleaned up best effort.
func (s *PanophotoService) DeletePhoto(ctx context.Context, photoID string) (*CascadeResult, error) {
	photo, err := s.loadPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}

	id, err := parseID(photo.ID, "panophoto")
	if err != nil {
		return nil, err
	}
	neighborIDs := lo.Without(photo.LinkList().TargetIDs(), photo.ID)

	if err := s.store.DeletePanophoto(ctx, id); err != nil {
		logrus.Errorf("failed to delete panophoto %s: %v", photo.ID, err)
		return nil, fromStore(err, fmt.Errorf("%w: %s", ErrPanophotoNotFound, photo.ID))
	}

	logrus.Infof("deleted panophoto %s, %d neighbors", photo.ID, len(neighborIDs))

	result := &CascadeResult{}
	s.removeReverseLinks(ctx, "delete", photo.ID, neighborIDs, result)

	if err := s.projects.ClearLevelStartReference(ctx, photo.ProjectID, photo.ID); err != nil {
		result.warn("delete.clear_level_start", err)
	}
	if _, err := s.projects.ResolveProjectStart(ctx, photo.ProjectID); err != nil {
		result.warn("delete.resolve_project_start", err)
	}

	if photo.ImageKey != "" {
		if err := s.blobs.Delete(ctx, photo.ImageKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
			result.warn("delete.release_image", fmt.Errorf("image %s: %w", photo.ImageKey, err))
		}
	}

	s.invalidate(ctx, append([]string{photo.ID}, neighborIDs...)...)

	return result, nil
}

// removeReverseLinks drops the entries pointing at photoID from every
// neighbor. Neighbors that no longer exist are skipped silently. It returns
// the neighbors that were cleaned.
func (s *PanophotoService) removeReverseLinks(ctx context.Context, op, photoID string, neighborIDs []string, result *CascadeResult) []*model.Panophoto {
	cleaned := make([]*model.Panophoto, 0, len(neighborIDs))
	for _, id := range neighborIDs {
		neighbor, err := s.loadPhoto(ctx, id)
		if err != nil {
			if errors.Is(err, ErrPanophotoNotFound) || errors.Is(err, ErrInvalidID) {
				continue
			}
			result.warn(op+".load_neighbor", fmt.Errorf("neighbor %s of %s: %w", id, photoID, err))
			continue
		}
		if err := s.removeLink(ctx, neighbor, photoID); err != nil {
			result.warn(op+".reverse_link", fmt.Errorf("neighbor %s of %s: %w", id, photoID, err))
			continue
		}
		cleaned = append(cleaned, neighbor)
	}
	return cleaned
}
