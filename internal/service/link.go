package service

import (
	"context"

	"github.com/emrgen/panorama/internal/geometry"
	"github.com/emrgen/panorama/internal/metrics"
	"github.com/emrgen/panorama/internal/model"
)

// upsertLink makes owner hold exactly one structured entry for target with the
// given azimuth, keeping its offset, and saves owner when anything changed.
func (s *PanophotoService) upsertLink(ctx context.Context, owner *model.Panophoto, target string, azimuth float64) error {
	links, changed := owner.LinkList().Upsert(target, azimuth)
	if !changed {
		return nil
	}

	owner.SetLinks(links)
	if err := s.store.UpdatePanophoto(ctx, owner); err != nil {
		return err
	}
	metrics.LinkMutations.WithLabelValues("upsert").Inc()

	return nil
}

// removeLink drops every entry of owner pointing at target and saves owner
// when anything changed. Removing a missing link is a no-op.
func (s *PanophotoService) removeLink(ctx context.Context, owner *model.Panophoto, target string) error {
	links, changed := owner.LinkList().Remove(target)
	if !changed {
		return nil
	}

	owner.SetLinks(links)
	if err := s.store.UpdatePanophoto(ctx, owner); err != nil {
		return err
	}
	metrics.LinkMutations.WithLabelValues("remove").Inc()

	return nil
}

func azimuthBetween(source, target *model.Panophoto) float64 {
	return geometry.Azimuth(source.Position(), target.Position())
}
