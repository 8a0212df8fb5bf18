package service

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/panorama/internal/metrics"
	"github.com/emrgen/panorama/internal/model"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// RepairReport counts the link entries fixed in one project.
type RepairReport struct {
	ProjectID string `json:"projectId"`
	Upgraded  int    `json:"upgraded"`
	Dropped   int    `json:"dropped"`
	Restored  int    `json:"restored"`
	CascadeResult
}

// Changed reports whether any entry was rewritten.
func (r *RepairReport) Changed() bool {
	return r.Upgraded+r.Dropped+r.Restored > 0
}

// RepairProjectLinks brings the links of a project back to a symmetric,
// structured state:
//   - entries pointing at missing photos, photos of another project or the
//     owner itself are dropped;
//   - a one-sided entry between an unplaced photo and another photo is dropped;
//   - legacy and stale entries get their azimuth recomputed;
//   - a one-sided entry between two placed photos gets its reverse entry back.
//
// Each photo is saved on its own; a failed save is reported as a warning.
func (s *PanophotoService) RepairProjectLinks(ctx context.Context, projectID string) (*RepairReport, error) {
	photos, err := s.ListPhotos(ctx, projectID)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{ProjectID: projectID}
	byID := lo.KeyBy(photos, func(p *model.Panophoto) string { return p.ID })
	linkedBefore := lo.MapValues(byID, func(p *model.Panophoto, _ string) mapset.Set[string] {
		return p.LinkList().TargetSet()
	})
	dirty := mapset.NewThreadUnsafeSet[string]()

	for _, photo := range photos {
		links := photo.LinkList()
		changed := false
		for _, id := range links.TargetIDs() {
			target, ok := byID[id]
			oneSided := ok && !linkedBefore[id].Contains(photo.ID)

			if !ok || id == photo.ID || (oneSided && !(photo.Placed() && target.Placed())) {
				links, _ = links.Remove(id)
				report.Dropped++
				changed = true
				continue
			}

			entry, _ := links.Find(id)
			var upserted bool
			links, upserted = links.Upsert(id, azimuthBetween(photo, target))
			if upserted {
				changed = true
				if entry.Legacy() {
					report.Upgraded++
				}
			}
		}
		if changed {
			photo.SetLinks(links)
			dirty.Add(photo.ID)
		}
	}

	for _, photo := range photos {
		if !photo.Placed() {
			continue
		}
		for _, id := range photo.LinkList().TargetIDs() {
			target := byID[id]
			if _, ok := target.LinkList().Find(photo.ID); ok {
				continue
			}
			links, _ := target.LinkList().Upsert(photo.ID, azimuthBetween(target, photo))
			target.SetLinks(links)
			dirty.Add(target.ID)
			report.Restored++
		}
	}

	for _, photo := range photos {
		if !dirty.Contains(photo.ID) {
			continue
		}
		if err := s.store.UpdatePanophoto(ctx, photo); err != nil {
			report.warn("repair.save", fmt.Errorf("panophoto %s: %w", photo.ID, err))
		}
	}

	if report.Changed() {
		metrics.LinkRepairs.WithLabelValues("upgraded").Add(float64(report.Upgraded))
		metrics.LinkRepairs.WithLabelValues("dropped").Add(float64(report.Dropped))
		metrics.LinkRepairs.WithLabelValues("restored").Add(float64(report.Restored))
		logrus.Infof("repaired links of project %s: %d upgraded, %d dropped, %d restored",
			projectID, report.Upgraded, report.Dropped, report.Restored)
		s.invalidate(ctx, dirty.ToSlice()...)
	}

	return report, nil
}
