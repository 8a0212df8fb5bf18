// Package resolve derives the effective start photo of a project and of each
// of its levels. The same functions back the write path, which persists the
// project start, and the read path, which only displays it, so both always
// agree for the same inputs.
package resolve

import (
	"sort"
	"time"

	"github.com/emrgen/panorama/internal/model"
	"github.com/samber/lo"
)

// Candidate is a photo eligible as a start photo.
type Candidate struct {
	ID        string
	CreatedAt time.Time
}

// Start returns stored when it names one of the candidates, otherwise the
// oldest candidate, otherwise "". Equal creation times are ordered by id.
func Start(stored string, candidates []Candidate) string {
	if len(candidates) == 0 {
		return ""
	}

	if stored != "" && lo.ContainsBy(candidates, func(c Candidate) bool { return c.ID == stored }) {
		return stored
	}

	oldest := lo.MinBy(candidates, func(a, b Candidate) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	return oldest.ID
}

// Candidates converts photos into start candidates.
func Candidates(photos []*model.Panophoto) []Candidate {
	return lo.Map(photos, func(p *model.Panophoto, _ int) Candidate {
		return Candidate{ID: p.ID, CreatedAt: p.CreatedAt}
	})
}

// ProjectStart resolves the project-wide start among all photos of the project.
func ProjectStart(project *model.Project, photos []*model.Panophoto) string {
	owned := lo.Filter(photos, func(p *model.Panophoto, _ int) bool {
		return p.ProjectID == project.ID
	})
	return Start(lo.FromPtr(project.StartPanophotoID), Candidates(owned))
}

// LevelStart resolves the start of one level among the photos placed on it.
func LevelStart(level model.Level, photos []*model.Panophoto) string {
	onLevel := lo.Filter(photos, func(p *model.Panophoto, _ int) bool {
		return p.OnLevel(level.ID)
	})
	return Start(lo.FromPtr(level.StartPanophotoID), Candidates(onLevel))
}

// Starts holds the resolved start photos of a project. Levels without any
// photo are absent from LevelStartIDs.
type Starts struct {
	ProjectStartID string            `json:"projectStartId"`
	LevelStartIDs  map[string]string `json:"levelStartIds"`
}

// Resolve computes the project start and every level start. The project
// levels are expected to be normalized already.
func Resolve(project *model.Project, photos []*model.Panophoto) Starts {
	starts := Starts{
		ProjectStartID: ProjectStart(project, photos),
		LevelStartIDs:  make(map[string]string),
	}

	for _, level := range project.LevelList() {
		if id := LevelStart(level, photos); id != "" {
			starts.LevelStartIDs[level.ID] = id
		}
	}

	return starts
}

// OldestFirst sorts photos by creation time, then id.
func OldestFirst(photos []*model.Panophoto) {
	sort.SliceStable(photos, func(i, j int) bool {
		if photos[i].CreatedAt.Equal(photos[j].CreatedAt) {
			return photos[i].ID < photos[j].ID
		}
		return photos[i].CreatedAt.Before(photos[j].CreatedAt)
	})
}
