package viewer

import (
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/panorama/internal/model"
	"github.com/emrgen/panorama/internal/resolve"
	"github.com/samber/lo"
)

// Segment is a line between two linked photos, in percent of the canvas.
type Segment struct {
	ID string  `json:"id"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// LinkLines returns one segment per linked pair of photos placed on levelID.
// Links to photos elsewhere are not drawn.
func LinkLines(photos []*model.Panophoto, levelID string) []Segment {
	visible := lo.Filter(photos, func(p *model.Panophoto, _ int) bool { return p.OnLevel(levelID) })
	byID := lo.KeyBy(visible, func(p *model.Panophoto) string { return p.ID })

	seen := mapset.NewThreadUnsafeSet[string]()
	segments := make([]Segment, 0)
	for _, photo := range visible {
		for _, id := range photo.LinkList().TargetIDs() {
			partner, ok := byID[id]
			if !ok || partner.ID == photo.ID {
				continue
			}

			pair := []string{photo.ID, partner.ID}
			sort.Strings(pair)
			key := strings.Join(pair, "::")
			if !seen.Add(key) {
				continue
			}

			segments = append(segments, Segment{
				ID: key,
				X1: photo.XPosition * 100,
				Y1: photo.YPosition * 100,
				X2: partner.XPosition * 100,
				Y2: partner.YPosition * 100,
			})
		}
	}

	return segments
}

// LevelStarts resolves the start photo of each level for display. Levels
// without photos are absent.
func LevelStarts(levels model.LevelList, photos []*model.Panophoto) map[string]string {
	starts := make(map[string]string, len(levels))
	for _, level := range levels {
		if id := resolve.LevelStart(level, photos); id != "" {
			starts[level.ID] = id
		}
	}
	return starts
}
