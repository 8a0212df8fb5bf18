package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Level is a named sub-canvas of a project. Levels are embedded in the
// project and never stored on their own.
type Level struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Index              int     `json:"index"`
	BackgroundImageURL *string `json:"backgroundImageUrl"`
	BackgroundImageKey *string `json:"backgroundImageKey"`
	StartPanophotoID   *string `json:"startPanophoto"`
}

// DefaultLevelName is the name given to a level without one.
func DefaultLevelName(index int) string {
	return fmt.Sprintf("Level %d", index+1)
}

type LevelList []Level

// Find returns the position of the level with the given id, or -1.
func (l LevelList) Find(id string) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}

// NameTaken reports whether another level than exceptID already uses name,
// compared trimmed and case-insensitively.
func (l LevelList) NameTaken(name, exceptID string) bool {
	name = strings.TrimSpace(name)
	for _, level := range l {
		if level.ID != exceptID && strings.EqualFold(strings.TrimSpace(level.Name), name) {
			return true
		}
	}
	return false
}

// Project groups panophotos. At most one project is active at a time.
type Project struct {
	ID                       string                        `gorm:"primaryKey;uuid;not null" json:"id"`
	Name                     string                        `gorm:"not null" json:"name"`
	Description              string                        `json:"description"`
	IsActive                 bool                          `gorm:"not null;default:false;index" json:"isActive"`
	StartPanophotoID         *string                       `gorm:"uuid" json:"startPanophoto"`
	CanvasBackgroundImageURL *string                       `json:"canvasBackgroundImageUrl"`
	CanvasBackgroundImageKey *string                       `json:"-"`
	Levels                   datatypes.JSONType[LevelList] `json:"levels"`
	CreatedAt                time.Time                     `gorm:"index" json:"createdAt"`
	UpdatedAt                time.Time                     `json:"updatedAt"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) LevelList() LevelList {
	levels := p.Levels.Data()
	if levels == nil {
		return LevelList{}
	}
	return levels
}

func (p *Project) SetLevels(levels LevelList) {
	if levels == nil {
		levels = LevelList{}
	}
	p.Levels = datatypes.NewJSONType(levels)
}

// Level returns the level with the given id.
func (p *Project) Level(id string) (Level, bool) {
	levels := p.LevelList()
	if i := levels.Find(id); i >= 0 {
		return levels[i], true
	}
	return Level{}, false
}

// LevelBackground returns the effective background of a level. Level 0 falls
// back to the project canvas background until it has one of its own.
func (p *Project) LevelBackground(level Level) (url, key *string) {
	if level.BackgroundImageURL != nil && *level.BackgroundImageURL != "" {
		return level.BackgroundImageURL, level.BackgroundImageKey
	}
	if level.Index == 0 && p.CanvasBackgroundImageURL != nil && *p.CanvasBackgroundImageURL != "" {
		return p.CanvasBackgroundImageURL, p.CanvasBackgroundImageKey
	}
	return nil, nil
}

// EffectiveLevels returns the levels with each background URL resolved through
// LevelBackground.
func (p *Project) EffectiveLevels() LevelList {
	levels := p.LevelList()
	out := make(LevelList, len(levels))
	for i, level := range levels {
		level.BackgroundImageURL, _ = p.LevelBackground(level)
		out[i] = level
	}
	return out
}

// MarshalJSON writes the effective level backgrounds, so level 0 shows the
// canvas background until it has one of its own.
func (p Project) MarshalJSON() ([]byte, error) {
	type record Project
	return json.Marshal(struct {
		record
		Levels LevelList `json:"levels"`
	}{record(p), p.EffectiveLevels()})
}

// NormalizeLevels makes the level list of p hold at least one level, with
// dense zero-based indices in index order, trimmed non-blank names and ids.
// It reports whether anything changed.
func NormalizeLevels(p *Project) bool {
	levels := p.LevelList()
	changed := false

	if len(levels) == 0 {
		levels = LevelList{{Name: DefaultLevelName(0), Index: 0}}
		changed = true
	}

	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Index < levels[j].Index
	})

	for i := range levels {
		level := &levels[i]
		if level.ID == "" {
			level.ID = uuid.New().String()
			changed = true
		}

		name := strings.TrimSpace(level.Name)
		if name == "" {
			name = DefaultLevelName(i)
		}
		if name != level.Name {
			level.Name = name
			changed = true
		}

		if level.Index != i {
			level.Index = i
			changed = true
		}
	}

	if changed {
		p.SetLevels(levels)
	}

	return changed
}
