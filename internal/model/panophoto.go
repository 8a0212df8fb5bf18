package model

import (
	"time"

	"github.com/emrgen/panorama/internal/geometry"
	"gorm.io/datatypes"
)

// Panophoto is a panoramic photo owned by a project. A photo with a nil
// LevelID is unplaced: it is not shown on any canvas and has no links.
type Panophoto struct {
	ID           string                       `gorm:"primaryKey;uuid;not null" json:"id"`
	ProjectID    string                       `gorm:"uuid;not null;index:idx_panophotos_project_created" json:"project"`
	Name         string                       `gorm:"not null" json:"name"`
	LevelID      *string                      `gorm:"uuid;index" json:"levelId"`
	XPosition    float64                      `gorm:"not null;default:0" json:"xPosition"`
	YPosition    float64                      `gorm:"not null;default:0" json:"yPosition"`
	ImageURL     string                       `gorm:"not null" json:"imageUrl"`
	ThumbnailURL string                       `json:"thumbnailUrl,omitempty"`
	ImageKey     string                       `gorm:"not null" json:"-"`
	Links        datatypes.JSONType[LinkList] `json:"linkedPhotos"`
	CreatedAt    time.Time                    `gorm:"index:idx_panophotos_project_created" json:"createdAt"`
	UpdatedAt    time.Time                    `json:"updatedAt"`
}

func (Panophoto) TableName() string {
	return "panophotos"
}

// Position returns the canvas position of the photo.
func (p *Panophoto) Position() geometry.Point {
	return geometry.Point{X: p.XPosition, Y: p.YPosition}
}

func (p *Panophoto) SetPosition(pos geometry.Point) {
	p.XPosition = pos.X
	p.YPosition = pos.Y
}

// Placed reports whether the photo sits on a level.
func (p *Panophoto) Placed() bool {
	return p.LevelID != nil && *p.LevelID != ""
}

// OnLevel reports whether the photo is placed on levelID.
func (p *Panophoto) OnLevel(levelID string) bool {
	return p.Placed() && *p.LevelID == levelID
}

func (p *Panophoto) LinkList() LinkList {
	links := p.Links.Data()
	if links == nil {
		return LinkList{}
	}
	return links
}

func (p *Panophoto) SetLinks(links LinkList) {
	if links == nil {
		links = LinkList{}
	}
	p.Links = datatypes.NewJSONType(links)
}

// Unplace clears the level, resets the position and drops every link.
func (p *Panophoto) Unplace() {
	p.LevelID = nil
	p.SetPosition(geometry.Point{})
	p.SetLinks(nil)
}
