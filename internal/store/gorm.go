package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/emrgen/panorama/internal/model"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func (g *GormStore) CreatePanophoto(ctx context.Context, photo *model.Panophoto) error {
	return wrap(g.db.WithContext(ctx).Create(photo).Error)
}

func (g *GormStore) GetPanophoto(ctx context.Context, id uuid.UUID) (*model.Panophoto, error) {
	var photo model.Panophoto
	err := g.db.WithContext(ctx).Where("id = ?", id.String()).First(&photo).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &photo, nil
}

func (g *GormStore) ListPanophotos(ctx context.Context, projectID uuid.UUID) ([]*model.Panophoto, error) {
	var photos []*model.Panophoto
	err := g.db.WithContext(ctx).
		Where("project_id = ?", projectID.String()).
		Order("created_at asc, id asc").
		Find(&photos).Error
	return photos, wrap(err)
}

func (g *GormStore) ListPanophotosFromIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Panophoto, error) {
	if len(ids) == 0 {
		return []*model.Panophoto{}, nil
	}

	var photos []*model.Panophoto
	keys := lo.Map(ids, func(id uuid.UUID, _ int) string { return id.String() })
	err := g.db.WithContext(ctx).Where("id in (?)", keys).Find(&photos).Error
	return photos, wrap(err)
}

func (g *GormStore) CountPanophotos(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&model.Panophoto{}).Where("project_id = ?", projectID.String()).Count(&count).Error
	return count, wrap(err)
}

func (g *GormStore) UpdatePanophoto(ctx context.Context, photo *model.Panophoto) error {
	return wrap(g.db.WithContext(ctx).Save(photo).Error)
}

func (g *GormStore) DeletePanophoto(ctx context.Context, id uuid.UUID) error {
	res := g.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&model.Panophoto{})
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormStore) CreateProject(ctx context.Context, project *model.Project) error {
	return wrap(g.db.WithContext(ctx).Create(project).Error)
}

func (g *GormStore) GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	err := g.db.WithContext(ctx).Where("id = ?", id.String()).First(&project).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &project, nil
}

func (g *GormStore) GetActiveProject(ctx context.Context) (*model.Project, error) {
	var project model.Project
	err := g.db.WithContext(ctx).Where("is_active = ?", true).Order("created_at desc").First(&project).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &project, nil
}

func (g *GormStore) GetLatestProject(ctx context.Context) (*model.Project, error) {
	var project model.Project
	err := g.db.WithContext(ctx).Order("created_at desc, id desc").First(&project).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &project, nil
}

func (g *GormStore) ListProjects(ctx context.Context) ([]*model.Project, error) {
	var projects []*model.Project
	err := g.db.WithContext(ctx).Order("created_at desc, id desc").Find(&projects).Error
	return projects, wrap(err)
}

func (g *GormStore) UpdateProject(ctx context.Context, project *model.Project) error {
	return wrap(g.db.WithContext(ctx).Save(project).Error)
}

func (g *GormStore) DeactivateProjects(ctx context.Context, exceptID uuid.UUID) error {
	err := g.db.WithContext(ctx).Model(&model.Project{}).
		Where("is_active = ? AND id <> ?", true, exceptID.String()).
		Update("is_active", false).Error
	return wrap(err)
}

func (g *GormStore) DeleteProject(ctx context.Context, id uuid.UUID) error {
	res := g.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&model.Project{})
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}
