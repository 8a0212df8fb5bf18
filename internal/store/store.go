package store

import (
	"context"
	"errors"

	"github.com/emrgen/panorama/internal/model"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStorage wraps every other failure of the underlying database.
	ErrStorage = errors.New("storage failure")
)

type Store interface {
	PanophotoStore
	ProjectStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type PanophotoStore interface {
	// CreatePanophoto creates a new panophoto.
	CreatePanophoto(ctx context.Context, photo *model.Panophoto) error
	// GetPanophoto retrieves a panophoto by ID.
	GetPanophoto(ctx context.Context, id uuid.UUID) (*model.Panophoto, error)
	// ListPanophotos retrieves the panophotos of a project, oldest first.
	ListPanophotos(ctx context.Context, projectID uuid.UUID) ([]*model.Panophoto, error)
	// ListPanophotosFromIDs retrieves the panophotos with the given IDs; unknown IDs are skipped.
	ListPanophotosFromIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Panophoto, error)
	// CountPanophotos counts the panophotos of a project.
	CountPanophotos(ctx context.Context, projectID uuid.UUID) (int64, error)
	// UpdatePanophoto overwrites a panophoto.
	UpdatePanophoto(ctx context.Context, photo *model.Panophoto) error
	// DeletePanophoto permanently deletes a panophoto by ID.
	DeletePanophoto(ctx context.Context, id uuid.UUID) error
}

type ProjectStore interface {
	// CreateProject creates a new project.
	CreateProject(ctx context.Context, project *model.Project) error
	// GetProject retrieves a project by ID.
	GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error)
	// GetActiveProject retrieves the active project.
	GetActiveProject(ctx context.Context) (*model.Project, error)
	// GetLatestProject retrieves the most recently created project.
	GetLatestProject(ctx context.Context) (*model.Project, error)
	// ListProjects retrieves every project, newest first.
	ListProjects(ctx context.Context) ([]*model.Project, error)
	// UpdateProject overwrites a project.
	UpdateProject(ctx context.Context, project *model.Project) error
	// DeactivateProjects marks every project but exceptID inactive.
	DeactivateProjects(ctx context.Context, exceptID uuid.UUID) error
	// DeleteProject permanently deletes a project by ID.
	DeleteProject(ctx context.Context, id uuid.UUID) error
}
