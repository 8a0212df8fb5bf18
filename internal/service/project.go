package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/emrgen/panorama/internal/blob"
	"github.com/emrgen/panorama/internal/cache"
	"github.com/emrgen/panorama/internal/model"
	"github.com/emrgen/panorama/internal/resolve"
	"github.com/emrgen/panorama/internal/store"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// ProjectService manages projects, their levels and their start photos.
type ProjectService struct {
	store store.Store
	blobs blob.Store
	cache cache.PanophotoCache
}

// NewProjectService creates a new project service.
func NewProjectService(store store.Store, blobs blob.Store, cache cache.PanophotoCache) *ProjectService {
	return &ProjectService{
		store: store,
		blobs: blobs,
		cache: cache,
	}
}

// CreateProject creates an active project and deactivates every other one.
func (s *ProjectService) CreateProject(ctx context.Context, name, description string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidArgument(ErrNameRequired)
	}

	project := &model.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(description),
		IsActive:    true,
	}
	model.NormalizeLevels(project)

	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.DeactivateProjects(ctx, uuid.MustParse(project.ID)); err != nil {
			return err
		}
		return tx.CreateProject(ctx, project)
	})
	if err != nil {
		logrus.Errorf("failed to create project %s: %v", name, err)
		return nil, storageFailure(err)
	}

	logrus.Infof("created project %s (%s)", project.ID, project.Name)

	return project, nil
}

// GetProject returns a project with its levels ensured.
func (s *ProjectService) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return s.loadProject(ctx, id)
}

// GetActiveProject returns the active project.
func (s *ProjectService) GetActiveProject(ctx context.Context) (*model.Project, error) {
	project, err := s.store.GetActiveProject(ctx)
	if err != nil {
		return nil, fromStore(err, fmt.Errorf("%w: no active project", ErrProjectNotFound))
	}
	if err := s.EnsureLevels(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// ListProjects returns every project, newest first.
func (s *ProjectService) ListProjects(ctx context.Context) ([]*model.Project, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, storageFailure(err)
	}
	return projects, nil
}

// ActivateProject makes the project the only active one.
func (s *ProjectService) ActivateProject(ctx context.Context, id string) (*model.Project, error) {
	project, err := s.loadProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.activate(ctx, project); err != nil {
		logrus.Errorf("failed to activate project %s: %v", project.ID, err)
		return nil, storageFailure(err)
	}

	logrus.Infof("activated project %s", project.ID)

	return project, nil
}

func (s *ProjectService) activate(ctx context.Context, project *model.Project) error {
	return s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.DeactivateProjects(ctx, uuid.MustParse(project.ID)); err != nil {
			return err
		}
		project.IsActive = true
		return tx.UpdateProject(ctx, project)
	})
}

// DeleteProject deletes a project. A project that still owns panophotos is
// rejected unless force is set, in which case its panophotos and every blob
// it owns are removed first. When no project is active afterwards, the most
// recently created one is activated.
func (s *ProjectService) DeleteProject(ctx context.Context, id string, force bool) (*CascadeResult, error) {
	project, err := s.loadProject(ctx, id)
	if err != nil {
		return nil, err
	}
	projectID := uuid.MustParse(project.ID)

	photos, err := s.store.ListPanophotos(ctx, projectID)
	if err != nil {
		return nil, storageFailure(err)
	}
	if len(photos) > 0 && !force {
		return nil, failedPrecondition(fmt.Errorf("%w: %d panophotos", ErrProjectNotEmpty, len(photos)))
	}

	result := &CascadeResult{}
	for _, photo := range photos {
		if err := s.store.DeletePanophoto(ctx, uuid.MustParse(photo.ID)); err != nil && !errors.Is(err, store.ErrNotFound) {
			logrus.Errorf("failed to delete panophoto %s of project %s: %v", photo.ID, project.ID, err)
			return nil, storageFailure(err)
		}
		s.releaseBlob(ctx, "delete_project.release_image", photo.ImageKey, result)
	}

	for _, level := range project.LevelList() {
		s.releaseBlob(ctx, "delete_project.release_background", lo.FromPtr(level.BackgroundImageKey), result)
	}
	s.releaseBlob(ctx, "delete_project.release_background", lo.FromPtr(project.CanvasBackgroundImageKey), result)

	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		logrus.Errorf("failed to delete project %s: %v", project.ID, err)
		return nil, fromStore(err, fmt.Errorf("%w: %s", ErrProjectNotFound, id))
	}

	logrus.Infof("deleted project %s with %d panophotos", project.ID, len(photos))

	if err := s.cache.Invalidate(ctx, lo.Map(photos, func(p *model.Panophoto, _ int) string { return p.ID })...); err != nil {
		logrus.Warnf("failed to invalidate panophotos of project %s: %v", project.ID, err)
	}

	if err := s.ensureActiveProject(ctx); err != nil {
		result.warn("delete_project.activate_latest", err)
	}

	return result, nil
}

// ensureActiveProject activates the most recently created project when no
// project is active.
func (s *ProjectService) ensureActiveProject(ctx context.Context) error {
	_, err := s.store.GetActiveProject(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	latest, err := s.store.GetLatestProject(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	logrus.Infof("activating latest project %s", latest.ID)

	return s.activate(ctx, latest)
}

// EnsureLevels normalizes the levels of project and saves it when they changed.
func (s *ProjectService) EnsureLevels(ctx context.Context, project *model.Project) error {
	if !model.NormalizeLevels(project) {
		return nil
	}
	if err := s.store.UpdateProject(ctx, project); err != nil {
		logrus.Errorf("failed to save levels of project %s: %v", project.ID, err)
		return storageFailure(err)
	}
	return nil
}

// ResolveProjectStart resolves the start photo of the project and saves it
// when it differs from the stored one. An empty id means the project has no
// photos.
func (s *ProjectService) ResolveProjectStart(ctx context.Context, projectID string) (string, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return "", err
	}

	photos, err := s.store.ListPanophotos(ctx, uuid.MustParse(project.ID))
	if err != nil {
		return "", storageFailure(err)
	}

	start := resolve.ProjectStart(project, photos)
	if start == lo.FromPtr(project.StartPanophotoID) {
		return start, nil
	}

	project.StartPanophotoID = lo.EmptyableToPtr(start)
	if err := s.store.UpdateProject(ctx, project); err != nil {
		logrus.Errorf("failed to save start of project %s: %v", project.ID, err)
		return "", storageFailure(err)
	}

	logrus.Infof("project %s starts at %q", project.ID, start)

	return start, nil
}

// ResolveStarts derives the project start and the start of every level
// without writing anything.
func (s *ProjectService) ResolveStarts(ctx context.Context, projectID string) (*resolve.Starts, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	photos, err := s.store.ListPanophotos(ctx, uuid.MustParse(project.ID))
	if err != nil {
		return nil, storageFailure(err)
	}

	starts := resolve.Resolve(project, photos)

	return &starts, nil
}

// SetProjectStart stores photoID as the start photo of the project.
func (s *ProjectService) SetProjectStart(ctx context.Context, projectID, photoID string) (*model.Project, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	photo, err := s.loadPanophoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo.ProjectID != project.ID {
		return nil, invalidArgument(fmt.Errorf("%w: panophoto %s is not in project %s", ErrNotInProject, photo.ID, project.ID))
	}

	project.StartPanophotoID = lo.ToPtr(photo.ID)
	if err := s.store.UpdateProject(ctx, project); err != nil {
		return nil, storageFailure(err)
	}

	return project, nil
}

func (s *ProjectService) loadProject(ctx context.Context, id string) (*model.Project, error) {
	parsed, err := parseID(id, "project")
	if err != nil {
		return nil, err
	}

	project, err := s.store.GetProject(ctx, parsed)
	if err != nil {
		return nil, fromStore(err, fmt.Errorf("%w: %s", ErrProjectNotFound, id))
	}

	if err := s.EnsureLevels(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

func (s *ProjectService) loadPanophoto(ctx context.Context, id string) (*model.Panophoto, error) {
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

func (s *ProjectService) releaseBlob(ctx context.Context, op, key string, result *CascadeResult) {
	if key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, blob.ErrNotFound) {
		result.warn(op, fmt.Errorf("blob %s: %w", key, err))
	}
}
