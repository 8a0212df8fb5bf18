package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/emrgen/panorama/internal/model"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// LoadProjectLevel returns the project with its levels ensured and the level
// with the given id, or the first level when levelID is empty.
func (s *ProjectService) LoadProjectLevel(ctx context.Context, projectID, levelID string) (*model.Project, model.Level, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, model.Level{}, err
	}

	if levelID == "" {
		return project, project.LevelList()[0], nil
	}

	level, ok := project.Level(levelID)
	if !ok {
		return nil, model.Level{}, notFound(fmt.Errorf("%w: %s", ErrLevelNotFound, levelID))
	}

	return project, level, nil
}

// CreateLevel appends a level to the project. A blank name becomes the
// default "Level n" name.
func (s *ProjectService) CreateLevel(ctx context.Context, projectID, name string) (*model.Project, model.Level, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, model.Level{}, err
	}

	levels := project.LevelList()
	name = strings.TrimSpace(name)
	if name == "" {
		name = model.DefaultLevelName(len(levels))
	}
	if levels.NameTaken(name, "") {
		return nil, model.Level{}, invalidArgument(fmt.Errorf("%w: %s", ErrDuplicateLevelName, name))
	}

	level := model.Level{
		ID:    uuid.New().String(),
		Name:  name,
		Index: len(levels),
	}
	project.SetLevels(append(levels, level))

	if err := s.store.UpdateProject(ctx, project); err != nil {
		logrus.Errorf("failed to create level in project %s: %v", project.ID, err)
		return nil, model.Level{}, storageFailure(err)
	}

	logrus.Infof("created level %s (%s) in project %s", level.ID, level.Name, project.ID)

	return project, level, nil
}

// RenameLevel renames a level. Names are unique per project, ignoring case.
func (s *ProjectService) RenameLevel(ctx context.Context, projectID, levelID, name string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidArgument(ErrEmptyLevelName)
	}

	return s.updateLevel(ctx, projectID, levelID, func(project *model.Project, level *model.Level) error {
		if project.LevelList().NameTaken(name, level.ID) {
			return invalidArgument(fmt.Errorf("%w: %s", ErrDuplicateLevelName, name))
		}
		level.Name = name
		return nil
	})
}

// SetLevelStart stores photoID as the start photo of the level. The photo
// must be placed on that level.
func (s *ProjectService) SetLevelStart(ctx context.Context, projectID, levelID, photoID string) (*model.Project, error) {
	photo, err := s.loadPanophoto(ctx, photoID)
	if err != nil {
		return nil, err
	}

	return s.updateLevel(ctx, projectID, levelID, func(project *model.Project, level *model.Level) error {
		if photo.ProjectID != project.ID || !photo.OnLevel(level.ID) {
			return invalidArgument(fmt.Errorf("%w: %s", ErrNotOnLevel, photo.ID))
		}
		level.StartPanophotoID = lo.ToPtr(photo.ID)
		return nil
	})
}

// SetLevelBackground uploads a background image for the level. The previous
// background of the level is released best effort.
func (s *ProjectService) SetLevelBackground(ctx context.Context, projectID, levelID string, image io.Reader, contentType, ext string) (*model.Project, error) {
	if image == nil {
		return nil, invalidArgument(ErrImageRequired)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, invalidArgument(ErrNotAnImage)
	}

	project, level, err := s.LoadProjectLevel(ctx, projectID, levelID)
	if err != nil {
		return nil, err
	}

	if ext == "" {
		ext = ".bin"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	key := fmt.Sprintf("levels/%s/%s/%s%s", project.ID, level.ID, uuid.New().String(), strings.ToLower(ext))
	url, err := s.blobs.Put(ctx, key, image, contentType)
	if err != nil {
		logrus.Errorf("failed to upload background %s: %v", key, err)
		return nil, storageFailure(err)
	}

	previous := lo.FromPtr(level.BackgroundImageKey)
	project, err = s.updateLevel(ctx, project.ID, level.ID, func(_ *model.Project, level *model.Level) error {
		level.BackgroundImageURL = lo.ToPtr(url)
		level.BackgroundImageKey = lo.ToPtr(key)
		return nil
	})
	var result CascadeResult
	if err != nil {
		s.releaseBlob(ctx, "level_background.release_unsaved", key, &result)
		return nil, err
	}
	s.releaseBlob(ctx, "level_background.release_previous", previous, &result)

	return project, nil
}

// ClearLevelBackground removes the background of a level. Clearing the first
// level also clears the project canvas background it falls back to.
func (s *ProjectService) ClearLevelBackground(ctx context.Context, projectID, levelID string) (*model.Project, *CascadeResult, error) {
	var released []string

	project, err := s.updateLevel(ctx, projectID, levelID, func(project *model.Project, level *model.Level) error {
		released = append(released, lo.FromPtr(level.BackgroundImageKey))
		level.BackgroundImageURL = nil
		level.BackgroundImageKey = nil
		if level.Index == 0 {
			released = append(released, lo.FromPtr(project.CanvasBackgroundImageKey))
			project.CanvasBackgroundImageURL = nil
			project.CanvasBackgroundImageKey = nil
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	result := &CascadeResult{}
	for _, key := range released {
		s.releaseBlob(ctx, "level_background.release", key, result)
	}

	return project, result, nil
}

// ClearLevelStartReference clears the start photo of the listed levels, or of
// every level when none is listed, wherever it points at photoID.
func (s *ProjectService) ClearLevelStartReference(ctx context.Context, projectID, photoID string, levelIDs ...string) error {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}

	levels := project.LevelList()
	changed := false
	for i := range levels {
		if len(levelIDs) > 0 && !lo.Contains(levelIDs, levels[i].ID) {
			continue
		}
		if lo.FromPtr(levels[i].StartPanophotoID) == photoID {
			levels[i].StartPanophotoID = nil
			changed = true
		}
	}
	if !changed {
		return nil
	}

	project.SetLevels(levels)
	if err := s.store.UpdateProject(ctx, project); err != nil {
		return storageFailure(err)
	}

	logrus.Infof("cleared level start %s in project %s", photoID, project.ID)

	return nil
}

// updateLevel loads the project, applies update to the level and saves the
// project. An update error is returned unchanged and nothing is written.
func (s *ProjectService) updateLevel(ctx context.Context, projectID, levelID string, update func(project *model.Project, level *model.Level) error) (*model.Project, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	levels := project.LevelList()
	i := levels.Find(levelID)
	if i < 0 {
		return nil, notFound(fmt.Errorf("%w: %s", ErrLevelNotFound, levelID))
	}

	if err := update(project, &levels[i]); err != nil {
		return nil, err
	}

	project.SetLevels(levels)
	if err := s.store.UpdateProject(ctx, project); err != nil {
		logrus.Errorf("failed to update level %s of project %s: %v", levelID, project.ID, err)
		return nil, storageFailure(err)
	}

	return project, nil
}
