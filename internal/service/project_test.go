package service_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/emrgen/panorama/internal/geometry"
	"github.com/emrgen/panorama/internal/model"
	"github.com/emrgen/panorama/internal/service"
	"github.com/emrgen/panorama/internal/tester"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCreateProject_SingleActive(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)

	first := env.Project(t, "first")
	second := env.Project(t, "  second ")
	assert.Equal(t, "second", second.Name)

	active, err := env.Projects.GetActiveProject(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.False(t, env.ReloadProject(t, first.ID).IsActive)

	_, err = env.Projects.ActivateProject(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, env.ReloadProject(t, first.ID).IsActive)
	assert.False(t, env.ReloadProject(t, second.ID).IsActive)

	_, err = env.Projects.CreateProject(ctx, "   ", "")
	assert.ErrorIs(t, err, service.ErrNameRequired)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCreateProject_HasFirstLevel(t *testing.T) {
	env := tester.NewEnv(t)
	project := env.Project(t, "house")

	levels := env.ReloadProject(t, project.ID).LevelList()
	require.Len(t, levels, 1)
	assert.Equal(t, "Level 1", levels[0].Name)
	assert.Equal(t, 0, levels[0].Index)
	assert.NotEmpty(t, levels[0].ID)
}

func TestGetProject_EnsuresStoredLevels(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")

	project.SetLevels(model.LevelList{
		{ID: "c", Name: "", Index: 5},
		{ID: "a", Name: "Ground", Index: 2},
		{ID: "b", Name: "Basement", Index: 0},
	})
	require.NoError(t, env.Store.UpdateProject(ctx, project))

	got, err := env.Projects.GetProject(ctx, project.ID)
	require.NoError(t, err)

	levels := env.ReloadProject(t, got.ID).LevelList()
	assert.Equal(t, []string{"b", "a", "c"}, lo.Map(levels, func(l model.Level, _ int) string { return l.ID }))
	assert.Equal(t, []int{0, 1, 2}, lo.Map(levels, func(l model.Level, _ int) int { return l.Index }))
	assert.Equal(t, "Level 3", levels[2].Name)
}

func TestDeleteProject(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)

	older := env.Project(t, "older")
	latest := env.Project(t, "latest")
	doomed := env.Project(t, "doomed")
	photo := env.Photo(t, doomed.ID, "a")

	_, err := env.Projects.DeleteProject(ctx, doomed.ID, false)
	assert.ErrorIs(t, err, service.ErrProjectNotEmpty)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	project, err := env.Projects.SetLevelBackground(ctx, doomed.ID, firstLevel(doomed), bytes.NewReader([]byte("bg")), "image/png", "png")
	require.NoError(t, err)
	backgroundKey := lo.FromPtr(project.LevelList()[0].BackgroundImageKey)
	require.True(t, env.Blobs.Has(backgroundKey))

	res, err := env.Projects.DeleteProject(ctx, doomed.ID, true)
	require.NoError(t, err)
	assert.True(t, res.Complete())

	assert.False(t, env.Blobs.Has(photo.ImageKey))
	assert.False(t, env.Blobs.Has(backgroundKey))
	_, err = env.Projects.GetProject(ctx, doomed.ID)
	assert.Equal(t, codes.NotFound, status.Code(err))
	_, err = env.Photos.GetPhoto(ctx, photo.ID)
	assert.Equal(t, codes.NotFound, status.Code(err))

	active, err := env.Projects.GetActiveProject(ctx)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, active.ID)
	assert.False(t, env.ReloadProject(t, older.ID).IsActive)
}

func TestLevels(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")

	_, second, err := env.Projects.CreateLevel(ctx, project.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Level 2", second.Name)
	assert.Equal(t, 1, second.Index)

	_, _, err = env.Projects.CreateLevel(ctx, project.ID, " level 2 ")
	assert.ErrorIs(t, err, service.ErrDuplicateLevelName)

	tests := []struct {
		name    string
		levelID string
		rename  string
		err     error
		code    codes.Code
	}{
		{"empty name", second.ID, "  ", service.ErrEmptyLevelName, codes.InvalidArgument},
		{"duplicate", second.ID, "LEVEL 1", service.ErrDuplicateLevelName, codes.InvalidArgument},
		{"unknown level", uuid.New().String(), "Attic", service.ErrLevelNotFound, codes.NotFound},
		{"same name other case", second.ID, "level 2", nil, codes.OK},
		{"rename", second.ID, " Attic ", nil, codes.OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Projects.RenameLevel(ctx, project.ID, tt.levelID, tt.rename)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.code, status.Code(err))
		})
	}

	_, level, err := env.Projects.LoadProjectLevel(ctx, project.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "Attic", level.Name)

	_, level, err = env.Projects.LoadProjectLevel(ctx, project.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 0, level.Index)
}

func TestSetLevelStart(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")
	ground := firstLevel(project)
	_, upstairs, err := env.Projects.CreateLevel(ctx, project.ID, "Upstairs")
	require.NoError(t, err)

	a := env.PlacedPhoto(t, project.ID, ground, "a", geometry.Point{X: 0.5, Y: 0.5})
	b := env.PlacedPhoto(t, project.ID, ground, "b", geometry.Point{X: 0.2, Y: 0.5})

	_, err = env.Projects.SetLevelStart(ctx, project.ID, upstairs.ID, a.ID)
	assert.ErrorIs(t, err, service.ErrNotOnLevel)

	_, err = env.Projects.SetLevelStart(ctx, project.ID, ground, b.ID)
	require.NoError(t, err)

	starts, err := env.Projects.ResolveStarts(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, starts.LevelStartIDs[ground])
	assert.Equal(t, a.ID, starts.ProjectStartID)
	assert.NotContains(t, starts.LevelStartIDs, upstairs.ID)
}

func TestClearLevelBackground_FirstLevelDropsCanvasFallback(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")

	legacyKey := "canvas/house.png"
	_, err := env.Blobs.Put(ctx, legacyKey, bytes.NewReader([]byte("canvas")), "image/png")
	require.NoError(t, err)
	project.CanvasBackgroundImageURL = lo.ToPtr("memory://" + legacyKey)
	project.CanvasBackgroundImageKey = lo.ToPtr(legacyKey)
	require.NoError(t, env.Store.UpdateProject(ctx, project))

	url, _ := project.LevelBackground(project.LevelList()[0])
	assert.Equal(t, "memory://"+legacyKey, lo.FromPtr(url))

	cleared, res, err := env.Projects.ClearLevelBackground(ctx, project.ID, firstLevel(project))
	require.NoError(t, err)
	assert.True(t, res.Complete())

	url, _ = cleared.LevelBackground(cleared.LevelList()[0])
	assert.Nil(t, url)
	assert.False(t, env.Blobs.Has(legacyKey))
}

func TestCreatePhoto(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")

	photo, err := env.Photos.CreatePhoto(ctx, project.ID, "lobby", bytes.NewReader([]byte("jpg")), "image/jpeg", "JPG")
	require.NoError(t, err)
	assert.False(t, photo.Placed())
	assert.Empty(t, photo.LinkList())
	assert.Regexp(t, `^panophotos/[0-9a-f-]{36}\.jpg$`, photo.ImageKey)
	assert.Equal(t, "memory://"+photo.ImageKey, photo.ImageURL)

	tests := []struct {
		name        string
		projectID   string
		photoName   string
		contentType string
		code        codes.Code
	}{
		{"blank name", project.ID, " ", "image/jpeg", codes.InvalidArgument},
		{"not an image", project.ID, "doc", "application/pdf", codes.InvalidArgument},
		{"unknown project", uuid.New().String(), "x", "image/jpeg", codes.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Photos.CreatePhoto(ctx, tt.projectID, tt.photoName, bytes.NewReader(nil), tt.contentType, ".jpg")
			assert.Equal(t, tt.code, status.Code(err))
		})
	}

	env.Blobs.FailPut = true
	before := env.Blobs.Len()
	_, err = env.Photos.CreatePhoto(ctx, project.ID, "lost", bytes.NewReader(nil), "image/jpeg", ".jpg")
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Equal(t, before, env.Blobs.Len())

	photos, err := env.Photos.ListPhotos(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, photos, 1)
}
