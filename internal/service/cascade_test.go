package service_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/emrgen/panorama/internal/geometry"
	"github.com/emrgen/panorama/internal/service"
	"github.com/emrgen/panorama/internal/tester"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMovePhoto_RecomputesAzimuthsAndKeepsOffset(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")
	level := firstLevel(project)

	a := env.PlacedPhoto(t, project.ID, level, "a", geometry.Point{X: 0.5, Y: 0.5})
	b := env.PlacedPhoto(t, project.ID, level, "b", geometry.Point{X: 0.5, Y: 0.1})
	_, err := env.Photos.LinkPhotos(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = env.Photos.SetLinkOffset(ctx, a.ID, b.ID, 30)
	require.NoError(t, err)

	res, err := env.Photos.MovePhoto(ctx, a.ID, geometry.Point{X: 0.1, Y: 0.1}, nil)
	require.NoError(t, err)
	assert.True(t, res.Complete())
	assert.Equal(t, []string{b.ID}, res.AffectedNeighborIDs)

	ab, _ := env.Reload(t, a.ID).LinkList().Find(b.ID)
	assert.InDelta(t, 90, ab.Azimuth, 1e-9)
	assert.InDelta(t, 30, ab.AzimuthOffset, 1e-9)

	ba, _ := env.Reload(t, b.ID).LinkList().Find(a.ID)
	assert.InDelta(t, 270, ba.Azimuth, 1e-9)
}

func TestMovePhoto_OffCanvasEndToEnd(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")
	level := firstLevel(project)

	x := env.PlacedPhoto(t, project.ID, level, "x", geometry.Point{X: 0, Y: 0})
	y := env.PlacedPhoto(t, project.ID, level, "y", geometry.Point{X: 1, Y: 0})
	_, err := env.Photos.LinkPhotos(ctx, x.ID, y.ID)
	require.NoError(t, err)

	xy := env.Reload(t, x.ID).LinkList()
	yx := env.Reload(t, y.ID).LinkList()
	require.Len(t, xy, 1)
	require.Len(t, yx, 1)
	assert.InDelta(t, 90, xy[0].Azimuth, 1e-9)
	assert.InDelta(t, 270, yx[0].Azimuth, 1e-9)

	res, err := env.Photos.MovePhoto(ctx, x.ID, geometry.Point{X: 0, Y: -1}, nil)
	require.NoError(t, err)
	assert.True(t, res.Complete())

	moved := env.Reload(t, x.ID)
	assert.Equal(t, geometry.Point{X: 0, Y: -1}, moved.Position())

	xy = moved.LinkList()
	yx = env.Reload(t, y.ID).LinkList()
	require.Len(t, xy, 1)
	require.Len(t, yx, 1)
	assert.Equal(t, y.ID, xy[0].Target)
	assert.InDelta(t, 135, xy[0].Azimuth, 1e-9)
	assert.Zero(t, xy[0].AzimuthOffset)
	assert.Equal(t, x.ID, yx[0].Target)
	assert.InDelta(t, 315, yx[0].Azimuth, 1e-9)
	assert.Zero(t, yx[0].AzimuthOffset)
}

func TestMovePhoto_Validation(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")
	a := env.Photo(t, project.ID, "a")
	unknown := "3f0c56a2-3c37-4a59-9b0c-1d1f0b2f4a10"

	tests := []struct {
		name  string
		pos   geometry.Point
		level *string
		code  codes.Code
	}{
		{"not a number", geometry.Point{X: math.NaN(), Y: 0.5}, nil, codes.InvalidArgument},
		{"infinite", geometry.Point{X: 0.5, Y: math.Inf(-1)}, nil, codes.InvalidArgument},
		{"unknown level", geometry.Point{X: 0.5, Y: 0.5}, &unknown, codes.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Photos.MovePhoto(ctx, a.ID, tt.pos, tt.level)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}

	assert.False(t, env.Reload(t, a.ID).Placed())
}

func TestMovePhoto_UnplacedLandsOnFirstLevel(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")
	a := env.Photo(t, project.ID, "a")

	res, err := env.Photos.MovePhoto(ctx, a.ID, geometry.Point{X: 0.3, Y: 0.4}, nil)
	require.NoError(t, err)
	assert.True(t, res.Photo.OnLevel(firstLevel(project)))
	assert.Equal(t, geometry.Point{X: 0.3, Y: 0.4}, env.Reload(t, a.ID).Position())
}

func TestMovePhoto_NeighborFailureIsAWarning(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")
	level := firstLevel(project)

	a := env.PlacedPhoto(t, project.ID, level, "a", geometry.Point{X: 0.5, Y: 0.5})
	b := env.PlacedPhoto(t, project.ID, level, "b", geometry.Point{X: 0.9, Y: 0.5})
	c := env.PlacedPhoto(t, project.ID, level, "c", geometry.Point{X: 0.1, Y: 0.5})
	_, err := env.Photos.LinkPhotos(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = env.Photos.LinkPhotos(ctx, a.ID, c.ID)
	require.NoError(t, err)

	env.Store.FailUpdates(b.ID)
	res, err := env.Photos.MovePhoto(ctx, a.ID, geometry.Point{X: 0.5, Y: 0.9}, nil)
	require.NoError(t, err)

	assert.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], tester.ErrInjected)
	assert.Equal(t, []string{c.ID}, res.AffectedNeighborIDs)
	assert.Equal(t, geometry.Point{X: 0.5, Y: 0.9}, env.Reload(t, a.ID).Position())

	stale, _ := env.Reload(t, b.ID).LinkList().Find(a.ID)
	assert.InDelta(t, 270, stale.Azimuth, 1e-9)
}

func TestMovePhoto_PrimaryFailurePropagates(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")
	a := env.Photo(t, project.ID, "a")

	env.Store.FailUpdates(a.ID)
	_, err := env.Photos.MovePhoto(ctx, a.ID, geometry.Point{X: 0.5, Y: 0.5}, nil)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.ErrorIs(t, err, tester.ErrInjected)
}

func TestMovePhoto_LevelChangeClearsFormerStart(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")
	ground := firstLevel(project)
	_, upstairs, err := env.Projects.CreateLevel(ctx, project.ID, "Upstairs")
	require.NoError(t, err)

	a := env.PlacedPhoto(t, project.ID, ground, "a", geometry.Point{X: 0.5, Y: 0.5})
	_, err = env.Projects.SetLevelStart(ctx, project.ID, ground, a.ID)
	require.NoError(t, err)

	_, err = env.Photos.MovePhoto(ctx, a.ID, geometry.Point{X: 0.2, Y: 0.2}, &upstairs.ID)
	require.NoError(t, err)

	level, _ := env.ReloadProject(t, project.ID).Level(ground)
	assert.Nil(t, level.StartPanophotoID)
}

func TestUnplacePhoto_SeversBothSides(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")
	level := firstLevel(project)

	a := env.PlacedPhoto(t, project.ID, level, "a", geometry.Point{X: 0.5, Y: 0.5})
	b := env.PlacedPhoto(t, project.ID, level, "b", geometry.Point{X: 0.9, Y: 0.5})
	c := env.PlacedPhoto(t, project.ID, level, "c", geometry.Point{X: 0.1, Y: 0.5})
	for _, n := range []string{b.ID, c.ID} {
		_, err := env.Photos.LinkPhotos(ctx, a.ID, n)
		require.NoError(t, err)
	}
	_, err := env.Projects.SetLevelStart(ctx, project.ID, level, a.ID)
	require.NoError(t, err)

	res, err := env.Photos.UnplacePhoto(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, res.Complete())
	assert.ElementsMatch(t, []string{b.ID, c.ID}, res.AffectedNeighborIDs)

	got := env.Reload(t, a.ID)
	assert.False(t, got.Placed())
	assert.Equal(t, geometry.Point{}, got.Position())
	assert.Empty(t, got.LinkList())
	assert.Empty(t, env.Reload(t, b.ID).LinkList())
	assert.Empty(t, env.Reload(t, c.ID).LinkList())

	lvl, _ := env.ReloadProject(t, project.ID).Level(level)
	assert.Nil(t, lvl.StartPanophotoID)
}

func TestUnplacePhoto_PartialCascade(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")
	level := firstLevel(project)

	a := env.PlacedPhoto(t, project.ID, level, "a", geometry.Point{X: 0.5, Y: 0.5})
	b := env.PlacedPhoto(t, project.ID, level, "b", geometry.Point{X: 0.9, Y: 0.5})
	c := env.PlacedPhoto(t, project.ID, level, "c", geometry.Point{X: 0.1, Y: 0.5})
	for _, n := range []string{b.ID, c.ID} {
		_, err := env.Photos.LinkPhotos(ctx, a.ID, n)
		require.NoError(t, err)
	}

	env.Store.FailUpdates(b.ID)
	res, err := env.Photos.UnplacePhoto(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 1)
	assert.Equal(t, []string{c.ID}, res.AffectedNeighborIDs)

	assert.False(t, env.Reload(t, a.ID).Placed())
	assert.Empty(t, env.Reload(t, c.ID).LinkList())
	_, dangling := env.Reload(t, b.ID).LinkList().Find(a.ID)
	assert.True(t, dangling)

	// the repair job drops what the cascade left behind
	env.Store.Heal()
	report, err := env.Photos.RepairProjectLinks(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dropped)
	assert.Empty(t, env.Reload(t, b.ID).LinkList())
}

func TestDeletePhoto_ResolvesStartFallback(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	photos := lo.Times(3, func(i int) string {
		photo := env.Photo(t, project.ID, fmt.Sprintf("p%d", i+1))
		photo.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, env.Store.UpdatePanophoto(ctx, photo))
		return photo.ID
	})

	start, err := env.Projects.ResolveProjectStart(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, photos[0], start)
	assert.Equal(t, photos[0], lo.FromPtr(env.ReloadProject(t, project.ID).StartPanophotoID))

	res, err := env.Photos.DeletePhoto(ctx, photos[0])
	require.NoError(t, err)
	assert.True(t, res.Complete())
	assert.Equal(t, photos[1], lo.FromPtr(env.ReloadProject(t, project.ID).StartPanophotoID))

	_, err = env.Photos.GetPhoto(ctx, photos[0])
	assert.ErrorIs(t, err, service.ErrPanophotoNotFound)
}

func TestDeletePhoto_Cascade(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")
	level := firstLevel(project)

	a := env.PlacedPhoto(t, project.ID, level, "a", geometry.Point{X: 0.5, Y: 0.5})
	b := env.PlacedPhoto(t, project.ID, level, "b", geometry.Point{X: 0.9, Y: 0.5})
	_, err := env.Photos.LinkPhotos(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = env.Projects.SetLevelStart(ctx, project.ID, level, a.ID)
	require.NoError(t, err)
	require.True(t, env.Blobs.Has(a.ImageKey))

	env.Blobs.FailDelete = true
	res, err := env.Photos.DeletePhoto(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], tester.ErrInjected)

	assert.Empty(t, env.Reload(t, b.ID).LinkList())
	reloaded := env.ReloadProject(t, project.ID)
	lvl, _ := reloaded.Level(level)
	assert.Nil(t, lvl.StartPanophotoID)
	assert.Equal(t, b.ID, lo.FromPtr(reloaded.StartPanophotoID))

	_, err = env.Photos.DeletePhoto(ctx, a.ID)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRepairProjectLinks(t *testing.T) {
	ctx := context.TODO()
	env := tester.NewEnv(t)
	project := env.Project(t, "house")
	level := firstLevel(project)

	a := env.PlacedPhoto(t, project.ID, level, "a", geometry.Point{X: 0.5, Y: 0.5})
	b := env.PlacedPhoto(t, project.ID, level, "b", geometry.Point{X: 0.5, Y: 0.9})
	c := env.PlacedPhoto(t, project.ID, level, "c", geometry.Point{X: 0.1, Y: 0.5})

	env.SetRawLinks(t, a.ID, fmt.Sprintf(`[%q, {"target": %q, "azimuth": 1, "azimuthOffset": 12}, %q]`,
		b.ID, c.ID, "5a8f8f52-1d0e-4c1b-a3e4-8c3e6a0f1b22"))
	env.SetRawLinks(t, b.ID, fmt.Sprintf(`[{"target": %q, "azimuth": 0, "azimuthOffset": 0}]`, a.ID))

	report, err := env.Photos.RepairProjectLinks(ctx, project.ID)
	require.NoError(t, err)
	assert.True(t, report.Complete())
	assert.Equal(t, 1, report.Upgraded)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, 1, report.Restored)

	links := env.Reload(t, a.ID).LinkList()
	require.Len(t, links, 2)
	assert.False(t, links.HasLegacy())
	ab, _ := links.Find(b.ID)
	assert.InDelta(t, 180, ab.Azimuth, 1e-9)
	ac, _ := links.Find(c.ID)
	assert.InDelta(t, 270, ac.Azimuth, 1e-9)
	assert.InDelta(t, 12, ac.AzimuthOffset, 1e-9)

	ba, _ := env.Reload(t, b.ID).LinkList().Find(a.ID)
	assert.InDelta(t, 0, ba.Azimuth, 1e-9)
	ca, ok := env.Reload(t, c.ID).LinkList().Find(a.ID)
	require.True(t, ok)
	assert.InDelta(t, 90, ca.Azimuth, 1e-9)

	again, err := env.Photos.RepairProjectLinks(ctx, project.ID)
	require.NoError(t, err)
	assert.False(t, again.Changed())
}
