package viewer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emrgen/panorama/internal/model"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func photoAt(id, level string, x, y float64, links ...model.Link) *model.Panophoto {
	p := &model.Panophoto{ID: id, Name: id, LevelID: lo.EmptyableToPtr(level), XPosition: x, YPosition: y}
	p.SetLinks(links)
	return p
}

func TestBuildMarkers(t *testing.T) {
	photo := photoAt("a", "l1", 0.5, 0.5,
		model.Link{Target: "b", Azimuth: 350, AzimuthOffset: 20},
		model.Link{Target: "a", Azimuth: 10},
		model.NewLegacyLink("c"),
		model.Link{Target: "ghost", Azimuth: 90, AzimuthOffset: -100},
	)
	neighbors := map[string]*model.Panophoto{
		"b": photoAt("b", "l1", 0.5, 0.1),
		"c": photoAt("c", "l1", 0.9, 0.5),
	}

	markers := BuildMarkers(photo, neighbors, MarkerOptions{})
	require.Len(t, markers, 3)

	assert.Equal(t, "link-b-0", markers[0].ID)
	assert.InDelta(t, 10, markers[0].Yaw, 1e-9)
	assert.Equal(t, "b", markers[0].Tooltip)
	assert.Nil(t, markers[0].Style)

	assert.Equal(t, "link-c-2", markers[1].ID)
	assert.InDelta(t, 90, markers[1].Yaw, 1e-9)
	assert.InDelta(t, 90, markers[1].Data.Azimuth, 1e-9)

	assert.Equal(t, "link-ghost-3", markers[2].ID)
	assert.InDelta(t, 350, markers[2].Yaw, 1e-9)
	assert.Equal(t, "View linked photo", markers[2].Data.Label)
}

func TestBuildMarkers_AdjustMode(t *testing.T) {
	photo := photoAt("a", "l1", 0.5, 0.5, model.Link{Target: "b"}, model.Link{Target: "c"})

	markers := BuildMarkers(photo, nil, MarkerOptions{AdjustMode: true, HighlightTargetID: "c"})
	require.Len(t, markers, 2)
	assert.Equal(t, 0.65, markers[0].Style.Opacity)
	assert.Empty(t, markers[0].Style.Filter)
	assert.Equal(t, 1.0, markers[1].Style.Opacity)
	assert.NotEmpty(t, markers[1].Style.Filter)
}

type offsetRecorder struct {
	calls  int
	offset float64
	err    error
}

func (r *offsetRecorder) SetLinkOffset(ctx context.Context, sourceID, targetID string, offset float64) (*model.Panophoto, error) {
	r.calls++
	r.offset = offset
	if r.err != nil {
		return nil, r.err
	}
	return photoAt(sourceID, "l1", 0.5, 0.5, model.Link{Target: targetID, Azimuth: 90, AzimuthOffset: offset}), nil
}

func TestAdjustSession(t *testing.T) {
	ctx := context.TODO()
	photo := photoAt("a", "l1", 0.5, 0.5, model.Link{Target: "b", Azimuth: 90, AzimuthOffset: 10})
	writer := &offsetRecorder{}
	session := NewAdjustSession(writer, photo, nil)

	outcome, err := session.ApplyClick(ctx, 120)
	require.NoError(t, err)
	assert.Equal(t, Ignored, outcome)

	assert.ErrorIs(t, session.Select("b"), ErrNotAdjusting)
	session.Enable()
	assert.ErrorIs(t, session.Select("a"), ErrSelfMarker)
	assert.ErrorIs(t, session.Select("zzz"), ErrMarkerNotFound)
	require.NoError(t, session.Select("b"))

	outcome, err = session.ApplyClick(ctx, 100.05)
	require.NoError(t, err)
	assert.Equal(t, Unchanged, outcome)
	assert.Zero(t, writer.calls)
	assert.Equal(t, "b", session.Selected())

	outcome, err = session.ApplyClick(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, Saved, outcome)
	assert.InDelta(t, -60, writer.offset, 1e-9)
	assert.Empty(t, session.Selected())

	link, _ := session.Photo().LinkList().Find("b")
	assert.InDelta(t, -60, link.AzimuthOffset, 1e-9)

	require.NoError(t, session.Select("b"))
	outcome, err = session.ApplyClickRadians(ctx, -3*3.141592653589793/4)
	require.NoError(t, err)
	assert.Equal(t, Saved, outcome)
	assert.InDelta(t, 135, writer.offset, 1e-9)

	writer.err = errors.New("offline")
	require.NoError(t, session.Select("b"))
	_, err = session.ApplyClick(ctx, 0)
	assert.EqualError(t, err, "offline")
	assert.Empty(t, session.Selected())

	session.Disable()
	assert.False(t, session.Enabled())
}

func TestLinkLines(t *testing.T) {
	photos := []*model.Panophoto{
		photoAt("a", "l1", 0.1, 0.2, model.Link{Target: "b"}, model.Link{Target: "c"}, model.Link{Target: "gone"}),
		photoAt("b", "l1", 0.5, 0.5, model.Link{Target: "a"}),
		photoAt("c", "l2", 0.9, 0.9, model.Link{Target: "a"}),
	}

	lines := LinkLines(photos, "l1")
	require.Len(t, lines, 1)
	assert.Equal(t, Segment{ID: "a::b", X1: 10, Y1: 20, X2: 50, Y2: 50}, lines[0])
	assert.Empty(t, LinkLines(photos, "l2"))
}

func TestLevelStarts(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := photoAt("older", "l1", 0, 0)
	older.CreatedAt = base
	newer := photoAt("newer", "l1", 0, 0)
	newer.CreatedAt = base.Add(time.Hour)

	levels := model.LevelList{
		{ID: "l1", StartPanophotoID: lo.ToPtr("gone")},
		{ID: "l2", StartPanophotoID: lo.ToPtr("newer")},
	}

	starts := LevelStarts(levels, []*model.Panophoto{newer, older})
	assert.Equal(t, map[string]string{"l1": "older"}, starts)
}
