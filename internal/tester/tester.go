package tester

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/panorama/internal/blob"
	"github.com/emrgen/panorama/internal/cache"
	"github.com/emrgen/panorama/internal/geometry"
	"github.com/emrgen/panorama/internal/model"
	"github.com/emrgen/panorama/internal/service"
	"github.com/emrgen/panorama/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrInjected is returned by the faulty stores.
var ErrInjected = errors.New("injected failure")

// TestDB opens a migrated sqlite database that lives as long as the test.
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "panorama.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))

	return db
}

// Env wires the services over a fresh database, an in-memory blob store and
// a record store that can be told to fail.
type Env struct {
	DB       *gorm.DB
	Store    *FaultyStore
	Blobs    *FaultyBlobStore
	Projects *service.ProjectService
	Photos   *service.PanophotoService
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	db := TestDB(t)
	records := NewFaultyStore(store.NewGormStore(db))
	blobs := &FaultyBlobStore{MemoryStore: blob.NewMemoryStore()}
	projects := service.NewProjectService(records, blobs, cache.NewNop())

	return &Env{
		DB:       db,
		Store:    records,
		Blobs:    blobs,
		Projects: projects,
		Photos:   service.NewPanophotoService(records, blobs, cache.NewNop(), projects),
	}
}

// Project creates an active project.
func (e *Env) Project(t *testing.T, name string) *model.Project {
	t.Helper()

	project, err := e.Projects.CreateProject(context.TODO(), name, "")
	require.NoError(t, err)

	return project
}

// Photo uploads an unplaced panophoto into the project.
func (e *Env) Photo(t *testing.T, projectID, name string) *model.Panophoto {
	t.Helper()

	photo, err := e.Photos.CreatePhoto(context.TODO(), projectID, name, bytes.NewReader([]byte(name)), "image/jpeg", ".jpg")
	require.NoError(t, err)

	return photo
}

// PlacedPhoto uploads a panophoto and moves it to pos on the level.
func (e *Env) PlacedPhoto(t *testing.T, projectID, levelID, name string, pos geometry.Point) *model.Panophoto {
	t.Helper()

	photo := e.Photo(t, projectID, name)
	moved, err := e.Photos.MovePhoto(context.TODO(), photo.ID, pos, &levelID)
	require.NoError(t, err)

	return moved.Photo
}

// SetRawLinks overwrites the stored link column of a panophoto, bypassing the
// model encoding. It seeds records written in the bare-reference form.
func (e *Env) SetRawLinks(t *testing.T, id, links string) {
	t.Helper()

	require.NoError(t, e.DB.Exec(`UPDATE panophotos SET links = ? WHERE id = ?`, links, id).Error)
}

// Reload reads a panophoto straight from the record store.
func (e *Env) Reload(t *testing.T, id string) *model.Panophoto {
	t.Helper()

	photo, err := e.Store.GetPanophoto(context.TODO(), uuid.MustParse(id))
	require.NoError(t, err)

	return photo
}

// ReloadProject reads a project straight from the record store.
func (e *Env) ReloadProject(t *testing.T, id string) *model.Project {
	t.Helper()

	project, err := e.Store.GetProject(context.TODO(), uuid.MustParse(id))
	require.NoError(t, err)

	return project
}

var _ store.Store = (*FaultyStore)(nil)

// FaultyStore fails updates of chosen panophotos and projects.
type FaultyStore struct {
	store.Store
	mu      sync.Mutex
	updates mapset.Set[string]
	deletes bool
}

func NewFaultyStore(s store.Store) *FaultyStore {
	return &FaultyStore{
		Store:   s,
		updates: mapset.NewThreadUnsafeSet[string](),
	}
}

// FailUpdates makes every later update of the given records fail.
func (f *FaultyStore) FailUpdates(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates.Append(ids...)
}

// FailDeletes makes every later panophoto delete fail.
func (f *FaultyStore) FailDeletes() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = true
}

// Heal clears every injected failure.
func (f *FaultyStore) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates.Clear()
	f.deletes = false
}

func (f *FaultyStore) failing(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates.Contains(id)
}

func (f *FaultyStore) UpdatePanophoto(ctx context.Context, photo *model.Panophoto) error {
	if f.failing(photo.ID) {
		return ErrInjected
	}
	return f.Store.UpdatePanophoto(ctx, photo)
}

func (f *FaultyStore) UpdateProject(ctx context.Context, project *model.Project) error {
	if f.failing(project.ID) {
		return ErrInjected
	}
	return f.Store.UpdateProject(ctx, project)
}

func (f *FaultyStore) DeletePanophoto(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	fail := f.deletes
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.Store.DeletePanophoto(ctx, id)
}

var _ blob.Store = (*FaultyBlobStore)(nil)

// FaultyBlobStore is an in-memory blob store whose uploads or deletes can fail.
type FaultyBlobStore struct {
	*blob.MemoryStore
	FailPut    bool
	FailDelete bool
}

func (f *FaultyBlobStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if f.FailPut {
		return "", ErrInjected
	}
	return f.MemoryStore.Put(ctx, key, body, contentType)
}

func (f *FaultyBlobStore) Delete(ctx context.Context, key string) error {
	if f.FailDelete {
		return ErrInjected
	}
	return f.MemoryStore.Delete(ctx, key)
}
