package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/emrgen/panorama/internal/cache"
	"github.com/emrgen/panorama/internal/service"
	"github.com/sirupsen/logrus"
)

// CacheSyncTask loads the panophotos of the active project into the cache.
type CacheSyncTask struct {
	cache    cache.PanophotoCache
	projects *service.ProjectService
	photos   *service.PanophotoService
	timeout  time.Duration
}

func NewCacheSyncTask(cache cache.PanophotoCache, projects *service.ProjectService, photos *service.PanophotoService) *CacheSyncTask {
	return &CacheSyncTask{
		cache:    cache,
		projects: projects,
		photos:   photos,
		timeout:  time.Minute,
	}
}

func (c *CacheSyncTask) Name() string {
	return "cache_sync"
}

func (c *CacheSyncTask) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if _, err := c.Sync(ctx); err != nil {
		logrus.Warnf("cache sync failed: %v", err)
	}
}

// Sync caches every panophoto of the active project and returns how many were
// written. Having no active project is not an error.
func (c *CacheSyncTask) Sync(ctx context.Context) (int, error) {
	project, err := c.projects.GetActiveProject(ctx)
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			return 0, nil
		}
		return 0, err
	}

	photos, err := c.photos.ListPhotos(ctx, project.ID)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, photo := range photos {
		if err := c.cache.SetPanophoto(ctx, photo); err != nil {
			return synced, err
		}
		synced++
	}

	logrus.Infof("cached %d panophotos of project %s", synced, project.ID)

	return synced, nil
}
