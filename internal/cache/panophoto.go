package cache

import (
	"context"

	"github.com/emrgen/panorama/internal/model"
)

// PanophotoCache caches panophotos by id. A miss is reported as (nil, nil).
type PanophotoCache interface {
	// GetPanophoto gets a panophoto from the cache.
	GetPanophoto(ctx context.Context, id string) (*model.Panophoto, error)
	// SetPanophoto sets a panophoto in the cache.
	SetPanophoto(ctx context.Context, photo *model.Panophoto) error
	// Invalidate removes the given panophotos from the cache.
	Invalidate(ctx context.Context, ids ...string) error
}

var _ PanophotoCache = Nop{}

// Nop is a cache that never holds anything.
type Nop struct{}

func NewNop() Nop {
	return Nop{}
}

func (Nop) GetPanophoto(ctx context.Context, id string) (*model.Panophoto, error) {
	return nil, nil
}

func (Nop) SetPanophoto(ctx context.Context, photo *model.Panophoto) error {
	return nil
}

func (Nop) Invalidate(ctx context.Context, ids ...string) error {
	return nil
}
