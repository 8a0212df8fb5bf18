package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/emrgen/panorama/internal/compress"
	"github.com/emrgen/panorama/internal/model"
	redis "github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const panophotoTTL = time.Hour

func panophotoKey(id string) string {
	return "panophoto:" + id
}

var _ PanophotoCache = (*RedisPanophotoCache)(nil)

type RedisPanophotoCache struct {
	client  *redis.Client
	encoder compress.Compress
	ttl     time.Duration
}

func NewRedisPanophotoCache(addr string, db int, encoder compress.Compress) *RedisPanophotoCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // No password set
		DB:       db,
		Protocol: 2, // Connection protocol
	})

	return NewRedisPanophotoCacheFromClient(client, encoder)
}

func NewRedisPanophotoCacheFromClient(client *redis.Client, encoder compress.Compress) *RedisPanophotoCache {
	return &RedisPanophotoCache{client: client, encoder: encoder, ttl: panophotoTTL}
}

// Ping checks the connection to redis.
func (r *RedisPanophotoCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisPanophotoCache) GetPanophoto(ctx context.Context, id string) (*model.Panophoto, error) {
	res := r.client.Get(ctx, panophotoKey(id))
	if res.Err() != nil {
		if errors.Is(res.Err(), redis.Nil) {
			return nil, nil
		}
		return nil, res.Err()
	}

	buf, err := res.Bytes()
	if err != nil {
		return nil, err
	}

	data, err := r.encoder.Decode(buf)
	if err != nil {
		return nil, err
	}

	photo := &model.Panophoto{}
	if err := json.Unmarshal(data, photo); err != nil {
		return nil, err
	}

	return photo, nil
}

func (r *RedisPanophotoCache) SetPanophoto(ctx context.Context, photo *model.Panophoto) error {
	marshal, err := json.Marshal(photo)
	if err != nil {
		return err
	}

	data, err := r.encoder.Encode(marshal)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, panophotoKey(photo.ID), data, r.ttl).Err()
}

func (r *RedisPanophotoCache) Invalidate(ctx context.Context, ids ...string) error {
	ids = lo.Uniq(lo.Compact(ids))
	if len(ids) == 0 {
		return nil
	}

	keys := lo.Map(ids, func(id string, _ int) string { return panophotoKey(id) })
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		logrus.Warnf("failed to invalidate cached panophotos %v: %v", ids, err)
		return err
	}

	return nil
}
