// Package session provides SessionStore implementations: Redis for
// deployments, an in-memory store for tests and local development.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/dkamau/elimu/core"
	"github.com/dkamau/elimu/core/auth"
)

const keyPrefix = "session:"

type redisStore struct {
	client *redis.Client
}

var _ auth.SessionStore = (*redisStore)(nil)

func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address(),
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func NewRedisStore(client *redis.Client) *redisStore {
	return &redisStore{client: client}
}

func (store *redisStore) Create(ctx context.Context, s auth.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshalling session")
	}
	if err := store.client.Set(ctx, keyPrefix+s.ID, data, ttl).Err(); err != nil {
		return errors.Wrap(auth.ErrStoreUnavailable, err.Error())
	}
	return nil
}

func (store *redisStore) Get(ctx context.Context, id string) (auth.Session, error) {
	val, err := store.client.Get(ctx, keyPrefix+id).Result()
	if err == redis.Nil {
		return auth.Session{}, auth.ErrNoSession
	}
	if err != nil {
		return auth.Session{}, errors.Wrap(auth.ErrStoreUnavailable, err.Error())
	}

	var s auth.Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return auth.Session{}, errors.Wrap(err, "unmarshalling session")
	}
	return s, nil
}

func (store *redisStore) Delete(ctx context.Context, id string) error {
	if err := store.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return errors.Wrap(auth.ErrStoreUnavailable, err.Error())
	}
	return nil
}
