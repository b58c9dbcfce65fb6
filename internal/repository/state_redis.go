package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"righthome/internal/model"
)

// RedisStateStore keeps one JSON document per conversation, optionally with a TTL
type RedisStateStore struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStateStore connects to Redis and verifies the connection
func NewRedisStateStore(ctx context.Context, addr, password string, db int, prefix string, ttl time.Duration) (*RedisStateStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisStateStoreWithClient(rdb, prefix, ttl), nil
}

// NewRedisStateStoreWithClient wraps an existing client
func NewRedisStateStoreWithClient(rdb goredis.UniversalClient, prefix string, ttl time.Duration) *RedisStateStore {
	return &RedisStateStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Get returns the initial state without writing it when the key is absent
func (s *RedisStateStore) Get(ctx context.Context, id string) (model.ConversationState, error) {
	raw, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return model.NewConversationState(), nil
	}
	if err != nil {
		return model.ConversationState{}, fmt.Errorf("failed to load conversation state: %w", err)
	}

	var state model.ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return model.ConversationState{}, fmt.Errorf("failed to decode conversation state: %w", err)
	}
	if state.Requirements == nil {
		state.Requirements = model.RequirementMap{}
	}
	return state, nil
}

func (s *RedisStateStore) Put(ctx context.Context, id string, stage int, requirements model.RequirementMap) error {
	if requirements == nil {
		requirements = model.RequirementMap{}
	}
	raw, err := json.Marshal(model.ConversationState{Stage: stage, Requirements: requirements})
	if err != nil {
		return fmt.Errorf("failed to encode conversation state: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(id), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store conversation state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete conversation state: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (s *RedisStateStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStateStore) key(id string) string {
	return s.prefix + id
}
