package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tkaria/payguard/internal/risk"
)

// Compile-time check that RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

const riskKeyPrefix = "payguard:user:"

// RedisStore implements Store backed by Redis. Each user's risk state is a
// single JSON document, so writes are whole-document and last-write-wins.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed risk state store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func riskKey(userID string) string {
	return riskKeyPrefix + userID
}

func (r *RedisStore) Create(ctx context.Context, state *risk.RiskState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal risk state: %w", err)
	}

	ok, err := r.client.SetNX(ctx, riskKey(state.UserID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create risk state: %w", err)
	}
	if !ok {
		return ErrUserExists
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, userID string) (*risk.RiskState, error) {
	data, err := r.client.Get(ctx, riskKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get risk state: %w", err)
	}

	var state risk.RiskState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal risk state: %w", err)
	}
	return &state, nil
}

func (r *RedisStore) Update(ctx context.Context, state *risk.RiskState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal risk state: %w", err)
	}

	// XX: only overwrite an existing key, so updating an unregistered user
	// fails instead of silently creating them.
	ok, err := r.client.SetXX(ctx, riskKey(state.UserID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("update risk state: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}
