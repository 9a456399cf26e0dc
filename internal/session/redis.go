package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmorn/hex/internal/command"
)

// Redis is a State backed by Redis, so a pending confirmation survives a
// process restart. Keys carry no expiry.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ State = (*Redis)(nil)

// NewRedis connects to addr. The connection is lazy; use Ping to check it.
func NewRedis(addr, password string, db int) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{client: rdb, prefix: "hex"}
}

func (s *Redis) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}

func (s *Redis) pendingKey(operator int64) string {
	return fmt.Sprintf("%s:pending:%d", s.prefix, operator)
}

func (s *Redis) modeKey(operator int64) string {
	return fmt.Sprintf("%s:mode:%d", s.prefix, operator)
}

func (s *Redis) SetPending(ctx context.Context, operator int64, d command.Descriptor) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode pending: %w", err)
	}
	if err := s.client.Set(ctx, s.pendingKey(operator), b, 0).Err(); err != nil {
		return fmt.Errorf("redis set pending: %w", err)
	}
	return nil
}

func (s *Redis) TakePending(ctx context.Context, operator int64) (*command.Descriptor, error) {
	b, err := s.client.GetDel(ctx, s.pendingKey(operator)).Bytes()
	return decodePending(b, err)
}

func (s *Redis) Pending(ctx context.Context, operator int64) (*command.Descriptor, error) {
	b, err := s.client.Get(ctx, s.pendingKey(operator)).Bytes()
	return decodePending(b, err)
}

func decodePending(b []byte, err error) (*command.Descriptor, error) {
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get pending: %w", err)
	}
	var d command.Descriptor
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode pending: %w", err)
	}
	return &d, nil
}

func (s *Redis) SetMode(ctx context.Context, operator int64, mode string) error {
	if err := s.client.Set(ctx, s.modeKey(operator), mode, 0).Err(); err != nil {
		return fmt.Errorf("redis set mode: %w", err)
	}
	return nil
}

func (s *Redis) Mode(ctx context.Context, operator int64) (string, error) {
	mode, err := s.client.Get(ctx, s.modeKey(operator)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get mode: %w", err)
	}
	return mode, nil
}
