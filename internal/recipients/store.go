package recipients

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// recipientsKey is the Redis hash holding group → recipient list.
const recipientsKey = "outreach:recipients"

// Store persists recipient lists in a Redis hash keyed by group name.
// Lists live outside the in-memory dataset so a new report upload does
// not wipe the addresses an operator already entered.
type Store struct {
	redis *redis.Client
}

// NewStore wraps an existing Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{redis: client}
}

// NewStoreFromURL connects to Redis and verifies the connection.
func NewStoreFromURL(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Printf("[recipients] Connected to Redis at %s", redisURL)

	return NewStore(client), nil
}

// Get returns the stored recipient string for one group, or "" when
// none has been saved.
func (s *Store) Get(ctx context.Context, group string) (string, error) {
	val, err := s.redis.HGet(ctx, recipientsKey, group).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load recipients for %q: %w", group, err)
	}
	return val, nil
}

// Save validates and persists a group's recipient list. Invalid input
// rejects the whole edit and leaves the stored value untouched. An
// empty input clears the list.
func (s *Store) Save(ctx context.Context, group, raw string) error {
	addrs, err := Validate(raw)
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		return s.Delete(ctx, group)
	}
	if err := s.redis.HSet(ctx, recipientsKey, group, Normalize(addrs)).Err(); err != nil {
		return fmt.Errorf("save recipients for %q: %w", group, err)
	}
	return nil
}

// Delete removes a group's stored list.
func (s *Store) Delete(ctx context.Context, group string) error {
	if err := s.redis.HDel(ctx, recipientsKey, group).Err(); err != nil {
		return fmt.Errorf("delete recipients for %q: %w", group, err)
	}
	return nil
}

// All returns every stored group → recipient string pair.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	out, err := s.redis.HGetAll(ctx, recipientsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}
	return out, nil
}

// Close closes the underlying Redis connection.
func (s *Store) Close() error {
	return s.redis.Close()
}
