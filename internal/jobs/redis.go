package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/voyager/config"
	"github.com/mohammad-safakhou/voyager/models"
)

const jobKeyPrefix = "job:"

// RedisRegistry keeps job state in Redis, which gives terminal entries a
// native TTL instead of the in-memory janitor. Correctness still relies on
// the dispatcher's single-writer-per-id guarantee; this is not a
// multi-process coordination layer.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRegistry connects to Redis and verifies the connection.
func NewRedisRegistry(ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisRegistry{client: client, ttl: ttl}, nil
}

func (r *RedisRegistry) Create(ctx context.Context, id string, kind models.JobKind) error {
	now := time.Now()
	data, err := json.Marshal(models.Job{
		ID:        id,
		Kind:      kind,
		Status:    models.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, jobKeyPrefix+id, data, 0).Result()
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrAlreadyExists)
	}
	return nil
}

func (r *RedisRegistry) MarkProcessing(ctx context.Context, id string) error {
	return r.transition(ctx, id, models.JobStatusProcessing, nil, "")
}

func (r *RedisRegistry) Complete(ctx context.Context, id string, result json.RawMessage) error {
	return r.transition(ctx, id, models.JobStatusCompleted, result, "")
}

func (r *RedisRegistry) Fail(ctx context.Context, id string, cause string) error {
	if cause == "" {
		cause = "unknown error"
	}
	return r.transition(ctx, id, models.JobStatusFailed, nil, cause)
}

func (r *RedisRegistry) transition(ctx context.Context, id string, to models.JobStatus, result json.RawMessage, cause string) error {
	j, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !validTransition(j.Status, to) {
		return fmt.Errorf("%s -> %s: %w", j.Status, to, ErrInvalidTransition)
	}
	j.Status = to
	j.Result = result
	j.Error = cause
	j.UpdatedAt = time.Now()

	data, err := json.Marshal(j)
	if err != nil {
		return err
	}
	var expiry time.Duration
	if to.Terminal() {
		expiry = r.ttl
	}
	if err := r.client.Set(ctx, jobKeyPrefix+id, data, expiry).Err(); err != nil {
		return fmt.Errorf("store job: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (models.Job, error) {
	data, err := r.client.Get(ctx, jobKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Job{}, fmt.Errorf("%s: %w", id, models.ErrJobNotFound)
	}
	if err != nil {
		return models.Job{}, fmt.Errorf("load job: %w", err)
	}
	var j models.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return models.Job{}, fmt.Errorf("decode job: %w", err)
	}
	return j, nil
}

// Close releases the Redis connection.
func (r *RedisRegistry) Close() error { return r.client.Close() }
