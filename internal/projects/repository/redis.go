package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/domain"
)

const (
	recordKeyPrefix    = "projects:record:" // Project JSON: projects:record:{id}
	ownerIndexPrefix   = "projects:owner:"  // ZSET of ids by insertion sequence: projects:owner:{owner_id}
	sequenceKey        = "projects:seq"     // Insertion counter
	eventChannelPrefix = "projects:events:" // Pub/Sub channel per owner: projects:events:{owner_id}
)

var errFeedClosed = errors.New("change feed closed")

// RedisStore keeps projects in Redis and announces changes on a per-owner
// Pub/Sub channel. Subscribers re-read the owner's full set on every
// announcement, so a missed or coalesced message never leaves them stale.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedisStore creates a new RedisStore
func NewRedisStore(client *redis.Client, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}
	return &RedisStore{client: client, log: log}
}

func (r *RedisStore) Create(ctx context.Context, p domain.Project) (string, error) {
	p.ID = uuid.New().String()

	seq, err := r.client.Incr(ctx, sequenceKey).Result()
	if err != nil {
		return "", fmt.Errorf("failed to allocate sequence: %w", err)
	}

	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal project: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.recordKey(p.ID), data, 0)
		pipe.ZAdd(ctx, r.ownerIndexKey(p.OwnerID), redis.Z{Score: float64(seq), Member: p.ID})
		pipe.Publish(ctx, r.eventChannel(p.OwnerID), p.ID)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to create project: %w", err)
	}
	return p.ID, nil
}

func (r *RedisStore) Delete(ctx context.Context, ownerID, id string) error {
	recordKey := r.recordKey(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, recordKey).Result()
		if err == redis.Nil {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		var p domain.Project
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return fmt.Errorf("failed to unmarshal project: %w", err)
		}
		if p.OwnerID != ownerID {
			return domain.ErrNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, recordKey)
			pipe.ZRem(ctx, r.ownerIndexKey(ownerID), id)
			pipe.Publish(ctx, r.eventChannel(ownerID), id)
			return nil
		})
		return err
	}

	// Retry when another client touched the record between WATCH and EXEC.
	for i := 0; i < 3; i++ {
		err := r.client.Watch(ctx, txf, recordKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		return err
	}
	return fmt.Errorf("failed to delete project: %w", redis.TxFailedErr)
}

// List returns the owner's projects in insertion order.
func (r *RedisStore) List(ctx context.Context, ownerID string) ([]domain.Project, error) {
	ids, err := r.client.ZRange(ctx, r.ownerIndexKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list project ids: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Project{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.recordKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	out := make([]domain.Project, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// Removed between ZRANGE and MGET; the next announcement corrects it.
			continue
		}
		var p domain.Project
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal project %s: %w", ids[i], err)
		}
		p.ID = ids[i]
		out = append(out, p)
	}
	return out, nil
}

func (r *RedisStore) Subscribe(ctx context.Context, filter domain.Filter, onUpdate func([]domain.Project), onError func(error)) (Subscription, error) {
	if filter.OwnerID == "" {
		return nil, domain.ErrInvalidOwner
	}

	pubsub := r.client.Subscribe(ctx, r.eventChannel(filter.OwnerID))
	// Wait for the subscription to be confirmed so no change between the
	// initial read and the first message is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			if err := pubsub.Close(); err != nil {
				r.log.Debug("closing pubsub", "error", err)
			}
		})
	}

	go func() {
		deliver := func() bool {
			set, err := r.List(subCtx, filter.OwnerID)
			if err != nil {
				if subCtx.Err() == nil {
					onError(err)
					unsubscribe()
				}
				return false
			}
			onUpdate(set)
			return true
		}

		if !deliver() {
			return
		}

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					if subCtx.Err() == nil {
						onError(errFeedClosed)
						unsubscribe()
					}
					return
				}
				// Coalesce a burst of announcements into one read.
			drain:
				for {
					select {
					case _, ok := <-ch:
						if !ok {
							break drain
						}
					default:
						break drain
					}
				}
				if !deliver() {
					return
				}
			}
		}
	}()

	return SubscriptionFunc(unsubscribe), nil
}

// Helper methods for key generation
func (r *RedisStore) recordKey(id string) string {
	return fmt.Sprintf("%s%s", recordKeyPrefix, id)
}

func (r *RedisStore) ownerIndexKey(ownerID string) string {
	return fmt.Sprintf("%s%s", ownerIndexPrefix, ownerID)
}

func (r *RedisStore) eventChannel(ownerID string) string {
	return fmt.Sprintf("%s%s", eventChannelPrefix, ownerID)
}
