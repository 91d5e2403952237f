package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/domain"
)

// DefaultBucket is the KV bucket used when none is configured.
const DefaultBucket = "PROJECTS"

// NATSStore keeps projects in a JetStream KV bucket under "<owner>.<id>".
// KV watchers report single-key changes; the store folds them into the
// owner's full set before delivering, so subscribers always get full state.
type NATSStore struct {
	kv  jetstream.KeyValue
	log *slog.Logger
}

// NewNATSStore opens (or creates) the bucket.
func NewNATSStore(ctx context.Context, js jetstream.JetStream, bucket string, log *slog.Logger) (*NATSStore, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	if log == nil {
		log = slog.Default()
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "project records keyed by owner",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("open kv bucket %s: %w", bucket, err)
	}
	return &NATSStore{kv: kv, log: log}, nil
}

// ownerToken encodes an owner id into characters valid in a KV key.
func ownerToken(ownerID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(ownerID))
}

func natsKey(ownerID, id string) string {
	return ownerToken(ownerID) + "." + id
}

func (r *NATSStore) Create(ctx context.Context, p domain.Project) (string, error) {
	p.ID = uuid.New().String()
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal project: %w", err)
	}
	if _, err := r.kv.Create(ctx, natsKey(p.OwnerID, p.ID), data); err != nil {
		return "", fmt.Errorf("failed to create project: %w", err)
	}
	return p.ID, nil
}

// Delete removes the owner's record. The delete is conditional on the
// revision just read, so a concurrent delete or rewrite of the key is seen
// and re-evaluated rather than blindly overwritten.
func (r *NATSStore) Delete(ctx context.Context, ownerID, id string) error {
	if id == "" || strings.ContainsAny(id, ".*> ") {
		return domain.ErrNotFound
	}
	key := natsKey(ownerID, id)
	for attempt := 0; attempt < deleteAttempts; attempt++ {
		entry, err := r.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to get project: %w", err)
		}
		err = r.kv.Delete(ctx, key, jetstream.LastRevision(entry.Revision()))
		if err == nil {
			return nil
		}
		if !isWrongRevision(err) {
			return fmt.Errorf("failed to delete project: %w", err)
		}
	}
	return fmt.Errorf("failed to delete project: key %s kept changing", key)
}

const deleteAttempts = 3

func isWrongRevision(err error) bool {
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

func (r *NATSStore) Subscribe(ctx context.Context, filter domain.Filter, onUpdate func([]domain.Project), onError func(error)) (Subscription, error) {
	if filter.OwnerID == "" {
		return nil, domain.ErrInvalidOwner
	}

	subCtx, cancel := context.WithCancel(ctx)
	watcher, err := r.kv.Watch(subCtx, ownerToken(filter.OwnerID)+".*")
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch projects: %w", err)
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			if err := watcher.Stop(); err != nil {
				r.log.Debug("stopping kv watcher", "error", err)
			}
		})
	}

	go func() {
		var set orderedSet
		replayed := false

		for {
			select {
			case <-subCtx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					if subCtx.Err() == nil {
						onError(errFeedClosed)
						unsubscribe()
					}
					return
				}
				// nil entry signals end of initial values replay
				if entry == nil {
					replayed = true
					onUpdate(set.list())
					continue
				}

				switch entry.Operation() {
				case jetstream.KeyValuePut:
					var p domain.Project
					if err := json.Unmarshal(entry.Value(), &p); err != nil {
						r.log.Warn("skipping undecodable project", "key", entry.Key(), "error", err)
						continue
					}
					set.put(p)
				case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
					set.remove(entry.Key()[strings.LastIndexByte(entry.Key(), '.')+1:])
				}

				if replayed {
					onUpdate(set.list())
				}
			}
		}
	}()

	return SubscriptionFunc(unsubscribe), nil
}

// orderedSet holds projects by id in first-insertion order.
type orderedSet struct {
	order []string
	byID  map[string]domain.Project
}

func (s *orderedSet) put(p domain.Project) {
	if s.byID == nil {
		s.byID = make(map[string]domain.Project)
	}
	if _, ok := s.byID[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.byID[p.ID] = p
}

func (s *orderedSet) remove(id string) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *orderedSet) list() []domain.Project {
	out := make([]domain.Project, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}
