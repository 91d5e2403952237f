package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/domain"
)

// CollectionName is the Firestore collection holding project documents.
const CollectionName = "projects"

// FirestoreStore reads and writes the "projects" collection. Query snapshot
// listeners already deliver the full matching set on every change.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	log        *slog.Logger
}

func NewFirestoreStore(client *firestore.Client, log *slog.Logger) *FirestoreStore {
	if log == nil {
		log = slog.Default()
	}
	return &FirestoreStore{client: client, collection: CollectionName, log: log}
}

func (r *FirestoreStore) Create(ctx context.Context, p domain.Project) (string, error) {
	ref, _, err := r.client.Collection(r.collection).Add(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to add project: %w", err)
	}
	return ref.ID, nil
}

func (r *FirestoreStore) Delete(ctx context.Context, ownerID, id string) error {
	if id == "" {
		return domain.ErrNotFound
	}
	ref := r.client.Collection(r.collection).Doc(id)
	if ref == nil {
		return domain.ErrNotFound
	}

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		var p domain.Project
		if err := snap.DataTo(&p); err != nil {
			return fmt.Errorf("decode project %s: %w", id, err)
		}
		if p.OwnerID != ownerID {
			return domain.ErrNotFound
		}
		return tx.Delete(ref)
	})
}

func (r *FirestoreStore) Subscribe(ctx context.Context, filter domain.Filter, onUpdate func([]domain.Project), onError func(error)) (Subscription, error) {
	if filter.OwnerID == "" {
		return nil, domain.ErrInvalidOwner
	}

	subCtx, cancel := context.WithCancel(ctx)
	it := r.client.Collection(r.collection).
		Where("userId", "==", filter.OwnerID).
		Snapshots(subCtx)

	go func() {
		// Stop must not run concurrently with Next, so the reader owns it.
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if subCtx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					return
				}
				onError(err)
				cancel()
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				onError(err)
				cancel()
				return
			}

			set := make([]domain.Project, 0, len(docs))
			for _, doc := range docs {
				var p domain.Project
				if err := doc.DataTo(&p); err != nil {
					r.log.Warn("skipping undecodable project", "project_id", doc.Ref.ID, "error", err)
					continue
				}
				p.ID = doc.Ref.ID
				set = append(set, p)
			}
			onUpdate(set)
		}
	}()

	var once sync.Once
	return SubscriptionFunc(func() { once.Do(cancel) }), nil
}
