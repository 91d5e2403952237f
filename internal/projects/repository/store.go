package repository

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/domain"
)

// RecordStore is the remote "projects" collection.
//
// Subscribe delivers the complete set of records matching the filter, first
// once after the subscription is established (possibly empty) and then again
// after every change that affects it. Deliveries for one subscription are
// serialized. After onError has been called no further callbacks are made.
type RecordStore interface {
	Subscribe(ctx context.Context, filter domain.Filter, onUpdate func([]domain.Project), onError func(error)) (Subscription, error)

	// Create stores p and returns the id assigned by the store.
	Create(ctx context.Context, p domain.Project) (string, error)

	// Delete removes the record with the given id when it belongs to ownerID.
	// It returns domain.ErrNotFound when there is no such record.
	Delete(ctx context.Context, ownerID, id string) error
}

// Subscription is a live feed handle. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a plain function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() { f() }

const projectIDPrefix = "proj"

// newTextID generates a human-readable id, e.g. "proj-12345-6789".
// Stores that mint ids this way retry on collision.
func newTextID() (string, error) {
	a, err := randInt(10000, 99999)
	if err != nil {
		return "", err
	}
	b, err := randInt(1000, 9999)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%05d-%04d", projectIDPrefix, a, b), nil
}

func randInt(min, max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return 0, err
	}
	return min + n.Int64(), nil
}
