package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("project not found")
	ErrValidation         = errors.New("invalid project")
	ErrInvalidOwner       = errors.New("owner id required")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrStoreWriteFailed   = errors.New("store write failed")
	ErrSubscriptionFailed = errors.New("subscription failed")
)

// StoreError reports a create or delete the record store rejected.
type StoreError struct {
	Op  string // "create" or "delete"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s project: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStoreWriteFailed) hold for every StoreError.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreWriteFailed
}

// SubscriptionError reports a live feed that terminated with an error.
type SubscriptionError struct {
	OwnerID string
	Err     error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscription for owner %q: %v", e.OwnerID, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

func (e *SubscriptionError) Is(target error) bool {
	return target == ErrSubscriptionFailed
}
