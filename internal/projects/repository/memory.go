package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/domain"
)

// MemoryStore is an in-process RecordStore. It backs local development and
// tests, and behaves like the remote stores: writes are acknowledged before
// subscribers see them, and every subscriber receives full sets.
type MemoryStore struct {
	mu       sync.Mutex
	records  []domain.Project // insertion order
	subs     map[uint64]*memorySub
	nextSub  uint64
	writeErr error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[uint64]*memorySub)}
}

// SetWriteError makes every following Create and Delete fail with err.
// Pass nil to restore normal behaviour.
func (s *MemoryStore) SetWriteError(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// Revoke terminates every live subscription for ownerID with err, the way a
// remote store reports a permission change.
func (s *MemoryStore) Revoke(ownerID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sub := range s.subs {
		if sub.filter.OwnerID == ownerID {
			sub.fail(err)
			delete(s.subs, id)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (s *MemoryStore) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *MemoryStore) Subscribe(ctx context.Context, filter domain.Filter, onUpdate func([]domain.Project), onError func(error)) (Subscription, error) {
	if filter.OwnerID == "" {
		return nil, domain.ErrInvalidOwner
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &memorySub{
		filter:   filter,
		onUpdate: onUpdate,
		onError:  onError,
		updates:  make(chan []domain.Project, 1),
		errc:     make(chan error, 1),
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = sub
	sub.push(s.matching(filter))
	s.mu.Unlock()

	go sub.run(ctx)

	return SubscriptionFunc(func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		sub.stop()
	}), nil
}

func (s *MemoryStore) Create(ctx context.Context, p domain.Project) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return "", s.writeErr
	}

	for i := 0; i < 5; i++ {
		id, err := newTextID()
		if err != nil {
			return "", err
		}
		if s.indexOf(id) >= 0 {
			continue
		}
		p.ID = id
		s.records = append(s.records, p)
		s.broadcast(p.OwnerID)
		return id, nil
	}

	return "", fmt.Errorf("failed to generate unique project id")
}

func (s *MemoryStore) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}

	i := s.indexOf(id)
	if i < 0 || s.records[i].OwnerID != ownerID {
		return domain.ErrNotFound
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	s.broadcast(ownerID)
	return nil
}

// Put inserts or replaces a record verbatim, keeping its position when it
// already exists. It lets tests and fixtures seed records with known ids.
func (s *MemoryStore) Put(p domain.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(p.ID); i >= 0 {
		prevOwner := s.records[i].OwnerID
		s.records[i] = p
		if prevOwner != p.OwnerID {
			s.broadcast(prevOwner)
		}
	} else {
		s.records = append(s.records, p)
	}
	s.broadcast(p.OwnerID)
}

func (s *MemoryStore) indexOf(id string) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) matching(f domain.Filter) []domain.Project {
	out := make([]domain.Project, 0, len(s.records))
	for _, r := range s.records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// broadcast must be called with s.mu held.
func (s *MemoryStore) broadcast(ownerID string) {
	for _, sub := range s.subs {
		if sub.filter.OwnerID == ownerID {
			sub.push(s.matching(sub.filter))
		}
	}
}

type memorySub struct {
	filter   domain.Filter
	onUpdate func([]domain.Project)
	onError  func(error)

	updates chan []domain.Project // holds at most the latest full set
	errc    chan error
	done    chan struct{}
	once    sync.Once
}

// push replaces any undelivered set with set. Sets are full state, so an
// overwritten one carries nothing the newer one lacks.
func (m *memorySub) push(set []domain.Project) {
	for {
		select {
		case m.updates <- set:
			return
		default:
		}
		select {
		case <-m.updates:
		default:
		}
	}
}

func (m *memorySub) fail(err error) {
	select {
	case m.errc <- err:
	default:
	}
}

func (m *memorySub) stop() {
	m.once.Do(func() { close(m.done) })
}

func (m *memorySub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case err := <-m.errc:
			m.onError(err)
			return
		case set := <-m.updates:
			select {
			case <-m.done:
				return
			default:
			}
			m.onUpdate(set)
		}
	}
}
