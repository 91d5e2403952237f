// Package livesync keeps an owner-scoped, de-duplicated view of the projects
// collection in step with the record store's push notifications.
//
// Every subscription is tagged with a generation number. Open and Close bump
// the generation, and deliveries carrying an older tag are dropped, so a late
// notification for a previous owner or a closed feed never reaches the
// snapshot.
package livesync

import (
	"context"
	"log/slog"
	"sync"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/metrics"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/domain"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/repository"
)

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) { s.log = l }
}

// WithMetrics records applied and dropped notifications in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Synchronizer) { s.metrics = m }
}

// Synchronizer owns the subscription for one owner at a time and exposes the
// latest full set the store delivered for it.
type Synchronizer struct {
	store   repository.RecordStore
	log     *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	gen       uint64
	state     State
	owner     string
	projects  []domain.Project
	err       error
	sub       repository.Subscription
	cancel    context.CancelFunc
	stopAfter func() bool

	listeners    map[uint64]*listener
	nextListener uint64
}

// New creates an idle Synchronizer reading from store.
func New(store repository.RecordStore, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:     store,
		log:       slog.Default(),
		listeners: make(map[uint64]*listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open subscribes to the records of ownerID. If a subscription for another
// owner is held it is released first. Opening the owner that is already
// subscribing or live is a no-op.
//
// The subscription lives until Close, the next Open for a different owner, a
// terminal store error, or the end of ctx, whichever comes first. Records
// arrive asynchronously; observe them with View, OnChange or Watch.
func (s *Synchronizer) Open(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return domain.ErrInvalidOwner
	}

	s.mu.Lock()
	if s.owner == ownerID && (s.state == StateSubscribing || s.state == StateLive) {
		s.mu.Unlock()
		return nil
	}
	release := s.detachLocked()
	s.gen++
	gen := s.gen
	s.owner = ownerID
	s.state = StateSubscribing
	s.projects = nil
	s.err = nil
	s.publishLocked()
	s.mu.Unlock()
	release()

	subCtx, cancel := context.WithCancel(ctx)
	sub, err := s.store.Subscribe(subCtx, domain.Filter{OwnerID: ownerID},
		func(set []domain.Project) { s.apply(gen, ownerID, set) },
		func(err error) { s.fail(gen, ownerID, err) },
	)

	s.mu.Lock()
	if gen != s.gen || s.state == StateFailed {
		// Closed, reopened or failed while Subscribe was in flight. A failure
		// of this generation is still the caller's to see.
		var failure error
		if gen == s.gen {
			failure = s.err
		}
		s.mu.Unlock()
		cancel()
		if err == nil && sub != nil {
			sub.Unsubscribe()
		}
		return failure
	}
	if err != nil {
		s.state = StateFailed
		s.err = &domain.SubscriptionError{OwnerID: ownerID, Err: err}
		failure := s.err
		s.publishLocked()
		s.mu.Unlock()
		cancel()
		s.metrics.SubscriptionFailed()
		s.log.Warn("subscribe failed", "owner_id", ownerID, "error", err)
		return failure
	}
	s.sub = sub
	s.cancel = cancel
	s.stopAfter = context.AfterFunc(ctx, func() { s.closeGeneration(gen) })
	s.mu.Unlock()

	s.metrics.SubscriptionOpened()
	s.log.Debug("subscribed", "owner_id", ownerID, "generation", gen)
	return nil
}

// Close releases the active subscription and returns to StateIdle. It is a
// no-op when idle. Once Close returns no further notification is applied,
// including one that was already being delivered.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	release := s.idleLocked()
	s.mu.Unlock()
	release()
}

func (s *Synchronizer) closeGeneration(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	release := s.idleLocked()
	s.mu.Unlock()
	release()
}

// idleLocked resets to StateIdle and returns the release func for the old subscription.
func (s *Synchronizer) idleLocked() func() {
	release := s.detachLocked()
	s.gen++
	s.state = StateIdle
	s.owner = ""
	s.projects = nil
	s.err = nil
	s.publishLocked()
	return release
}

// detachLocked takes the subscription out of s. The returned func releases
// it and must be called without s.mu held.
func (s *Synchronizer) detachLocked() func() {
	sub, cancel, stop := s.sub, s.cancel, s.stopAfter
	s.sub, s.cancel, s.stopAfter = nil, nil, nil
	return func() {
		if stop != nil {
			stop()
		}
		if cancel != nil {
			cancel()
		}
		if sub != nil {
			sub.Unsubscribe()
			s.metrics.SubscriptionReleased()
		}
	}
}

func (s *Synchronizer) apply(gen uint64, ownerID string, set []domain.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || (s.state != StateSubscribing && s.state != StateLive) {
		s.metrics.Dropped(metrics.ReasonStale, 1)
		s.log.Debug("dropped stale notification", "owner_id", ownerID, "generation", gen)
		return
	}

	projects, foreign, dups := normalize(ownerID, set)
	if foreign > 0 {
		s.metrics.Dropped(metrics.ReasonForeignOwner, foreign)
		s.log.Warn("store delivered records of another owner", "owner_id", ownerID, "count", foreign)
	}
	s.metrics.Dropped(metrics.ReasonDuplicateID, dups)

	s.projects = projects
	s.state = StateLive
	s.metrics.Applied()
	s.publishLocked()
}

func (s *Synchronizer) fail(gen uint64, ownerID string, err error) {
	s.mu.Lock()
	if gen != s.gen || (s.state != StateSubscribing && s.state != StateLive) {
		s.mu.Unlock()
		s.metrics.Dropped(metrics.ReasonStale, 1)
		return
	}
	release := s.detachLocked()
	s.state = StateFailed
	s.err = &domain.SubscriptionError{OwnerID: ownerID, Err: err}
	s.publishLocked()
	s.mu.Unlock()

	s.metrics.SubscriptionFailed()
	s.log.Warn("subscription terminated", "owner_id", ownerID, "error", err)
	// fail runs on the store's delivery goroutine; release off it.
	go release()
}

// normalize drops records of other owners and collapses repeated ids. A
// repeated id keeps the position of its first occurrence and the value of
// its last.
func normalize(ownerID string, set []domain.Project) (out []domain.Project, foreign, dups int) {
	out = make([]domain.Project, 0, len(set))
	index := make(map[string]int, len(set))
	for _, p := range set {
		if p.OwnerID != ownerID {
			foreign++
			continue
		}
		if i, ok := index[p.ID]; ok {
			out[i] = p
			dups++
			continue
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	return out, foreign, dups
}

// View returns a copy of the current state.
func (s *Synchronizer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Snapshot returns a copy of the current records in delivered order.
func (s *Synchronizer) Snapshot() []domain.Project {
	return s.View().Projects
}

// State returns the lifecycle state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the subscription error while in StateFailed, otherwise nil.
func (s *Synchronizer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// OwnerID returns the owner the Synchronizer is bound to, or "".
func (s *Synchronizer) OwnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

func (s *Synchronizer) viewLocked() View {
	projects := make([]domain.Project, len(s.projects))
	copy(projects, s.projects)
	return View{
		OwnerID:  s.owner,
		State:    s.state,
		Projects: projects,
		Err:      s.err,
	}
}
