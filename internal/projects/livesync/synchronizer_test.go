package livesync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/domain"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/repository"
)

// fakeStore hands the test the callbacks of every subscription so
// notifications can be injected synchronously.
type fakeStore struct {
	mu           sync.Mutex
	subs         []*fakeSub
	subscribeErr error

	// gate, when set, holds Subscribe calls for gateOwner until it is closed.
	// entered receives once such a call is waiting.
	gate      chan struct{}
	gateOwner string
	entered   chan struct{}

	// errDuringSubscribe is reported through onError before Subscribe returns.
	errDuringSubscribe error
}

type fakeSub struct {
	filter       domain.Filter
	ctx          context.Context
	onUpdate     func([]domain.Project)
	onError      func(error)
	unsubscribed atomic.Bool
}

func (s *fakeSub) Unsubscribe() { s.unsubscribed.Store(true) }

func (f *fakeStore) Subscribe(ctx context.Context, filter domain.Filter, onUpdate func([]domain.Project), onError func(error)) (repository.Subscription, error) {
	if f.gate != nil && filter.OwnerID == f.gateOwner {
		f.entered <- struct{}{}
		<-f.gate
	}
	f.mu.Lock()
	if f.subscribeErr != nil {
		f.mu.Unlock()
		return nil, f.subscribeErr
	}
	sub := &fakeSub{filter: filter, ctx: ctx, onUpdate: onUpdate, onError: onError}
	f.subs = append(f.subs, sub)
	f.mu.Unlock()

	if f.errDuringSubscribe != nil {
		onError(f.errDuringSubscribe)
	}
	return sub, nil
}

func gatedStore(owner string) *fakeStore {
	return &fakeStore{
		gate:      make(chan struct{}),
		gateOwner: owner,
		entered:   make(chan struct{}, 1),
	}
}

func (f *fakeStore) Create(context.Context, domain.Project) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeStore) Delete(context.Context, string, string) error {
	return errors.New("not implemented")
}

func (f *fakeStore) sub(t *testing.T, i int) *fakeSub {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Greater(t, len(f.subs), i, "subscription %d was not requested", i)
	return f.subs[i]
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func proj(id, owner, name string) domain.Project {
	return domain.Project{
		ID:          id,
		Name:        name,
		Description: name + " description",
		CreatedAt:   "2024-03-05T10:00:00.000Z",
		OwnerID:     owner,
	}
}

func ids(ps []domain.Project) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestOpen_StartsSubscribing(t *testing.T) {
	store := &fakeStore{}
	s := New(store)

	require.NoError(t, s.Open(context.Background(), "u1"))

	assert.Equal(t, StateSubscribing, s.State())
	assert.Equal(t, "u1", s.OwnerID())
	assert.Empty(t, s.Snapshot())
	assert.Equal(t, domain.Filter{OwnerID: "u1"}, store.sub(t, 0).filter)
}

func TestOpen_EmptyOwner(t *testing.T) {
	store := &fakeStore{}
	s := New(store)

	err := s.Open(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
	assert.Equal(t, StateIdle, s.State())
	assert.Zero(t, store.count())
}

func TestApply_ReplacesSnapshotWithEveryFullSet(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	require.NoError(t, s.Open(context.Background(), "u1"))
	sub := store.sub(t, 0)

	sub.onUpdate(nil)
	assert.Equal(t, StateLive, s.State())
	assert.Empty(t, s.Snapshot())

	p1, p2 := proj("p1", "u1", "one"), proj("p2", "u1", "two")

	sub.onUpdate([]domain.Project{p1})
	assert.Equal(t, []string{"p1"}, ids(s.Snapshot()))

	sub.onUpdate([]domain.Project{p1, p2})
	assert.Equal(t, []string{"p1", "p2"}, ids(s.Snapshot()))

	sub.onUpdate([]domain.Project{p2})
	assert.Equal(t, []string{"p2"}, ids(s.Snapshot()))
}

func TestApply_SameSetTwiceIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	require.NoError(t, s.Open(context.Background(), "u1"))
	sub := store.sub(t, 0)

	set := []domain.Project{proj("p1", "u1", "one"), proj("p2", "u1", "two")}
	sub.onUpdate(set)
	first := s.Snapshot()
	sub.onUpdate(set)

	assert.Equal(t, first, s.Snapshot())
}

func TestApply_DropsRecordsOfOtherOwners(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	require.NoError(t, s.Open(context.Background(), "u1"))

	store.sub(t, 0).onUpdate([]domain.Project{
		proj("p1", "u1", "mine"),
		proj("x1", "u2", "theirs"),
	})

	assert.Equal(t, []string{"p1"}, ids(s.Snapshot()))
}

func TestApply_CollapsesDuplicateIDs(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	require.NoError(t, s.Open(context.Background(), "u1"))

	updated := proj("p1", "u1", "renamed")
	store.sub(t, 0).onUpdate([]domain.Project{
		proj("p1", "u1", "one"),
		proj("p2", "u1", "two"),
		updated,
	})

	snap := s.Snapshot()
	require.Equal(t, []string{"p1", "p2"}, ids(snap))
	assert.Equal(t, "renamed", snap[0].Name)
}

func TestSnapshot_IsACopy(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	require.NoError(t, s.Open(context.Background(), "u1"))
	store.sub(t, 0).onUpdate([]domain.Project{proj("p1", "u1", "one")})

	snap := s.Snapshot()
	snap[0].Name = "mutated"

	assert.Equal(t, "one", s.Snapshot()[0].Name)
}

func TestClose_IgnoresLateNotifications(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	require.NoError(t, s.Open(context.Background(), "u1"))
	sub := store.sub(t, 0)

	s.Close()
	sub.onUpdate([]domain.Project{proj("p1", "u1", "late")})

	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.Snapshot())
	assert.Empty(t, s.OwnerID())
	assert.True(t, sub.unsubscribed.Load())
}

func TestClose_IdleIsNoop(t *testing.T) {
	s := New(&fakeStore{})
	s.Close()
	s.Close()
	assert.Equal(t, StateIdle, s.State())
}

func TestOpen_SameOwnerIsNoop(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	require.NoError(t, s.Open(context.Background(), "u1"))
	store.sub(t, 0).onUpdate([]domain.Project{proj("p1", "u1", "one")})

	require.NoError(t, s.Open(context.Background(), "u1"))

	assert.Equal(t, 1, store.count())
	assert.Equal(t, []string{"p1"}, ids(s.Snapshot()))
}

func TestOpen_OwnerSwitchDropsPreviousFeed(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	require.NoError(t, s.Open(context.Background(), "A"))
	subA := store.sub(t, 0)
	subA.onUpdate([]domain.Project{proj("a1", "A", "a")})

	require.NoError(t, s.Open(context.Background(), "B"))
	subB := store.sub(t, 1)

	assert.True(t, subA.unsubscribed.Load())
	assert.Equal(t, StateSubscribing, s.State())
	assert.Empty(t, s.Snapshot())

	// A's feed still delivers after the switch.
	subA.onUpdate([]domain.Project{proj("a1", "A", "a"), proj("a2", "A", "b")})
	assert.Empty(t, s.Snapshot())

	subB.onUpdate([]domain.Project{proj("b1", "B", "b")})
	assert.Equal(t, []string{"b1"}, ids(s.Snapshot()))
	assert.Equal(t, "B", s.OwnerID())
}

func TestFail_KeepsLastSnapshotAndReportsError(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	require.NoError(t, s.Open(context.Background(), "u1"))
	sub := store.sub(t, 0)
	sub.onUpdate([]domain.Project{proj("p1", "u1", "one")})

	cause := errors.New("permission denied")
	sub.onError(cause)

	assert.Equal(t, StateFailed, s.State())
	assert.ErrorIs(t, s.Err(), domain.ErrSubscriptionFailed)
	assert.ErrorIs(t, s.Err(), cause)
	assert.Equal(t, []string{"p1"}, ids(s.Snapshot()))
	assert.Eventually(t, sub.unsubscribed.Load, time.Second, 5*time.Millisecond)

	// Nothing is applied after a failure.
	sub.onUpdate(nil)
	assert.Equal(t, []string{"p1"}, ids(s.Snapshot()))
	assert.Equal(t, StateFailed, s.State())
}

func TestOpen_AfterFailureResubscribes(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	require.NoError(t, s.Open(context.Background(), "u1"))
	store.sub(t, 0).onError(errors.New("boom"))
	require.Equal(t, StateFailed, s.State())

	require.NoError(t, s.Open(context.Background(), "u1"))

	assert.Equal(t, 2, store.count())
	assert.Equal(t, StateSubscribing, s.State())
	assert.NoError(t, s.Err())
}

func TestOpen_SubscribeError(t *testing.T) {
	cause := errors.New("unavailable")
	store := &fakeStore{subscribeErr: cause}
	s := New(store)

	err := s.Open(context.Background(), "u1")

	assert.ErrorIs(t, err, domain.ErrSubscriptionFailed)
	assert.ErrorIs(t, err, cause)
	var subErr *domain.SubscriptionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "u1", subErr.OwnerID)
	assert.Equal(t, StateFailed, s.State())
}

func TestOpen_ErrorReportedDuringSubscribe(t *testing.T) {
	cause := errors.New("permission denied")
	store := &fakeStore{errDuringSubscribe: cause}
	s := New(store)

	err := s.Open(context.Background(), "u1")

	assert.ErrorIs(t, err, domain.ErrSubscriptionFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, err, s.Err())
	assert.True(t, store.sub(t, 0).unsubscribed.Load())
}

func TestOpen_CloseWhileSubscribeInFlight(t *testing.T) {
	store := gatedStore("u1")
	s := New(store)

	done := make(chan error, 1)
	go func() { done <- s.Open(context.Background(), "u1") }()
	<-store.entered
	assert.Equal(t, StateSubscribing, s.State())

	s.Close()
	assert.Equal(t, StateIdle, s.State())
	close(store.gate)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Open did not return")
	}
	sub := store.sub(t, 0)
	assert.True(t, sub.unsubscribed.Load())
	assert.ErrorIs(t, sub.ctx.Err(), context.Canceled)

	sub.onUpdate([]domain.Project{proj("p1", "u1", "late")})
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.Snapshot())
	assert.Empty(t, s.OwnerID())
}

func TestOpen_OwnerSwitchWhileSubscribeInFlight(t *testing.T) {
	store := gatedStore("u1")
	s := New(store)

	done := make(chan error, 1)
	go func() { done <- s.Open(context.Background(), "u1") }()
	<-store.entered

	require.NoError(t, s.Open(context.Background(), "u2"))
	subU2 := store.sub(t, 0)
	assert.Equal(t, "u2", subU2.filter.OwnerID)
	close(store.gate)
	require.NoError(t, <-done)

	subU1 := store.sub(t, 1)
	assert.Equal(t, "u1", subU1.filter.OwnerID)
	assert.True(t, subU1.unsubscribed.Load())
	assert.False(t, subU2.unsubscribed.Load())

	subU1.onUpdate([]domain.Project{proj("p1", "u1", "stale")})
	subU1.onError(errors.New("stale failure"))
	subU2.onUpdate([]domain.Project{proj("p2", "u2", "current")})

	assert.Equal(t, StateLive, s.State())
	assert.Equal(t, "u2", s.OwnerID())
	assert.Equal(t, []string{"p2"}, ids(s.Snapshot()))
}

// Run with -race: Close and a notification being applied contend for the
// same state. Whatever the interleaving, Close wins.
func TestClose_RacesNotification(t *testing.T) {
	store := &fakeStore{}
	s := New(store)

	for i := 0; i < 50; i++ {
		require.NoError(t, s.Open(context.Background(), "u1"))
		sub := store.sub(t, i)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				sub.onUpdate([]domain.Project{proj("p1", "u1", "one")})
			}
		}()
		go func() {
			defer wg.Done()
			s.Close()
		}()
		wg.Wait()

		sub.onUpdate([]domain.Project{proj("p2", "u1", "after close")})
		assert.Equal(t, StateIdle, s.State())
		assert.Empty(t, s.Snapshot())
		assert.True(t, sub.unsubscribed.Load())
	}
}

func TestOpen_ContextEndClosesSubscription(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Open(ctx, "u1"))
	sub := store.sub(t, 0)

	cancel()

	assert.Eventually(t, func() bool { return s.State() == StateIdle }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, sub.unsubscribed.Load, time.Second, 5*time.Millisecond)
	assert.Error(t, sub.ctx.Err())
}

func TestWatch_StreamsViews(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	views := s.Watch(ctx)
	require.NoError(t, s.Open(ctx, "u1"))
	store.sub(t, 0).onUpdate([]domain.Project{proj("p1", "u1", "one")})

	v := waitForView(t, views, func(v View) bool { return v.State == StateLive })
	assert.Equal(t, []string{"p1"}, ids(v.Projects))
	assert.Equal(t, "u1", v.OwnerID)

	cancel()
	assert.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-views:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)
}

func TestOnChange_CallbackMayCloseSynchronizer(t *testing.T) {
	store := &fakeStore{}
	s := New(store)
	require.NoError(t, s.Open(context.Background(), "u1"))

	closed := make(chan struct{})
	var once sync.Once
	cancel := s.OnChange(func(v View) {
		if v.State == StateLive {
			s.Close()
			once.Do(func() { close(closed) })
		}
	})
	defer cancel()

	store.sub(t, 0).onUpdate([]domain.Project{proj("p1", "u1", "one")})

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("callback did not run")
	}
	assert.Equal(t, StateIdle, s.State())
}

func TestNormalize(t *testing.T) {
	out, foreign, dups := normalize("u1", []domain.Project{
		proj("p1", "u1", "first"),
		proj("x", "u2", "other"),
		proj("p2", "u1", "second"),
		proj("p1", "u1", "last"),
		proj("p1", "u1", "final"),
	})

	assert.Equal(t, []string{"p1", "p2"}, ids(out))
	assert.Equal(t, "final", out[0].Name)
	assert.Equal(t, 1, foreign)
	assert.Equal(t, 2, dups)
}

func waitForView(t *testing.T, views <-chan View, match func(View) bool) View {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-views:
			require.True(t, ok, "view channel closed")
			if match(v) {
				return v
			}
		case <-timeout:
			t.Fatal("timed out waiting for view")
		}
	}
}
