package auth

import (
	"context"
	"sync"
)

// OwnerSource supplies the identity records are scoped to.
type OwnerSource interface {
	// CurrentOwnerID returns the authenticated owner, or false when signed out.
	CurrentOwnerID() (string, bool)

	// Watch yields the current owner immediately and then every change until
	// ctx ends. An empty string means signed out. The channel is closed only
	// when ctx ends, so callers that stop reading must cancel ctx.
	Watch(ctx context.Context) <-chan string
}

// StaticOwner is an OwnerSource that never changes, e.g. the owner resolved
// from a verified request token. The zero value is signed out.
type StaticOwner string

func (o StaticOwner) CurrentOwnerID() (string, bool) {
	return string(o), o != ""
}

// Watch yields o once. With a context that is never cancelled nothing waits
// on it and the channel simply stays open.
func (o StaticOwner) Watch(ctx context.Context) <-chan string {
	ch := make(chan string, 1)
	ch <- string(o)
	context.AfterFunc(ctx, func() { close(ch) })
	return ch
}

// Session is a mutable OwnerSource for long-lived clients: sign-in sets the
// owner, sign-out or session expiry clears it.
type Session struct {
	mu       sync.Mutex
	owner    string
	watchers map[chan string]struct{}
}

// NewSession creates a session signed in as ownerID, or signed out when it is empty.
func NewSession(ownerID string) *Session {
	return &Session{owner: ownerID, watchers: make(map[chan string]struct{})}
}

func (s *Session) CurrentOwnerID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner, s.owner != ""
}

// SignIn binds the session to ownerID.
func (s *Session) SignIn(ownerID string) { s.set(ownerID) }

// SignOut clears the owner.
func (s *Session) SignOut() { s.set("") }

func (s *Session) set(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == ownerID {
		return
	}
	s.owner = ownerID
	for ch := range s.watchers {
		offer(ch, ownerID)
	}
}

func (s *Session) Watch(ctx context.Context) <-chan string {
	ch := make(chan string, 1)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	ch <- s.owner
	s.mu.Unlock()

	context.AfterFunc(ctx, func() {
		s.mu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.mu.Unlock()
	})
	return ch
}

// offer replaces an unread value in ch with v. Only the latest identity matters.
func offer(ch chan string, v string) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
