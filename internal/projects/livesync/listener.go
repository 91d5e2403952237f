package livesync

import (
	"context"
	"sync"
)

// listener runs a callback on its own goroutine. Its mailbox keeps only the
// newest view, so a slow consumer never holds up the store and always ends
// up on the latest state.
type listener struct {
	fn     func(View)
	box    chan View
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

func newListener(fn func(View)) *listener {
	l := &listener{
		fn:     fn,
		box:    make(chan View, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *listener) push(v View) {
	for {
		select {
		case l.box <- v:
			return
		default:
		}
		select {
		case <-l.box:
		default:
		}
	}
}

func (l *listener) stop() {
	l.once.Do(func() { close(l.done) })
}

func (l *listener) run() {
	defer close(l.exited)
	for {
		select {
		case <-l.done:
			return
		case v := <-l.box:
			select {
			case <-l.done:
				return
			default:
			}
			l.fn(v)
		}
	}
}

// publishLocked hands the current view to every listener. Pushes happen
// under s.mu, so each listener sees views in the order they were produced.
func (s *Synchronizer) publishLocked() {
	if len(s.listeners) == 0 {
		return
	}
	v := s.viewLocked()
	for _, l := range s.listeners {
		l.push(v)
	}
}

func (s *Synchronizer) addListener(fn func(View)) (*listener, func()) {
	l := newListener(fn)

	s.mu.Lock()
	s.nextListener++
	id := s.nextListener
	s.listeners[id] = l
	l.push(s.viewLocked())
	s.mu.Unlock()

	return l, func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
		l.stop()
	}
}

// OnChange calls fn with the current view and then after every state or
// snapshot change. fn runs on a dedicated goroutine and may call back into
// the Synchronizer. Intermediate views are skipped when fn is slower than
// the store. The returned func unregisters fn.
func (s *Synchronizer) OnChange(fn func(View)) (cancel func()) {
	_, cancel = s.addListener(fn)
	return cancel
}

// Watch streams views until ctx ends, then closes the channel.
func (s *Synchronizer) Watch(ctx context.Context) <-chan View {
	out := make(chan View, 1)
	l, cancel := s.addListener(func(v View) {
		// Drop a view the consumer has not picked up yet; the new one supersedes it.
		select {
		case <-out:
		default:
		}
		select {
		case out <- v:
		case <-ctx.Done():
		}
	})

	go func() {
		<-ctx.Done()
		cancel()
		<-l.exited
		close(out)
	}()
	return out
}
