// Package lifecycle models the host application's foreground/background
// state. Front-end embedders feed transitions in; interested components
// subscribe. This replaces scattered platform conditionals with one
// notification point.
package lifecycle

import (
	"sync"
	"time"
)

// DefaultTimeout bounds graceful shutdown of long-running components.
const DefaultTimeout = 10 * time.Second

// AppState is the visibility state of the embedding application.
type AppState int

const (
	// StateForeground means the app or tab is visible and interactive.
	StateForeground AppState = iota
	// StateBackground means the app or tab is hidden or suspended.
	StateBackground
)

// String returns the string representation of the AppState.
func (s AppState) String() string {
	if s == StateForeground {
		return "foreground"
	}

	return "background"
}

// AppStateNotifier fans app-state transitions out to subscribers.
type AppStateNotifier interface {
	// Notify reports a transition. Called by the embedding front end.
	Notify(state AppState)

	// Subscribe registers a listener; the returned function removes it.
	// Listeners are invoked synchronously in Notify order.
	Subscribe(fn func(AppState)) (unsubscribe func())
}

type appStateNotifier struct {
	mu        sync.Mutex
	listeners map[int]func(AppState)
	nextID    int
}

// NewAppStateNotifier creates an empty notifier.
func NewAppStateNotifier() AppStateNotifier {
	return &appStateNotifier{listeners: make(map[int]func(AppState))}
}

func (n *appStateNotifier) Notify(state AppState) {
	n.mu.Lock()
	fns := make([]func(AppState), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func (n *appStateNotifier) Subscribe(fn func(AppState)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}
