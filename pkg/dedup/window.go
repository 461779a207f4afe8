// Package dedup remembers recently seen keys so repeated events inside a
// time window can be collapsed.
package dedup

import (
	"container/list"
	"sync"
	"time"
)

// Window is a per-scope LRU of keys with a fixed TTL. It is safe for
// concurrent use.
type Window struct {
	mu          sync.Mutex
	ttl         time.Duration
	maxPerScope int
	now         func() time.Time
	// scopes maps scope -> LRU list of *entry (front = most recent)
	scopes map[string]*list.List
	// elements maps scope+key -> *list.Element for O(1) lookup
	elements map[string]*list.Element
}

// Hit describes the state of a key after Observe.
type Hit struct {
	First     bool      // true when the key was not live in the window
	Count     int       // observations since FirstSeen, including this one
	FirstSeen time.Time // start of the current window for the key
}

type entry struct {
	scope     string
	key       string
	firstSeen time.Time
	expiresAt time.Time
	count     int
}

// Option configures a Window.
type Option func(*Window)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(w *Window) { w.now = now }
}

// New returns a Window that holds at most maxPerScope keys per scope for ttl.
func New(maxPerScope int, ttl time.Duration, opts ...Option) *Window {
	if maxPerScope <= 0 {
		maxPerScope = 1
	}
	w := &Window{
		ttl:         ttl,
		maxPerScope: maxPerScope,
		now:         time.Now,
		scopes:      make(map[string]*list.List),
		elements:    make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func elementKey(scope, key string) string {
	return scope + "\x00" + key
}

// Observe records key in scope. The first observation, and the first one
// after the previous window expired, reports First.
func (w *Window) Observe(scope, key string) Hit {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	ek := elementKey(scope, key)
	if elem, ok := w.elements[ek]; ok {
		e := elem.Value.(*entry)
		if now.Before(e.expiresAt) {
			e.count++
			w.scopes[scope].MoveToFront(elem)
			return Hit{Count: e.count, FirstSeen: e.firstSeen}
		}
		w.removeLocked(elem)
	}

	l, ok := w.scopes[scope]
	if !ok {
		l = list.New()
		w.scopes[scope] = l
	}

	// Evict from back when at capacity.
	if l.Len() >= w.maxPerScope {
		if back := l.Back(); back != nil {
			w.removeLocked(back)
		}
	}

	e := &entry{scope: scope, key: key, firstSeen: now, expiresAt: now.Add(w.ttl), count: 1}
	w.elements[ek] = l.PushFront(e)
	return Hit{First: true, Count: 1, FirstSeen: now}
}

// Forget drops key from scope. Reports whether it was present.
func (w *Window) Forget(scope, key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	elem, ok := w.elements[elementKey(scope, key)]
	if !ok {
		return false
	}
	w.removeLocked(elem)
	return true
}

// Len counts live and not yet collected keys across all scopes.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	total := 0
	for _, l := range w.scopes {
		total += l.Len()
	}
	return total
}

func (w *Window) removeLocked(elem *list.Element) {
	e := elem.Value.(*entry)
	l := w.scopes[e.scope]
	l.Remove(elem)
	delete(w.elements, elementKey(e.scope, e.key))
	if l.Len() == 0 {
		delete(w.scopes, e.scope)
	}
}
