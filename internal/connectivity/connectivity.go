// Package connectivity reports whether this host currently has network access.
package connectivity

import "sync"

// Probe is the host connectivity signal consumed by the monitor.
type Probe interface {
	IsOnline() bool
	// OnChange registers fn for online/offline transitions and returns a func that unregisters it.
	OnChange(fn func(online bool)) (cancel func())
}

// listeners is the shared transition fan-out used by Static and Watcher.
type listeners struct {
	mu     sync.Mutex
	online bool
	next   int
	fns    map[int]func(bool)
}

func newListeners(online bool) *listeners {
	return &listeners{online: online, fns: make(map[int]func(bool))}
}

func (l *listeners) IsOnline() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.online
}

func (l *listeners) OnChange(fn func(bool)) func() {
	l.mu.Lock()
	id := l.next
	l.next++
	l.fns[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

// set records the new value and notifies listeners when it changed.
func (l *listeners) set(online bool) bool {
	l.mu.Lock()
	if l.online == online {
		l.mu.Unlock()
		return false
	}
	l.online = online
	fns := make([]func(bool), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
	return true
}

// Static is a manually driven Probe. The zero value is not usable; see NewStatic.
type Static struct {
	*listeners
}

func NewStatic(online bool) *Static {
	return &Static{listeners: newListeners(online)}
}

// SetOnline changes the reported state; listeners fire only on transitions.
func (s *Static) SetOnline(online bool) {
	s.set(online)
}
