// Package connectivity abstracts online/offline awareness as an Observer that
// callers query and subscribe to, backed either by a manual switch or by
// probing the remote gateway.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Observer reports connectivity and notifies on transitions.
type Observer interface {
	Online() bool
	OnOnline(fn func())
	OnOffline(fn func())
}

// Manual is an Observer toggled explicitly. It also backs the Watcher.
type Manual struct {
	mu         sync.Mutex
	online     bool
	onlineFns  []func()
	offlineFns []func()
}

// NewManual creates an observer starting in the given state.
func NewManual(online bool) *Manual {
	return &Manual{online: online}
}

// Online implements Observer.
func (m *Manual) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnOnline registers a callback fired on each offline-to-online transition.
func (m *Manual) OnOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onlineFns = append(m.onlineFns, fn)
}

// OnOffline registers a callback fired on each online-to-offline transition.
func (m *Manual) OnOffline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offlineFns = append(m.offlineFns, fn)
}

// SetOnline flips the state, firing transition callbacks when it changes.
func (m *Manual) SetOnline(online bool) {
	m.mu.Lock()
	changed := m.online != online
	m.online = online
	var fns []func()
	if changed {
		if online {
			fns = append(fns, m.onlineFns...)
		} else {
			fns = append(fns, m.offlineFns...)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Prober is the reachability check the Watcher polls.
type Prober interface {
	Ping(ctx context.Context) error
}

// Watcher polls a Prober and drives a Manual observer from the results.
type Watcher struct {
	*Manual
	probe    Prober
	interval time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher that assumes it starts online.
func NewWatcher(probe Prober, interval time.Duration, logger *slog.Logger) *Watcher {
	return &Watcher{
		Manual:   NewManual(true),
		probe:    probe,
		interval: interval,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled. Call from a goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, w.interval)
			err := w.probe.Ping(probeCtx)
			cancel()

			online := err == nil
			if online != w.Online() {
				w.logger.Info("connectivity changed", "online", online)
			}
			w.SetOnline(online)
		}
	}
}
