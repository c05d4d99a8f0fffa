package connectivity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualTransitions(t *testing.T) {
	m := NewManual(false)
	assert.False(t, m.Online())

	var onlineFires, offlineFires int
	m.OnOnline(func() { onlineFires++ })
	m.OnOffline(func() { offlineFires++ })

	m.SetOnline(true)
	assert.True(t, m.Online())
	assert.Equal(t, 1, onlineFires)

	// Setting the same state again is not a transition.
	m.SetOnline(true)
	assert.Equal(t, 1, onlineFires)

	m.SetOnline(false)
	assert.Equal(t, 1, offlineFires)
	m.SetOnline(true)
	assert.Equal(t, 2, onlineFires)
}

type scriptedProber struct {
	errs chan error
}

func (p *scriptedProber) Ping(ctx context.Context) error {
	select {
	case err := <-p.errs:
		return err
	default:
		return nil
	}
}

func TestWatcherFlipsOnProbeFailure(t *testing.T) {
	probe := &scriptedProber{errs: make(chan error, 1)}
	probe.errs <- errors.New("unreachable")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWatcher(probe, 5*time.Millisecond, logger)
	require.True(t, w.Online())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.Eventually(t, func() bool { return !w.Online() }, time.Second, time.Millisecond)
	// The next probe succeeds and flips it back.
	require.Eventually(t, func() bool { return w.Online() }, time.Second, time.Millisecond)
}
