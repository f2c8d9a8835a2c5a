package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/certtrack/certtrack/internal/auth/observability"
	"github.com/certtrack/certtrack/internal/auth/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// flakyStore only implements Ping; the monitor never touches Users.
type flakyStore struct {
	store.Store
	down atomic.Bool
}

func (s *flakyStore) Ping(context.Context) error {
	if s.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestStoreMonitor(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	_, metrics := observability.NewRegistry()

	st := &flakyStore{}
	m := NewStoreMonitor(st, logger, metrics, 10*time.Millisecond)

	m.Start()
	t.Cleanup(m.Stop)

	require.True(t, m.Healthy())
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreUp))

	st.down.Store(true)
	require.Eventually(t, func() bool { return !m.Healthy() }, time.Second, 5*time.Millisecond)

	st.down.Store(false)
	require.Eventually(t, m.Healthy, time.Second, 5*time.Millisecond)

	// Stop waits for the worker, so the log buffer is quiescent.
	m.Stop()
	require.Contains(t, logs.String(), "credential store unreachable")
	require.Contains(t, logs.String(), "credential store reachable")
}

func TestStoreMonitorStopWithoutStart(t *testing.T) {
	m := NewStoreMonitor(&flakyStore{}, slog.Default(), nil, time.Minute)
	m.Stop()
	require.False(t, m.Healthy())
}

func TestNewStoreMonitorDefaultsInterval(t *testing.T) {
	m := NewStoreMonitor(&flakyStore{}, slog.Default(), nil, 0)
	require.Equal(t, 30*time.Second, m.Interval)
}
