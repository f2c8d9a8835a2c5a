package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/certtrack/certtrack/internal/auth/observability"
	"github.com/certtrack/certtrack/internal/auth/store"
)

// StoreMonitor periodically pings the credential store, publishes the
// result as the store_up gauge and logs up/down transitions. Readiness
// reads Healthy without touching the database.
type StoreMonitor struct {
	Store    store.Store
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Interval time.Duration
	Timeout  time.Duration

	healthy atomic.Bool
	running atomic.Bool

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewStoreMonitor creates a monitor. If interval is 0 or negative,
// defaults to 30 seconds.
func NewStoreMonitor(st store.Store, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration) *StoreMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &StoreMonitor{
		Store:    st,
		Logger:   logger,
		Metrics:  metrics,
		Interval: interval,
		Timeout:  5 * time.Second,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start probes once synchronously, so Healthy is meaningful as soon as
// Start returns, then keeps probing in the background until Stop.
func (m *StoreMonitor) Start() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	m.check()
	go m.run()
	m.Logger.Info("store monitor started", "interval", m.Interval)
}

// Stop shuts down the background worker and waits for an in-flight probe.
// Stopping a monitor that was never started is a no-op.
func (m *StoreMonitor) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	close(m.stopCh)
	<-m.doneCh
	m.Logger.Info("store monitor stopped")
}

// Healthy reports the result of the most recent probe.
func (m *StoreMonitor) Healthy() bool {
	return m.healthy.Load()
}

func (m *StoreMonitor) run() {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stopCh:
			return
		}
	}
}

func (m *StoreMonitor) check() {
	ctx, cancel := context.WithTimeout(context.Background(), m.Timeout)
	defer cancel()

	err := m.Store.Ping(ctx)
	up := err == nil
	was := m.healthy.Swap(up)
	m.Metrics.SetStoreUp(up)

	switch {
	case !up && was:
		m.Logger.Error("credential store unreachable", "error", err)
	case !up:
		m.Logger.Warn("credential store still unreachable", "error", err)
	case !was:
		m.Logger.Info("credential store reachable")
	}
}
