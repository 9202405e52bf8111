package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	HEALTHCHECK_TIMER = 15 * time.Second
	PING_TIMEOUT      = 5 * time.Second
)

// Pinger is anything that can cheaply prove it is reachable, such as an
// inference service or the result cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthMonitor polls a Pinger and keeps the last outcome in an atomic flag
// that request paths can read without blocking.
type HealthMonitor struct {
	name     string
	pinger   Pinger
	interval time.Duration
	healthy  atomic.Bool
}

func NewHealthMonitor(name string, pinger Pinger, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = HEALTHCHECK_TIMER
	}
	return &HealthMonitor{name: name, pinger: pinger, interval: interval}
}

func (m *HealthMonitor) Name() string { return m.name }

func (m *HealthMonitor) Healthy() bool { return m.healthy.Load() }

// Check pings once and records the outcome.
func (m *HealthMonitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, PING_TIMEOUT)
	defer cancel()

	err := m.pinger.Ping(ctx)
	isHealthy := err == nil
	if was := m.healthy.Swap(isHealthy); was != isHealthy || !isHealthy {
		if isHealthy {
			slog.Info("[HealthCheck] Dependency is healthy", slog.String("name", m.name))
		} else {
			slog.Warn("[HealthCheck] Dependency is unhealthy",
				slog.String("name", m.name),
				slog.String("error", err.Error()))
		}
	}
	return isHealthy
}

// Run checks immediately and then on every tick until ctx is done.
func (m *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

type Health struct {
	monitors []*HealthMonitor
}

func NewHealth(monitors ...*HealthMonitor) *Health {
	return &Health{monitors: monitors}
}

func (h *Health) Add(m *HealthMonitor) {
	h.monitors = append(h.monitors, m)
}

// Status reports every monitored dependency by name.
func (h *Health) Status() map[string]bool {
	status := make(map[string]bool, len(h.monitors))
	for _, m := range h.monitors {
		status[m.Name()] = m.Healthy()
	}
	return status
}

func (h *Health) Healthy() bool {
	for _, m := range h.monitors {
		if !m.Healthy() {
			return false
		}
	}
	return true
}

// Start runs every monitor in the background until ctx is done.
func (h *Health) Start(ctx context.Context) {
	for _, m := range h.monitors {
		go m.Run(ctx)
	}
}
