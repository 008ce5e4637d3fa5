package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// HealthMonitor probes both processors in the background, one goroutine per
// processor so an outage on one side never delays probing of the other. The
// probe timer is the only thing that triggers a check, which keeps the
// external minimum-interval rate limit enforced structurally: no code path
// driven by request load can issue a probe.
type HealthMonitor struct {
	clients    [2]*ProcessorClient
	snapshots  [2]atomic.Pointer[Health]
	interval   time.Duration
	timeout    time.Duration
	maxBackoff time.Duration
	stop       chan struct{}
}

func NewHealthMonitor(defaultClient, fallbackClient *ProcessorClient, interval, timeout, maxBackoff time.Duration) *HealthMonitor {
	m := &HealthMonitor{
		clients:    [2]*ProcessorClient{defaultClient, fallbackClient},
		interval:   interval,
		timeout:    timeout,
		maxBackoff: maxBackoff,
		stop:       make(chan struct{}),
	}

	// Start optimistic: both processors are assumed healthy until the first
	// probe says otherwise.
	now := time.Now().UTC()
	for i, c := range m.clients {
		m.snapshots[i].Store(&Health{
			Processor:     c.Processor(),
			Failing:       false,
			LastCheckedAt: now,
			LastSuccessAt: now,
		})
	}
	return m
}

func (m *HealthMonitor) Start() {
	go m.probeLoop(0)
	go m.probeLoop(1)
}

func (m *HealthMonitor) Stop() {
	close(m.stop)
}

// CurrentHealth returns the latest snapshots for (default, fallback). It
// never touches the network.
func (m *HealthMonitor) CurrentHealth() (Health, Health) {
	return *m.snapshots[0].Load(), *m.snapshots[1].Load()
}

func (m *HealthMonitor) probeLoop(idx int) {
	streak := 0
	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-timer.C:
		}

		m.probe(idx, &streak)

		// Consecutive failures widen the wait, never narrow it.
		wait := m.interval * time.Duration(1+streak)
		if wait > m.maxBackoff {
			wait = m.maxBackoff
		}
		timer.Reset(wait)
	}
}

func (m *HealthMonitor) probe(idx int, streak *int) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	client := m.clients[idx]
	resp, err := client.CheckHealth(ctx)
	now := time.Now().UTC()

	if err != nil {
		// Keep the previous belief; only the check timestamp moves, so
		// readers can see the snapshot going stale.
		*streak++
		next := *m.snapshots[idx].Load()
		next.LastCheckedAt = now
		m.snapshots[idx].Store(&next)
		log.Debugf("health probe %s failed: %v", client.Processor(), err)
		return
	}

	*streak = 0
	m.snapshots[idx].Store(&Health{
		Processor:       client.Processor(),
		Failing:         resp.Failing,
		MinResponseTime: resp.MinResponseTime,
		LastCheckedAt:   now,
		LastSuccessAt:   now,
	})
}
