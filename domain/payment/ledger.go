package payment

import (
	"context"
	"sync"

	"payment-router/infrastructure/service"
)

// ILedger is the authoritative record of accepted payments. Record is an
// idempotent check-and-insert: the first writer for a correlation id wins
// and every later call is a no-op.
type ILedger interface {
	// Record inserts the entry unless the correlation id is already
	// present. The bool reports whether this call created the entry.
	Record(ctx context.Context, entry Entity) (bool, error)
	Exists(ctx context.Context, correlationId string) (bool, error)
	AggregateSummary(ctx context.Context, summaryDate SummaryDate) (*ProcessorsSummary, error)
	DeleteAll(ctx context.Context) error
}

// memoryLedger is the default backend: process-lifetime state guarded by one
// mutex. Nothing inside the critical sections can block, so no worker ever
// suspends while holding the lock.
type memoryLedger struct {
	mu      sync.Mutex
	entries map[string]Entity
}

func NewMemoryLedger() ILedger {
	return &memoryLedger{entries: make(map[string]Entity)}
}

func (l *memoryLedger) Record(_ context.Context, entry Entity) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[entry.CorrelationId]; ok {
		return false, nil
	}
	l.entries[entry.CorrelationId] = entry
	return true, nil
}

func (l *memoryLedger) Exists(_ context.Context, correlationId string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.entries[correlationId]
	return ok, nil
}

func (l *memoryLedger) AggregateSummary(_ context.Context, summaryDate SummaryDate) (*ProcessorsSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		defCount, fbCount int
		defCents, fbCents int64
	)
	for _, entry := range l.entries {
		if !summaryDate.Contains(entry.ProcessedAt) {
			continue
		}
		switch entry.ProcessedBy {
		case service.ProcessorTypeDefault:
			defCount++
			defCents += entry.AmountCents
		case service.ProcessorTypeFallback:
			fbCount++
			fbCents += entry.AmountCents
		}
	}

	return &ProcessorsSummary{
		Default:  Summary{TotalRequests: defCount, TotalAmount: float64(defCents) / 100},
		FallBack: Summary{TotalRequests: fbCount, TotalAmount: float64(fbCents) / 100},
	}, nil
}

func (l *memoryLedger) DeleteAll(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make(map[string]Entity)
	return nil
}
