package payment

import (
	"math"
	"sync"
	"time"
)

// Inflight tracks payments that are mid-dispatch, indexed by their
// requestedAt micros. Summary reads wait until every payment inside the
// queried range has settled, so a report never misses a payment that was
// in flight when the query began.
type Inflight struct {
	mu    sync.Mutex
	cond  *sync.Cond
	index map[int64]int
}

func NewInflight() *Inflight {
	f := &Inflight{index: make(map[int64]int)}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Register marks one payment as settling. The returned release function is
// safe to call more than once; waiters wake when the last payment for a
// timestamp settles.
func (f *Inflight) Register(requestedAt time.Time) func() {
	key := requestedAt.UnixMicro()

	f.mu.Lock()
	f.index[key]++
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { f.release(key) })
	}
}

func (f *Inflight) release(key int64) {
	f.mu.Lock()
	f.index[key]--
	if f.index[key] <= 0 {
		delete(f.index, key)
		f.cond.Broadcast()
	}
	f.mu.Unlock()
}

// WaitSettled blocks until no payment whose requestedAt falls inside the
// range is still in flight. A range with no upper bound never waits: new
// payments keep arriving, so such a query reads whatever is settled now.
func (f *Inflight) WaitSettled(summaryDate SummaryDate) {
	if summaryDate.To == nil {
		return
	}

	f.mu.Lock()
	for f.anyInRange(summaryDate) {
		f.cond.Wait()
	}
	f.mu.Unlock()
}

// anyInRange runs under f.mu.
func (f *Inflight) anyInRange(summaryDate SummaryDate) bool {
	to := summaryDate.To.UnixMicro()
	from := int64(math.MinInt64)
	if summaryDate.From != nil {
		from = summaryDate.From.UnixMicro()
	}

	for ts, count := range f.index {
		if count > 0 && ts >= from && ts <= to {
			return true
		}
	}
	return false
}
