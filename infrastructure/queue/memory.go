package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is the default intake backend: a bounded channel. Enqueue
// fails fast when the buffer is full; redeliveries re-enter through their
// own goroutine so a worker calling Nak never blocks on a full queue.
type MemoryQueue struct {
	jobs      chan *memoryJob
	done      chan struct{}
	closeOnce sync.Once

	// mu guards the purge epoch and the timers of delayed redeliveries.
	// Purge bumps the epoch and stops the timers so a purged job can
	// never re-enter the queue later.
	mu      sync.Mutex
	epoch   uint64
	pending map[*memoryJob]*time.Timer
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{
		jobs:    make(chan *memoryJob, capacity),
		done:    make(chan struct{}),
		pending: make(map[*memoryJob]*time.Timer),
	}
}

func (q *MemoryQueue) Enqueue(payload []byte) error {
	q.mu.Lock()
	job := &memoryJob{queue: q, payload: payload, epoch: q.epoch}
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return ErrQueueClosed
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, ErrQueueClosed
	case job := <-q.jobs:
		job.deliveries++
		return job, nil
	}
}

func (q *MemoryQueue) Purge() error {
	q.mu.Lock()
	q.epoch++
	for job, timer := range q.pending {
		timer.Stop()
		delete(q.pending, job)
	}
	q.mu.Unlock()

	for {
		select {
		case <-q.jobs:
		default:
			return nil
		}
	}
}

func (q *MemoryQueue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// requeue must not drop the job, so it waits for room instead of failing.
// The number of jobs parked here is bounded by the pass budget times the
// queue capacity. Jobs from before the last purge are dropped instead.
func (q *MemoryQueue) requeue(j *memoryJob) {
	q.mu.Lock()
	stale := j.epoch != q.epoch
	q.mu.Unlock()
	if stale {
		return
	}

	select {
	case q.jobs <- j:
	case <-q.done:
	}
}

type memoryJob struct {
	queue      *MemoryQueue
	payload    []byte
	deliveries int
	epoch      uint64
}

func (j *memoryJob) Payload() []byte { return j.payload }

func (j *memoryJob) Deliveries() int { return j.deliveries }

func (j *memoryJob) Ack() error { return nil }

func (j *memoryJob) Nak(delay time.Duration) error {
	if delay <= 0 {
		go j.queue.requeue(j)
		return nil
	}

	q := j.queue
	q.mu.Lock()
	defer q.mu.Unlock()
	if j.epoch != q.epoch {
		return nil
	}
	q.pending[j] = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.pending, j)
		q.mu.Unlock()
		q.requeue(j)
	})
	return nil
}

func (j *memoryJob) Term() error { return nil }
