package queue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrQueueFull is the backpressure signal: the caller must reject or
	// delay intake, the queue never grows past its bound.
	ErrQueueFull = errors.New("intake queue full")

	ErrQueueClosed = errors.New("intake queue closed")
)

// Job is one queued payment delivery. A worker owns the job exclusively
// between Dequeue and the Ack/Nak/Term that finishes it.
type Job interface {
	// Payload is the raw submission body as enqueued.
	Payload() []byte
	// Deliveries counts how many times this job has been handed to a
	// worker, including the current delivery.
	Deliveries() int
	// Ack finishes the job successfully.
	Ack() error
	// Nak schedules the job for another pass after the given delay.
	Nak(delay time.Duration) error
	// Term finishes the job without success; it will not be redelivered.
	Term() error
}

// IntakeQueue is the bounded multi-producer multi-consumer queue between the
// client-facing boundary and the dispatch workers.
type IntakeQueue interface {
	Enqueue(payload []byte) error
	Dequeue(ctx context.Context) (Job, error)
	Purge() error
	Close()
}
