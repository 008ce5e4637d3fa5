package payment

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2/log"

	"payment-router/infrastructure/queue"
	"payment-router/infrastructure/service"
)

// ConsumerConfig carries the dispatch tunables.
type ConsumerConfig struct {
	WorkerCount  int
	MaxPasses    int
	RequeueDelay time.Duration
	Selector     service.SelectorConfig
}

type IConsumer interface {
	StartProcess() error
	Close()
}

// consumer is the dispatch worker pool: a fixed number of workers pull jobs
// from the intake queue, pick a processor from the latest health snapshot,
// deliver with failover, and record the outcome in the ledger.
type consumer struct {
	intake    queue.IntakeQueue
	ledger    ILedger
	monitor   *service.HealthMonitor
	clients   map[service.ProcessorType]*service.ProcessorClient
	inflight  *Inflight
	failed    *FailedStore
	cfg       ConsumerConfig
	ctx       context.Context
	cancelCtx context.CancelFunc
}

func NewConsumer(
	intake queue.IntakeQueue,
	ledger ILedger,
	monitor *service.HealthMonitor,
	defaultClient, fallbackClient *service.ProcessorClient,
	inflight *Inflight,
	failed *FailedStore,
	cfg ConsumerConfig,
) IConsumer {
	ctx, cancelCtx := context.WithCancel(context.Background())

	return &consumer{
		intake:  intake,
		ledger:  ledger,
		monitor: monitor,
		clients: map[service.ProcessorType]*service.ProcessorClient{
			service.ProcessorTypeDefault:  defaultClient,
			service.ProcessorTypeFallback: fallbackClient,
		},
		inflight:  inflight,
		failed:    failed,
		cfg:       cfg,
		ctx:       ctx,
		cancelCtx: cancelCtx,
	}
}

// StartProcess runs the worker pool and blocks until Close is called.
func (c *consumer) StartProcess() error {
	var wg sync.WaitGroup
	for i := 0; i < c.cfg.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.work()
		}()
	}
	wg.Wait()
	return nil
}

func (c *consumer) Close() {
	c.cancelCtx()
}

func (c *consumer) work() {
	for {
		job, err := c.intake.Dequeue(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			continue
		}
		c.processJob(job)
	}
}

func (c *consumer) processJob(job queue.Job) {
	var input PostInput
	if err := json.Unmarshal(job.Payload(), &input); err != nil {
		job.Term()
		return
	}

	// A job enqueued twice (upstream retry) must not charge twice. The
	// ledger resolves the race between workers; this check just avoids the
	// external call for the common case.
	if exists, err := c.ledger.Exists(c.ctx, input.CorrelationId); err == nil && exists {
		job.Ack()
		return
	}

	requestedAt := time.Now().UTC()
	release := c.inflight.Register(requestedAt)
	defer release()

	submission := service.PostPaymentProcessor{
		CorrelationId: input.CorrelationId,
		Amount:        input.Amount,
		RequestedAt:   requestedAt,
	}

	defHealth, fbHealth := c.monitor.CurrentHealth()
	selection := service.Select(defHealth, fbHealth, c.cfg.Selector, requestedAt)

	processedBy, err := c.dispatch(submission, selection)
	if err != nil {
		if service.Permanent(err) {
			c.fail(input, "rejected by processor")
			job.Term()
			return
		}
		if job.Deliveries() >= c.cfg.MaxPasses {
			c.fail(input, "delivery attempts exhausted")
			job.Term()
			return
		}
		job.Nak(c.cfg.RequeueDelay)
		return
	}

	entry := Entity{
		CorrelationId: input.CorrelationId,
		ProcessedBy:   processedBy,
		AmountCents:   Cents(input.Amount),
		ProcessedAt:   requestedAt,
	}

	// The charge already went through; redelivering the job would charge a
	// second time, so the write is retried in-process instead.
	if err = c.record(entry); err != nil {
		log.Errorf("record payment %s: %v", input.CorrelationId, err)
		c.fail(input, "charged but not recorded")
		job.Term()
		return
	}

	job.Ack()
}

const recordAttempts = 3

// record retries transient ledger failures. A false insert means another
// worker already recorded this id; the payment is accounted for either way.
func (c *consumer) record(entry Entity) error {
	var err error
	for i := 0; i < recordAttempts; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i) * 20 * time.Millisecond)
		}
		if _, err = c.ledger.Record(c.ctx, entry); err == nil {
			return nil
		}
	}
	return err
}

// dispatch runs one pass: primary first, then the secondary once the
// primary's attempt budget is gone. Permanent rejections stop the pass
// immediately.
func (c *consumer) dispatch(input service.PostPaymentProcessor, selection service.Selection) (service.ProcessorType, error) {
	err := c.clients[selection.Primary].Submit(c.ctx, input)
	if err == nil {
		return selection.Primary, nil
	}
	if service.Permanent(err) {
		return service.ProcessorTypeNone, err
	}

	if secErr := c.clients[selection.Secondary].Submit(c.ctx, input); secErr == nil {
		return selection.Secondary, nil
	} else if service.Permanent(secErr) {
		return service.ProcessorTypeNone, secErr
	}

	return service.ProcessorTypeNone, err
}

func (c *consumer) fail(input PostInput, reason string) {
	log.Errorf("payment %s permanently failed: %s", input.CorrelationId, reason)
	c.failed.Add(FailedPayment{
		CorrelationId: input.CorrelationId,
		Amount:        input.Amount,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
	})
}
