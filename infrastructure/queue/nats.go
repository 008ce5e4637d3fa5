package queue

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/nats-io/nats.go"
)

const (
	subject       = "payments"
	streamName    = "Payments-Processor"
	consumerQueue = "payment-dispatch"
)

// NatsConfig mirrors the intake tunables that matter to JetStream. The
// stream's MaxDeliver equals the dispatch pass budget so the broker enforces
// the same bound the workers do.
type NatsConfig struct {
	URL           string
	MaxAckPending int
	MaxDeliver    int
	AckWait       time.Duration
}

// NatsQueue is the intake backend for multi-instance deployments: every
// instance publishes to and consumes from one shared JetStream work queue.
type NatsQueue struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	sub  *nats.Subscription
}

func NewNatsQueue(cfg NatsConfig) (*NatsQueue, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}

	q := &NatsQueue{conn: conn, js: js}
	if err = q.createStream(); err != nil {
		conn.Close()
		return nil, err
	}

	sub, err := js.QueueSubscribeSync(
		subject,
		consumerQueue,
		nats.AckWait(cfg.AckWait),
		nats.ManualAck(),
		nats.DeliverAll(),
		nats.ReplayInstant(),
		nats.MaxDeliver(cfg.MaxDeliver),
		nats.MaxAckPending(cfg.MaxAckPending),
	)
	if err != nil {
		conn.Close()
		return nil, err
	}
	q.sub = sub

	return q, nil
}

func (q *NatsQueue) createStream() error {
	now := time.Now().UTC()
	streamCfg := nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.MemoryStorage,
		Replicas:  0,
	}
	stream, err := q.js.AddStream(&streamCfg)
	if err != nil {
		return err
	}

	if stream.Created.After(now) {
		log.Info("intake stream created")
	}
	return nil
}

func (q *NatsQueue) Enqueue(payload []byte) error {
	_, err := q.js.PublishAsync(subject, payload)
	return err
}

func (q *NatsQueue) Dequeue(ctx context.Context) (Job, error) {
	msg, err := q.sub.NextMsgWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return &natsJob{msg: msg}, nil
}

func (q *NatsQueue) Purge() error {
	return q.js.PurgeStream(streamName)
}

func (q *NatsQueue) Close() {
	if q.sub != nil {
		_ = q.sub.Unsubscribe()
	}
	q.conn.Close()
}

type natsJob struct {
	msg *nats.Msg
}

func (j *natsJob) Payload() []byte { return j.msg.Data }

func (j *natsJob) Deliveries() int {
	meta, err := j.msg.Metadata()
	if err != nil {
		return 1
	}
	return int(meta.NumDelivered)
}

func (j *natsJob) Ack() error { return j.msg.Ack() }

func (j *natsJob) Nak(delay time.Duration) error {
	return j.msg.NakWithDelay(delay)
}

func (j *natsJob) Term() error { return j.msg.Term() }
