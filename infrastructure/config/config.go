package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the dispatch engine exposes. Values come from
// the environment with stated defaults; nothing else reads env directly.
type Config struct {
	ServerPort string

	DefaultProcessorURL  string
	FallbackProcessorURL string

	// Health probing. HealthCheckInterval is the externally imposed minimum
	// spacing between probes of one processor.
	HealthCheckInterval time.Duration
	HealthProbeTimeout  time.Duration
	HealthMaxBackoff    time.Duration
	StalenessWindow     time.Duration

	// Selection: default stays primary while its latency does not exceed
	// fallback's latency times this multiplier.
	LatencyMultiplier int

	// Dispatch.
	SubmitTimeout        time.Duration
	AttemptsPerProcessor int
	MaxPasses            int
	RequeueDelay         time.Duration
	WorkerCount          int
	QueueCapacity        int

	// Backend selection: LedgerBackend is memory|redis|postgres,
	// IntakeBackend is memory|nats.
	LedgerBackend string
	IntakeBackend string

	// PeerURL, when set, points at the sibling instance whose local summary
	// is merged into /payments-summary responses.
	PeerURL string

	NatsURL           string
	NatsMaxAckPending int
	NatsAckWait       time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort: getEnv("SERVER_PORT", "9999"),

		DefaultProcessorURL:  getEnv("PROCESSOR_DEFAULT_URL", "http://payment-processor-default:8080"),
		FallbackProcessorURL: getEnv("PROCESSOR_FALLBACK_URL", "http://payment-processor-fallback:8080"),

		HealthCheckInterval: getDuration("HEALTH_CHECK_INTERVAL", 5*time.Second),
		HealthProbeTimeout:  getDuration("HEALTH_PROBE_TIMEOUT", 2*time.Second),
		HealthMaxBackoff:    getDuration("HEALTH_MAX_BACKOFF", 30*time.Second),
		StalenessWindow:     getDuration("HEALTH_STALENESS_WINDOW", 15*time.Second),

		LatencyMultiplier: getInt("SELECTOR_LATENCY_MULTIPLIER", 2),

		SubmitTimeout:        getDuration("SUBMIT_TIMEOUT", 1500*time.Millisecond),
		AttemptsPerProcessor: getInt("SUBMIT_ATTEMPTS", 2),
		MaxPasses:            getInt("DISPATCH_MAX_PASSES", 3),
		RequeueDelay:         getDuration("DISPATCH_REQUEUE_DELAY", 2*time.Second),
		WorkerCount:          getInt("WORKER_COUNT", 16),
		QueueCapacity:        getInt("QUEUE_CAPACITY", 1024),

		LedgerBackend: getEnv("LEDGER_BACKEND", "memory"),
		IntakeBackend: getEnv("INTAKE_BACKEND", "memory"),

		PeerURL: os.Getenv("PEER_URL"),

		NatsURL:           os.Getenv("NATS_URL"),
		NatsMaxAckPending: getInt("NATS_MAX_ACK_PENDING", 40),
		NatsAckWait:       getDuration("NATS_ACK_WAIT", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil && val > 0 {
			return val
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if val, err := time.ParseDuration(raw); err == nil && val > 0 {
			return val
		}
	}
	return fallback
}
