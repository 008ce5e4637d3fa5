package service

import "time"

type ProcessorType string

const (
	ProcessorTypeNone     ProcessorType = ""
	ProcessorTypeDefault  ProcessorType = "default"
	ProcessorTypeFallback ProcessorType = "fallback"
)

// PostPaymentProcessor is the body sent to a processor's /payments endpoint.
type PostPaymentProcessor struct {
	CorrelationId string    `json:"correlationId"`
	Amount        float64   `json:"amount"`
	RequestedAt   time.Time `json:"requestedAt"`
}

// HealthResponse is the body returned by /payments/service-health.
type HealthResponse struct {
	Failing         bool `json:"failing"`
	MinResponseTime int  `json:"minResponseTime"`
}

// Health is the monitor's current belief about one processor. LastSuccessAt
// only moves on a successful probe, so the gap to LastCheckedAt tells the
// reader how stale Failing and MinResponseTime are.
type Health struct {
	Processor       ProcessorType
	Failing         bool
	MinResponseTime int
	LastCheckedAt   time.Time
	LastSuccessAt   time.Time
}

// Stale reports whether the snapshot is too old for its Failing flag to be
// trusted as current.
func (h Health) Stale(window time.Duration, now time.Time) bool {
	return now.Sub(h.LastSuccessAt) > window
}
