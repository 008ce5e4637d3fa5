package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// ProcessorClient talks to one external payment processor. Submit applies a
// per-attempt timeout and retries transient failures within a small fixed
// budget; CheckHealth runs under whatever deadline the caller provides.
type ProcessorClient struct {
	processor ProcessorType
	baseURL   string
	client    *http.Client
	timeout   time.Duration
	attempts  int
}

func NewProcessorClient(processor ProcessorType, baseURL string, timeout time.Duration, attempts int) *ProcessorClient {
	if attempts < 1 {
		attempts = 1
	}
	return &ProcessorClient{
		processor: processor,
		baseURL:   baseURL,
		client:    &http.Client{},
		timeout:   timeout,
		attempts:  attempts,
	}
}

func (c *ProcessorClient) Processor() ProcessorType {
	return c.processor
}

// Submit delivers one payment. A nil return means the processor accepted the
// charge; ErrUnprocessableEntity means it rejected the payment outright;
// anything else means "not charged, maybe later".
func (c *ProcessorClient) Submit(ctx context.Context, input PostPaymentProcessor) error {
	body, err := json.Marshal(input)
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < c.attempts; i++ {
		err := c.submitOnce(ctx, body)
		if err == nil {
			return nil
		}
		if Permanent(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (c *ProcessorClient) submitOnce(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/payments", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return ErrUnprocessableEntity
	default:
		return fmt.Errorf("%s processor returned %d: %w", c.processor, resp.StatusCode, ErrProcessorUnavailable)
	}
}

// CheckHealth fetches the processor's health endpoint once.
func (c *ProcessorClient) CheckHealth(ctx context.Context) (HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/payments/service-health", c.baseURL), nil)
	if err != nil {
		return HealthResponse{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return HealthResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return HealthResponse{}, fmt.Errorf("health check returned %d: %w", resp.StatusCode, ErrProcessorUnavailable)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return HealthResponse{}, err
	}
	return health, nil
}
