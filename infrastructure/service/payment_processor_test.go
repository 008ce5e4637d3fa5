package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitSuccess(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/payments" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewProcessorClient(ProcessorTypeDefault, srv.URL, time.Second, 2)
	err := client.Submit(context.Background(), PostPaymentProcessor{
		CorrelationId: "c-1",
		Amount:        19.9,
		RequestedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected exactly one call, got %d", hits.Load())
	}
}

func TestSubmitUnprocessableIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewProcessorClient(ProcessorTypeDefault, srv.URL, time.Second, 3)
	err := client.Submit(context.Background(), PostPaymentProcessor{CorrelationId: "c-2", Amount: 1})

	if !errors.Is(err, ErrUnprocessableEntity) {
		t.Fatalf("expected ErrUnprocessableEntity, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("business rejection must not be retried, got %d calls", hits.Load())
	}
}

func TestSubmitTransientIsRetriedWithinBudget(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewProcessorClient(ProcessorTypeDefault, srv.URL, time.Second, 2)
	err := client.Submit(context.Background(), PostPaymentProcessor{CorrelationId: "c-3", Amount: 1})

	if !errors.Is(err, ErrProcessorUnavailable) {
		t.Fatalf("expected ErrProcessorUnavailable, got %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", hits.Load())
	}
}

func TestSubmitRecoversOnRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewProcessorClient(ProcessorTypeDefault, srv.URL, time.Second, 2)
	if err := client.Submit(context.Background(), PostPaymentProcessor{CorrelationId: "c-4", Amount: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckHealthDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payments/service-health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"failing":true,"minResponseTime":120}`))
	}))
	defer srv.Close()

	client := NewProcessorClient(ProcessorTypeFallback, srv.URL, time.Second, 1)
	health, err := client.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !health.Failing || health.MinResponseTime != 120 {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestCheckHealthRateLimitedIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewProcessorClient(ProcessorTypeDefault, srv.URL, time.Second, 1)
	if _, err := client.CheckHealth(context.Background()); !errors.Is(err, ErrProcessorUnavailable) {
		t.Fatalf("expected ErrProcessorUnavailable, got %v", err)
	}
}
