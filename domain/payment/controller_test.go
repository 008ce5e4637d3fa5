package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"payment-router/infrastructure/queue"
	"payment-router/infrastructure/service"
)

type controllerFixture struct {
	app    *fiber.App
	intake *queue.MemoryQueue
	ledger ILedger
	failed *FailedStore
}

func newControllerFixture(t *testing.T, capacity int, peer *PeerClient) *controllerFixture {
	t.Helper()

	f := &controllerFixture{
		app:    fiber.New(fiber.Config{JSONEncoder: json.Marshal, JSONDecoder: json.Unmarshal}),
		intake: queue.NewMemoryQueue(capacity),
		ledger: NewMemoryLedger(),
		failed: NewFailedStore(),
	}
	NewController(f.intake, f.ledger, NewInflight(), f.failed, peer).InitRoutes(f.app)
	t.Cleanup(f.intake.Close)
	return f
}

func (f *controllerFixture) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func (f *controllerFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	return resp
}

const validId = "4a7901b8-7d0d-4e1c-ba32-99dc1c4a09cf"

func TestPostPaymentAccepted(t *testing.T) {
	f := newControllerFixture(t, 8, nil)

	resp := f.post(t, "/payments", `{"correlationId":"`+validId+`","amount":19.9}`)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	job, err := f.intake.Dequeue(ctx)
	require.NoError(t, err)

	var queued PostInput
	require.NoError(t, json.Unmarshal(job.Payload(), &queued))
	require.Equal(t, validId, queued.CorrelationId)
	require.Equal(t, 19.9, queued.Amount)
}

func TestPostPaymentRejectsMalformed(t *testing.T) {
	f := newControllerFixture(t, 8, nil)

	for name, body := range map[string]string{
		"bad json":       `{"correlationId":`,
		"bad uuid":       `{"correlationId":"not-a-uuid","amount":10}`,
		"zero amount":    `{"correlationId":"` + validId + `","amount":0}`,
		"negative":       `{"correlationId":"` + validId + `","amount":-5}`,
		"missing amount": `{"correlationId":"` + validId + `"}`,
	} {
		resp := f.post(t, "/payments", body)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, name)
	}
}

func TestPostPaymentQueueFull(t *testing.T) {
	f := newControllerFixture(t, 1, nil)

	resp := f.post(t, "/payments", `{"correlationId":"`+validId+`","amount":1}`)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	resp = f.post(t, "/payments", `{"correlationId":"`+validId+`","amount":1}`)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestGetSummary(t *testing.T) {
	f := newControllerFixture(t, 8, nil)
	now := time.Now().UTC()

	_, err := f.ledger.Record(context.Background(), entry("s1", service.ProcessorTypeDefault, 1990, now))
	require.NoError(t, err)
	_, err = f.ledger.Record(context.Background(), entry("s2", service.ProcessorTypeFallback, 500, now))
	require.NoError(t, err)

	resp := f.get(t, "/payments-summary")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summary ProcessorsSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	require.Equal(t, 1, summary.Default.TotalRequests)
	require.Equal(t, 19.9, summary.Default.TotalAmount)
	require.Equal(t, 1, summary.FallBack.TotalRequests)
	require.Equal(t, 5.0, summary.FallBack.TotalAmount)
}

func TestGetSummaryRange(t *testing.T) {
	f := newControllerFixture(t, 8, nil)
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	_, err := f.ledger.Record(context.Background(), entry("r1", service.ProcessorTypeDefault, 100, base))
	require.NoError(t, err)
	_, err = f.ledger.Record(context.Background(), entry("r2", service.ProcessorTypeDefault, 100, base.Add(time.Hour)))
	require.NoError(t, err)

	resp := f.get(t, "/payments-summary?from=2026-09-01T09:30:00Z&to=2026-09-01T10:30:00Z")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summary ProcessorsSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	require.Equal(t, 1, summary.Default.TotalRequests)
}

func TestGetSummaryRejectsBadRange(t *testing.T) {
	f := newControllerFixture(t, 8, nil)

	resp := f.get(t, "/payments-summary?from=yesterday")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetSummaryMergesPeer(t *testing.T) {
	peerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments-summary/local", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"default":{"totalRequests":2,"totalAmount":20},"fallback":{"totalRequests":1,"totalAmount":5}}`))
	}))
	defer peerSrv.Close()

	f := newControllerFixture(t, 8, NewPeerClient(peerSrv.URL, time.Second))

	_, err := f.ledger.Record(context.Background(), entry("p1", service.ProcessorTypeDefault, 1000, time.Now().UTC()))
	require.NoError(t, err)

	resp := f.get(t, "/payments-summary")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summary ProcessorsSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	require.Equal(t, 3, summary.Default.TotalRequests)
	require.Equal(t, 30.0, summary.Default.TotalAmount)
	require.Equal(t, 1, summary.FallBack.TotalRequests)
}

func TestGetLocalSummaryExcludesPeer(t *testing.T) {
	var peerHits int
	peerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		peerHits++
		w.Write([]byte(`{}`))
	}))
	defer peerSrv.Close()

	f := newControllerFixture(t, 8, NewPeerClient(peerSrv.URL, time.Second))

	resp := f.get(t, "/payments-summary/local")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Zero(t, peerHits)
}

func TestGetFailedPayments(t *testing.T) {
	f := newControllerFixture(t, 8, nil)
	f.failed.Add(FailedPayment{CorrelationId: "dead", Amount: 9.5, Reason: "delivery attempts exhausted", FailedAt: time.Now().UTC()})

	resp := f.get(t, "/payments/failed")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var failed []FailedPayment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&failed))
	require.Len(t, failed, 1)
	require.Equal(t, "dead", failed[0].CorrelationId)
}

func TestPurgeClearsEverything(t *testing.T) {
	f := newControllerFixture(t, 8, nil)

	_, err := f.ledger.Record(context.Background(), entry("x", service.ProcessorTypeDefault, 100, time.Now().UTC()))
	require.NoError(t, err)
	f.failed.Add(FailedPayment{CorrelationId: "y"})

	resp := f.post(t, "/purge-payments", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	summary, err := f.ledger.AggregateSummary(context.Background(), SummaryDate{})
	require.NoError(t, err)
	require.Zero(t, summary.Default.TotalRequests)
	require.Empty(t, f.failed.All())
}
