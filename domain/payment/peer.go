package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"payment-router/infrastructure/service"
)

// PeerClient fetches the sibling instance's local summary so the exposed
// summary covers both instances. The instances never synchronize ledgers;
// each one owns its own entries and the totals are simply added.
type PeerClient struct {
	baseURL string
	client  *http.Client
}

func NewPeerClient(baseURL string, timeout time.Duration) *PeerClient {
	return &PeerClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *PeerClient) LocalSummary(ctx context.Context, summaryDate SummaryDate) (*ProcessorsSummary, error) {
	params := url.Values{}
	if summaryDate.From != nil {
		params.Set("from", summaryDate.From.UTC().Format(time.RFC3339Nano))
	}
	if summaryDate.To != nil {
		params.Set("to", summaryDate.To.UTC().Format(time.RFC3339Nano))
	}

	endpoint := fmt.Sprintf("%s/payments-summary/local", p.baseURL)
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("peer summary returned %d: %w", resp.StatusCode, service.ErrInternalServerError)
	}

	var summary ProcessorsSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
