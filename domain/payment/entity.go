package payment

import (
	"math"
	"time"

	"payment-router/infrastructure/service"
)

// PostInput is the client submission body.
type PostInput struct {
	CorrelationId string  `json:"correlationId"`
	Amount        float64 `json:"amount"`
}

// Entity is one accepted payment as recorded by the ledger. Amounts are kept
// in integer cents so totals never accumulate float error.
type Entity struct {
	CorrelationId string
	ProcessedBy   service.ProcessorType
	AmountCents   int64
	ProcessedAt   time.Time
}

func (e Entity) Amount() float64 {
	return float64(e.AmountCents) / 100
}

func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// SummaryDate bounds a summary query; nil means unbounded on that side.
type SummaryDate struct {
	From *time.Time
	To   *time.Time
}

// ParseSummaryDate reads the from/to query values as RFC 3339 timestamps.
// Empty values are fine; malformed ones are not.
func ParseSummaryDate(from, to string) (SummaryDate, error) {
	var sd SummaryDate
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return SummaryDate{}, err
		}
		sd.From = &t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return SummaryDate{}, err
		}
		sd.To = &t
	}
	return sd, nil
}

// Contains reports whether ts falls inside the (inclusive) range.
func (sd SummaryDate) Contains(ts time.Time) bool {
	if sd.From != nil && ts.Before(*sd.From) {
		return false
	}
	if sd.To != nil && ts.After(*sd.To) {
		return false
	}
	return true
}
