package payment

import (
	"sync"
	"time"
)

// FailedPayment is a payment that will never be delivered: either every
// dispatch pass was exhausted or a processor rejected it outright.
type FailedPayment struct {
	CorrelationId string    `json:"correlationId"`
	Amount        float64   `json:"amount"`
	Reason        string    `json:"reason"`
	FailedAt      time.Time `json:"failedAt"`
}

// FailedStore keeps permanently failed payments visible to operators
// instead of dropping them on the floor.
type FailedStore struct {
	mu   sync.Mutex
	list []FailedPayment
}

func NewFailedStore() *FailedStore {
	return &FailedStore{}
}

func (s *FailedStore) Add(p FailedPayment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, p)
}

func (s *FailedStore) All() []FailedPayment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]FailedPayment, len(s.list))
	copy(out, s.list)
	return out
}

func (s *FailedStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = nil
}
