package payment

type ProcessorsSummary struct {
	Default  Summary `json:"default"`
	FallBack Summary `json:"fallback"`
}

type Summary struct {
	TotalRequests int     `json:"totalRequests"`
	TotalAmount   float64 `json:"totalAmount"`
}

// Merge adds another instance's summary into this one.
func (s *ProcessorsSummary) Merge(other *ProcessorsSummary) {
	if other == nil {
		return
	}
	s.Default.TotalRequests += other.Default.TotalRequests
	s.Default.TotalAmount += other.Default.TotalAmount
	s.FallBack.TotalRequests += other.FallBack.TotalRequests
	s.FallBack.TotalAmount += other.FallBack.TotalAmount
}
