package service

import "errors"

var (
	// ErrUnprocessableEntity is a processor-reported business rejection.
	// It is never retried and never failed over.
	ErrUnprocessableEntity = errors.New("unprocessable entity")

	// ErrProcessorUnavailable covers 5xx and 429 responses: the processor
	// did not charge the payment and may recover.
	ErrProcessorUnavailable = errors.New("processor unavailable")

	ErrInternalServerError = errors.New("internal server error")
)

// Permanent reports whether err rules the payment out entirely, as opposed
// to a transient condition worth a retry or a failover.
func Permanent(err error) bool {
	return errors.Is(err, ErrUnprocessableEntity)
}
