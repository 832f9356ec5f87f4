package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// Rejection reasons returned by the intake gateway. Terminal reasons must be
// fixed by the producer before resubmission; retryable reasons may be retried
// as-is after backoff.
const (
	ReasonMissingCorrelationID = "missing_correlation_id"
	ReasonInvalidCorrelationID = "invalid_correlation_id"
	ReasonMissingEntityID      = "missing_entity_id"
	ReasonMissingOccurredAt    = "missing_occurred_at"
	ReasonUnknownSignalType    = "unknown_signal_type"
	ReasonEntityNotFound       = "entity_not_found"
	ReasonRegistryUnavailable  = "registry_unavailable"
	ReasonStorageTimeout       = "storage_timeout"
)

// Rejection is a classified intake failure. Retryable tells the producer
// whether resubmitting the same signal unchanged can ever succeed.
type Rejection struct {
	Reason    string
	Retryable bool
	Err       error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("signal rejected (%s): %v", r.Reason, r.Err)
	}
	return fmt.Sprintf("signal rejected (%s)", r.Reason)
}

func (r *Rejection) Unwrap() error { return r.Err }

// IsRetryable reports whether the rejection is safe to retry unchanged.
func (r *Rejection) IsRetryable() bool { return r.Retryable }

// NewRejection builds a terminal rejection for the given reason.
func NewRejection(reason string) *Rejection {
	return &Rejection{Reason: reason}
}

// NewRetryableRejection builds a retryable rejection wrapping the underlying
// infrastructure error.
func NewRetryableRejection(reason string, err error) *Rejection {
	return &Rejection{Reason: reason, Retryable: true, Err: err}
}

// AsRejection extracts a *Rejection from an error chain.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
