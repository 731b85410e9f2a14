// Package envelope defines the tagged result of one logical LLM call.
//
// Callers branch on the outcome tag only: a failure envelope never carries
// findings, so an upstream failure can never be mistaken for a legitimate
// "zero work found" result.
package envelope

import (
	"fmt"

	"conductor/pkg/llmerrors"
)

// Outcome tags an envelope as a success or a failure.
type Outcome string

const (
	// OutcomeSuccess marks a valid, well-formed upstream response.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailure marks an exhausted, non-retryable, or cancelled call.
	OutcomeFailure Outcome = "failure"
)

// Finding is one structured item of work reported by a call.
type Finding struct {
	Category string `json:"category,omitempty"`
	Summary  string `json:"summary"`
	Detail   string `json:"detail,omitempty"`
}

// Envelope is the result of one logical LLM call.
type Envelope struct {
	Outcome    Outcome   `json:"outcome"`
	Findings   []Finding `json:"findings"`
	Reason     string    `json:"reason,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  *bool     `json:"retryable"`
	RawNotes   string    `json:"raw_notes,omitempty"`
}

// IsSuccess reports whether the call produced a valid response.
func (e *Envelope) IsSuccess() bool {
	return e.Outcome == OutcomeSuccess
}

// IsFailure reports whether the call failed after local recovery.
func (e *Envelope) IsFailure() bool {
	return e.Outcome == OutcomeFailure
}

// Success builds a success envelope. A nil findings slice is normalized to an
// empty one so the wire shape is always a JSON array.
func Success(findings []Finding, rawNotes string) Envelope {
	if findings == nil {
		findings = []Finding{}
	}
	return Envelope{
		Outcome:  OutcomeSuccess,
		Findings: findings,
		RawNotes: rawNotes,
	}
}

// Failure builds a failure envelope. Findings are always empty.
func Failure(reason string, httpStatus int, retryable bool) Envelope {
	return Envelope{
		Outcome:    OutcomeFailure,
		Findings:   []Finding{},
		Reason:     reason,
		HTTPStatus: httpStatus,
		Retryable:  &retryable,
	}
}

// FailureFromError synthesizes a failure envelope from a classified error.
func FailureFromError(err *llmerrors.Error) Envelope {
	return Failure(err.Reason(), err.StatusCode, err.IsRetryable())
}

// Cancelled builds a failure envelope for a caller-initiated abort.
func Cancelled(reason string) Envelope {
	if reason == "" {
		reason = "call cancelled"
	}
	env := Failure(reason, 0, false)
	env.RawNotes = llmerrors.ErrorTypeCancelled.String()
	return env
}

// String renders a short human-readable summary for logs.
func (e *Envelope) String() string {
	if e.IsSuccess() {
		return fmt.Sprintf("success (%d findings)", len(e.Findings))
	}
	return fmt.Sprintf("failure (%s)", e.Reason)
}
