package payload

import "fmt"

// Kind names the message family a DecodeError belongs to.
type Kind string

const (
	KindDisplay Kind = "display"
	KindTone    Kind = "tone"
	KindButton  Kind = "button"
)

// DecodeError reports a malformed or oversized payload.
// It is never fatal; the offending message is discarded.
type DecodeError struct {
	Kind   Kind
	Reason string
	Err    error
}

func newDecodeError(kind Kind, reason string, err error) *DecodeError {
	return &DecodeError{Kind: kind, Reason: reason, Err: err}
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode %s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("decode %s: %s: %v", e.Kind, e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
