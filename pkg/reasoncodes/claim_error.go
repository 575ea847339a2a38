package reasoncodes

import (
	"errors"
	"fmt"
)

// ClaimError carries the structured reason code alongside a short
// human-readable message. Every failure in the claim pipeline surfaces as
// one of these; none of them ever wrap key material.
type ClaimError struct {
	Code    ReasonCode `json:"code"`
	Message string     `json:"message"`
	Cause   error      `json:"-"`
}

func (e *ClaimError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ClaimError) Unwrap() error { return e.Cause }

func New(code ReasonCode, message string) error {
	return &ClaimError{Code: code, Message: message}
}

func Wrap(code ReasonCode, message string, cause error) error {
	return &ClaimError{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the reason code from err, or ErrLedger when err is not a
// ClaimError.
func CodeOf(err error) ReasonCode {
	var ce *ClaimError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrLedger
}

// Is reports whether err carries the given reason code.
func Is(err error, code ReasonCode) bool {
	var ce *ClaimError
	return errors.As(err, &ce) && ce.Code == code
}
