package convert

import (
	"errors"
	"fmt"
)

var (
	// ErrConverterUnavailable means the converter executable cannot be located on this host.
	ErrConverterUnavailable = errors.New("converter unavailable")
	// ErrConversionFailed means the converter ran but produced no usable output.
	ErrConversionFailed = errors.New("conversion failed")
)

// Sub-reasons carried by ConversionError.
const (
	ReasonTimeout         = "timeout"
	ReasonCanceled        = "canceled"
	ReasonExitStatus      = "exit_status"
	ReasonMissingOutput   = "missing_output"
	ReasonMalformedOutput = "malformed_output"
)

// ConversionError is returned for every ErrConversionFailed outcome.
type ConversionError struct {
	Reason   string
	ExitCode int
	Err      error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("%s (%s)", ErrConversionFailed, e.Reason)
	if e.Reason == ReasonExitStatus {
		msg = fmt.Sprintf("%s (%s %d)", ErrConversionFailed, e.Reason, e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrConversionFailed) match any ConversionError.
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversionFailed
}

// ReasonOf returns the sub-reason of a conversion failure, or "".
func ReasonOf(err error) string {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ""
}

// UnavailableError explains how to make the converter available.
type UnavailableError struct {
	Binary      string
	Remediation string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %q not found: %s", ErrConverterUnavailable, e.Binary, e.Remediation)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrConverterUnavailable
}
