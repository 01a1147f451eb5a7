package errcode

import (
	"context"
	"errors"

	"github.com/scttnlsn/ina219/drivers/ina219"
)

// Code is a stable, machine-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	NotReady       Code = "not_ready"
	Timeout        Code = "timeout"
	Canceled       Code = "canceled"

	VerifyMismatch Code = "verify_mismatch"
	MathOverflow   Code = "math_overflow"
	OutOfRange     Code = "out_of_range"
	ResetFailed    Code = "reset_failed"
	BusError       Code = "bus_error"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap attaches the mapped code and op to err. nil stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: MapDriverErr(err), Op: op, Msg: err.Error(), Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}

var driverCodes = []struct {
	err  error
	code Code
}{
	{context.Canceled, Canceled},
	{context.DeadlineExceeded, Timeout},
	{ina219.ErrTimeout, Timeout},
	{ina219.ErrResetTimeout, ResetFailed},
	{ina219.ErrRegisterNotZero, ResetFailed},
	{ina219.ErrConfigMismatch, VerifyMismatch},
	{ina219.ErrMathOverflow, MathOverflow},
	{ina219.ErrShuntVoltageOutOfRange, OutOfRange},
	{ina219.ErrBusVoltageOutOfRange, OutOfRange},
	{ina219.ErrPowerOverflow, OutOfRange},
	{ina219.ErrNotInitialized, NotReady},
	{ina219.ErrNotMeasuring, NotReady},
	{ina219.ErrNotCalibrated, NotReady},
	{ina219.ErrInvalidShunt, InvalidParams},
	{ina219.ErrInvalidMaxCurrent, InvalidParams},
	{ina219.ErrInvalidCurrentLSB, InvalidParams},
	{ina219.ErrInvalidPowerLSB, InvalidParams},
	{ina219.ErrMaxCurrentUnmeasurable, InvalidParams},
	{ina219.ErrCalibrationOverflow, InvalidParams},
	{ina219.ErrCalibrationZero, InvalidParams},
	{ina219.ErrAddressOutOfRange, InvalidParams},
	{ina219.ErrUnknownSetting, InvalidParams},
	{ina219.ErrInvalidRegister, InvalidParams},
}

// MapDriverErr maps ina219 and context errors to a Code. Anything else
// that reached the driver is assumed to come from the bus.
func MapDriverErr(err error) Code {
	if err == nil {
		return OK
	}
	if c := Of(err); c != Error {
		return c
	}
	for _, m := range driverCodes {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return BusError
}
