package ina219

import (
	"errors"

	"periph.io/x/conn/v3/physic"
)

// Errors returned by the driver (TinyGo-safe; no fmt).
var (
	ErrTimeout         = errors.New("ina219: conversion timeout")
	ErrResetTimeout    = errors.New("ina219: reset did not complete")
	ErrNotInitialized  = errors.New("ina219: not initialized")
	ErrNotMeasuring    = errors.New("ina219: operating mode does not convert")
	ErrNotCalibrated   = errors.New("ina219: not calibrated")
	ErrInvalidRegister = errors.New("ina219: no such register")

	// Paranoid-mode failures; see VerifyError, OverflowError, RangeError, RegisterNotZeroError.
	ErrConfigMismatch         = errors.New("ina219: register readback mismatch")
	ErrMathOverflow           = errors.New("ina219: math overflow")
	ErrShuntVoltageOutOfRange = errors.New("ina219: shunt voltage out of range")
	ErrBusVoltageOutOfRange   = errors.New("ina219: bus voltage out of range")
	ErrRegisterNotZero        = errors.New("ina219: register not zero after reset")

	ErrInvalidShunt           = errors.New("ina219: shunt resistance must be positive")
	ErrInvalidMaxCurrent      = errors.New("ina219: max current must be positive")
	ErrInvalidCurrentLSB      = errors.New("ina219: current LSB out of range")
	ErrInvalidPowerLSB        = errors.New("ina219: power LSB out of range")
	ErrMaxCurrentUnmeasurable = errors.New("ina219: max current exceeds 320mV across shunt")
	ErrCalibrationOverflow    = errors.New("ina219: calibration exceeds 0x7fff")
	ErrCalibrationZero        = errors.New("ina219: calibration rounds to zero")
	ErrPowerOverflow          = errors.New("ina219: power does not fit")

	ErrAddressOutOfRange = errors.New("ina219: address out of range")
	ErrUnknownSetting    = errors.New("ina219: unknown setting")
)

// VerifyError reports a register that did not read back what was written.
type VerifyError struct {
	Register Register
	Wrote    uint16
	Read     uint16
}

func (e *VerifyError) Error() string {
	return "ina219: " + e.Register.String() + " readback 0x" + hexw(e.Read, 4) + ", wrote 0x" + hexw(e.Wrote, 4)
}

func (e *VerifyError) Is(target error) bool { return target == ErrConfigMismatch }

// OverflowError carries the readings taken alongside a math overflow flag.
type OverflowError struct {
	Bus   physic.ElectricPotential
	Shunt physic.ElectricPotential
}

func (e *OverflowError) Error() string {
	return "ina219: math overflow (bus " + e.Bus.String() + ", shunt " + e.Shunt.String() + ")"
}

func (e *OverflowError) Is(target error) bool { return target == ErrMathOverflow }

// RangeError reports a voltage reading outside its configured range.
type RangeError struct {
	Register Register
	Value    physic.ElectricPotential
	Limit    physic.ElectricPotential
}

func (e *RangeError) Error() string {
	return "ina219: " + e.Register.String() + " " + e.Value.String() + " outside ±" + e.Limit.String()
}

func (e *RangeError) Is(target error) bool {
	switch e.Register {
	case RegShuntVoltage:
		return target == ErrShuntVoltageOutOfRange
	case RegBusVoltage:
		return target == ErrBusVoltageOutOfRange
	}
	return false
}

// RegisterNotZeroError reports a register left non-zero by a reset.
type RegisterNotZeroError struct {
	Register Register
	Value    uint16
}

func (e *RegisterNotZeroError) Error() string {
	return "ina219: " + e.Register.String() + " is 0x" + hexw(e.Value, 4) + " after reset"
}

func (e *RegisterNotZeroError) Is(target error) bool { return target == ErrRegisterNotZero }
