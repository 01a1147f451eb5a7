// Package ina219 provides register addresses, bitfields and scaling
// constants for the TI INA219 current/power monitor.
package ina219

import "periph.io/x/conn/v3/physic"

// Register is an INA219 register pointer.
type Register uint8

const (
	// 7-bit I2C address with A0 = A1 = GND.
	AddressDefault Address = 0x40

	// --- Register pointers (16-bit, big-endian) ---
	RegConfiguration Register = 0x00 // R/W
	RegShuntVoltage  Register = 0x01 // R
	RegBusVoltage    Register = 0x02 // R
	RegPower         Register = 0x03 // R
	RegCurrent       Register = 0x04 // R
	RegCalibration   Register = 0x05 // R/W
)

// --- Configuration register bitfields (0x00) ---
const (
	cfgReset      = 1 << 15
	cfgBusRange   = 13
	cfgGainShift  = 11
	cfgBADCShift  = 7
	cfgSADCShift  = 3
	cfgModeMask   = 0b111
	cfgGainMask   = 0b11
	cfgADCMask    = 0b1111
	cfgRangeMask  = 0b1
	configDefault = 0x399F // power-on value
)

// --- Bus voltage register flags (0x02) ---
const (
	busCNVR = 1 << 1 // conversion ready
	busOVF  = 1 << 0 // math overflow
)

// Scaling constants.
const (
	busVoltageLSB   = 4 * physic.MilliVolt
	shuntVoltageLSB = 10 * physic.MicroVolt

	// 0.04096 in nA*nOhm units (1e-18).
	calScale = 40_960_000_000_000_000
	calMax   = 0x7FFF
	calFS0   = 1 << 0 // void, always reads 0

	// Full-scale shunt input at PGA /8 (320 mV) in nA*nOhm.
	shuntFullScale = 320_000_000_000_000_000

	currentSteps   = 1 << 15
	powerLSBFactor = 20
)

func (r Register) String() string {
	switch r {
	case RegConfiguration:
		return "configuration"
	case RegShuntVoltage:
		return "shunt_voltage"
	case RegBusVoltage:
		return "bus_voltage"
	case RegPower:
		return "power"
	case RegCurrent:
		return "current"
	case RegCalibration:
		return "calibration"
	}
	return "reg_0x" + hexw(uint16(r), 2)
}

// Writable reports whether the register accepts writes.
func (r Register) Writable() bool {
	return r == RegConfiguration || r == RegCalibration
}

func (r Register) valid() bool { return r <= RegCalibration }
