package ina219

import (
	"math"
	"math/bits"

	"periph.io/x/conn/v3/physic"

	"github.com/scttnlsn/ina219/x/mathx"
)

// Calibration ties the calibration register to the current and power LSBs
// the device will use. The zero value is Uncalibrated: the current and power
// registers read zero and the driver does not fetch them.
type Calibration struct {
	bits       uint16
	currentLSB physic.ElectricCurrent
	powerLSB   physic.Power
	shunt      physic.ElectricResistance
}

// Uncalibrated leaves the calibration register at its reset value.
var Uncalibrated = Calibration{}

// Largest current LSB whose full-scale power (65535 counts at 20x) fits int64 nW.
const maxCurrentLSB = physic.ElectricCurrent(math.MaxInt64 / (powerLSBFactor * math.MaxUint16))

// NewCalibration picks the finest current LSB that still reaches maxCurrent
// (maxCurrent/2^15 rounded up) and derives the register value from it.
func NewCalibration(shunt physic.ElectricResistance, maxCurrent physic.ElectricCurrent) (Calibration, error) {
	if shunt <= 0 {
		return Calibration{}, ErrInvalidShunt
	}
	if maxCurrent <= 0 {
		return Calibration{}, ErrInvalidMaxCurrent
	}
	// The drop across the shunt at maxCurrent must fit the widest PGA range.
	hi, lo := bits.Mul64(uint64(maxCurrent), uint64(shunt))
	if hi != 0 || lo > shuntFullScale {
		return Calibration{}, ErrMaxCurrentUnmeasurable
	}
	lsb := mathx.CeilDiv(uint64(maxCurrent), currentSteps)
	return NewCalibrationLSB(shunt, physic.ElectricCurrent(lsb))
}

// NewCalibrationLSB computes trunc(0.04096 / (currentLSB * shunt)).
func NewCalibrationLSB(shunt physic.ElectricResistance, currentLSB physic.ElectricCurrent) (Calibration, error) {
	if shunt <= 0 {
		return Calibration{}, ErrInvalidShunt
	}
	if currentLSB <= 0 || currentLSB > maxCurrentLSB {
		return Calibration{}, ErrInvalidCurrentLSB
	}
	hi, lo := bits.Mul64(uint64(currentLSB), uint64(shunt))
	var cal uint64
	if hi == 0 {
		cal = calScale / lo
	}
	switch {
	case cal == 0:
		return Calibration{}, ErrCalibrationZero
	case cal > calMax:
		return Calibration{}, ErrCalibrationOverflow
	}
	return Calibration{
		bits:       uint16(cal),
		currentLSB: currentLSB,
		powerLSB:   physic.Power(powerLSBFactor * int64(currentLSB)),
		shunt:      shunt,
	}, nil
}

// CalibrationFromBits reconstructs the LSBs for a register value already
// present on a device.
func CalibrationFromBits(raw uint16, shunt physic.ElectricResistance) (Calibration, error) {
	if shunt <= 0 {
		return Calibration{}, ErrInvalidShunt
	}
	switch {
	case raw == 0:
		return Calibration{}, ErrCalibrationZero
	case raw > calMax:
		return Calibration{}, ErrCalibrationOverflow
	}
	hi, lo := bits.Mul64(uint64(raw), uint64(shunt))
	if hi != 0 || lo > calScale {
		return Calibration{}, ErrInvalidCurrentLSB
	}
	c, err := NewCalibrationLSB(shunt, physic.ElectricCurrent(calScale/lo))
	if err != nil {
		return Calibration{}, err
	}
	c.bits = raw
	return c, nil
}

// CustomCalibration pairs an arbitrary register value with caller-chosen LSBs,
// for boards that were trimmed against a reference meter.
func CustomCalibration(raw uint16, currentLSB physic.ElectricCurrent, powerLSB physic.Power) (Calibration, error) {
	switch {
	case raw == 0:
		return Calibration{}, ErrCalibrationZero
	case raw > calMax:
		return Calibration{}, ErrCalibrationOverflow
	case currentLSB <= 0 || currentLSB > maxCurrentLSB:
		return Calibration{}, ErrInvalidCurrentLSB
	case powerLSB <= 0 || powerLSB > math.MaxInt64/math.MaxUint16:
		return Calibration{}, ErrInvalidPowerLSB
	}
	return Calibration{bits: raw, currentLSB: currentLSB, powerLSB: powerLSB}, nil
}

// Bits is the calibration register value (0 when uncalibrated).
func (c Calibration) Bits() uint16 { return c.bits }

func (c Calibration) CurrentLSB() physic.ElectricCurrent { return c.currentLSB }

func (c Calibration) PowerLSB() physic.Power { return c.powerLSB }

// Shunt is zero for custom calibrations.
func (c Calibration) Shunt() physic.ElectricResistance { return c.shunt }

// HasCurrent reports whether the current and power registers carry data.
func (c Calibration) HasCurrent() bool { return c.bits != 0 }

// MaxCurrent is the current at full-scale register value.
func (c Calibration) MaxCurrent() physic.ElectricCurrent {
	return c.currentLSB * math.MaxInt16
}

func (c Calibration) String() string {
	if !c.HasCurrent() {
		return "uncalibrated"
	}
	return "cal=0x" + hexw(c.bits, 4) + " current_lsb=" + c.currentLSB.String() + " power_lsb=" + c.powerLSB.String()
}
