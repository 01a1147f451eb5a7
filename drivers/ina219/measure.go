package ina219

import (
	"math"
	"math/bits"

	"periph.io/x/conn/v3/physic"

	"github.com/scttnlsn/ina219/x/mathx"
)

// BusVoltage is the raw bus voltage register: a 13-bit magnitude at 4 mV
// plus the conversion-ready and math-overflow flags.
type BusVoltage uint16

func DecodeBusVoltage(raw uint16) BusVoltage { return BusVoltage(raw) }

func (b BusVoltage) Voltage() physic.ElectricPotential {
	return physic.ElectricPotential(b>>3) * busVoltageLSB
}

// ConversionReady is set when a conversion completes. Reading the power
// register or writing the configuration clears it.
func (b BusVoltage) ConversionReady() bool { return b&busCNVR != 0 }

// MathOverflow is set when the power or current calculation overflowed.
func (b BusVoltage) MathOverflow() bool { return b&busOVF != 0 }

// DecodeShuntVoltage scales the signed shunt register at 10 µV/LSB.
func DecodeShuntVoltage(raw uint16) physic.ElectricPotential {
	return physic.ElectricPotential(int16(raw)) * shuntVoltageLSB
}

// DecodeCurrent scales the signed current register.
func DecodeCurrent(raw uint16, lsb physic.ElectricCurrent) physic.ElectricCurrent {
	return physic.ElectricCurrent(int16(raw)) * lsb
}

// DecodePower scales the unsigned power register.
func DecodePower(raw uint16, lsb physic.Power) physic.Power {
	return physic.Power(raw) * lsb
}

// CheckShuntVoltage reports a reading beyond the PGA full-scale range.
func CheckShuntVoltage(v physic.ElectricPotential, g Gain) error {
	limit := g.ShuntRange()
	if !mathx.Between(v, -limit, limit) {
		return &RangeError{Register: RegShuntVoltage, Value: v, Limit: limit}
	}
	return nil
}

// CheckBusVoltage reports a reading beyond the configured bus range.
func CheckBusVoltage(v physic.ElectricPotential, r BusVoltageRange) error {
	if limit := r.Max(); v > limit {
		return &RangeError{Register: RegBusVoltage, Value: v, Limit: limit}
	}
	return nil
}

// PowerMonitor is one set of readings taken after a single conversion.
// Current and Power are zero when the device is uncalibrated.
type PowerMonitor struct {
	BusVoltage   physic.ElectricPotential
	ShuntVoltage physic.ElectricPotential
	Current      physic.ElectricCurrent
	Power        physic.Power

	Calibrated   bool
	MathOverflow bool
}

// SoftwarePower multiplies the bus voltage by the current instead of using
// the device's power register.
func (m PowerMonitor) SoftwarePower() (physic.Power, error) {
	return SoftwarePower(m.BusVoltage, m.Current)
}

// ShuntCurrent derives the current from the shunt voltage alone, which works
// without calibration.
func (m PowerMonitor) ShuntCurrent(shunt physic.ElectricResistance) (physic.ElectricCurrent, error) {
	if shunt <= 0 {
		return 0, ErrInvalidShunt
	}
	// |shunt voltage| <= 327.67 mV so the nV*1e9 product fits in int64.
	return physic.ElectricCurrent(int64(m.ShuntVoltage) * int64(physic.Ampere) / int64(shunt)), nil
}

func (m PowerMonitor) String() string {
	s := "bus=" + m.BusVoltage.String() + " shunt=" + m.ShuntVoltage.String()
	if m.Calibrated {
		s += " current=" + m.Current.String() + " power=" + m.Power.String()
	}
	if m.MathOverflow {
		s += " overflow"
	}
	return s
}

// SoftwarePower returns v*i. The product is formed at 128 bits and
// ErrPowerOverflow is returned if it does not fit physic.Power.
func SoftwarePower(v physic.ElectricPotential, i physic.ElectricCurrent) (physic.Power, error) {
	neg := (v < 0) != (i < 0)
	hi, lo := bits.Mul64(absU64(int64(v)), absU64(int64(i)))
	// nV*nA is 1e-18 W; divide by 1e9 for nW.
	const nano = uint64(physic.Watt / physic.NanoWatt)
	if hi >= nano {
		return 0, ErrPowerOverflow
	}
	q, _ := bits.Div64(hi, lo, nano)
	if q > math.MaxInt64 {
		return 0, ErrPowerOverflow
	}
	p := physic.Power(q)
	if neg {
		p = -p
	}
	return p, nil
}

func absU64(x int64) uint64 {
	if x < 0 {
		return uint64(-x)
	}
	return uint64(x)
}
