package ina219

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/physic"
)

func TestDecodeBusVoltage(t *testing.T) {
	b := DecodeBusVoltage(0x1F98)
	if b.Voltage() != 4044*physic.MilliVolt {
		t.Fatalf("voltage = %v", b.Voltage())
	}
	if b.ConversionReady() || b.MathOverflow() {
		t.Fatal("flags should be clear")
	}
	b = DecodeBusVoltage(0x1F9B)
	if b.Voltage() != 4044*physic.MilliVolt || !b.ConversionReady() || !b.MathOverflow() {
		t.Fatalf("flags not decoded: %v ready=%v ovf=%v", b.Voltage(), b.ConversionReady(), b.MathOverflow())
	}
	if v := DecodeBusVoltage(0xFFF8).Voltage(); v != 32764*physic.MilliVolt {
		t.Fatalf("full scale = %v", v)
	}
}

func TestDecodeShuntVoltage(t *testing.T) {
	cases := []struct {
		raw  uint16
		want physic.ElectricPotential
	}{
		{0x0000, 0},
		{0xFFFF, -10 * physic.MicroVolt},
		{0x7D00, 320 * physic.MilliVolt},
		{0x8300, -320 * physic.MilliVolt},
		{0x0FA0, 40 * physic.MilliVolt},
		{0xF060, -40 * physic.MilliVolt},
	}
	for _, c := range cases {
		if got := DecodeShuntVoltage(c.raw); got != c.want {
			t.Fatalf("%#04x: got %v want %v", c.raw, got, c.want)
		}
	}
}

func TestDecodeCurrentAndPower(t *testing.T) {
	const lsb = 30518 * physic.NanoAmpere
	if got := DecodeCurrent(0xFFFF, lsb); got != -lsb {
		t.Fatalf("current = %v", got)
	}
	if got := DecodeCurrent(0x7FFF, lsb); got != 32767*lsb {
		t.Fatalf("current = %v", got)
	}
	// Power is unsigned.
	if got := DecodePower(0xFFFF, 610360*physic.NanoWatt); got != 65535*610360*physic.NanoWatt {
		t.Fatalf("power = %v", got)
	}
}

func TestRangeChecks(t *testing.T) {
	if err := CheckShuntVoltage(40*physic.MilliVolt, Gain1); err != nil {
		t.Fatalf("edge of range rejected: %v", err)
	}
	err := CheckShuntVoltage(-40010*physic.MicroVolt, Gain1)
	if !errors.Is(err, ErrShuntVoltageOutOfRange) || errors.Is(err, ErrBusVoltageOutOfRange) {
		t.Fatalf("err = %v", err)
	}
	var re *RangeError
	if !errors.As(err, &re) || re.Limit != 40*physic.MilliVolt || re.Register != RegShuntVoltage {
		t.Fatalf("range error fields: %+v", re)
	}
	if err := CheckShuntVoltage(DecodeShuntVoltage(0x7FFF), Gain8); !errors.Is(err, ErrShuntVoltageOutOfRange) {
		t.Fatalf("327.67mV accepted at /8: %v", err)
	}
	if err := CheckBusVoltage(16*physic.Volt, BusVoltageRange16V); err != nil {
		t.Fatal(err)
	}
	if err := CheckBusVoltage(16004*physic.MilliVolt, BusVoltageRange16V); !errors.Is(err, ErrBusVoltageOutOfRange) {
		t.Fatalf("err = %v", err)
	}
	if err := CheckBusVoltage(DecodeBusVoltage(0xFFF8).Voltage(), BusVoltageRange32V); !errors.Is(err, ErrBusVoltageOutOfRange) {
		t.Fatalf("32.764V accepted at 32V: %v", err)
	}
}

func TestSoftwarePower(t *testing.T) {
	cases := []struct {
		v    physic.ElectricPotential
		i    physic.ElectricCurrent
		want physic.Power
	}{
		{12 * physic.Volt, 1500 * physic.MilliAmpere, 18 * physic.Watt},
		{5 * physic.Volt, -200 * physic.MilliAmpere, -physic.Watt},
		{4044 * physic.MilliVolt, 0, 0},
		{physic.MicroVolt, physic.MicroAmpere, 0},
		{physic.MilliVolt, physic.MilliAmpere, physic.MicroWatt},
	}
	for _, c := range cases {
		got, err := SoftwarePower(c.v, c.i)
		if err != nil || got != c.want {
			t.Fatalf("%v * %v = %v, %v; want %v", c.v, c.i, got, err, c.want)
		}
	}
	if _, err := SoftwarePower(32*physic.Volt, 1<<62); !errors.Is(err, ErrPowerOverflow) {
		t.Fatalf("err = %v want ErrPowerOverflow", err)
	}
}

func TestPowerMonitorHelpers(t *testing.T) {
	m := PowerMonitor{
		BusVoltage:   12 * physic.Volt,
		ShuntVoltage: 10 * physic.MilliVolt,
		Current:      100 * physic.MilliAmpere,
		Calibrated:   true,
	}
	p, err := m.SoftwarePower()
	if err != nil || p != 1200*physic.MilliWatt {
		t.Fatalf("software power = %v, %v", p, err)
	}
	i, err := m.ShuntCurrent(100 * physic.MilliOhm)
	if err != nil || i != 100*physic.MilliAmpere {
		t.Fatalf("shunt current = %v, %v", i, err)
	}
	if _, err := m.ShuntCurrent(0); !errors.Is(err, ErrInvalidShunt) {
		t.Fatalf("err = %v", err)
	}
}
