package ina219

import (
	"testing"
	"time"
)

func TestDefaultConfiguration(t *testing.T) {
	c := DefaultConfiguration()
	want := Configuration{
		BusRange:        BusVoltageRange32V,
		Gain:            Gain8,
		BusResolution:   Res12Bit,
		ShuntResolution: Res12Bit,
		Mode:            ModeShuntBusContinuous,
	}
	if c != want {
		t.Fatalf("default = %+v, want %+v", c, want)
	}
	if c.Bits() != 0x399F {
		t.Fatalf("default bits = %#04x", c.Bits())
	}
}

func canonicalADC(code uint16) bool { return code < 0b0100 || code > 0b1000 }

func TestConfigurationRoundTripAllPatterns(t *testing.T) {
	for v := 0; v <= 0xFFFF; v++ {
		raw := uint16(v)
		c := DecodeConfiguration(raw)
		if got := DecodeConfiguration(c.Bits()); got != c {
			t.Fatalf("%#04x: decode(encode) = %+v, want %+v", raw, got, c)
		}
		if canonicalADC(raw>>7&0xF) && canonicalADC(raw>>3&0xF) {
			if got, want := c.Bits(), raw&^(1<<14); got != want {
				t.Fatalf("%#04x: encode = %#04x, want %#04x", raw, got, want)
			}
		}
	}
}

func TestResolutionAliases(t *testing.T) {
	cases := map[uint16]Resolution{
		0b0000: Res9Bit, 0b0100: Res9Bit,
		0b0001: Res10Bit, 0b0101: Res10Bit,
		0b0010: Res11Bit, 0b0110: Res11Bit,
		0b0011: Res12Bit, 0b0111: Res12Bit, 0b1000: Res12Bit,
		0b1001: Avg2, 0b1111: Avg128,
	}
	for code, want := range cases {
		if got := decodeResolution(code); got != want {
			t.Fatalf("code %04b: got %v want %v", code, got, want)
		}
	}
	if Avg128.Samples() != 128 || Res12Bit.Samples() != 1 || Avg2.Samples() != 2 {
		t.Fatal("sample counts wrong")
	}
}

func TestConversionTime(t *testing.T) {
	cases := []struct {
		name string
		conf Configuration
		want time.Duration
	}{
		{"default", DefaultConfiguration(), 1064 * time.Microsecond},
		{"shunt only 9bit", Configuration{ShuntResolution: Res9Bit, BusResolution: Avg128, Mode: ModeShuntTriggered}, 84 * time.Microsecond},
		{"bus only avg128", Configuration{ShuntResolution: Res9Bit, BusResolution: Avg128, Mode: ModeBusContinuous}, 68100 * time.Microsecond},
		{"power down", Configuration{Mode: ModePowerDown}, 0},
		{"adc off", Configuration{Mode: ModeADCOff}, 0},
	}
	for _, c := range cases {
		if got := c.conf.ConversionTime(); got != c.want {
			t.Fatalf("%s: got %v want %v", c.name, got, c.want)
		}
	}
}

func TestModeClassification(t *testing.T) {
	cases := []struct {
		m                                       Mode
		shunt, bus, measuring, trig, continuous bool
	}{
		{ModePowerDown, false, false, false, false, false},
		{ModeShuntTriggered, true, false, true, true, false},
		{ModeBusTriggered, false, true, true, true, false},
		{ModeShuntBusTriggered, true, true, true, true, false},
		{ModeADCOff, false, false, false, false, false},
		{ModeShuntContinuous, true, false, true, false, true},
		{ModeBusContinuous, false, true, true, false, true},
		{ModeShuntBusContinuous, true, true, true, false, true},
	}
	for _, c := range cases {
		if c.m.Shunt() != c.shunt || c.m.Bus() != c.bus || c.m.Measuring() != c.measuring ||
			c.m.Triggered() != c.trig || c.m.Continuous() != c.continuous {
			t.Fatalf("%v: classification wrong", c.m)
		}
	}
}

func TestGainShuntRange(t *testing.T) {
	want := []string{"40mV", "80mV", "160mV", "320mV"}
	for g := Gain1; g <= Gain8; g++ {
		if got := g.ShuntRange().String(); got != want[g] {
			t.Fatalf("gain %d: range %s want %s", g, got, want[g])
		}
	}
}

func TestParseSettings(t *testing.T) {
	if r, err := ParseBusVoltageRange("16V"); err != nil || r != BusVoltageRange16V {
		t.Fatalf("range: %v %v", r, err)
	}
	if g, err := ParseGain(" 160mV "); err != nil || g != Gain4 {
		t.Fatalf("gain: %v %v", g, err)
	}
	if g, err := ParseGain("/8"); err != nil || g != Gain8 {
		t.Fatalf("gain /8: %v %v", g, err)
	}
	if r, err := ParseResolution("AVG-64"); err != nil || r != Avg64 {
		t.Fatalf("resolution: %v %v", r, err)
	}
	if m, err := ParseMode("shunt-bus-triggered"); err != nil || m != ModeShuntBusTriggered {
		t.Fatalf("mode: %v %v", m, err)
	}
	for _, s := range []string{"", "13bit", "avg3"} {
		if _, err := ParseResolution(s); err != ErrUnknownSetting {
			t.Fatalf("ParseResolution(%q) err = %v", s, err)
		}
	}
	if _, err := ParseMode("sleep"); err != ErrUnknownSetting {
		t.Fatalf("ParseMode err = %v", err)
	}
	// Names round-trip through their parsers.
	for _, n := range resolutionNames {
		if r, err := ParseResolution(n.r.String()); err != nil || r != n.r {
			t.Fatalf("%v does not round-trip", n.r)
		}
	}
	for m := ModePowerDown; m <= ModeShuntBusContinuous; m++ {
		if got, err := ParseMode(m.String()); err != nil || got != m {
			t.Fatalf("%v does not round-trip", m)
		}
	}
}
