package ina219

import (
	"strings"
	"time"

	"periph.io/x/conn/v3/physic"
)

// BusVoltageRange is the BRNG field.
type BusVoltageRange uint8

const (
	BusVoltageRange16V BusVoltageRange = 0
	BusVoltageRange32V BusVoltageRange = 1
)

// Max returns the full-scale bus voltage for the range.
func (r BusVoltageRange) Max() physic.ElectricPotential {
	if r == BusVoltageRange16V {
		return 16 * physic.Volt
	}
	return 32 * physic.Volt
}

func (r BusVoltageRange) String() string {
	if r == BusVoltageRange16V {
		return "16V"
	}
	return "32V"
}

// Gain is the PGA field. Each step doubles the shunt full-scale range.
type Gain uint8

const (
	Gain1 Gain = iota // ±40 mV
	Gain2             // ±80 mV
	Gain4             // ±160 mV
	Gain8             // ±320 mV
)

// ShuntRange returns the shunt full-scale range for the gain setting.
func (g Gain) ShuntRange() physic.ElectricPotential {
	return (40 * physic.MilliVolt) << (g & cfgGainMask)
}

func (g Gain) String() string {
	switch g {
	case Gain1:
		return "40mV"
	case Gain2:
		return "80mV"
	case Gain4:
		return "160mV"
	}
	return "320mV"
}

// Resolution is a BADC/SADC field: a sample width or an averaging count.
// Only the canonical codes are defined; DecodeConfiguration folds aliases.
type Resolution uint8

const (
	Res9Bit  Resolution = 0b0000
	Res10Bit Resolution = 0b0001
	Res11Bit Resolution = 0b0010
	Res12Bit Resolution = 0b0011
	Avg2     Resolution = 0b1001
	Avg4     Resolution = 0b1010
	Avg8     Resolution = 0b1011
	Avg16    Resolution = 0b1100
	Avg32    Resolution = 0b1101
	Avg64    Resolution = 0b1110
	Avg128   Resolution = 0b1111
)

// decodeResolution maps any 4-bit ADC code onto its canonical setting.
// 0b01xx are the 9..12-bit aliases and 0b1000 is 12-bit single sample.
func decodeResolution(code uint16) Resolution {
	code &= cfgADCMask
	switch {
	case code&0b1000 == 0:
		return Resolution(code & 0b0011)
	case code == 0b1000:
		return Res12Bit
	}
	return Resolution(code)
}

// ConversionTime is the datasheet maximum for one sample at this setting.
func (r Resolution) ConversionTime() time.Duration {
	switch r {
	case Res9Bit:
		return 84 * time.Microsecond
	case Res10Bit:
		return 148 * time.Microsecond
	case Res11Bit:
		return 276 * time.Microsecond
	case Res12Bit:
		return 532 * time.Microsecond
	case Avg2:
		return 1060 * time.Microsecond
	case Avg4:
		return 2130 * time.Microsecond
	case Avg8:
		return 4260 * time.Microsecond
	case Avg16:
		return 8510 * time.Microsecond
	case Avg32:
		return 17020 * time.Microsecond
	case Avg64:
		return 34050 * time.Microsecond
	}
	return 68100 * time.Microsecond
}

// Samples returns how many samples are averaged (1 for plain resolutions).
func (r Resolution) Samples() int {
	if r&0b1000 == 0 {
		return 1
	}
	return 1 << (r & 0b0111)
}

var resolutionNames = [...]struct {
	r    Resolution
	name string
}{
	{Res9Bit, "9bit"}, {Res10Bit, "10bit"}, {Res11Bit, "11bit"}, {Res12Bit, "12bit"},
	{Avg2, "avg2"}, {Avg4, "avg4"}, {Avg8, "avg8"}, {Avg16, "avg16"},
	{Avg32, "avg32"}, {Avg64, "avg64"}, {Avg128, "avg128"},
}

func (r Resolution) String() string {
	for _, n := range resolutionNames {
		if n.r == r {
			return n.name
		}
	}
	return decodeResolution(uint16(r)).String()
}

// Mode is the MODE field.
type Mode uint8

const (
	ModePowerDown          Mode = 0b000
	ModeShuntTriggered     Mode = 0b001
	ModeBusTriggered       Mode = 0b010
	ModeShuntBusTriggered  Mode = 0b011
	ModeADCOff             Mode = 0b100
	ModeShuntContinuous    Mode = 0b101
	ModeBusContinuous      Mode = 0b110
	ModeShuntBusContinuous Mode = 0b111
)

// Shunt reports whether the mode converts the shunt channel.
func (m Mode) Shunt() bool { return m&0b001 != 0 }

// Bus reports whether the mode converts the bus channel.
func (m Mode) Bus() bool { return m&0b010 != 0 }

// Measuring is false for power-down and ADC-off.
func (m Mode) Measuring() bool { return m.Shunt() || m.Bus() }

// Triggered modes convert once per configuration write.
func (m Mode) Triggered() bool { return m.Measuring() && m&0b100 == 0 }

// Continuous modes convert repeatedly.
func (m Mode) Continuous() bool { return m.Measuring() && m&0b100 != 0 }

var modeNames = [...]string{
	"power_down",
	"shunt_triggered",
	"bus_triggered",
	"shunt_bus_triggered",
	"adc_off",
	"shunt_continuous",
	"bus_continuous",
	"shunt_bus_continuous",
}

func (m Mode) String() string { return modeNames[m&cfgModeMask] }

// Configuration is the decoded configuration register.
type Configuration struct {
	Reset           bool
	BusRange        BusVoltageRange
	Gain            Gain
	BusResolution   Resolution
	ShuntResolution Resolution
	Mode            Mode
}

// DefaultConfiguration is the power-on configuration (0x399F).
func DefaultConfiguration() Configuration {
	return DecodeConfiguration(configDefault)
}

// DecodeConfiguration decodes any 16-bit pattern. Bit 14 is ignored.
func DecodeConfiguration(v uint16) Configuration {
	return Configuration{
		Reset:           v&cfgReset != 0,
		BusRange:        BusVoltageRange(v >> cfgBusRange & cfgRangeMask),
		Gain:            Gain(v >> cfgGainShift & cfgGainMask),
		BusResolution:   decodeResolution(v >> cfgBADCShift),
		ShuntResolution: decodeResolution(v >> cfgSADCShift),
		Mode:            Mode(v & cfgModeMask),
	}
}

// Bits encodes the configuration. Out-of-range fields are masked.
func (c Configuration) Bits() uint16 {
	var v uint16
	if c.Reset {
		v |= cfgReset
	}
	v |= uint16(c.BusRange&cfgRangeMask) << cfgBusRange
	v |= uint16(c.Gain&cfgGainMask) << cfgGainShift
	v |= uint16(c.BusResolution&cfgADCMask) << cfgBADCShift
	v |= uint16(c.ShuntResolution&cfgADCMask) << cfgSADCShift
	v |= uint16(c.Mode & cfgModeMask)
	return v
}

// ConversionTime is the time for one conversion cycle of the enabled channels.
func (c Configuration) ConversionTime() time.Duration {
	var d time.Duration
	if c.Mode.Bus() {
		d += c.BusResolution.ConversionTime()
	}
	if c.Mode.Shunt() {
		d += c.ShuntResolution.ConversionTime()
	}
	return d
}

func (c Configuration) String() string {
	var b strings.Builder
	if c.Reset {
		b.WriteString("reset ")
	}
	b.WriteString("range=" + c.BusRange.String())
	b.WriteString(" gain=" + c.Gain.String())
	b.WriteString(" badc=" + c.BusResolution.String())
	b.WriteString(" sadc=" + c.ShuntResolution.String())
	b.WriteString(" mode=" + c.Mode.String())
	return b.String()
}

// --- Parsers for configuration files and flags ---

// ParseBusVoltageRange accepts "16V" or "32V" (unit optional).
func ParseBusVoltageRange(s string) (BusVoltageRange, error) {
	switch norm(s) {
	case "16v", "16":
		return BusVoltageRange16V, nil
	case "32v", "32":
		return BusVoltageRange32V, nil
	}
	return 0, ErrUnknownSetting
}

// ParseGain accepts the shunt range ("160mV") or the divider ("/4", "4").
func ParseGain(s string) (Gain, error) {
	switch norm(s) {
	case "40mv", "1", "/1":
		return Gain1, nil
	case "80mv", "2", "/2":
		return Gain2, nil
	case "160mv", "4", "/4":
		return Gain4, nil
	case "320mv", "8", "/8":
		return Gain8, nil
	}
	return 0, ErrUnknownSetting
}

// ParseResolution accepts the names String returns, e.g. "12bit" or "avg-16".
func ParseResolution(s string) (Resolution, error) {
	s = strings.ReplaceAll(norm(s), "-", "")
	for _, n := range resolutionNames {
		if n.name == s {
			return n.r, nil
		}
	}
	return 0, ErrUnknownSetting
}

// ParseMode accepts the names String returns; "-" may stand for "_".
func ParseMode(s string) (Mode, error) {
	s = strings.ReplaceAll(norm(s), "-", "_")
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return 0, ErrUnknownSetting
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
