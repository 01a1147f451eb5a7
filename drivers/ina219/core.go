package ina219

import (
	"context"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/scttnlsn/ina219/x/mathx"
)

const (
	defaultPollInterval = time.Millisecond
	defaultResetRetries = 10
	minPolls            = 10
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x40 if zero.
	Address Address
	// Paranoid reads back every configuration and calibration write, checks
	// the configuration before each measurement, treats the math overflow
	// flag as an error and range-checks against the configured ranges.
	Paranoid bool
	// SplitTransactions sends the register pointer and the data read as two
	// transfers, for buses that cannot do a repeated-start read.
	SplitTransactions bool
	// PollInterval between conversion-ready polls. Default 1 ms.
	PollInterval time.Duration
	// MaxPolls bounds conversion-ready polls per measurement. If zero it is
	// derived from the configured conversion time.
	MaxPolls int
	// ResetRetries bounds polls for the reset bit to self-clear. Default 10.
	ResetRetries int
}

// Driver state. Whether a conversion is ready is the chip's CNVR flag,
// polled on every read; the driver only tracks whether the registers hold
// what it wrote.
type state uint8

const (
	stateUninitialized state = iota
	stateConfigured
)

// wordIO is one register word transfer plus a wait, with or without a context.
type wordIO interface {
	readWord(ctx context.Context, reg Register) (uint16, error)
	writeWord(ctx context.Context, reg Register, v uint16) error
	pause(ctx context.Context, d time.Duration) error
}

// core is the register-level state machine shared by Device and AsyncDevice.
type core struct {
	cfg  Config
	conf Configuration
	cal  Calibration
	st   state
}

func newCore(cfg Config) core {
	if cfg.Address == 0 {
		cfg.Address = AddressDefault
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ResetRetries <= 0 {
		cfg.ResetRetries = defaultResetRetries
	}
	return core{cfg: cfg, conf: DefaultConfiguration()}
}

func (c *core) setup(ctx context.Context, io wordIO, conf Configuration, cal Calibration) error {
	if !c.cfg.Address.Valid() {
		return ErrAddressOutOfRange
	}
	conf.Reset = false
	if err := io.writeWord(ctx, RegCalibration, cal.Bits()); err != nil {
		return err
	}
	if err := io.writeWord(ctx, RegConfiguration, conf.Bits()); err != nil {
		return err
	}
	if c.cfg.Paranoid {
		if err := c.verify(ctx, io, RegCalibration, cal.Bits()); err != nil {
			return err
		}
		if err := c.verify(ctx, io, RegConfiguration, conf.Bits()); err != nil {
			return err
		}
	}
	c.conf, c.cal, c.st = conf, cal, stateConfigured
	return nil
}

// verify compares a register against the expected value. The configuration
// reset bit self-clears and calibration bit 0 (FS0) always reads 0; both are
// ignored.
func (c *core) verify(ctx context.Context, io wordIO, reg Register, want uint16) error {
	got, err := io.readWord(ctx, reg)
	if err != nil {
		return err
	}
	switch reg {
	case RegConfiguration:
		got &^= cfgReset
		want &^= cfgReset
	case RegCalibration:
		got &^= calFS0
		want &^= calFS0
	}
	if got != want {
		return &VerifyError{Register: reg, Wrote: want, Read: got}
	}
	return nil
}

func (c *core) measuring() error {
	if c.st == stateUninitialized {
		return ErrNotInitialized
	}
	if !c.conf.Mode.Measuring() {
		return ErrNotMeasuring
	}
	return nil
}

func (c *core) sense(ctx context.Context, io wordIO) (PowerMonitor, error) {
	if err := c.measuring(); err != nil {
		return PowerMonitor{}, err
	}
	if c.cfg.Paranoid {
		if err := c.verify(ctx, io, RegConfiguration, c.conf.Bits()); err != nil {
			return PowerMonitor{}, err
		}
	}
	if c.conf.Mode.Triggered() {
		if err := c.trigger(ctx, io); err != nil {
			return PowerMonitor{}, err
		}
	}
	bus, err := c.awaitConversion(ctx, io)
	if err != nil {
		return PowerMonitor{}, err
	}
	return c.collect(ctx, io, bus)
}

func (c *core) next(ctx context.Context, io wordIO) (PowerMonitor, bool, error) {
	if err := c.measuring(); err != nil {
		return PowerMonitor{}, false, err
	}
	raw, err := io.readWord(ctx, RegBusVoltage)
	if err != nil {
		return PowerMonitor{}, false, err
	}
	bus := BusVoltage(raw)
	if !bus.ConversionReady() {
		return PowerMonitor{}, false, nil
	}
	m, err := c.collect(ctx, io, bus)
	return m, true, err
}

// trigger rewrites the configuration, which clears the conversion-ready
// flag and starts a conversion in the triggered modes.
func (c *core) trigger(ctx context.Context, io wordIO) error {
	if c.st == stateUninitialized {
		return ErrNotInitialized
	}
	return io.writeWord(ctx, RegConfiguration, c.conf.Bits())
}

func (c *core) pollLimit() int {
	if c.cfg.MaxPolls > 0 {
		return c.cfg.MaxPolls
	}
	n := int(2*c.conf.ConversionTime()/c.cfg.PollInterval) + 2
	return mathx.Max(n, minPolls)
}

func (c *core) awaitConversion(ctx context.Context, io wordIO) (BusVoltage, error) {
	n := c.pollLimit()
	for i := 0; i < n; i++ {
		if i > 0 {
			if err := io.pause(ctx, c.cfg.PollInterval); err != nil {
				return 0, err
			}
		}
		raw, err := io.readWord(ctx, RegBusVoltage)
		if err != nil {
			return 0, err
		}
		if bus := BusVoltage(raw); bus.ConversionReady() {
			return bus, nil
		}
	}
	return 0, ErrTimeout
}

// collect reads the rest of a conversion. The power register is always read
// last because that clears the conversion-ready flag. On an overflow or range
// error the decoded readings are returned with the error.
func (c *core) collect(ctx context.Context, io wordIO, bus BusVoltage) (PowerMonitor, error) {
	shunt, err := io.readWord(ctx, RegShuntVoltage)
	if err != nil {
		return PowerMonitor{}, err
	}
	var current uint16
	if c.cal.HasCurrent() {
		if current, err = io.readWord(ctx, RegCurrent); err != nil {
			return PowerMonitor{}, err
		}
	}
	power, err := io.readWord(ctx, RegPower)
	if err != nil {
		return PowerMonitor{}, err
	}

	m := PowerMonitor{
		BusVoltage:   bus.Voltage(),
		ShuntVoltage: DecodeShuntVoltage(shunt),
		Calibrated:   c.cal.HasCurrent(),
		MathOverflow: bus.MathOverflow(),
	}
	// Overflow corrupts current and power but not the voltages.
	if c.cfg.Paranoid && m.MathOverflow {
		return m, &OverflowError{Bus: m.BusVoltage, Shunt: m.ShuntVoltage}
	}
	if m.Calibrated {
		m.Current = DecodeCurrent(current, c.cal.CurrentLSB())
		m.Power = DecodePower(power, c.cal.PowerLSB())
	}
	if c.conf.Mode.Shunt() {
		if err := c.checkShunt(m.ShuntVoltage); err != nil {
			return m, err
		}
	}
	if c.conf.Mode.Bus() {
		if err := c.checkBus(m.BusVoltage); err != nil {
			return m, err
		}
	}
	return m, nil
}

// Range checks use the configured ranges in paranoid mode, the widest otherwise.
func (c *core) checkShunt(v physic.ElectricPotential) error {
	g := Gain8
	if c.cfg.Paranoid {
		g = c.conf.Gain
	}
	return CheckShuntVoltage(v, g)
}

func (c *core) checkBus(v physic.ElectricPotential) error {
	r := BusVoltageRange32V
	if c.cfg.Paranoid {
		r = c.conf.BusRange
	}
	return CheckBusVoltage(v, r)
}

func (c *core) writeConfiguration(ctx context.Context, io wordIO, conf Configuration) error {
	conf.Reset = false
	if err := io.writeWord(ctx, RegConfiguration, conf.Bits()); err != nil {
		return err
	}
	if c.cfg.Paranoid {
		if err := c.verify(ctx, io, RegConfiguration, conf.Bits()); err != nil {
			return err
		}
	}
	c.conf, c.st = conf, stateConfigured
	return nil
}

// readConfiguration returns what the device holds. In paranoid mode a
// difference from the last written configuration is a VerifyError; the
// decoded value is still returned and the stored configuration is kept.
func (c *core) readConfiguration(ctx context.Context, io wordIO) (Configuration, error) {
	raw, err := io.readWord(ctx, RegConfiguration)
	if err != nil {
		return Configuration{}, err
	}
	conf := DecodeConfiguration(raw)
	if c.cfg.Paranoid && c.st != stateUninitialized {
		if want := c.conf.Bits(); raw&^cfgReset != want {
			return conf, &VerifyError{Register: RegConfiguration, Wrote: want, Read: raw &^ cfgReset}
		}
	}
	return conf, nil
}

func (c *core) calibrate(ctx context.Context, io wordIO, cal Calibration) error {
	if err := io.writeWord(ctx, RegCalibration, cal.Bits()); err != nil {
		return err
	}
	if c.cfg.Paranoid {
		if err := c.verify(ctx, io, RegCalibration, cal.Bits()); err != nil {
			return err
		}
	}
	c.cal = cal
	return nil
}

// reset sets the reset bit and waits for it to self-clear. The device then
// runs the power-on configuration uncalibrated.
func (c *core) reset(ctx context.Context, io wordIO) error {
	c.st = stateUninitialized
	if err := io.writeWord(ctx, RegConfiguration, cfgReset|configDefault); err != nil {
		return err
	}
	cleared := false
	for i := 0; i < c.cfg.ResetRetries; i++ {
		if i > 0 {
			if err := io.pause(ctx, c.cfg.PollInterval); err != nil {
				return err
			}
		}
		raw, err := io.readWord(ctx, RegConfiguration)
		if err != nil {
			return err
		}
		if raw&cfgReset == 0 {
			cleared = true
			break
		}
	}
	if !cleared {
		return ErrResetTimeout
	}
	if c.cfg.Paranoid {
		if err := c.verify(ctx, io, RegConfiguration, configDefault); err != nil {
			return err
		}
		for _, reg := range [...]Register{RegCalibration, RegCurrent, RegPower} {
			v, err := io.readWord(ctx, reg)
			if err != nil {
				return err
			}
			if v != 0 {
				return &RegisterNotZeroError{Register: reg, Value: v}
			}
		}
	}
	c.conf, c.cal, c.st = DefaultConfiguration(), Uncalibrated, stateConfigured
	return nil
}

func (c *core) busVoltage(ctx context.Context, io wordIO) (BusVoltage, error) {
	raw, err := io.readWord(ctx, RegBusVoltage)
	if err != nil {
		return 0, err
	}
	b := BusVoltage(raw)
	return b, c.checkBus(b.Voltage())
}

func (c *core) shuntVoltage(ctx context.Context, io wordIO) (physic.ElectricPotential, error) {
	raw, err := io.readWord(ctx, RegShuntVoltage)
	if err != nil {
		return 0, err
	}
	v := DecodeShuntVoltage(raw)
	return v, c.checkShunt(v)
}

func (c *core) current(ctx context.Context, io wordIO) (physic.ElectricCurrent, error) {
	if !c.cal.HasCurrent() {
		return 0, ErrNotCalibrated
	}
	raw, err := io.readWord(ctx, RegCurrent)
	if err != nil {
		return 0, err
	}
	return DecodeCurrent(raw, c.cal.CurrentLSB()), nil
}

// power clears the conversion-ready flag as a side effect.
func (c *core) power(ctx context.Context, io wordIO) (physic.Power, error) {
	if !c.cal.HasCurrent() {
		return 0, ErrNotCalibrated
	}
	raw, err := io.readWord(ctx, RegPower)
	if err != nil {
		return 0, err
	}
	return DecodePower(raw, c.cal.PowerLSB()), nil
}

func (c *core) readRegister(ctx context.Context, io wordIO, reg Register) (uint16, error) {
	if !reg.valid() {
		return 0, ErrInvalidRegister
	}
	return io.readWord(ctx, reg)
}
