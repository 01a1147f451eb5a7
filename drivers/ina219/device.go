package ina219

import (
	"context"
	"time"

	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

// Device is a blocking INA219 driver over a tinygo I2C bus.
//
// NOTE: unless Config.SplitTransactions is set, I2C.Tx MUST perform a write
// followed by a repeated-start read when both w and r are provided.
//
// A Device is not safe for concurrent use. Two Devices may share a bus only
// if the bus serialises transactions.
type Device struct {
	bus drivers.I2C
	core

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [2]byte
}

// New creates a Device. It does not touch the bus; call Init or Reset.
func New(bus drivers.I2C, cfg Config) *Device {
	return &Device{bus: bus, core: newCore(cfg)}
}

// Init writes the calibration and configuration registers. The reset bit in
// conf is ignored; use Reset.
func (d *Device) Init(conf Configuration, cal Calibration) error {
	return d.setup(context.Background(), d, conf, cal)
}

// Reset restores power-on defaults. The device is left measuring
// continuously with no calibration.
func (d *Device) Reset() error { return d.reset(context.Background(), d) }

// Sense returns one fresh measurement. Triggered modes start a conversion
// first; continuous modes wait for the next one. Polling is bounded by
// Config.MaxPolls and fails with ErrTimeout.
func (d *Device) Sense() (PowerMonitor, error) { return d.sense(context.Background(), d) }

// NextMeasurement collects a measurement if one is ready, without waiting
// or triggering.
func (d *Device) NextMeasurement() (PowerMonitor, bool, error) {
	return d.next(context.Background(), d)
}

// Trigger starts a conversion by rewriting the stored configuration.
func (d *Device) Trigger() error { return d.trigger(context.Background(), d) }

func (d *Device) WriteConfiguration(conf Configuration) error {
	return d.writeConfiguration(context.Background(), d, conf)
}

func (d *Device) ReadConfiguration() (Configuration, error) {
	return d.readConfiguration(context.Background(), d)
}

func (d *Device) Calibrate(cal Calibration) error {
	return d.calibrate(context.Background(), d, cal)
}

func (d *Device) BusVoltage() (BusVoltage, error) { return d.busVoltage(context.Background(), d) }

func (d *Device) ShuntVoltage() (physic.ElectricPotential, error) {
	return d.shuntVoltage(context.Background(), d)
}

func (d *Device) Current() (physic.ElectricCurrent, error) { return d.current(context.Background(), d) }

// Power reads the power register. This clears the conversion-ready flag.
func (d *Device) Power() (physic.Power, error) { return d.power(context.Background(), d) }

// ReadRegister returns a raw register word.
func (d *Device) ReadRegister(reg Register) (uint16, error) {
	return d.readRegister(context.Background(), d, reg)
}

// I2C 16-bit word operations (big-endian: HIGH then LOW).

func (d *Device) readWord(_ context.Context, reg Register) (uint16, error) {
	addr := uint16(d.cfg.Address)
	d.w[0] = byte(reg)
	if d.cfg.SplitTransactions {
		if err := d.bus.Tx(addr, d.w[:1], nil); err != nil {
			return 0, err
		}
		if err := d.bus.Tx(addr, nil, d.r[:2]); err != nil {
			return 0, err
		}
	} else if err := d.bus.Tx(addr, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func (d *Device) writeWord(_ context.Context, reg Register, val uint16) error {
	d.w[0] = byte(reg)
	d.w[1] = byte(val >> 8) // high
	d.w[2] = byte(val)      // low
	return d.bus.Tx(uint16(d.cfg.Address), d.w[:3], nil)
}

func (d *Device) pause(_ context.Context, dur time.Duration) error {
	time.Sleep(dur)
	return nil
}
