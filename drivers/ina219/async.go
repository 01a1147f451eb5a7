package ina219

import (
	"context"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/scttnlsn/ina219/x/timex"
)

// ContextI2C is an I2C bus whose transactions honour a context. It has the
// same framing contract as drivers.I2C.
type ContextI2C interface {
	Tx(ctx context.Context, addr uint16, w, r []byte) error
}

// AsyncDevice is the context-aware counterpart of Device. Every bus
// transaction and poll wait is a cancellation point; a cancelled call
// returns ctx.Err() and leaves the stored configuration and calibration
// untouched.
//
// An AsyncDevice is not safe for concurrent use.
type AsyncDevice struct {
	bus ContextI2C
	core

	timer *time.Timer
	w     [3]byte
	r     [2]byte
}

func NewAsync(bus ContextI2C, cfg Config) *AsyncDevice {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return &AsyncDevice{bus: bus, core: newCore(cfg), timer: t}
}

func (d *AsyncDevice) Init(ctx context.Context, conf Configuration, cal Calibration) error {
	return d.setup(ctx, d, conf, cal)
}

func (d *AsyncDevice) Reset(ctx context.Context) error { return d.reset(ctx, d) }

func (d *AsyncDevice) Sense(ctx context.Context) (PowerMonitor, error) { return d.sense(ctx, d) }

func (d *AsyncDevice) NextMeasurement(ctx context.Context) (PowerMonitor, bool, error) {
	return d.next(ctx, d)
}

func (d *AsyncDevice) Trigger(ctx context.Context) error { return d.trigger(ctx, d) }

func (d *AsyncDevice) WriteConfiguration(ctx context.Context, conf Configuration) error {
	return d.writeConfiguration(ctx, d, conf)
}

func (d *AsyncDevice) ReadConfiguration(ctx context.Context) (Configuration, error) {
	return d.readConfiguration(ctx, d)
}

func (d *AsyncDevice) Calibrate(ctx context.Context, cal Calibration) error {
	return d.calibrate(ctx, d, cal)
}

func (d *AsyncDevice) BusVoltage(ctx context.Context) (BusVoltage, error) {
	return d.busVoltage(ctx, d)
}

func (d *AsyncDevice) ShuntVoltage(ctx context.Context) (physic.ElectricPotential, error) {
	return d.shuntVoltage(ctx, d)
}

func (d *AsyncDevice) Current(ctx context.Context) (physic.ElectricCurrent, error) {
	return d.current(ctx, d)
}

func (d *AsyncDevice) Power(ctx context.Context) (physic.Power, error) { return d.power(ctx, d) }

func (d *AsyncDevice) ReadRegister(ctx context.Context, reg Register) (uint16, error) {
	return d.readRegister(ctx, d, reg)
}

func (d *AsyncDevice) readWord(ctx context.Context, reg Register) (uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	addr := uint16(d.cfg.Address)
	d.w[0] = byte(reg)
	if d.cfg.SplitTransactions {
		if err := d.bus.Tx(ctx, addr, d.w[:1], nil); err != nil {
			return 0, err
		}
		if err := d.bus.Tx(ctx, addr, nil, d.r[:2]); err != nil {
			return 0, err
		}
	} else if err := d.bus.Tx(ctx, addr, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func (d *AsyncDevice) writeWord(ctx context.Context, reg Register, val uint16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.w[0] = byte(reg)
	d.w[1] = byte(val >> 8)
	d.w[2] = byte(val)
	return d.bus.Tx(ctx, uint16(d.cfg.Address), d.w[:3], nil)
}

func (d *AsyncDevice) pause(ctx context.Context, dur time.Duration) error {
	return timex.Sleep(ctx, d.timer, dur)
}
