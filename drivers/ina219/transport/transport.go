// Package transport adapts I2C buses to the shapes the ina219 drivers use:
// tinygo's blocking drivers.I2C and the context-aware ina219.ContextI2C.
package transport

import (
	"context"
	"time"

	"tinygo.org/x/drivers"

	"github.com/scttnlsn/ina219/drivers/ina219"
)

// Compile-time checks.
var (
	_ ina219.ContextI2C = Context{}
	_ ina219.ContextI2C = Timeout{}
	_ ina219.ContextI2C = (*Serialized)(nil)
)

// Context lifts a blocking bus into ina219.ContextI2C. The context is
// checked before each transaction; an in-flight Tx is not interrupted.
type Context struct {
	bus drivers.I2C
}

func NewContext(bus drivers.I2C) Context { return Context{bus: bus} }

func (c Context) Tx(ctx context.Context, addr uint16, w, r []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.bus.Tx(addr, w, r)
}

// Timeout bounds each transaction with its own deadline, nested under the
// caller's context.
type Timeout struct {
	bus ina219.ContextI2C
	d   time.Duration
}

// WithTimeout returns bus unchanged when d <= 0.
func WithTimeout(bus ina219.ContextI2C, d time.Duration) ina219.ContextI2C {
	if d <= 0 {
		return bus
	}
	return Timeout{bus: bus, d: d}
}

func (t Timeout) Tx(ctx context.Context, addr uint16, w, r []byte) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.bus.Tx(ctx, addr, w, r)
}

// Serialized lets several devices share one bus. Each transaction holds the
// bus exclusively; waiting for it is cancellable.
type Serialized struct {
	bus ina219.ContextI2C
	sem chan struct{}
}

func Serialize(bus ina219.ContextI2C) *Serialized {
	return &Serialized{bus: bus, sem: make(chan struct{}, 1)}
}

func (s *Serialized) Tx(ctx context.Context, addr uint16, w, r []byte) error {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()
	return s.bus.Tx(ctx, addr, w, r)
}
