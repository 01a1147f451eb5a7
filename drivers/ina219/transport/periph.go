package transport

import (
	"io"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

var _ drivers.I2C = (*Periph)(nil)

// Periph exposes a periph.io I2C bus (Linux /dev/i2c-N, FTDI bridges, ...)
// as a tinygo drivers.I2C.
type Periph struct {
	bus i2c.Bus
}

// Open initialises the periph host drivers and opens a bus by name or
// number. An empty name opens the first bus found.
func Open(name string) (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, err
	}
	return &Periph{bus: b}, nil
}

// NewPeriph wraps an already opened bus.
func NewPeriph(bus i2c.Bus) *Periph { return &Periph{bus: bus} }

func (p *Periph) Tx(addr uint16, w, r []byte) error { return p.bus.Tx(addr, w, r) }

// SetSpeed changes the bus clock, if the bus supports it.
func (p *Periph) SetSpeed(f physic.Frequency) error { return p.bus.SetSpeed(f) }

// Close releases the bus if it was opened by Open or wraps a closer.
func (p *Periph) Close() error {
	if c, ok := p.bus.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (p *Periph) String() string { return p.bus.String() }
