package ina219

import (
	"context"
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

// Compile-time checks.
var (
	_ drivers.I2C = (*fakeBus)(nil)
	_ ContextI2C  = fakeCtxBus{}
)

var errNack = errors.New("fake: nack")

type txn struct {
	addr uint16
	w    []byte
	nr   int
}

// fakeBus emulates the INA219 register file: big-endian words, a register
// pointer, a self-clearing reset bit and the conversion-ready flag that sets
// after a number of bus voltage reads and clears on a power read or a
// configuration write.
type fakeBus struct {
	mu   sync.Mutex
	addr uint16
	regs [6]uint16
	ptr  byte
	log  []txn

	readyAfter int // bus voltage reads until a conversion completes
	countdown  int
	armed      bool
	ready      bool
	overflow   bool

	resetReads int    // configuration reads that still show the reset bit
	configXOR  uint16 // corrupts configuration reads
	calXOR     uint16 // corrupts calibration reads

	fail func(n int, w, r []byte) error
}

func newFakeBus() *fakeBus {
	f := &fakeBus{addr: uint16(AddressDefault), readyAfter: 1}
	f.regs[RegConfiguration] = configDefault
	f.arm()
	return f
}

// setReadings loads the measurement registers as the device would after a conversion.
func (f *fakeBus) setReadings(shunt, bus, current, power uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[RegShuntVoltage] = shunt
	f.regs[RegBusVoltage] = bus &^ (busCNVR | busOVF)
	f.regs[RegCurrent] = current
	f.regs[RegPower] = power
}

func (f *fakeBus) mode() Mode { return Mode(f.regs[RegConfiguration] & cfgModeMask) }

func (f *fakeBus) arm() {
	f.ready = false
	f.armed = f.mode().Measuring()
	f.countdown = f.readyAfter
}

func (f *fakeBus) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.log = append(f.log, txn{addr: addr, w: append([]byte(nil), w...), nr: len(r)})
	if f.fail != nil {
		if err := f.fail(len(f.log), w, r); err != nil {
			return err
		}
	}
	if addr != f.addr {
		return errNack
	}
	if len(w) > 0 {
		f.ptr = w[0]
	}
	if len(w) == 3 {
		f.write(Register(f.ptr), uint16(w[1])<<8|uint16(w[2]))
	}
	if len(r) == 2 {
		v := f.read(Register(f.ptr))
		r[0], r[1] = byte(v>>8), byte(v)
	}
	return nil
}

func (f *fakeBus) write(reg Register, v uint16) {
	switch reg {
	case RegConfiguration:
		if v&cfgReset != 0 {
			f.regs = [6]uint16{RegConfiguration: configDefault}
			if f.resetReads == 0 {
				f.resetReads = 1
			}
		} else {
			f.regs[RegConfiguration] = v
		}
		f.arm()
	case RegCalibration:
		f.regs[RegCalibration] = v &^ calFS0
	}
}

func (f *fakeBus) read(reg Register) uint16 {
	switch reg {
	case RegConfiguration:
		v := f.regs[RegConfiguration]
		if f.resetReads > 0 {
			f.resetReads--
			v |= cfgReset
		}
		return v ^ f.configXOR
	case RegCalibration:
		return f.regs[RegCalibration] ^ f.calXOR
	case RegBusVoltage:
		if f.armed {
			if f.countdown--; f.countdown <= 0 {
				f.armed, f.ready = false, true
			}
		}
		v := f.regs[RegBusVoltage]
		if f.ready {
			v |= busCNVR
		}
		if f.overflow {
			v |= busOVF
		}
		return v
	case RegPower:
		f.ready = false
		if f.mode().Continuous() {
			f.arm()
		}
		return f.regs[RegPower]
	case RegShuntVoltage, RegCurrent:
		return f.regs[reg]
	}
	return 0
}

// reads counts register reads of reg; with split transactions the
// pointer write and the data read are logged separately.
func (f *fakeBus) reads(reg Register) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	var ptr byte
	for _, t := range f.log {
		if len(t.w) > 0 {
			ptr = t.w[0]
		}
		if t.nr == 2 && ptr == byte(reg) {
			n++
		}
	}
	return n
}

func (f *fakeBus) writes(reg Register) []uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uint16
	for _, t := range f.log {
		if len(t.w) == 3 && t.w[0] == byte(reg) {
			out = append(out, uint16(t.w[1])<<8|uint16(t.w[2]))
		}
	}
	return out
}

func (f *fakeBus) resetLog() {
	f.mu.Lock()
	f.log = nil
	f.mu.Unlock()
}

// fakeCtxBus exposes fakeBus as a ContextI2C. before runs ahead of every
// transaction, for cancelling mid-sequence.
type fakeCtxBus struct {
	*fakeBus
	before func()
}

func (b fakeCtxBus) Tx(ctx context.Context, addr uint16, w, r []byte) error {
	if b.before != nil {
		b.before()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.fakeBus.Tx(addr, w, r)
}
