package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"github.com/scttnlsn/ina219/drivers/ina219"
)

func TestPeriphDrivesDevice(t *testing.T) {
	pb := &i2ctest.Playback{
		DontPanic: true,
		Ops: []i2ctest.IO{
			// Init: calibration then configuration.
			{Addr: 0x40, W: []byte{0x05, 0x34, 0x6D}},
			{Addr: 0x40, W: []byte{0x00, 0x39, 0x9F}},
			// Sense: poll bus voltage, then shunt, current, power.
			{Addr: 0x40, W: []byte{0x02}, R: []byte{0x1F, 0x98}},
			{Addr: 0x40, W: []byte{0x02}, R: []byte{0x1F, 0x9A}},
			{Addr: 0x40, W: []byte{0x01}, R: []byte{0x07, 0xD0}},
			{Addr: 0x40, W: []byte{0x04}, R: []byte{0x19, 0x99}},
			{Addr: 0x40, W: []byte{0x03}, R: []byte{0x01, 0x00}},
		},
	}
	bus := NewPeriph(pb)
	d := ina219.New(bus, ina219.Config{PollInterval: time.Microsecond})
	cal, err := ina219.NewCalibration(100*physic.MilliOhm, physic.Ampere)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Init(ina219.DefaultConfiguration(), cal); err != nil {
		t.Fatal(err)
	}
	m, err := d.Sense()
	if err != nil {
		t.Fatal(err)
	}
	if m.BusVoltage != 4044*physic.MilliVolt || m.ShuntVoltage != 20*physic.MilliVolt {
		t.Fatalf("voltages: %v", m)
	}
	if m.Current != 6553*30518*physic.NanoAmpere || m.Power != 256*610360*physic.NanoWatt {
		t.Fatalf("current/power: %v", m)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("playback not drained: %v", err)
	}
}

func TestPeriphSplitTransactionsThroughContext(t *testing.T) {
	pb := &i2ctest.Playback{
		DontPanic: true,
		Ops: []i2ctest.IO{
			{Addr: 0x45, W: []byte{0x00}},
			{Addr: 0x45, R: []byte{0x39, 0x9F}},
		},
	}
	bus := NewPeriph(pb)
	d := ina219.NewAsync(NewContext(bus), ina219.Config{Address: 0x45, SplitTransactions: true})
	conf, err := d.ReadConfiguration(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if conf != ina219.DefaultConfiguration() {
		t.Fatalf("configuration = %v", conf)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestContextChecksBeforeTx(t *testing.T) {
	pb := &i2ctest.Playback{DontPanic: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewContext(NewPeriph(pb)).Tx(ctx, 0x40, []byte{0x00}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

// waitBus blocks each transaction until released or the context ends.
type waitBus struct {
	release  chan struct{}
	inflight atomic.Int32
	peak     atomic.Int32
}

func (b *waitBus) Tx(ctx context.Context, addr uint16, w, r []byte) error {
	n := b.inflight.Add(1)
	defer b.inflight.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestWithTimeout(t *testing.T) {
	b := &waitBus{release: make(chan struct{})}
	if WithTimeout(b, 0) != ina219.ContextI2C(b) {
		t.Fatal("zero timeout should not wrap")
	}
	err := WithTimeout(b, 2*time.Millisecond).Tx(context.Background(), 0x40, nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestSerializedOneAtATime(t *testing.T) {
	b := &waitBus{release: make(chan struct{})}
	s := Serialize(b)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(addr uint16) {
			defer wg.Done()
			if err := s.Tx(context.Background(), addr, nil, nil); err != nil {
				t.Errorf("tx %#x: %v", addr, err)
			}
		}(uint16(0x40 + i))
	}
	for i := 0; i < 4; i++ {
		b.release <- struct{}{}
	}
	wg.Wait()
	if p := b.peak.Load(); p != 1 {
		t.Fatalf("peak concurrency = %d", p)
	}
}

func TestSerializedWaitIsCancellable(t *testing.T) {
	b := &waitBus{release: make(chan struct{})}
	s := Serialize(b)
	done := make(chan error, 1)
	go func() { done <- s.Tx(context.Background(), 0x40, nil, nil) }()
	for b.inflight.Load() == 0 {
		time.Sleep(100 * time.Microsecond)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Millisecond)
	defer cancel()
	if err := s.Tx(ctx, 0x41, nil, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	b.release <- struct{}{}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
