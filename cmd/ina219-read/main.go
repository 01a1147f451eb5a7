// cmd/ina219-read/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/scttnlsn/ina219/config"
	"github.com/scttnlsn/ina219/drivers/ina219"
	"github.com/scttnlsn/ina219/drivers/ina219/transport"
	"github.com/scttnlsn/ina219/errcode"
	"github.com/scttnlsn/ina219/types"
)

// ---------- Flags ----------

var (
	flagConfig = flag.String("config", "", "YAML configuration file")
	flagBoard  = flag.String("board", "", "embedded board preset")
	flagBoards = flag.Bool("boards", false, "list embedded board presets and exit")
	flagBus    = flag.String("bus", "", "I2C bus name or number (overrides config)")
	flagAddr   = flag.String("addr", "", "address, e.g. 0x40 or gnd,vcc (overrides config)")
	flagCount  = flag.Int("n", -1, "samples to take, 0 = until interrupted (overrides config)")
	flagJSON   = flag.Bool("json", false, "print JSON lines")
	flagAsync  = flag.Bool("async", false, "use the context-aware driver")
	flagDump   = flag.Bool("dump", false, "print raw registers and exit")
)

// logln writes a tagged line to stderr, like println.
func logln(a ...any) {
	print("[ina219-read] " + fmt.Sprintln(a...))
}

func main() {
	flag.Parse()
	if *flagBoards {
		for _, b := range config.Boards() {
			fmt.Println(b)
		}
		return
	}
	if err := run(); err != nil {
		logln("error:", err.Error(), "code:", string(errcode.Of(err)))
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case *flagConfig != "":
		cfg, err = config.Load(*flagConfig)
	case *flagBoard != "":
		cfg, err = config.Board(*flagBoard)
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: err.Error(), Err: err}
	}
	if *flagBus != "" {
		cfg.Bus.Name = *flagBus
	}
	if *flagAddr != "" {
		cfg.Bus.Address = *flagAddr
	}
	if *flagCount >= 0 {
		cfg.Sample.Count = *flagCount
	}
	cfg.Sample.JSON = cfg.Sample.JSON || *flagJSON
	cfg.Sample.Async = cfg.Sample.Async || *flagAsync
	if err := cfg.Validate(); err != nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: err.Error(), Err: err}
	}
	return cfg, nil
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bus, err := transport.Open(cfg.Bus.Name)
	if err != nil {
		return errcode.Wrap("open bus", err)
	}
	defer bus.Close()
	if speed, _ := cfg.BusSpeed(); speed != 0 {
		if err := bus.SetSpeed(speed); err != nil {
			logln("bus speed not changed:", err.Error())
		}
	}

	// Validated above.
	dc, _ := cfg.DriverConfig()
	conf, _ := cfg.Configuration()
	cal, _ := cfg.BuildCalibration()

	var m monitor
	if cfg.Sample.Async {
		m = asyncMonitor(ina219.NewAsync(transport.WithTimeout(transport.NewContext(bus), cfg.TxTimeout()), dc))
	} else {
		m = blockingMonitor(ina219.New(bus, dc))
	}

	if *flagDump {
		return dump(ctx, m)
	}
	if cfg.Device.Reset {
		if err := m.reset(ctx); err != nil {
			return errcode.Wrap("reset", err)
		}
	}
	if err := m.init(ctx, conf, cal); err != nil {
		return errcode.Wrap("init", err)
	}
	logln("bus", bus.String(), "addr", m.addr.String(), "|", conf.String(), "|", cal.String())

	out := newPrinter(cfg.Sample.JSON, cfg.Sample.SoftwarePower)
	if err := out.info(monitorInfo(bus.String(), m.addr, conf, cal, dc.Paranoid)); err != nil {
		return err
	}
	return sample(ctx, m, out, cfg.Sample.Count, cfg.SampleInterval())
}

// sample takes count measurements (0 = until ctx ends). Failed samples are
// reported and sampling continues.
func sample(ctx context.Context, m monitor, out *printer, count int, interval time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for seq := uint32(1); count == 0 || int(seq) <= count; seq++ {
		pm, err := m.sense(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			logln("sample", seq, "failed:", err.Error(), "code:", string(errcode.MapDriverErr(err)))
		}
		if err := out.value(monitorValue(seq, pm, err, out.soft)); err != nil {
			return err
		}
		if count != 0 && int(seq) == count {
			break
		}
		if tick == nil {
			continue
		}
		select {
		case <-tick:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

func dump(ctx context.Context, m monitor) error {
	for reg := ina219.RegConfiguration; reg <= ina219.RegCalibration; reg++ {
		v, err := m.readRegister(ctx, reg)
		if err != nil {
			return errcode.Wrap("read "+reg.String(), err)
		}
		line := fmt.Sprintf("%02x %-13s 0x%04x", uint8(reg), reg, v)
		switch reg {
		case ina219.RegConfiguration:
			line += "  " + ina219.DecodeConfiguration(v).String()
		case ina219.RegBusVoltage:
			b := ina219.DecodeBusVoltage(v)
			line += fmt.Sprintf("  %s ready=%t overflow=%t", b.Voltage(), b.ConversionReady(), b.MathOverflow())
		case ina219.RegShuntVoltage:
			line += "  " + ina219.DecodeShuntVoltage(v).String()
		}
		fmt.Println(line)
	}
	return nil
}

// ---------- Driver flavours ----------

type monitor struct {
	addr         ina219.Address
	reset        func(context.Context) error
	init         func(context.Context, ina219.Configuration, ina219.Calibration) error
	sense        func(context.Context) (ina219.PowerMonitor, error)
	readRegister func(context.Context, ina219.Register) (uint16, error)
}

func blockingMonitor(d *ina219.Device) monitor {
	return monitor{
		addr:  d.Address(),
		reset: func(context.Context) error { return d.Reset() },
		init: func(_ context.Context, conf ina219.Configuration, cal ina219.Calibration) error {
			return d.Init(conf, cal)
		},
		sense: func(context.Context) (ina219.PowerMonitor, error) { return d.Sense() },
		readRegister: func(_ context.Context, reg ina219.Register) (uint16, error) {
			return d.ReadRegister(reg)
		},
	}
}

func asyncMonitor(d *ina219.AsyncDevice) monitor {
	return monitor{
		addr:         d.Address(),
		reset:        d.Reset,
		init:         d.Init,
		sense:        d.Sense,
		readRegister: d.ReadRegister,
	}
}

// ---------- Output ----------

type printer struct {
	enc  *json.Encoder
	soft bool
}

func newPrinter(asJSON, soft bool) *printer {
	p := &printer{soft: soft}
	if asJSON {
		p.enc = json.NewEncoder(os.Stdout)
	}
	return p
}

func (p *printer) info(i types.MonitorInfo) error {
	if p.enc != nil {
		return p.enc.Encode(i)
	}
	return nil
}

func (p *printer) value(v types.MonitorValue) error {
	if p.enc != nil {
		return p.enc.Encode(v)
	}
	fmt.Println(formatValue(v))
	return nil
}
