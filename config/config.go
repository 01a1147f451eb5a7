// Package config loads the host-side YAML configuration for an INA219 monitor
// and turns it into driver settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/scttnlsn/ina219/drivers/ina219"
)

var ErrIncompleteCalibration = errors.New("config: calibration needs shunt with max_current or current_lsb, or register with current_lsb and power_lsb")

type Config struct {
	Bus         BusConfig         `yaml:"bus"`
	Device      DeviceConfig      `yaml:"device"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Sample      SampleConfig      `yaml:"sample"`
}

// BusConfig selects the I2C bus and how the driver talks to it.
type BusConfig struct {
	Name              string `yaml:"name"`    // periph bus name or number; empty = first bus
	Speed             string `yaml:"speed"`   // e.g. "400kHz"; empty leaves the bus default
	Address           string `yaml:"address"` // "0x40", "64" or straps "gnd,vcc" (A0,A1)
	SplitTransactions bool   `yaml:"split_transactions"`
	Timeout           string `yaml:"timeout"` // per transaction, async only
}

// DeviceConfig mirrors the configuration register plus driver options.
type DeviceConfig struct {
	BusRange        string `yaml:"bus_range"`        // 16V | 32V
	Gain            string `yaml:"gain"`             // 40mV | 80mV | 160mV | 320mV
	BusResolution   string `yaml:"bus_resolution"`   // 9bit..12bit | avg2..avg128
	ShuntResolution string `yaml:"shunt_resolution"` // as above
	Mode            string `yaml:"mode"`             // e.g. shunt_bus_continuous
	Paranoid        bool   `yaml:"paranoid"`
	Reset           bool   `yaml:"reset"` // reset the device before Init
	PollInterval    string `yaml:"poll_interval"`
	MaxPolls        int    `yaml:"max_polls"`
	ResetRetries    int    `yaml:"reset_retries"`
}

// CalibrationConfig accepts one of:
//   - shunt + max_current
//   - shunt + current_lsb
//   - shunt + register (reconstructs the LSBs)
//   - register + current_lsb + power_lsb (custom)
//
// Leaving everything empty runs uncalibrated.
type CalibrationConfig struct {
	Shunt      string  `yaml:"shunt"`       // e.g. "100mΩ"
	MaxCurrent string  `yaml:"max_current"` // e.g. "3.2A"
	CurrentLSB string  `yaml:"current_lsb"` // e.g. "100uA"
	PowerLSB   string  `yaml:"power_lsb"`   // e.g. "2mW"
	Register   *uint16 `yaml:"register"`
}

type SampleConfig struct {
	Count         int    `yaml:"count"` // 0 = until interrupted
	Interval      string `yaml:"interval"`
	Async         bool   `yaml:"async"`
	JSON          bool   `yaml:"json"`
	SoftwarePower bool   `yaml:"software_power"`
}

// Default is the power-on configuration, uncalibrated, one sample per second.
func Default() *Config {
	d := ina219.DefaultConfiguration()
	return &Config{
		Bus: BusConfig{
			Address: ina219.AddressDefault.String(),
		},
		Device: DeviceConfig{
			BusRange:        d.BusRange.String(),
			Gain:            d.Gain.String(),
			BusResolution:   d.BusResolution.String(),
			ShuntResolution: d.ShuntResolution.String(),
			Mode:            d.Mode.String(),
			PollInterval:    "1ms",
		},
		Sample: SampleConfig{
			Interval: "1s",
		},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate builds every derived setting once and reports the first problem.
func (c *Config) Validate() error {
	if _, err := c.DriverConfig(); err != nil {
		return err
	}
	if _, err := c.Configuration(); err != nil {
		return err
	}
	if _, err := c.BuildCalibration(); err != nil {
		return err
	}
	if _, err := c.BusSpeed(); err != nil {
		return err
	}
	if _, err := duration("bus.timeout", c.Bus.Timeout); err != nil {
		return err
	}
	if _, err := duration("sample.interval", c.Sample.Interval); err != nil {
		return err
	}
	if c.Sample.Count < 0 {
		return fmt.Errorf("sample.count: must not be negative")
	}
	return nil
}

// DriverConfig returns the driver options.
func (c *Config) DriverConfig() (ina219.Config, error) {
	var dc ina219.Config
	if c.Bus.Address != "" {
		a, err := ina219.ParseAddress(c.Bus.Address)
		if err != nil {
			return dc, fmt.Errorf("bus.address %q: %w", c.Bus.Address, err)
		}
		dc.Address = a
	}
	poll, err := duration("device.poll_interval", c.Device.PollInterval)
	if err != nil {
		return dc, err
	}
	if c.Device.MaxPolls < 0 || c.Device.ResetRetries < 0 {
		return dc, fmt.Errorf("device: max_polls and reset_retries must not be negative")
	}
	dc.Paranoid = c.Device.Paranoid
	dc.SplitTransactions = c.Bus.SplitTransactions
	dc.PollInterval = poll
	dc.MaxPolls = c.Device.MaxPolls
	dc.ResetRetries = c.Device.ResetRetries
	return dc, nil
}

// Configuration returns the configuration register contents.
func (c *Config) Configuration() (ina219.Configuration, error) {
	conf := ina219.DefaultConfiguration()
	var err error
	if c.Device.BusRange != "" {
		if conf.BusRange, err = ina219.ParseBusVoltageRange(c.Device.BusRange); err != nil {
			return conf, fmt.Errorf("device.bus_range %q: %w", c.Device.BusRange, err)
		}
	}
	if c.Device.Gain != "" {
		if conf.Gain, err = ina219.ParseGain(c.Device.Gain); err != nil {
			return conf, fmt.Errorf("device.gain %q: %w", c.Device.Gain, err)
		}
	}
	if c.Device.BusResolution != "" {
		if conf.BusResolution, err = ina219.ParseResolution(c.Device.BusResolution); err != nil {
			return conf, fmt.Errorf("device.bus_resolution %q: %w", c.Device.BusResolution, err)
		}
	}
	if c.Device.ShuntResolution != "" {
		if conf.ShuntResolution, err = ina219.ParseResolution(c.Device.ShuntResolution); err != nil {
			return conf, fmt.Errorf("device.shunt_resolution %q: %w", c.Device.ShuntResolution, err)
		}
	}
	if c.Device.Mode != "" {
		if conf.Mode, err = ina219.ParseMode(c.Device.Mode); err != nil {
			return conf, fmt.Errorf("device.mode %q: %w", c.Device.Mode, err)
		}
	}
	return conf, nil
}

// BuildCalibration returns the calibration described by the file.
func (c *Config) BuildCalibration() (ina219.Calibration, error) {
	cc := c.Calibration
	var (
		shunt      physic.ElectricResistance
		maxCurrent physic.ElectricCurrent
		currentLSB physic.ElectricCurrent
		powerLSB   physic.Power
	)
	if err := set("calibration.shunt", cc.Shunt, &shunt); err != nil {
		return ina219.Uncalibrated, err
	}
	if err := set("calibration.max_current", cc.MaxCurrent, &maxCurrent); err != nil {
		return ina219.Uncalibrated, err
	}
	if err := set("calibration.current_lsb", cc.CurrentLSB, &currentLSB); err != nil {
		return ina219.Uncalibrated, err
	}
	if err := set("calibration.power_lsb", cc.PowerLSB, &powerLSB); err != nil {
		return ina219.Uncalibrated, err
	}

	var (
		cal ina219.Calibration
		err error
	)
	switch {
	case cc.Shunt == "" && cc.Register == nil && cc.MaxCurrent == "" && cc.CurrentLSB == "":
		return ina219.Uncalibrated, nil
	case cc.Register != nil && cc.CurrentLSB != "" && cc.PowerLSB != "":
		cal, err = ina219.CustomCalibration(*cc.Register, currentLSB, powerLSB)
	case cc.Register != nil && cc.Shunt != "":
		cal, err = ina219.CalibrationFromBits(*cc.Register, shunt)
	case cc.Shunt != "" && cc.CurrentLSB != "":
		cal, err = ina219.NewCalibrationLSB(shunt, currentLSB)
	case cc.Shunt != "" && cc.MaxCurrent != "":
		cal, err = ina219.NewCalibration(shunt, maxCurrent)
	default:
		return ina219.Uncalibrated, ErrIncompleteCalibration
	}
	if err != nil {
		return ina219.Uncalibrated, fmt.Errorf("calibration: %w", err)
	}
	return cal, nil
}

// BusSpeed returns zero when the speed is left unset.
func (c *Config) BusSpeed() (physic.Frequency, error) {
	var f physic.Frequency
	if err := set("bus.speed", c.Bus.Speed, &f); err != nil {
		return 0, err
	}
	return f, nil
}

// TxTimeout is the per-transaction timeout for the async driver.
func (c *Config) TxTimeout() time.Duration {
	d, _ := duration("bus.timeout", c.Bus.Timeout)
	return d
}

// SampleInterval is the pause between samples.
func (c *Config) SampleInterval() time.Duration {
	d, _ := duration("sample.interval", c.Sample.Interval)
	return d
}

// setter is implemented by the physic quantity types.
type setter interface{ Set(string) error }

func set(field, s string, v setter) error {
	if s == "" {
		return nil
	}
	if err := v.Set(s); err != nil {
		return fmt.Errorf("%s %q: %w", field, s, err)
	}
	return nil
}

func duration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", field)
	}
	return d, nil
}
