package config

import (
	"fmt"
	"sort"
)

// -----------------------------------------------------------------------------
// Embedded board presets
//
// Key: board name (as passed to -board)
// Val: raw YAML applied over Default()
// -----------------------------------------------------------------------------

// Breakout with a 0.1 Ohm shunt at the widest ranges: 32 V, ±3.2 A.
const cfgBreakout32V3A = `
calibration:
  shunt: 100mΩ
  max_current: 3.2A
device:
  bus_range: 32V
  gain: 320mV
`

// Same shunt narrowed for low currents: 16 V, ±400 mA, 40 mV gain, averaged.
const cfgBreakout16V400mA = `
calibration:
  shunt: 100mΩ
  current_lsb: 50µA
device:
  bus_range: 16V
  gain: 40mV
  bus_resolution: 12bit
  shunt_resolution: avg8
`

// Battery gauge: triggered samples, paranoid checks, split transfers for
// bridges without repeated start.
const cfgBatteryGauge = `
bus:
  address: "vcc,gnd"
  split_transactions: true
calibration:
  shunt: 10mΩ
  current_lsb: 1mA
device:
  bus_range: 16V
  gain: 80mV
  mode: shunt_bus_triggered
  paranoid: true
`

var embeddedConfigs = map[string][]byte{
	"breakout-32v-3a":    []byte(cfgBreakout32V3A),
	"breakout-16v-400ma": []byte(cfgBreakout16V400mA),
	"battery-gauge":      []byte(cfgBatteryGauge),
}

// EmbeddedConfigLookup allows overriding how presets are resolved.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// Board returns a validated preset.
func Board(name string) (*Config, error) {
	raw, ok := EmbeddedConfigLookup(name)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("no embedded config for board: %s", name)
	}
	return Parse(raw)
}

// Boards lists the embedded preset names.
func Boards() []string {
	names := make([]string, 0, len(embeddedConfigs))
	for k := range embeddedConfigs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
