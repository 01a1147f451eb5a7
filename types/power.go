package types

// ------------------------
// Power monitor (ina219)
// ------------------------

// MonitorInfo describes how a monitor was set up. Printed once at start.
type MonitorInfo struct {
	Bus           string `json:"bus"`
	Addr          uint16 `json:"addr"`
	Shunt_uOhm    int64  `json:"shunt_uohm,omitempty"`
	CurrentLSB_nA int64  `json:"current_lsb_nA,omitempty"`
	PowerLSB_nW   int64  `json:"power_lsb_nW,omitempty"`
	Cal           uint16 `json:"cal"`    // raw CALIBRATION register
	Config        uint16 `json:"config"` // raw CONFIGURATION register
	Mode          string `json:"mode"`
	Paranoid      bool   `json:"paranoid"`
}

// MonitorValue is one measurement snapshot.
type MonitorValue struct {
	Seq      uint32 `json:"seq"`
	TS_ms    int64  `json:"ts_ms"`
	Bus_mV   int32  `json:"bus_mV"`
	Shunt_uV int32  `json:"shunt_uV"`

	// Nil when the monitor is uncalibrated.
	Current_uA *int64 `json:"current_uA,omitempty"`
	Power_uW   *int64 `json:"power_uW,omitempty"`

	// Bus voltage times current, computed on the host.
	SoftPower_uW *int64 `json:"soft_power_uW,omitempty"`

	Overflow bool   `json:"overflow,omitempty"`
	Err      string `json:"err,omitempty"` // errcode.Code of a failed sample
}
