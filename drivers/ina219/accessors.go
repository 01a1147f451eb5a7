package ina219

// Address is the bus address the device was configured with.
func (c *core) Address() Address { return c.cfg.Address }

// Configuration is the last configuration written by the driver.
func (c *core) Configuration() Configuration { return c.conf }

// Calibration is the last calibration written by the driver.
func (c *core) Calibration() Calibration { return c.cal }

// Initialized reports whether Init or Reset has completed.
func (c *core) Initialized() bool { return c.st != stateUninitialized }

// Paranoid reports whether readback verification is enabled.
func (c *core) Paranoid() bool { return c.cfg.Paranoid }
