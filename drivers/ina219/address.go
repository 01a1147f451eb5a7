package ina219

import (
	"strconv"
	"strings"

	"github.com/scttnlsn/ina219/x/conv"
)

// Address is a 7-bit INA219 I2C address in 0x40..0x4F.
type Address uint8

// Pin is the level an address strap (A0/A1) is tied to.
type Pin uint8

const (
	PinGND Pin = iota
	PinVCC
	PinSDA
	PinSCL
)

const (
	addressBase = 0x40
	addressMask = 0x0F
)

// AddressFromPins returns the address selected by the A0/A1 straps.
func AddressFromPins(a0, a1 Pin) (Address, error) {
	if a0 > PinSCL || a1 > PinSCL {
		return 0, ErrAddressOutOfRange
	}
	return Address(addressBase | uint8(a0) | uint8(a1)<<2), nil
}

// Pins is the inverse of AddressFromPins.
func (a Address) Pins() (a0, a1 Pin, err error) {
	if !a.Valid() {
		return 0, 0, ErrAddressOutOfRange
	}
	v := uint8(a) & addressMask
	return Pin(v & 0b11), Pin(v >> 2), nil
}

func (a Address) Valid() bool { return a&^addressMask == addressBase }

func (a Address) String() string { return "0x" + hexw(uint16(a), 2) }

// ParseAddress accepts "0x40", "64" or a strap pair such as "gnd,vcc" (A0,A1).
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if a0, a1, ok := strings.Cut(s, ","); ok {
		p0, err := parsePin(a0)
		if err != nil {
			return 0, err
		}
		p1, err := parsePin(a1)
		if err != nil {
			return 0, err
		}
		return AddressFromPins(p0, p1)
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, ErrAddressOutOfRange
	}
	a := Address(v)
	if !a.Valid() {
		return 0, ErrAddressOutOfRange
	}
	return a, nil
}

func parsePin(s string) (Pin, error) {
	switch strings.TrimSpace(s) {
	case "gnd":
		return PinGND, nil
	case "vcc", "vs":
		return PinVCC, nil
	case "sda":
		return PinSDA, nil
	case "scl":
		return PinSCL, nil
	}
	return 0, ErrUnknownSetting
}

func (p Pin) String() string {
	switch p {
	case PinGND:
		return "gnd"
	case PinVCC:
		return "vcc"
	case PinSDA:
		return "sda"
	case PinSCL:
		return "scl"
	}
	var buf [4]byte
	return "pin(" + string(conv.Itoa(buf[:], int64(p))) + ")"
}

func hexw(v uint16, width int) string {
	var buf [4]byte
	return string(conv.Hex(buf[:], uint64(v), width))
}
