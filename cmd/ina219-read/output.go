package main

import (
	"errors"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/physic"

	"github.com/scttnlsn/ina219/drivers/ina219"
	"github.com/scttnlsn/ina219/errcode"
	"github.com/scttnlsn/ina219/types"
	"github.com/scttnlsn/ina219/x/timex"
)

func monitorInfo(bus string, addr ina219.Address, conf ina219.Configuration, cal ina219.Calibration, paranoid bool) types.MonitorInfo {
	return types.MonitorInfo{
		Bus:           bus,
		Addr:          uint16(addr),
		Shunt_uOhm:    int64(cal.Shunt() / physic.MicroOhm),
		CurrentLSB_nA: int64(cal.CurrentLSB() / physic.NanoAmpere),
		PowerLSB_nW:   int64(cal.PowerLSB() / physic.NanoWatt),
		Cal:           cal.Bits(),
		Config:        conf.Bits(),
		Mode:          conf.Mode.String(),
		Paranoid:      paranoid,
	}
}

// monitorValue flattens a snapshot into integer units. Readings that came
// back with a range error are still reported; after a math overflow only the
// voltages are.
func monitorValue(seq uint32, pm ina219.PowerMonitor, err error, soft bool) types.MonitorValue {
	v := types.MonitorValue{
		Seq:      seq,
		TS_ms:    timex.NowMs(),
		Bus_mV:   int32(pm.BusVoltage / physic.MilliVolt),
		Shunt_uV: int32(pm.ShuntVoltage / physic.MicroVolt),
		Overflow: pm.MathOverflow,
	}
	if err != nil {
		v.Err = string(errcode.MapDriverErr(err))
	}
	if !pm.Calibrated || errors.Is(err, ina219.ErrMathOverflow) {
		return v
	}
	i := int64(pm.Current / physic.MicroAmpere)
	p := int64(pm.Power / physic.MicroWatt)
	v.Current_uA, v.Power_uW = &i, &p
	if soft {
		if sp, err := pm.SoftwarePower(); err == nil {
			s := int64(sp / physic.MicroWatt)
			v.SoftPower_uW = &s
		}
	}
	return v
}

func formatValue(v types.MonitorValue) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(uint64(v.Seq), 10))
	b.WriteString(" bus=" + strconv.Itoa(int(v.Bus_mV)) + "mV")
	b.WriteString(" shunt=" + strconv.Itoa(int(v.Shunt_uV)) + "uV")
	if v.Current_uA != nil {
		b.WriteString(" current=" + strconv.FormatInt(*v.Current_uA, 10) + "uA")
	}
	if v.Power_uW != nil {
		b.WriteString(" power=" + strconv.FormatInt(*v.Power_uW, 10) + "uW")
	}
	if v.SoftPower_uW != nil {
		b.WriteString(" soft_power=" + strconv.FormatInt(*v.SoftPower_uW, 10) + "uW")
	}
	if v.Overflow {
		b.WriteString(" OVF")
	}
	if v.Err != "" {
		b.WriteString(" err=" + v.Err)
	}
	return b.String()
}
