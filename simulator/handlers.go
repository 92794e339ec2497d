package simulator

import (
	"strconv"
	"strings"

	"github.com/arloliu/go-ezo/ezo"
)

const maxRowLength = ezo.MaxCommandLength - len("Import, ")

func (d *Device) registerCommon() {
	d.Handle("i", func(args []string) Reply {
		if len(args) != 0 {
			return syntaxError()
		}

		return ok("?I," + d.kind.String() + "," + d.firmware)
	})

	d.Handle("status", func(args []string) Reply {
		code := d.restart.Code()
		return ok("?Status," + string(code) + "," + strconv.FormatFloat(d.vcc, 'f', 3, 64))
	})

	d.Handle("l", d.flagHandler("?L,", &d.led))
	d.Handle("plock", d.flagHandler("?Plock,", &d.plock))

	d.Handle("find", func([]string) Reply { return ok("") })

	d.Handle("sleep", func([]string) Reply {
		d.asleep = true
		return silent()
	})

	d.Handle("factory", func([]string) Reply {
		_ = d.reset()
		d.restart = ezo.RestartSoftwareReset

		return silent()
	})

	d.Handle("i2c", func(args []string) Reply {
		if len(args) != 1 {
			return syntaxError()
		}
		addr, err := strconv.Atoi(args[0])
		if err != nil || ezo.ValidateAddress(addr) != nil {
			return syntaxError()
		}
		d.address = addr
		d.restart = ezo.RestartSoftwareReset

		return silent()
	})

	d.Handle("baud", func(args []string) Reply {
		if len(args) != 1 {
			return syntaxError()
		}
		rate, err := strconv.Atoi(args[0])
		if err != nil || ezo.ValidateBaudRate(rate) != nil {
			return syntaxError()
		}
		d.baud = rate

		return silent()
	})

	d.Handle("export", d.exportHandler)
	d.Handle("import", d.importHandler)
}

func (d *Device) registerPH() {
	d.Handle("r", func(args []string) Reply {
		if len(args) != 0 {
			return syntaxError()
		}

		return ok(strconv.FormatFloat(d.reading(), 'f', 3, 64))
	})

	d.Handle("rt", func(args []string) Reply {
		t, good := floatArg(args)
		if !good {
			return syntaxError()
		}
		d.tempComp = t

		return ok(strconv.FormatFloat(d.reading(), 'f', 3, 64))
	})

	d.Handle("t", func(args []string) Reply {
		if isQuery(args) {
			return ok("?T," + ezo.FormatFloat(d.tempComp))
		}
		t, good := floatArg(args)
		if !good {
			return syntaxError()
		}
		d.tempComp = t

		return ok("")
	})

	d.Handle("slope", func(args []string) Reply {
		if !isQuery(args) {
			return syntaxError()
		}

		return ok("?Slope," + strconv.FormatFloat(d.slope[0], 'f', 1, 64) + "," + strconv.FormatFloat(d.slope[1], 'f', 1, 64))
	})

	d.Handle("cal", func(args []string) Reply {
		if reply, handled := d.commonCal(args); handled {
			return reply
		}
		if len(args) != 2 {
			return syntaxError()
		}
		point := strings.ToLower(args[0])
		if point != "mid" && point != "low" && point != "high" {
			return syntaxError()
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return syntaxError()
		}
		if point == "mid" {
			// a mid point calibration starts a new calibration
			d.calRows = nil
		}

		return d.addCalRow(point, v)
	})
}

func (d *Device) registerORP() {
	d.Handle("r", func(args []string) Reply {
		if len(args) != 0 {
			return syntaxError()
		}

		return ok(strconv.FormatFloat(d.reading(), 'f', 1, 64))
	})

	d.Handle("cal", func(args []string) Reply {
		if reply, handled := d.commonCal(args); handled {
			return reply
		}
		if len(args) != 1 {
			return syntaxError()
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return syntaxError()
		}
		d.calRows = nil

		return d.addCalRow("orp", float64(v))
	})
}

func (d *Device) registerRTD() {
	d.Handle("r", func(args []string) Reply {
		if len(args) != 0 {
			return syntaxError()
		}

		return ok(strconv.FormatFloat(toScale(d.reading(), d.scale), 'f', 3, 64))
	})

	d.Handle("s", func(args []string) Reply {
		if isQuery(args) {
			return ok("?S," + string(d.scale))
		}
		if len(args) != 1 || len(args[0]) != 1 {
			return syntaxError()
		}
		c := strings.ToLower(args[0])[0]
		if c != 'c' && c != 'k' && c != 'f' {
			return syntaxError()
		}
		d.scale = c

		return ok("")
	})

	d.Handle("cal", func(args []string) Reply {
		if reply, handled := d.commonCal(args); handled {
			return reply
		}
		v, good := floatArg(args)
		if !good {
			return syntaxError()
		}
		d.calRows = nil

		return d.addCalRow("t", v)
	})
}

// commonCal handles "Cal,?" and "Cal,clear".
func (d *Device) commonCal(args []string) (Reply, bool) {
	if isQuery(args) {
		return ok("?Cal," + strconv.Itoa(len(d.calRows))), true
	}
	if len(args) == 1 && strings.EqualFold(args[0], "clear") {
		d.calRows = nil
		return ok(""), true
	}

	return Reply{}, false
}

func (d *Device) addCalRow(point string, v float64) Reply {
	row := strings.ToUpper(point) + strconv.FormatFloat(v, 'f', 2, 64) + "A0" + strconv.Itoa(len(d.calRows))
	if len(row) > maxRowLength {
		row = row[:maxRowLength]
	}
	d.calRows = append(d.calRows, []byte(row))

	return ok("")
}

func (d *Device) exportHandler(args []string) Reply {
	if isQuery(args) {
		d.cursor = 0
		return ok("?Export," + strconv.Itoa(len(d.calRows)) + "," + strconv.Itoa(ezo.CalibrationBlob(d.calRows).TotalBytes()))
	}
	if len(args) != 0 {
		return syntaxError()
	}

	if d.cursor >= len(d.calRows) {
		d.cursor = 0
		return ok(ezo.ExportDoneSentinel)
	}
	row := d.calRows[d.cursor]
	d.cursor++

	return ok(string(row))
}

func (d *Device) importHandler(args []string) Reply {
	row := strings.TrimPrefix(strings.Join(args, ","), " ")
	if row == "" || len(row) > maxRowLength {
		return syntaxError()
	}
	if !d.importing {
		d.calRows = nil
		d.importing = true
	}
	d.calRows = append(d.calRows, []byte(row))

	return ok("")
}

func (d *Device) flagHandler(prefix string, state *bool) Handler {
	return func(args []string) Reply {
		if isQuery(args) {
			if *state {
				return ok(prefix + "1")
			}

			return ok(prefix + "0")
		}
		if len(args) != 1 {
			return syntaxError()
		}
		switch args[0] {
		case "1":
			*state = true
		case "0":
			*state = false
		default:
			return syntaxError()
		}

		return ok("")
	}
}

func isQuery(args []string) bool {
	return len(args) == 1 && args[0] == "?"
}

func floatArg(args []string) (float64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	v, err := strconv.ParseFloat(args[0], 64)

	return v, err == nil
}

func toScale(celsius float64, scale byte) float64 {
	switch scale {
	case 'k':
		return celsius + 273.15
	case 'f':
		return celsius*9/5 + 32
	default:
		return celsius
	}
}
