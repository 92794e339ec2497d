package rtd

import (
	"fmt"

	"github.com/arloliu/go-ezo/ezo"
)

// TemperatureScale is the unit an RTD circuit reports in.
type TemperatureScale int

const (
	Celsius TemperatureScale = iota
	Kelvin
	Fahrenheit
)

// TemperatureScales maps temperature scales to their wire codes.
var TemperatureScales = ezo.NewCodeTable(
	ezo.CodeEntry[TemperatureScale]{Value: Celsius, Code: 'c', Name: "Celsius", Symbol: "°C"},
	ezo.CodeEntry[TemperatureScale]{Value: Kelvin, Code: 'k', Name: "Kelvin", Symbol: "K"},
	ezo.CodeEntry[TemperatureScale]{Value: Fahrenheit, Code: 'f', Name: "Fahrenheit", Symbol: "°F"},
)

// ParseTemperatureScale maps a device reported code to a scale. Every code a
// circuit reports must be known, so a miss is ezo.ErrMalformedPayload.
func ParseTemperatureScale(field string) (TemperatureScale, error) {
	s, ok := TemperatureScales.Parse(field)
	if !ok {
		return Celsius, fmt.Errorf("%w: unknown temperature scale %q", ezo.ErrMalformedPayload, field)
	}

	return s, nil
}

// Code returns the wire code of s.
func (s TemperatureScale) Code() byte {
	c, _ := TemperatureScales.CodeOf(s)
	return c
}

// Symbol returns the unit symbol of s, e.g. "°C".
func (s TemperatureScale) Symbol() string {
	sym, _ := TemperatureScales.SymbolOf(s)
	return sym
}

func (s TemperatureScale) String() string {
	if name, ok := TemperatureScales.NameOf(s); ok {
		return name
	}

	return fmt.Sprintf("TemperatureScale(%d)", int(s))
}
