package rtd

import (
	"testing"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/stretchr/testify/require"
)

func TestTemperatureScales(t *testing.T) {
	require := require.New(t)

	for _, s := range TemperatureScales.Values() {
		back, err := ParseTemperatureScale(string(s.Code()))
		require.NoError(err)
		require.Equal(s, back)
	}

	s, err := ParseTemperatureScale("F")
	require.NoError(err)
	require.Equal(Fahrenheit, s)
	require.Equal("Fahrenheit", s.String())
	require.Equal("°F", s.Symbol())
	require.Equal("K", Kelvin.Symbol())
	require.Equal(byte('c'), Celsius.Code())

	_, err = ParseTemperatureScale("x")
	require.ErrorIs(err, ezo.ErrMalformedPayload)
	_, err = ParseTemperatureScale("")
	require.ErrorIs(err, ezo.ErrMalformedPayload)

	require.Equal("TemperatureScale(8)", TemperatureScale(8).String())
}
