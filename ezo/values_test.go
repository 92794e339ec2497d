package ezo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadBool(t *testing.T) {
	tests := []struct {
		payload string
		want    bool
		wantErr bool
	}{
		{"?L,1", true, false},
		{"?L,0", false, false},
		{"?L,2", false, true},
		{"?L,true", false, true},
		{"?L, 1", true, false},
		{"?L,", false, true},
		{"?L", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			require := require.New(t)

			s, tr, _ := newTestSession(t)
			tr.queue(frame(StatusSuccess, tt.payload))

			got, err := ReadBool(context.Background(), s, "L,?", ProcessingDelay, FormatDataWithCommand)
			if tt.wantErr {
				require.ErrorIs(err, ErrMalformedPayload)
				return
			}
			require.NoError(err)
			require.Equal(tt.want, got)
		})
	}
}

func TestReadFloat(t *testing.T) {
	require := require.New(t)

	s, tr, _ := newTestSession(t)
	tr.queue(
		frame(StatusSuccess, "7.002"),
		frame(StatusSuccess, "-1,5"),
		frame(StatusSuccess, "abc"),
		frame(StatusSuccess, ""),
	)

	v, err := ReadFloat(context.Background(), s, "R", ProcessingDelay, FormatData)
	require.NoError(err)
	require.InDelta(7.002, v, 1e-9)

	// first field only, no locale handling of ','
	v, err = ReadFloat(context.Background(), s, "R", ProcessingDelay, FormatData)
	require.NoError(err)
	require.InDelta(-1.0, v, 1e-9)

	_, err = ReadFloat(context.Background(), s, "R", ProcessingDelay, FormatData)
	require.ErrorIs(err, ErrMalformedPayload)

	_, err = ReadFloat(context.Background(), s, "R", ProcessingDelay, FormatData)
	require.ErrorIs(err, ErrMalformedPayload)
}

func TestReadInt(t *testing.T) {
	require := require.New(t)

	s, tr, _ := newTestSession(t)
	tr.queue(frame(StatusSuccess, "?Cal,2"), frame(StatusSuccess, "?Cal,two"))

	n, err := ReadInt(context.Background(), s, "Cal,?", ProcessingDelay, FormatDataWithCommand)
	require.NoError(err)
	require.Equal(2, n)

	_, err = ReadInt(context.Background(), s, "Cal,?", ProcessingDelay, FormatDataWithCommand)
	require.ErrorIs(err, ErrMalformedPayload)
}

func TestReadAck(t *testing.T) {
	require := require.New(t)

	s, tr, rec := newTestSession(t)
	tr.queue(frame(StatusSuccess, ""), frame(StatusSyntaxError, ""))

	require.NoError(ReadAck(context.Background(), s, "Cal,clear", ProcessingDelay))

	err := ReadAck(context.Background(), s, "Cal,clear", ProcessingDelay)
	require.ErrorIs(err, ErrDeviceRejected)
	require.Len(rec.recorded(), 2)
}

func TestReadFields(t *testing.T) {
	require := require.New(t)

	s, tr, _ := newTestSession(t)
	tr.queue(frame(StatusSuccess, "?I,pH"))

	_, err := ReadFields(context.Background(), s, "i", ProcessingDelay, FormatDataWithCommand, 2)
	require.ErrorIs(err, ErrMalformedPayload)
}

func TestFormatFloat(t *testing.T) {
	require := require.New(t)

	require.Equal("7.00", FormatFloat(7))
	require.Equal("-12.35", FormatFloat(-12.345))
	require.Equal("100.10", FormatFloat(100.1))
}
