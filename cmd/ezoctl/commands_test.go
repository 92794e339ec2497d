package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/simulator"
)

func noWait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestApp(simOpts ...simulator.Option) (*app, *bytes.Buffer) {
	var out bytes.Buffer
	a := newApp(&out, io.Discard)
	a.sessionOpts = []ezo.SessionOption{ezo.WithSleeper(noWait)}
	a.simOpts = simOpts

	return a, &out
}

func run(a *app, args ...string) error {
	root := newRootCmd(a)
	root.SetArgs(args)

	return root.ExecuteContext(context.Background())
}

func TestInfoCmd(t *testing.T) {
	a, out := newTestApp()
	require.NoError(t, run(a, "info", "--sim"))

	s := out.String()
	assert.Contains(t, s, "Device:         pH")
	assert.Contains(t, s, "Firmware:       2.16")
	assert.Contains(t, s, "Address:        99 (0x63)")
	assert.Contains(t, s, "Restart reason: powered off")
	assert.Contains(t, s, "Vcc:            5.038 V")
	assert.Contains(t, s, "LED:            on")
	assert.Contains(t, s, "Protocol lock:  off")
	assert.Contains(t, s, "Measures:       pH (pH, pH)")
	assert.Contains(t, s, "Cal points:     0")
}

func TestInfoCmd_Address(t *testing.T) {
	a, out := newTestApp()
	require.NoError(t, run(a, "info", "--sim", "--kind", "orp", "--address", "10"))
	assert.Contains(t, out.String(), "Address:        10 (0x0A)")
}

func TestReadCmd(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{kind: "ph", want: "pH: 7.00 pH"},
		{kind: "orp", want: "ORP: 225.00 mV"},
		{kind: "rtd", want: "Temperature: 25.00 °C"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			a, out := newTestApp()
			require.NoError(t, run(a, "read", "--sim", "--kind", tt.kind))
			assert.Equal(t, tt.want, strings.TrimSpace(out.String()))
		})
	}
}

func TestReadCmd_Compensation(t *testing.T) {
	a, out := newTestApp()
	require.NoError(t, run(a, "read", "--sim", "--temp", "20"))
	assert.Contains(t, out.String(), "pH: ")

	a, _ = newTestApp()
	err := run(a, "read", "--sim", "--kind", "orp", "--temp", "20")
	require.ErrorIs(t, err, ezo.ErrUnsupportedOperation)
}

func TestLEDCmd(t *testing.T) {
	a, out := newTestApp()
	require.NoError(t, run(a, "led", "--sim"))
	assert.Equal(t, "LED: on", strings.TrimSpace(out.String()))

	a, out = newTestApp()
	require.NoError(t, run(a, "led", "off", "--sim"))
	assert.Equal(t, "LED: off", strings.TrimSpace(out.String()))

	a, _ = newTestApp()
	require.Error(t, run(a, "led", "blink", "--sim"))
}

func TestFindCmd(t *testing.T) {
	a, _ := newTestApp()
	require.NoError(t, run(a, "find", "--sim"))

	a, out := newTestApp()
	require.NoError(t, run(a, "find", "--stop", "--sim"))
	assert.Equal(t, "LED: on", strings.TrimSpace(out.String()))
}

func TestCalCmds(t *testing.T) {
	rows := []string{"MID7.00A00", "LOW4.00A01"}

	a, out := newTestApp(simulator.WithCalibration(rows...))
	require.NoError(t, run(a, "cal", "status", "--sim"))
	assert.Equal(t, "Calibration points: 2", strings.TrimSpace(out.String()))

	a, _ = newTestApp()
	require.NoError(t, run(a, "cal", "clear", "--sim"))

	a, _ = newTestApp()
	require.NoError(t, run(a, "cal", "set", "7.00", "--point", "mid", "--sim"))

	a, _ = newTestApp()
	require.ErrorIs(t, run(a, "cal", "set", "4.00", "--point", "middle", "--sim"), ezo.ErrOutOfRange)

	a, _ = newTestApp()
	require.Error(t, run(a, "cal", "set", "abc", "--sim", "--kind", "orp"))

	a, _ = newTestApp()
	require.NoError(t, run(a, "cal", "set", "100", "--sim", "--kind", "rtd"))
}

func TestCalExportImport(t *testing.T) {
	rows := []string{"MID7.00A00", "LOW4.00A01"}
	path := filepath.Join(t.TempDir(), "cal.yaml")

	a, _ := newTestApp(simulator.WithCalibration(rows...))
	require.NoError(t, run(a, "cal", "export", "--sim", "-o", path))

	file, err := os.Open(path)
	require.NoError(t, err)
	f, err := ReadCalibrationFile(file)
	require.NoError(t, file.Close())
	require.NoError(t, err)
	assert.Equal(t, "ph", f.Kind)
	assert.Equal(t, "2.16", f.Firmware)
	assert.Equal(t, rows, f.Rows)
	assert.False(t, f.ExportedAt.IsZero())

	a, out := newTestApp()
	require.NoError(t, run(a, "cal", "import", "--sim", "-i", path))
	assert.Equal(t, "Imported 2 calibration rows", strings.TrimSpace(out.String()))

	a, _ = newTestApp()
	err = run(a, "cal", "import", "--sim", "--kind", "rtd", "-i", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not rtd")
}

func TestCalExport_Stdout(t *testing.T) {
	a, out := newTestApp(simulator.WithCalibration("ORP225.00A00"))
	require.NoError(t, run(a, "cal", "export", "--sim", "--kind", "orp"))

	f, err := ReadCalibrationFile(strings.NewReader(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "orp", f.Kind)
	assert.Equal(t, []string{"ORP225.00A00"}, f.Rows)
}

func TestReadCalibrationFile_NoRows(t *testing.T) {
	_, err := ReadCalibrationFile(strings.NewReader("kind: ph\nrows: []\n"))
	require.ErrorIs(t, err, ezo.ErrMalformedPayload)
}

func TestWatchCmd(t *testing.T) {
	for _, kind := range []string{"ph", "rtd"} {
		t.Run(kind, func(t *testing.T) {
			a, out := newTestApp()
			require.NoError(t, run(a, "watch", "--sim", "--kind", kind, "--interval", "20ms", "--count", "3"))

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			require.Len(t, lines, 3)
			for _, line := range lines {
				assert.NotContains(t, line, "error")
			}
		})
	}
}

func TestWatchCmd_Cancel(t *testing.T) {
	a, _ := newTestApp()
	root := newRootCmd(a)
	root.SetArgs([]string{"watch", "--sim", "--interval", "10ms"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, root.ExecuteContext(ctx))
}

func TestWatchMetrics(t *testing.T) {
	sim, err := simulator.New(simulator.KindPH)
	require.NoError(t, err)
	cfg, err := ezo.NewSessionConfig(ezo.WithSleeper(noWait))
	require.NoError(t, err)
	session, err := ezo.NewSession(sim, cfg)
	require.NoError(t, err)
	defer session.Close()

	_, err = session.Issue(context.Background(), "R", 0, ezo.FormatUnformatted)
	require.NoError(t, err)
	_, err = session.Issue(context.Background(), "X", 0, ezo.FormatAck)
	require.Error(t, err)

	reg := prometheus.NewRegistry()
	m, err := newWatchMetrics(reg, session.GetMetrics(), prometheus.Labels{"kind": "ph"})
	require.NoError(t, err)

	m.observe(7.25, nil)
	m.observe(0, assert.AnError)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[mf.GetName()] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[mf.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.InDelta(t, 7.25, values["ezo_reading_value"], 1e-9)
	assert.InDelta(t, 1.0, values["ezo_reading_errors_total"], 1e-9)
	assert.InDelta(t, 0.0, values["ezo_session_inflight"], 1e-9)
	assert.InDelta(t, 2.0, values["ezo_session_commands_total"], 1e-9)
	assert.InDelta(t, 2.0, values["ezo_session_responses_total"], 1e-9)
	assert.InDelta(t, 1.0, values["ezo_session_rejected_total"], 1e-9)

	// registering twice fails
	_, err = newWatchMetrics(reg, session.GetMetrics(), prometheus.Labels{"kind": "ph"})
	require.Error(t, err)
}

func TestSetup_Errors(t *testing.T) {
	a, _ := newTestApp()
	err := run(a, "info")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport.port")

	a, _ = newTestApp()
	require.Error(t, run(a, "info", "--sim", "--kind", "ec"))

	a, _ = newTestApp()
	require.Error(t, run(a, "info", "--config", filepath.Join(t.TempDir(), "none.yaml")))
}

func TestSetup_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
device:
  kind: rtd
transport:
  type: sim
  sim_value: 30
`)

	a, out := newTestApp()
	require.NoError(t, run(a, "read", "--config", path))
	assert.Equal(t, "Temperature: 30.00 °C", strings.TrimSpace(out.String()))

	// flags override the file
	a, out = newTestApp()
	require.NoError(t, run(a, "read", "--config", path, "--kind", "ph"))
	assert.Equal(t, "pH: 30.00 pH", strings.TrimSpace(out.String()))
}
