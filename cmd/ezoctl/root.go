package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/logger"
	"github.com/arloliu/go-ezo/simulator"
)

// app carries the state shared by all commands.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	kind       string
	address    int
	port       string
	baud       int
	sim        bool
	logLevel   string

	cfg    *Config
	logger logger.Logger

	// extra options appended when a session or a simulated circuit is
	// created; tests use them to skip settle delays.
	sessionOpts []ezo.SessionOption
	simOpts     []simulator.Option
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ezoctl",
		Short: "Atlas Scientific EZO circuit tool",
		Long: `ezoctl - A CLI tool for EZO pH, ORP and RTD circuits.

Talks to a circuit in UART mode over a serial port, or to an in-memory
simulated circuit with --sim.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  Simulator: --sim [--kind rtd]

Settings can also be loaded from a YAML file with --config; flags given on
the command line override the file.`,
		Version:           "0.1.0",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVarP(&a.kind, "kind", "k", "", "Circuit kind: ph, orp or rtd")
	flags.IntVarP(&a.address, "address", "a", 0, "I2C address of the circuit (default per kind)")
	flags.StringVarP(&a.port, "port", "p", "", "Serial port device")
	flags.IntVarP(&a.baud, "baud", "b", 0, "Baud rate (serial only)")
	flags.BoolVar(&a.sim, "sim", false, "Use a simulated circuit instead of a serial port")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(
		newInfoCmd(a),
		newReadCmd(a),
		newLEDCmd(a),
		newFindCmd(a),
		newCalCmd(a),
		newWatchCmd(a),
	)

	return root
}

// setup loads the configuration, applies flag overrides and installs the
// logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := DefaultConfig()
	if a.configPath != "" {
		loaded, err := LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("kind") {
		cfg.Device.Kind = a.kind
	}
	if flags.Changed("address") {
		cfg.Device.Address = a.address
	}
	if flags.Changed("port") {
		cfg.Transport.Port = a.port
		cfg.Transport.Type = TransportSerial
	}
	if flags.Changed("baud") {
		cfg.Transport.Baud = a.baud
	}
	if a.sim {
		cfg.Transport.Type = TransportSim
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, _ := logger.ParseLevel(cfg.Log.Level)
	opts := []logger.SlogOption{logger.WithOutput(a.errOut)}
	if cfg.Log.Console {
		opts = append(opts, logger.WithConsole())
	}
	a.logger = logger.NewSlog(level, opts...).With("kind", cfg.Device.Kind)

	return nil
}
