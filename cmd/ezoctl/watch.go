package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/arloliu/go-ezo/ezo/reading"
	"github.com/arloliu/go-ezo/ezo/rtd"
	"github.com/arloliu/go-ezo/simulator"
)

type sample struct {
	value float64
	at    time.Time
	err   error
}

type watchOptions struct {
	interval    time.Duration
	metricsAddr string
	count       int
}

func newWatchCmd(a *app) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Read continuously and optionally serve Prometheus metrics",
		Long: `Read the circuit continuously at a fixed interval.

RTD circuits use their continuous reading mode; pH and ORP circuits are
polled by a reading scheduler. With --metrics the last value and the session
counters are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("interval") {
				opts.interval = a.cfg.Watch.Interval
			}
			if !cmd.Flags().Changed("metrics") {
				opts.metricsAddr = a.cfg.Watch.MetricsAddr
			}
			if opts.interval <= 0 {
				return fmt.Errorf("invalid interval %s", opts.interval)
			}

			return a.watch(cmd, opts)
		},
	}
	cmd.Flags().DurationVar(&opts.interval, "interval", 2*time.Second, "Reading interval")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics", "", "Serve Prometheus metrics on this address, e.g. :9100")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "Stop after this many readings (0 runs until interrupted)")

	return cmd
}

func (a *app) watch(cmd *cobra.Command, opts watchOptions) (err error) {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	samples := make(chan sample, 16)
	deliver := func(s sample) {
		select {
		case samples <- s:
		default:
			a.logger.Warn("reading dropped, output is too slow")
		}
	}

	rtdOpts := []rtd.Option{
		rtd.WithReadingInterval(opts.interval),
		rtd.WithReadingMode(reading.ModeContinuous),
		rtd.WithHandler(func(r rtd.Reading) {
			deliver(sample{value: r.Temperature, at: r.Time, err: r.Err})
		}),
	}
	p, err := a.connect(rtdOpts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, p.Close())
	}()

	// RTD probes read through their own continuous mode.
	if a.circuitKind() != simulator.KindRTD {
		sched, serr := reading.NewScheduler(func(ctx context.Context) {
			v, err := p.Read(ctx)
			deliver(sample{value: v, at: time.Now(), err: err})
		},
			reading.WithInterval(opts.interval),
			reading.WithMode(reading.ModeContinuous),
			reading.WithLogger(a.logger),
		)
		if serr != nil {
			return serr
		}
		defer func() {
			err = errors.Join(err, sched.Close())
		}()
	}

	vi, err := valueInfo(ctx, p)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{
		"kind":    a.cfg.Device.Kind,
		"address": strconv.Itoa(p.Address()),
	}
	metrics, err := newWatchMetrics(reg, p.Session().GetMetrics(), labels)
	if err != nil {
		return err
	}

	if opts.metricsAddr != "" {
		stop, err := a.serveMetrics(opts.metricsAddr, reg)
		if err != nil {
			return err
		}
		defer stop()
	}

	out := cmd.OutOrStdout()
	for n := 0; opts.count <= 0 || n < opts.count; n++ {
		var s sample
		select {
		case <-ctx.Done():
			return nil
		case s = <-samples:
		}

		metrics.observe(s.value, s.err)
		ts := s.at.Format("15:04:05.000")
		if s.err != nil {
			fmt.Fprintf(out, "[%s] error: %v\n", ts, s.err)
			continue
		}
		fmt.Fprintf(out, "[%s] %s\n", ts, formatReading(vi, s.value))
	}

	return nil
}

// serveMetrics serves reg on addr. The returned function shuts the server
// down.
func (a *app) serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
