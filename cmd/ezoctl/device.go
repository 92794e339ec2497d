package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// withProbe connects to the circuit, runs fn and closes the probe.
func (a *app) withProbe(cmd *cobra.Command, fn func(ctx context.Context, p probe) error) (err error) {
	p, err := a.connect()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, p.Close())
	}()

	return fn(cmd.Context(), p)
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show identification and status of the circuit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withProbe(cmd, func(ctx context.Context, p probe) error {
				info, err := p.Info(ctx)
				if err != nil {
					return err
				}
				status, err := p.Status(ctx)
				if err != nil {
					return err
				}
				led, err := p.LED(ctx)
				if err != nil {
					return err
				}
				plock, err := p.ProtocolLock(ctx)
				if err != nil {
					return err
				}
				points, err := p.CalibrationPoints(ctx)
				if err != nil {
					return err
				}
				vi, err := valueInfo(ctx, p)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Device:         %s\n", info.DeviceType)
				fmt.Fprintf(out, "Firmware:       %s\n", info.FirmwareVersion)
				fmt.Fprintf(out, "Address:        %d (0x%02X)\n", p.Address(), p.Address())
				fmt.Fprintf(out, "Restart reason: %s\n", status.RestartReason)
				fmt.Fprintf(out, "Vcc:            %.3f V\n", status.VccVoltage)
				fmt.Fprintf(out, "LED:            %s\n", onOff(led))
				fmt.Fprintf(out, "Protocol lock:  %s\n", onOff(plock))
				fmt.Fprintf(out, "Measures:       %s (%s, %s)\n", vi.Name, vi.Unit, vi.Symbol)
				fmt.Fprintf(out, "Cal points:     %d\n", points)

				return nil
			})
		},
	}
}

func newLEDCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "led [on|off]",
		Short:     "Show or switch the indicator LED",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProbe(cmd, func(ctx context.Context, p probe) error {
				if len(args) == 1 {
					if err := p.SetLED(ctx, args[0] == "on"); err != nil {
						return err
					}
				}
				led, err := p.LED(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "LED: %s\n", onOff(led))

				return nil
			})
		},
	}
}

func newFindCmd(a *app) *cobra.Command {
	var stop bool

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Blink the LED to locate the circuit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withProbe(cmd, func(ctx context.Context, p probe) error {
				if !stop {
					return p.Find(ctx)
				}
				led, err := p.StopFind(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "LED: %s\n", onOff(led))

				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&stop, "stop", false, "Stop blinking")

	return cmd
}

func onOff(b bool) string {
	if b {
		return "on"
	}

	return "off"
}
