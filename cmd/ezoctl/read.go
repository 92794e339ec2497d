package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/ezo/ph"
)

func newReadCmd(a *app) *cobra.Command {
	var temp float64

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Take a single reading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			compensate := cmd.Flags().Changed("temp")

			return a.withProbe(cmd, func(ctx context.Context, p probe) error {
				vi, err := valueInfo(ctx, p)
				if err != nil {
					return err
				}

				var v float64
				if compensate {
					pp, ok := p.(*ph.Probe)
					if !ok {
						return fmt.Errorf("%w: --temp is only supported by pH circuits", ezo.ErrUnsupportedOperation)
					}
					v, err = pp.ReadCompensated(ctx, temp)
				} else {
					v, err = p.Read(ctx)
				}
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), formatReading(vi, v))

				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&temp, "temp", 25, "Compensate the reading for this temperature in °C (pH only)")

	return cmd
}

func formatReading(vi ezo.ValueInfo, v float64) string {
	return fmt.Sprintf("%s: %s %s", vi.Name, ezo.FormatFloat(v), vi.Symbol)
}
