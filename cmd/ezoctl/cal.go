package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/ezo/orp"
	"github.com/arloliu/go-ezo/ezo/ph"
	"github.com/arloliu/go-ezo/ezo/rtd"
)

// CalibrationFile is the YAML document written by "cal export" and read by
// "cal import".
type CalibrationFile struct {
	Kind       string    `yaml:"kind"`
	Firmware   string    `yaml:"firmware,omitempty"`
	ExportedAt time.Time `yaml:"exported_at"`
	Rows       []string  `yaml:"rows"`
}

// ReadCalibrationFile decodes a calibration file.
func ReadCalibrationFile(r io.Reader) (*CalibrationFile, error) {
	var f CalibrationFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode calibration file: %w", err)
	}
	if len(f.Rows) == 0 {
		return nil, fmt.Errorf("%w: calibration file has no rows", ezo.ErrMalformedPayload)
	}

	return &f, nil
}

// WriteCalibrationFile encodes f as YAML.
func WriteCalibrationFile(w io.Writer, f *CalibrationFile) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}

	return enc.Close()
}

func newCalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cal",
		Short: "Calibration commands",
	}
	cmd.AddCommand(
		newCalStatusCmd(a),
		newCalClearCmd(a),
		newCalSetCmd(a),
		newCalExportCmd(a),
		newCalImportCmd(a),
	)

	return cmd
}

func newCalStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the number of calibration points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withProbe(cmd, func(ctx context.Context, p probe) error {
				n, err := p.CalibrationPoints(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Calibration points: %d\n", n)

				return nil
			})
		},
	}
}

func newCalClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all calibration points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withProbe(cmd, func(ctx context.Context, p probe) error {
				return p.ClearCalibration(ctx)
			})
		},
	}
}

func newCalSetCmd(a *app) *cobra.Command {
	var point string

	cmd := &cobra.Command{
		Use:   "set <value>",
		Short: "Calibrate against a reference solution",
		Long: `Calibrate against a reference solution.

pH circuits take the buffer value and a --point of mid, low or high; the mid
point clears the existing calibration and must be set first. ORP circuits take
an integer millivolt value, RTD circuits a temperature in the current scale.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withProbe(cmd, func(ctx context.Context, p probe) error {
				return calibrate(ctx, p, args[0], point)
			})
		},
	}
	cmd.Flags().StringVar(&point, "point", ph.Mid.String(), "pH calibration point: mid, low or high")

	return cmd
}

func calibrate(ctx context.Context, p probe, value string, point string) error {
	switch p := p.(type) {
	case *ph.Probe:
		cp, err := ph.ParseCalPoint(point)
		if err != nil {
			return err
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid pH value %q: %w", value, err)
		}

		return p.Calibrate(ctx, cp, v)
	case *orp.Probe:
		mv, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid millivolt value %q: %w", value, err)
		}

		return p.Calibrate(ctx, mv)
	case *rtd.Probe:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid temperature %q: %w", value, err)
		}

		return p.Calibrate(ctx, v)
	default:
		return fmt.Errorf("%w: unknown probe %T", ezo.ErrUnsupportedOperation, p)
	}
}

func newCalExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the calibration data to a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withProbe(cmd, func(ctx context.Context, p probe) error {
				info, err := p.Info(ctx)
				if err != nil {
					return err
				}
				blob, err := p.ExportCalibration(ctx)
				if err != nil {
					return err
				}
				a.logger.Info("calibration exported", "rows", blob.Len(), "bytes", blob.TotalBytes())

				f := &CalibrationFile{
					Kind:       strings.ToLower(a.cfg.Device.Kind),
					Firmware:   info.FirmwareVersion,
					ExportedAt: time.Now().UTC().Truncate(time.Second),
					Rows:       blob.Strings(),
				}
				if output == "" || output == "-" {
					return WriteCalibrationFile(cmd.OutOrStdout(), f)
				}

				return writeFile(output, f)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")

	return cmd
}

func writeFile(path string, f *CalibrationFile) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	return WriteCalibrationFile(file, f)
}

func newCalImportCmd(a *app) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Upload calibration data from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := os.Open(input)
			if err != nil {
				return err
			}
			f, err := ReadCalibrationFile(file)
			_ = file.Close()
			if err != nil {
				return err
			}
			if !strings.EqualFold(f.Kind, a.cfg.Device.Kind) {
				return fmt.Errorf("calibration file is for a %s circuit, not %s", f.Kind, a.cfg.Device.Kind)
			}

			return a.withProbe(cmd, func(ctx context.Context, p probe) error {
				blob := ezo.ParseCalibrationBlob(f.Rows)
				if err := p.ImportCalibration(ctx, blob); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d calibration rows\n", blob.Len())

				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Calibration file to import")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
