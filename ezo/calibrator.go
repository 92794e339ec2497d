package ezo

import "context"

// Calibratable is implemented by probes that store calibration data.
type Calibratable interface {
	ClearCalibration(ctx context.Context) error
	CalibrationPoints(ctx context.Context) (int, error)
	ExportCalibration(ctx context.Context) (CalibrationBlob, error)
	ImportCalibration(ctx context.Context, blob CalibrationBlob) error
}

// Calibrator implements the calibration commands common to all probes.
// Setting a calibration point is probe specific and lives in the probe
// packages.
type Calibrator struct {
	session  *Session
	transfer *CalibrationTransfer
}

var _ Calibratable = (*Calibrator)(nil)

// NewCalibrator creates a Calibrator for session. opts configure the
// underlying CalibrationTransfer.
func NewCalibrator(session *Session, opts ...TransferOption) (*Calibrator, error) {
	transfer, err := NewCalibrationTransfer(session, opts...)
	if err != nil {
		return nil, err
	}

	return &Calibrator{session: session, transfer: transfer}, nil
}

// ClearCalibration deletes all calibration points.
func (c *Calibrator) ClearCalibration(ctx context.Context) error {
	return ReadAck(ctx, c.session, "Cal,clear", ProcessingDelay)
}

// CalibrationPoints returns the number of stored calibration points.
func (c *Calibrator) CalibrationPoints(ctx context.Context) (int, error) {
	return ReadInt(ctx, c.session, "Cal,?", ProcessingDelay, FormatDataWithCommand)
}

// ExportCalibration downloads the calibration rows.
func (c *Calibrator) ExportCalibration(ctx context.Context) (CalibrationBlob, error) {
	return c.transfer.Export(ctx)
}

// ImportCalibration uploads calibration rows previously exported.
func (c *Calibrator) ImportCalibration(ctx context.Context, blob CalibrationBlob) error {
	return c.transfer.Import(ctx, blob)
}
