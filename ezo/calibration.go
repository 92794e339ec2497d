package ezo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/go-ezo/internal/util"
	"github.com/arloliu/go-ezo/logger"
)

// ExportDoneSentinel is the payload a device answers with when it is asked
// for one more export row than it announced.
const ExportDoneSentinel = "*DONE"

const (
	exportInfoCommand = "Export,?"
	exportRowCommand  = "Export"
	importPrefix      = "Import, "
)

// CalibrationBlob is an opaque, ordered set of calibration rows exported from
// a device. Rows are re-imported in the same order.
type CalibrationBlob [][]byte

// ParseCalibrationBlob builds a blob from textual rows, e.g. rows loaded from
// a file written with Strings.
func ParseCalibrationBlob(rows []string) CalibrationBlob {
	blob := make(CalibrationBlob, len(rows))
	for i, row := range rows {
		blob[i] = []byte(row)
	}

	return blob
}

// Len returns the number of rows.
func (b CalibrationBlob) Len() int { return len(b) }

// TotalBytes returns the sum of all row lengths.
func (b CalibrationBlob) TotalBytes() int {
	total := 0
	for _, row := range b {
		total += len(row)
	}

	return total
}

// Clone returns a deep copy of b.
func (b CalibrationBlob) Clone() CalibrationBlob {
	return CalibrationBlob(util.CloneRows(b))
}

// Strings returns the rows as strings.
func (b CalibrationBlob) Strings() []string {
	rows := make([]string, len(b))
	for i, row := range b {
		rows[i] = string(row)
	}

	return rows
}

// CalibrationTransfer moves calibration data off and onto a device.
//
// Each transfer holds the session exclusively from the first command to the
// last, so no other command can be interleaved with the row sequence.
type CalibrationTransfer struct {
	session     *Session
	delay       time.Duration
	requireDone bool
	logger      logger.Logger
}

// TransferOption is a functional option for configuring a CalibrationTransfer.
type TransferOption interface {
	apply(*CalibrationTransfer) error
}

type transferOptFunc func(*CalibrationTransfer) error

func (f transferOptFunc) apply(t *CalibrationTransfer) error { return f(t) }

// WithDoneSentinel makes Export issue one more "Export" after the last row and
// require the "*DONE" sentinel in its response.
func WithDoneSentinel(require bool) TransferOption {
	return transferOptFunc(func(t *CalibrationTransfer) error {
		t.requireDone = require
		return nil
	})
}

// WithTransferDelay sets the settle delay of every transfer command.
// Defaults to ProcessingDelay.
func WithTransferDelay(d time.Duration) TransferOption {
	return transferOptFunc(func(t *CalibrationTransfer) error {
		if d < 0 {
			return fmt.Errorf("%w: transfer delay %v", ErrOutOfRange, d)
		}
		t.delay = d

		return nil
	})
}

// NewCalibrationTransfer creates a transfer bound to session.
func NewCalibrationTransfer(session *Session, opts ...TransferOption) (*CalibrationTransfer, error) {
	if session == nil {
		return nil, errors.New("ezo: session is nil")
	}

	t := &CalibrationTransfer{
		session: session,
		delay:   ProcessingDelay,
		logger:  session.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(t); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Export downloads the calibration rows of the device.
//
// The device first announces the row count and the total byte count, then
// yields one row per "Export" command. The rows must add up to exactly the
// announced byte count, otherwise ErrTransferMismatch is returned. Any
// failure discards the partial result.
func (t *CalibrationTransfer) Export(ctx context.Context) (CalibrationBlob, error) {
	var blob CalibrationBlob

	err := t.session.Exclusive(func(c Commander) error {
		fields, err := ReadFields(ctx, c, exportInfoCommand, t.delay, FormatDataWithCommand, 2)
		if err != nil {
			return err
		}

		rowCount, err := ParseIntField(exportInfoCommand, fields[0])
		if err != nil {
			return err
		}
		remaining, err := ParseIntField(exportInfoCommand, fields[1])
		if err != nil {
			return err
		}
		if rowCount < 0 || remaining < 0 {
			return malformed(exportInfoCommand, "negative counts %d,%d", rowCount, remaining)
		}

		t.logger.Debug("ezo: export calibration", "rows", rowCount, "bytes", remaining)

		rows := make(CalibrationBlob, 0, rowCount)
		for i := 0; i < rowCount; i++ {
			resp, err := c.Issue(ctx, exportRowCommand, t.delay, FormatUnformatted)
			if err != nil {
				return fmt.Errorf("ezo: export row %d of %d: %w", i+1, rowCount, err)
			}
			rows = append(rows, resp.Payload)
			remaining -= len(resp.Payload)
		}

		if remaining != 0 {
			return fmt.Errorf("%w: %d bytes left after %d rows", ErrTransferMismatch, remaining, rowCount)
		}

		if t.requireDone {
			if err := t.confirmDone(ctx, c); err != nil {
				return err
			}
		}

		blob = rows

		return nil
	})
	if err != nil {
		return nil, err
	}

	return blob, nil
}

func (t *CalibrationTransfer) confirmDone(ctx context.Context, c Commander) error {
	resp, err := c.Issue(ctx, exportRowCommand, t.delay, FormatData)
	if err != nil {
		if errors.Is(err, ErrDeviceRejected) {
			return fmt.Errorf("%w: %w", ErrTransferIncomplete, err)
		}

		return err
	}

	if len(resp.Data) < 1 || !strings.EqualFold(resp.Data[0], ExportDoneSentinel) {
		return fmt.Errorf("%w: got %q instead of %s", ErrTransferIncomplete, resp.Payload, ExportDoneSentinel)
	}

	return nil
}

// Import uploads rows to the device in order.
//
// Every row is validated before the first write, so a row that cannot be
// encoded aborts the import without touching the device. Rows are sent
// without reading a response; a failed write stops the remaining rows.
func (t *CalibrationTransfer) Import(ctx context.Context, blob CalibrationBlob) error {
	cmds := make([]string, len(blob))
	for i, row := range blob {
		cmd := importPrefix + string(row)
		if _, err := EncodeCommand(cmd); err != nil {
			return fmt.Errorf("ezo: import row %d of %d: %w", i+1, len(blob), err)
		}
		cmds[i] = cmd
	}

	t.logger.Debug("ezo: import calibration", "rows", len(cmds))

	return t.session.Exclusive(func(c Commander) error {
		for i, cmd := range cmds {
			if err := c.Send(ctx, cmd, t.delay); err != nil {
				return fmt.Errorf("ezo: import row %d of %d: %w", i+1, len(cmds), err)
			}
		}

		return nil
	})
}
