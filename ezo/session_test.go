package ezo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-ezo/logger"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	require := require.New(t)

	cfg, err := NewSessionConfig()
	require.NoError(err)

	_, err = NewSession(nil, cfg)
	require.ErrorIs(err, ErrTransportNil)

	_, err = NewSession(&scriptedTransport{}, nil)
	require.ErrorIs(err, ErrSessionConfigNil)
}

func TestSessionConfig(t *testing.T) {
	require := require.New(t)

	cfg, err := NewSessionConfig()
	require.NoError(err)
	require.Equal(0, cfg.Address())
	require.Equal(DefaultFrameSize, cfg.FrameSize())
	require.NotNil(cfg.GetLogger())

	cfg, err = NewSessionConfig(WithAddress(0x63), WithFrameSize(32))
	require.NoError(err)
	require.Equal(0x63, cfg.Address())
	require.Equal(32, cfg.FrameSize())

	_, err = NewSessionConfig(WithAddress(0))
	require.ErrorIs(err, ErrOutOfRange)
	_, err = NewSessionConfig(WithFrameSize(1))
	require.ErrorIs(err, ErrOutOfRange)
	_, err = NewSessionConfig(WithFrameSize(MaxFrameSize + 1))
	require.ErrorIs(err, ErrOutOfRange)
	_, err = NewSessionConfig(WithSleeper(nil))
	require.Error(err)
	_, err = NewSessionConfig(WithLogger(nil))
	require.Error(err)
}

func TestSession_Issue(t *testing.T) {
	require := require.New(t)

	s, tr, rec := newTestSession(t)
	tr.queue(frame(StatusSuccess, "?L,1"))

	resp, err := s.Issue(context.Background(), "L,?", ProcessingDelay, FormatDataWithCommand)
	require.NoError(err)
	require.Equal("?L", resp.Command)
	require.Equal([]string{"1"}, resp.Data)
	require.Equal([]string{"L,?"}, tr.written())
	require.Equal([]time.Duration{ProcessingDelay}, rec.recorded())

	m := s.GetMetrics()
	require.Equal(uint64(1), m.CommandCount.Load())
	require.Equal(uint64(1), m.ResponseCount.Load())
	require.Equal(uint64(0), m.RejectedCount.Load())
	require.Equal(int32(0), m.InflightGauge.Load())
}

func TestSession_IssueRejected(t *testing.T) {
	require := require.New(t)

	statuses := []ResponseStatus{StatusSyntaxError, StatusStillProcessing, StatusNoDataToSend, StatusUnknown}
	for _, st := range statuses {
		s, tr, _ := newTestSession(t)
		tr.queue(frame(st, ""))

		_, err := s.Issue(context.Background(), "R", 900*time.Millisecond, FormatData)
		require.ErrorIs(err, ErrDeviceRejected)

		got, ok := RejectedStatus(err)
		require.True(ok)
		require.Equal(st, got)

		var rejected *RejectedError
		require.True(errors.As(err, &rejected))
		require.Equal("R", rejected.Command)

		// no retry, no re-send
		require.Len(tr.written(), 1)
		require.Equal(uint64(1), s.GetMetrics().RejectedCount.Load())
	}

	_, ok := RejectedStatus(errors.New("other"))
	require.False(ok)
}

func TestSession_IssueInvalidCommandNoIO(t *testing.T) {
	require := require.New(t)

	tr := &mockTransport{}
	cfg, err := NewSessionConfig(WithSleeper(func(context.Context, time.Duration) error { return nil }))
	require.NoError(err)
	s, err := NewSession(tr, cfg)
	require.NoError(err)

	_, err = s.Issue(context.Background(), "", ProcessingDelay, FormatAck)
	require.ErrorIs(err, ErrInvalidCommand)

	err = s.Send(context.Background(), string(make([]byte, 41)), ProcessingDelay)
	require.ErrorIs(err, ErrInvalidCommand)

	tr.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
	tr.AssertNotCalled(t, "Read", mock.Anything, mock.Anything)
}

func TestSession_TransportErrors(t *testing.T) {
	require := require.New(t)

	errBus := errors.New("bus error")

	tr := &mockTransport{}
	tr.On("Write", mock.Anything, []byte("R")).Return(errBus).Once()
	cfg, err := NewSessionConfig(WithSleeper(func(context.Context, time.Duration) error { return nil }))
	require.NoError(err)
	s, err := NewSession(tr, cfg)
	require.NoError(err)

	_, err = s.Issue(context.Background(), "R", ProcessingDelay, FormatData)
	require.ErrorIs(err, errBus)
	tr.AssertNotCalled(t, "Read", mock.Anything, mock.Anything)

	tr.On("Write", mock.Anything, []byte("R")).Return(nil).Once()
	tr.On("Read", mock.Anything, mock.MatchedBy(func(p []byte) bool { return len(p) == DefaultFrameSize })).Return(errBus).Once()

	_, err = s.Issue(context.Background(), "R", ProcessingDelay, FormatData)
	require.ErrorIs(err, errBus)
	require.Equal(uint64(2), s.GetMetrics().TransportErrCount.Load())
	tr.AssertExpectations(t)
}

func TestSession_DecodeError(t *testing.T) {
	require := require.New(t)

	s, tr, _ := newTestSession(t)
	tr.queue(frame(ResponseStatus(0x42), "x"))

	_, err := s.Issue(context.Background(), "R", ProcessingDelay, FormatData)
	require.ErrorIs(err, ErrUnrecognizedStatus)
	require.Equal(uint64(1), s.GetMetrics().DecodeErrCount.Load())
}

func TestSession_Send(t *testing.T) {
	require := require.New(t)

	s, tr, rec := newTestSession(t)

	require.NoError(s.Send(context.Background(), "Sleep", ProcessingDelay))
	require.Equal([]string{"Sleep"}, tr.written())
	require.Equal([]time.Duration{ProcessingDelay}, rec.recorded())
	require.Equal(uint64(0), s.GetMetrics().ResponseCount.Load())
}

func TestSession_CancelledBeforeRead(t *testing.T) {
	require := require.New(t)

	s, tr, _ := newTestSession(t)
	tr.queue(frame(StatusSuccess, "7.00"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Issue(ctx, "R", ProcessingDelay, FormatData)
	require.ErrorIs(err, context.Canceled)
	require.Len(tr.frames, 1, "frame must not be read after a cancelled settle")
}

func TestSession_WaitsFullDelay(t *testing.T) {
	require := require.New(t)

	tr := &scriptedTransport{}
	tr.queue(frame(StatusSuccess, "1"))
	cfg, err := NewSessionConfig()
	require.NoError(err)
	s, err := NewSession(tr, cfg)
	require.NoError(err)

	begin := time.Now()
	_, err = s.Issue(context.Background(), "R", 30*time.Millisecond, FormatData)
	require.NoError(err)
	require.GreaterOrEqual(time.Since(begin), 30*time.Millisecond)
	require.GreaterOrEqual(s.GetMetrics().SettleTime(), 30*time.Millisecond)
}

// echoTransport answers each read with the last written command.
type echoTransport struct {
	mu   sync.Mutex
	last []byte
}

func (e *echoTransport) Write(_ context.Context, p []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last = append([]byte(nil), p...)

	return nil
}

func (e *echoTransport) Read(_ context.Context, p []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(p)
	p[0] = byte(StatusSuccess)
	copy(p[1:], e.last)

	return nil
}

func (e *echoTransport) Close() error { return nil }

func TestSession_SerializesCommands(t *testing.T) {
	require := require.New(t)

	cfg, err := NewSessionConfig(WithSleeper(func(ctx context.Context, _ time.Duration) error {
		time.Sleep(time.Millisecond)
		return ctx.Err()
	}))
	require.NoError(err)
	s, err := NewSession(&echoTransport{}, cfg)
	require.NoError(err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd := fmt.Sprintf("cmd%d", i)
			resp, err := s.Issue(context.Background(), cmd, time.Millisecond, FormatUnformatted)
			if err != nil {
				errs <- err
				return
			}
			if resp.Data[0] != cmd {
				errs <- fmt.Errorf("got %q for %q", resp.Data[0], cmd)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(err)
	}
}

func TestSession_Exclusive(t *testing.T) {
	require := require.New(t)

	s, tr, _ := newTestSession(t)
	tr.queue(frame(StatusSuccess, "?Export,2,10"))

	err := s.Exclusive(func(c Commander) error {
		resp, err := c.Issue(context.Background(), "Export,?", ProcessingDelay, FormatDataWithCommand)
		if err != nil {
			return err
		}
		require.Equal("?Export", resp.Command)
		require.Equal([]string{"2", "10"}, resp.Data)

		return c.Send(context.Background(), "Import, abc", ProcessingDelay)
	})
	require.NoError(err)
	require.Equal([]string{"Export,?", "Import, abc"}, tr.written())

	errStop := errors.New("stop")
	require.ErrorIs(s.Exclusive(func(Commander) error { return errStop }), errStop)
}

func TestSession_Close(t *testing.T) {
	require := require.New(t)

	l := logger.NewMockLogger()
	l.AllowAll()

	s, tr, _ := newTestSession(t, WithLogger(l), WithAddress(0x66))
	require.False(s.IsClosed())
	require.NoError(s.Close())
	require.NoError(s.Close())
	require.True(s.IsClosed())
	require.Equal(1, tr.closed)

	_, err := s.Issue(context.Background(), "R", ProcessingDelay, FormatData)
	require.ErrorIs(err, ErrSessionClosed)
	require.ErrorIs(s.Send(context.Background(), "Sleep", 0), ErrSessionClosed)
	require.Empty(tr.written())
}
