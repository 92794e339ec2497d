package ezo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errNoFrame = errors.New("no scripted frame")

// scriptedTransport records written commands and answers reads with queued frames.
type scriptedTransport struct {
	mu       sync.Mutex
	writes   []string
	frames   [][]byte
	writeErr error
	failAt   int // 1-based write index that fails with writeErr, 0 means every write
	closed   int
}

func (s *scriptedTransport) queue(frames ...[]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frames...)
}

func (s *scriptedTransport) Write(_ context.Context, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil && (s.failAt == 0 || s.failAt == len(s.writes)+1) {
		s.writes = append(s.writes, string(p))
		return s.writeErr
	}
	s.writes = append(s.writes, string(p))

	return nil
}

func (s *scriptedTransport) Read(_ context.Context, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return errNoFrame
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	clear(p)
	copy(p, f)

	return nil
}

func (s *scriptedTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++

	return nil
}

func (s *scriptedTransport) written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.writes...)
}

// mockTransport is a testify mock of Transport.
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Write(ctx context.Context, p []byte) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockTransport) Read(ctx context.Context, p []byte) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockTransport) Close() error {
	return m.Called().Error(0)
}

// delayRecorder is a Sleeper that records requested delays without waiting.
type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *delayRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()

	return ctx.Err()
}

func (r *delayRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]time.Duration(nil), r.delays...)
}

// frame builds a response frame of DefaultFrameSize bytes.
func frame(status ResponseStatus, payload string) []byte {
	f := make([]byte, DefaultFrameSize)
	f[0] = byte(status)
	copy(f[1:], payload)

	return f
}

// newTestSession creates a session over a scripted transport with a
// non-waiting sleeper.
func newTestSession(t *testing.T, opts ...SessionOption) (*Session, *scriptedTransport, *delayRecorder) {
	t.Helper()

	tr := &scriptedTransport{}
	rec := &delayRecorder{}

	cfg, err := NewSessionConfig(append([]SessionOption{WithSleeper(rec.sleep)}, opts...)...)
	require.NoError(t, err)

	s, err := NewSession(tr, cfg)
	require.NoError(t, err)

	return s, tr, rec
}
