package ezo

import (
	"sync/atomic"
	"time"
)

// SessionMetrics contains atomic metrics for a Session.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type SessionMetrics struct {
	// CommandCount indicates the number of commands written to the transport.
	CommandCount atomic.Uint64
	// ResponseCount indicates the number of response frames decoded.
	ResponseCount atomic.Uint64
	// RejectedCount indicates the number of responses with a non-success status.
	RejectedCount atomic.Uint64
	// DecodeErrCount indicates the number of frames that failed to decode.
	DecodeErrCount atomic.Uint64
	// TransportErrCount indicates the number of failed transport reads and writes.
	TransportErrCount atomic.Uint64
	// SettleNanos accumulates the time spent in settle delays.
	SettleNanos atomic.Int64
	// InflightGauge is 1 while a command is being processed.
	InflightGauge atomic.Int32
}

func (m *SessionMetrics) incCommandCount() {
	m.CommandCount.Add(1)
}

func (m *SessionMetrics) incResponseCount() {
	m.ResponseCount.Add(1)
}

func (m *SessionMetrics) incRejectedCount() {
	m.RejectedCount.Add(1)
}

func (m *SessionMetrics) incDecodeErrCount() {
	m.DecodeErrCount.Add(1)
}

func (m *SessionMetrics) incTransportErrCount() {
	m.TransportErrCount.Add(1)
}

func (m *SessionMetrics) addSettle(d time.Duration) {
	m.SettleNanos.Add(int64(d))
}

// SettleTime returns the accumulated settle time.
func (m *SessionMetrics) SettleTime() time.Duration {
	return time.Duration(m.SettleNanos.Load())
}
