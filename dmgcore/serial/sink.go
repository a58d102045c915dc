// Package serial implements the SB/SC serial port capture hook used to
// observe test-ROM output (Blargg/Mooneye write their pass/fail text over
// the link cable one byte at a time).
package serial

import (
	"log/slog"

	"github.com/dmgkit/dmgcore/addr"
)

// Sink models the SB/SC registers and captures completed transfers into an
// append-only buffer instead of driving a real link cable.
type Sink struct {
	sb, sc byte
	buffer []byte
	logger *slog.Logger // optional; nil means no tracing
}

// SinkOption configures a Sink at construction time.
type SinkOption func(*Sink)

// WithLogger enables slog.Debug tracing of captured bytes.
func WithLogger(logger *slog.Logger) SinkOption {
	return func(s *Sink) { s.logger = logger }
}

// New creates a serial sink with an empty capture buffer.
func New(opts ...SinkOption) *Sink {
	s := &Sink{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the current SB or SC byte.
func (s *Sink) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return s.sb
	case addr.SC:
		return s.sc
	default:
		panic("serial.Sink: invalid read address")
	}
}

// Write stores a write to SB or SC, completing a transfer (and capturing the
// SB byte) when SC is written with both the start and internal-clock bits set.
func (s *Sink) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.sb = value
	case addr.SC:
		s.sc = value
		if value&0x81 == 0x81 {
			s.buffer = append(s.buffer, s.sb)
			s.sc = value &^ 0x80 // clear the start bit to mark completion
			if s.logger != nil {
				s.logger.Debug("serial byte captured", "byte", s.sb)
			}
		}
	default:
		panic("serial.Sink: invalid write address")
	}
}

// Output returns the captured bytes without draining the buffer.
func (s *Sink) Output() []byte {
	return s.buffer
}

// Take returns the captured bytes and clears the buffer.
func (s *Sink) Take() []byte {
	out := s.buffer
	s.buffer = nil
	return out
}
