// SPDX-License-Identifier: MIT
/*
Package sink delivers pitch estimates to their consumers.

A Sink receives one Record per analysis window from the dispatch goroutine.
Writers that may block, such as a pipe, should be wrapped in an Async sink
so the dispatcher is not held up.
*/
package sink

import (
	"errors"
	"fmt"

	"pitchtrack/internal/dispatch"
	"pitchtrack/internal/pitch"
)

var ErrClosed = errors.New("sink: closed")

// MinLevel is reported for digital silence, whose level is -Inf dB.
const MinLevel = -160.0

// Sink defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Sink interface {
	Send(data any) error
	Close() error
}

// Record is the per-window result handed to sinks.
type Record struct {
	Time         float64 `json:"time"`                    // Seconds of audio consumed before the window was read.
	Frequency    float32 `json:"frequency"`               // Hz, -1 when unpitched.
	Probability  float32 `json:"probability"`             // Detector confidence.
	Pitched      bool    `json:"pitched"`                 // Whether Frequency is usable.
	Level        float64 `json:"level_db"`                // Sound pressure level of the window.
	SpectralPeak float64 `json:"spectral_peak,omitempty"` // Strongest spectrum bin in Hz.
}

// NewRecord builds a record from an estimate and the event it came from.
func NewRecord(est pitch.Estimate, e *dispatch.Event) Record {
	return Record{
		Time:        e.TimeStamp(),
		Frequency:   est.Frequency,
		Probability: est.Probability,
		Pitched:     est.Pitched,
		Level:       max(e.DBSPL(), MinLevel),
	}
}

func (r Record) String() string {
	if !r.Pitched {
		return fmt.Sprintf("%8.3fs  %10s  p=%.2f  %6.1f dB", r.Time, "-", r.Probability, r.Level)
	}
	return fmt.Sprintf("%8.3fs  %7.2f Hz  p=%.2f  %6.1f dB", r.Time, r.Frequency, r.Probability, r.Level)
}

// Handler returns a pitch handler that sends every estimate to s. When
// pitchedOnly is set, unpitched windows are skipped. peak, if not nil,
// supplies the spectral peak of the current window. Send errors cannot stop
// the dispatcher and are only logged.
func Handler(s Sink, pitchedOnly bool, peak func() float64) pitch.Handler {
	return func(est pitch.Estimate, e *dispatch.Event) {
		if pitchedOnly && !est.Pitched {
			return
		}
		rec := NewRecord(est, e)
		if peak != nil {
			rec.SpectralPeak = peak()
		}
		if err := s.Send(rec); err != nil {
			logger.Debugf("record at %.3fs not delivered: %v", rec.Time, err)
		}
	}
}
