// SPDX-License-Identifier: MIT
/*
Package tracker assembles a pitch tracking pipeline from a configuration.

The processor chain of a Tracker runs, in order:

	reconfigure -> [silence gate] -> [filters...] -> [spectrum] -> pitch

Windows stopped by the gate produce no record. Configuration changes handed
to Reconfigure are applied by the first stage on the dispatch goroutine, so
processors never see concurrent updates.
*/
package tracker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"pitchtrack/internal/analysis"
	"pitchtrack/internal/config"
	"pitchtrack/internal/dispatch"
	"pitchtrack/internal/fft"
	"pitchtrack/internal/filter"
	"pitchtrack/internal/log"
	"pitchtrack/internal/pitch"
	"pitchtrack/internal/sink"
	"pitchtrack/pkg/bitint"
)

var logger = log.Named("Tracker")

// Tracker owns a dispatcher and the processors built for it.
type Tracker struct {
	dispatcher *dispatch.Dispatcher
	detector   pitch.Detector
	gate       *dispatch.SilenceDetector
	filters    []*filter.IIR
	filterCfg  []config.FilterConfig
	spectrum   *analysis.SpectrumProcessor
	sink       sink.Sink

	pending atomic.Pointer[config.Config]
}

// New builds the pipeline for src. Estimates go to out, which the Tracker
// closes when it is closed.
func New(cfg *config.Config, src dispatch.Source, out sink.Sink) (*Tracker, error) {
	format := src.Format()
	rate := format.SampleRate
	dc := cfg.Dispatch

	t := &Tracker{sink: out}

	d, err := dispatch.New(src, dc.WindowSize, dc.Overlap,
		dispatch.WithZeroPadFirst(dc.ZeroPadFirst),
		dispatch.WithZeroPadLast(dc.ZeroPadLast))
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	t.dispatcher = d

	if dc.Skip > 0 {
		if err := d.Skip(dc.Skip.Seconds()); err != nil {
			return nil, fmt.Errorf("tracker: %w", err)
		}
	}

	alg, err := pitch.ParseAlgorithm(cfg.Pitch.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	t.detector, err = pitch.New(alg, rate, dc.WindowSize,
		pitch.WithThreshold(cfg.Pitch.Threshold),
		pitch.WithCutoff(cfg.Pitch.Cutoff),
		pitch.WithLowerBound(cfg.Pitch.LowerBound))
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}

	if cfg.Gate.Enabled {
		t.gate = dispatch.NewSilenceDetector(cfg.Gate.Threshold)
	}

	for i, fc := range cfg.Filters {
		f, err := newFilter(fc, rate)
		if err != nil {
			return nil, fmt.Errorf("tracker: filters[%d]: %w", i, err)
		}
		t.filters = append(t.filters, f)
		t.filterCfg = append(t.filterCfg, fc)
	}

	var peak func() float64
	if cfg.Spectrum.Enabled {
		window, err := fft.ParseWindow(cfg.Spectrum.Window)
		if err != nil {
			return nil, fmt.Errorf("tracker: %w", err)
		}
		size := bitint.NextPowerOfTwo(dc.WindowSize)
		t.spectrum, err = analysis.NewSpectrumProcessor(size, float64(rate), cfg.Spectrum.MinFrequency, window)
		if err != nil {
			return nil, fmt.Errorf("tracker: %w", err)
		}
		peak = t.spectrum.DominantFrequency
	}

	d.AddProcessor(reconfigurer{t})
	if t.gate != nil {
		d.AddProcessor(t.gate)
	}
	for _, f := range t.filters {
		d.AddProcessor(f)
	}
	if t.spectrum != nil {
		d.AddProcessor(t.spectrum)
	}
	d.AddProcessor(pitch.NewProcessor(t.detector, sink.Handler(out, cfg.Pitch.PitchedOnly, peak)))

	logger.Infof("%s, %s, window %d, overlap %d, %d filters, gate %v",
		format, alg, dc.WindowSize, dc.Overlap, len(t.filters), t.gate != nil)
	return t, nil
}

func newFilter(fc config.FilterConfig, sampleRate float32) (*filter.IIR, error) {
	freq := float32(fc.Frequency)
	if freq <= 0 || freq >= sampleRate/2 {
		return nil, fmt.Errorf("frequency %g Hz outside (0, %g)", fc.Frequency, sampleRate/2)
	}
	switch strings.ToLower(fc.Type) {
	case config.FilterLowPassSP:
		return filter.NewLowPassSP(freq, sampleRate), nil
	case config.FilterLowPassFS:
		return filter.NewLowPassFS(freq, sampleRate), nil
	case config.FilterHighPass:
		return filter.NewHighPass(freq, sampleRate), nil
	default:
		return nil, fmt.Errorf("unknown filter type %q", fc.Type)
	}
}

// Run processes the source until it ends or ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	return t.dispatcher.Run(ctx)
}

// Stop ends processing after the current window.
func (t *Tracker) Stop() { t.dispatcher.Stop() }

// Dispatcher exposes the underlying dispatcher.
func (t *Tracker) Dispatcher() *dispatch.Dispatcher { return t.dispatcher }

// Gate returns the silence gate, or nil when it is disabled.
func (t *Tracker) Gate() *dispatch.SilenceDetector { return t.gate }

// Filters returns the filters in chain order.
func (t *Tracker) Filters() []*filter.IIR { return t.filters }

// Reconfigure queues cfg to be applied before the next window. Only the
// settings that can change without rebuilding the chain take effect: the
// gate threshold and the cut-off of filters whose type is unchanged.
func (t *Tracker) Reconfigure(cfg *config.Config) {
	t.pending.Store(cfg)
}

func (t *Tracker) apply(cfg *config.Config) {
	if t.gate != nil && cfg.Gate.Threshold != t.gate.Threshold() {
		logger.Infof("gate threshold %.1f -> %.1f dB", t.gate.Threshold(), cfg.Gate.Threshold)
		t.gate.SetThreshold(cfg.Gate.Threshold)
	}
	if len(cfg.Filters) != len(t.filters) {
		logger.Warnf("filter count changed from %d to %d, restart to apply", len(t.filters), len(cfg.Filters))
		return
	}
	nyquist := t.dispatcher.Format().SampleRate / 2
	for i, f := range t.filters {
		next := cfg.Filters[i]
		switch {
		case !strings.EqualFold(next.Type, t.filterCfg[i].Type):
			logger.Warnf("filters[%d] type changed to %s, restart to apply", i, next.Type)
			continue
		case next.Frequency == t.filterCfg[i].Frequency:
			continue
		case float32(next.Frequency) >= nyquist:
			logger.Warnf("filters[%d] frequency %g Hz is above %g Hz, ignored", i, next.Frequency, nyquist)
			continue
		}
		before := f.String()
		f.SetFrequency(float32(next.Frequency))
		t.filterCfg[i] = next
		logger.Infof("%s -> %s", before, f)
	}
}

// Close closes the sink. The dispatcher closes the source itself.
func (t *Tracker) Close() error {
	return t.sink.Close()
}

// reconfigurer applies pending configuration at the head of the chain.
type reconfigurer struct{ t *Tracker }

func (r reconfigurer) Process(*dispatch.Event) bool {
	if cfg := r.t.pending.Swap(nil); cfg != nil {
		r.t.apply(cfg)
	}
	return true
}

func (reconfigurer) ProcessingFinished() {}

// OpenSink builds the sink selected by cfg, writing to w for text and JSON
// output. It is wrapped in an Async sink so slow consumers never stall the
// dispatcher.
func OpenSink(cfg config.OutputConfig, w io.Writer) (*sink.Async, error) {
	var s sink.Sink
	switch cfg.Format {
	case config.OutputText:
		s = sink.NewTextSink(w)
	case config.OutputJSON:
		s = sink.NewJSONSink(w)
	case config.OutputLog:
		s = sink.NewLoggingSink()
	default:
		return nil, fmt.Errorf("tracker: unknown output format %q", cfg.Format)
	}
	return sink.NewAsync(s, cfg.QueueDepth), nil
}
