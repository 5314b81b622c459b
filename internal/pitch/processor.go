// SPDX-License-Identifier: MIT
package pitch

import "pitchtrack/internal/dispatch"

// Handler receives one estimate per analysis window, on the dispatch
// goroutine. The event is only valid during the call.
type Handler func(Estimate, *dispatch.Event)

// Processor runs a Detector on every window of a dispatcher.
type Processor struct {
	detector Detector
	handler  Handler
}

// NewProcessor wraps detector as a dispatch.Processor.
func NewProcessor(detector Detector, handler Handler) *Processor {
	return &Processor{detector: detector, handler: handler}
}

func (p *Processor) Process(e *dispatch.Event) bool {
	est := p.detector.GetPitch(e.Buffer())
	if p.handler != nil {
		p.handler(est, e)
	}
	return true
}

func (p *Processor) ProcessingFinished() {}
