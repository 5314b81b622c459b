// SPDX-License-Identifier: MIT
package dispatch

// Processor is a step in the dispatcher's chain. Implementations should be
// efficient as Process runs once per analysis window on the dispatch
// goroutine.
type Processor interface {
	// Process handles one window. Returning false skips the remaining
	// processors for this window only.
	Process(e *Event) bool

	// ProcessingFinished is called exactly once when the stream ends, fails
	// or is stopped.
	ProcessingFinished()
}
