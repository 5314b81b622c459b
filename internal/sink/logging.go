// SPDX-License-Identifier: MIT
package sink

import "pitchtrack/internal/log"

var logger = log.Named("Sink")

// LoggingSink writes records to the application log at info level.
type LoggingSink struct{}

func NewLoggingSink() *LoggingSink {
	logger.Debugf("Using LoggingSink")
	return &LoggingSink{}
}

func (LoggingSink) Send(data any) error {
	log.Infof("%v", data)
	return nil
}

func (LoggingSink) Close() error { return nil }

var _ Sink = (*LoggingSink)(nil)
