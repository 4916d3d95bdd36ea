package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/sirupsen/logrus"
)

// logrusAdapter routes watermill logs to logrus.
type logrusAdapter struct {
	log logrus.FieldLogger
}

// NewLoggerAdapter wraps a logrus logger for watermill components.
func NewLoggerAdapter(log logrus.FieldLogger) watermill.LoggerAdapter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return logrusAdapter{log: log}
}

func (a logrusAdapter) entry(fields watermill.LogFields) logrus.FieldLogger {
	if len(fields) == 0 {
		return a.log
	}
	return a.log.WithFields(logrus.Fields(fields))
}

func (a logrusAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.entry(fields).WithError(err).Error(msg)
}

func (a logrusAdapter) Info(msg string, fields watermill.LogFields) {
	a.entry(fields).Info(msg)
}

func (a logrusAdapter) Debug(msg string, fields watermill.LogFields) {
	a.entry(fields).Debug(msg)
}

// Trace is mapped to debug; watermill traces every message.
func (a logrusAdapter) Trace(msg string, fields watermill.LogFields) {
	a.entry(fields).Debug(msg)
}

func (a logrusAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return logrusAdapter{log: a.entry(fields)}
}
