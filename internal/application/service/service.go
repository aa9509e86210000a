// Package service holds the use cases of the audit pipeline: ingesting pasted
// closings, registering envelope counts, reviewing evidence and reporting.
package service

import "errors"

var (
	// ErrEmptyText is returned when an ingest carries no text
	ErrEmptyText = errors.New("empty text")

	// ErrNotFound is returned when a closing does not exist
	ErrNotFound = errors.New("closing not found")

	// ErrInvalidCount is returned for a negative envelope count
	ErrInvalidCount = errors.New("invalid envelope count")
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
