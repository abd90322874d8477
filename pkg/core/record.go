package core

import (
	"fmt"
	"strings"
	"time"
)

// ErrorPrefix marks a message captured from the standard-error stream.
const ErrorPrefix = "ERROR: "

// TimestampLayout is the on-disk timestamp format (ISO-8601, UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Origin identifies which output stream a line came from.
type Origin string

const (
	OriginStdout Origin = "stdout"
	OriginStderr Origin = "stderr"
)

// LogRecord is a single persisted log line.
type LogRecord struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Time parses the record timestamp.
func (r LogRecord) Time() (time.Time, error) {
	t, err := time.Parse(TimestampLayout, r.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", r.Timestamp, err)
	}
	return t, nil
}

// IsError reports whether the record was captured from standard error.
func (r LogRecord) IsError() bool {
	return strings.HasPrefix(r.Message, ErrorPrefix)
}

// Line is a framed line tagged with its origin and finalize time.
type Line struct {
	Origin Origin
	Text   string
	Time   time.Time
}

// Message returns the text as stored: stderr lines carry ErrorPrefix.
func (l Line) Message() string {
	if l.Origin == OriginStderr {
		return ErrorPrefix + l.Text
	}
	return l.Text
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
