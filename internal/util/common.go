package util

import (
	"time"

	"github.com/sirupsen/logrus"
)

// TimestampLayout is the wire rendering for event timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

func ContinueOrFatal(err error) {
	if err != nil {
		logrus.Fatal(err)
	}
}

// FormatTimestamp renders a UTC instant at millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a timestamp produced by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
