package types

import (
	"errors"
	"time"
)

// Client-facing date layouts. Callers supply either form; stored dates
// are normalized to ISO (time.DateOnly) on ingestion.
const (
	DateLayoutClient = "02.01.2006"
	DateLayoutISO    = time.DateOnly
)

// ErrInvalidDate reports a date string in neither accepted layout.
var ErrInvalidDate = errors.New("invalid date, want DD.MM.YYYY or YYYY-MM-DD")

// ParseClientDate parses a caller-supplied date, accepting DD.MM.YYYY
// first and ISO YYYY-MM-DD as fallback.
func ParseClientDate(s string) (time.Time, error) {
	if d, err := time.Parse(DateLayoutClient, s); err == nil {
		return d, nil
	}
	if d, err := time.Parse(DateLayoutISO, s); err == nil {
		return d, nil
	}
	return time.Time{}, ErrInvalidDate
}

// FormatClientDate renders a date in the client layout. Returns "" for
// the zero time.
func FormatClientDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayoutClient)
}
