package domain

import (
	"fmt"
	"time"
)

// Policy number formats. Both derive from the same sequential id; only the
// printed form differs.
const (
	NumberFormatSequential  = "sequential"  // RumbIA007
	NumberFormatTimestamped = "timestamped" // POL-20240315-100000-007
)

// SequentialNumber formats a policy id as RumbIA###.
func SequentialNumber(id int) string {
	return fmt.Sprintf("RumbIA%03d", id)
}

// TimestampedNumber formats a policy id as POL-AAAAMMDD-HHMMSS-###.
func TimestampedNumber(id int, issuedAt time.Time) string {
	return fmt.Sprintf("POL-%s-%03d", issuedAt.Format("20060102-150405"), id)
}

// FormatPolicyNumber renders a policy number in the configured format.
// Unknown formats fall back to the sequential form.
func FormatPolicyNumber(format string, id int, issuedAt time.Time) string {
	if format == NumberFormatTimestamped {
		return TimestampedNumber(id, issuedAt)
	}
	return SequentialNumber(id)
}
