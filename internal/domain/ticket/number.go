package ticket

import (
	"fmt"
	"time"
)

// NumberPrefix returns the ticket number prefix for a given day, e.g.
// "T-20260301-".
func NumberPrefix(t time.Time) string {
	return fmt.Sprintf("T-%s-", t.UTC().Format("20060102"))
}

// FormatNumber renders a full ticket number, e.g. "T-20260301-0042".
func FormatNumber(t time.Time, seq int) string {
	return fmt.Sprintf("%s%04d", NumberPrefix(t), seq)
}

// ParseNumberSequence extracts the sequence from a ticket number with the
// given prefix. Returns 0 when the number does not match.
func ParseNumberSequence(number, prefix string) int {
	var seq int
	if _, err := fmt.Sscanf(number, prefix+"%d", &seq); err != nil {
		return 0
	}
	return seq
}
