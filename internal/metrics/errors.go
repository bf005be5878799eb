package metrics

import (
	"fmt"
	"strings"

	"github.com/carbonlab/perfbench/internal/bench"
)

// failureLabel maps a failed outcome to a short human-friendly bucket
// for the live error breakdown.
func failureLabel(o bench.Outcome) string {
	if o.StatusFailure() {
		return fmt.Sprintf("HTTP %d", o.StatusCode)
	}

	msg := strings.ToLower(o.Err)
	switch {
	case msg == "":
		return "Unknown error"
	case strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "timeout"):
		return "Timeout"
	case strings.Contains(msg, "connection refused"):
		return "Connection refused"
	case strings.Contains(msg, "no such host"):
		return "DNS failure"
	case strings.Contains(msg, "context canceled"):
		return "Canceled"
	case strings.Contains(msg, "body:"):
		return "Body validation failed"
	default:
		return "Transport error"
	}
}
