package id

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// resultPrefix prefixes stored metric result IDs.
const resultPrefix = "metric_"

// NewSessionID returns a random session ID.
func NewSessionID() string {
	return uuid.NewString()
}

// FormatResultID returns a metric result ID like "metric_3".
func FormatResultID(seq int) string {
	return resultPrefix + strconv.Itoa(seq)
}

// ParseResultID parses "metric_3" into 3.
func ParseResultID(id string) (int, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(id), resultPrefix)
	if !ok {
		return 0, fmt.Errorf("invalid result ID format: %q", id)
	}
	seq, err := strconv.Atoi(rest)
	if err != nil || seq < 1 {
		return 0, fmt.Errorf("invalid sequence in result ID %q", id)
	}
	return seq, nil
}

// FormatCallID returns a tool call ID like "call_2_0" for providers that do
// not assign one. iteration is 1-based, index 0-based.
func FormatCallID(iteration, index int) string {
	return fmt.Sprintf("call_%d_%d", iteration, index)
}
