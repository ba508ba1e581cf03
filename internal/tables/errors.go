package tables

import (
	"errors"
	"fmt"
)

// ErrMalformedData is matched by every MalformedDataError.
var ErrMalformedData = errors.New("malformed data")

// MalformedDataError describes a source CSV that cannot be loaded.
// Row is the 1-based file line (the header is row 1); zero means the whole table.
type MalformedDataError struct {
	Table  Name
	Row    int
	Column string
	Reason string
}

func (e *MalformedDataError) Error() string {
	msg := fmt.Sprintf("malformed %s data", e.Table)
	if e.Row > 0 {
		msg += fmt.Sprintf(": row %d", e.Row)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(", column %s", e.Column)
	}
	return msg + ": " + e.Reason
}

// Is makes errors.Is(err, ErrMalformedData) succeed.
func (e *MalformedDataError) Is(target error) bool {
	return target == ErrMalformedData
}
