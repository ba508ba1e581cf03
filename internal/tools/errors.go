package tools

import (
	"errors"
	"fmt"

	"github.com/cleared-dev/finqa/internal/chart"
	"github.com/cleared-dev/finqa/internal/fx"
	"github.com/cleared-dev/finqa/internal/metrics"
	"github.com/cleared-dev/finqa/internal/tables"
)

var (
	// ErrUnknownArgument is matched by every UnknownArgumentError.
	ErrUnknownArgument = errors.New("unknown tool argument")
	// ErrUnknownTool is returned when a model asks for a tool that is not registered.
	ErrUnknownTool = errors.New("unknown tool")
)

// UnknownArgumentError reports an argument the tool cannot interpret: an
// unknown key, an unknown dataset or metric, a bad month, or a combination
// the tool does not support.
type UnknownArgumentError struct {
	Tool     string
	Argument string
	Value    any
	Reason   string
}

func (e *UnknownArgumentError) Error() string {
	msg := fmt.Sprintf("%s: invalid argument %q", e.Tool, e.Argument)
	if e.Value != nil {
		msg += fmt.Sprintf(" (%v)", e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is makes errors.Is(err, ErrUnknownArgument) succeed.
func (e *UnknownArgumentError) Is(target error) bool {
	return target == ErrUnknownArgument
}

// Error kinds reported in failed results.
const (
	KindUnknownArgument  = "unknown_argument"
	KindUnknownTool      = "unknown_tool"
	KindInvalidArguments = "invalid_arguments"
	KindMissingFxRate    = "missing_fx_rate"
	KindNoData           = "no_data"
	KindUnsupportedChart = "unsupported_chart_type"
	KindInsufficientData = "insufficient_data"
	KindMalformedData    = "malformed_data"
	KindInternal         = "internal_error"
)

// errorKind maps an error to the kind reported back to the model.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownArgument):
		return KindUnknownArgument
	case errors.Is(err, ErrUnknownTool):
		return KindUnknownTool
	case errors.Is(err, fx.ErrMissingRate):
		return KindMissingFxRate
	case errors.Is(err, metrics.ErrNoData), errors.Is(err, metrics.ErrEmptyWindow):
		return KindNoData
	case errors.Is(err, chart.ErrUnsupportedType):
		return KindUnsupportedChart
	case errors.Is(err, chart.ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, tables.ErrMalformedData):
		return KindMalformedData
	}
	return KindInternal
}
