package agent

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrReasoningLimitExceeded ends a question that used every iteration without an answer.
	ErrReasoningLimitExceeded = errors.New("reasoning limit exceeded")
	// ErrBusy is returned when a session already has a question in flight.
	ErrBusy = errors.New("a question is already in progress")
	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("empty question")
	// ErrEmptyReply is wrapped in a ProviderError when the model returns nothing.
	ErrEmptyReply = errors.New("model returned neither an answer nor tool calls")
)

// ProviderTimeoutError reports a provider call that exceeded its deadline.
type ProviderTimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *ProviderTimeoutError) Error() string {
	return fmt.Sprintf("model provider timed out after %s", e.Timeout)
}

func (e *ProviderTimeoutError) Unwrap() error { return e.Err }

// ProviderError reports any other provider failure, including malformed responses.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return "model provider: " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }
