// Package agent drives the question loop: it sends the conversation to a
// model provider, executes the tools the model asks for, and feeds the
// results back until the model answers or the iteration limit is reached.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/finqa/internal/chart"
	"github.com/cleared-dev/finqa/internal/id"
	"github.com/cleared-dev/finqa/internal/logger"
	"github.com/cleared-dev/finqa/internal/tools"
	"github.com/cleared-dev/finqa/internal/trace"
)

// Defaults for Options.
const (
	DefaultMaxIterations = 8
	DefaultTimeout       = 60 * time.Second
)

// Degraded answers.
const (
	LimitAnswer       = "Could not complete analysis within iteration limit"
	errorAnswerPrefix = "Error occurred during processing: "
)

// Options tune the loop.
type Options struct {
	MaxIterations int
	Timeout       time.Duration
	ParallelTools bool
	Now           func() time.Time
}

// DefaultOptions returns 8 iterations, a 60s provider timeout and sequential tools.
func DefaultOptions() Options {
	return Options{MaxIterations: DefaultMaxIterations, Timeout: DefaultTimeout}
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Status is how a question ended.
type Status string

const (
	StatusAnswered       Status = "answered"
	StatusReasoningLimit Status = "reasoning_limit"
	StatusProviderError  Status = "provider_error"
)

// Outcome is everything the caller needs to present a question's result.
type Outcome struct {
	SessionID  string                `json:"session_id"`
	Question   string                `json:"question"`
	Answer     string                `json:"answer"`
	Status     Status                `json:"status"`
	Chart      *chart.Spec           `json:"chart,omitempty"`
	Metrics    []tools.MetricContent `json:"metrics,omitempty"`
	Iterations int                   `json:"iterations"`
	Turns      []Turn                `json:"turns"`
	Trace      []trace.Entry         `json:"trace"`
}

// Agent holds the provider, the tools and the loop options. It is safe to
// share between sessions.
type Agent struct {
	provider Provider
	registry *tools.Registry
	opts     Options
}

// New creates an Agent.
func New(p Provider, reg *tools.Registry, opts Options) *Agent {
	return &Agent{provider: p, registry: reg, opts: opts.withDefaults()}
}

// Session is one user's conversation. Questions run one at a time.
type Session struct {
	ID    string
	agent *Agent
	trace *trace.Log

	busy sync.Mutex

	mu    sync.Mutex
	turns []Turn
}

// NewSession starts a session with a fresh ID and trace.
func (a *Agent) NewSession() *Session {
	sid := id.NewSessionID()
	return &Session{ID: sid, agent: a, trace: trace.NewLog(sid)}
}

// Trace returns the session trace.
func (s *Session) Trace() *trace.Log {
	return s.trace
}

// Turns returns a copy of every turn of the session.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.turns)
}

func (s *Session) append(ts ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, ts...)
}

// Ask answers one question. It returns ErrBusy or ErrEmptyQuestion without an
// outcome; otherwise it always returns an outcome, together with
// ErrReasoningLimitExceeded, *ProviderTimeoutError or *ProviderError when the
// question ended in a degraded answer.
func (s *Session) Ask(ctx context.Context, question string) (*Outcome, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if !s.busy.TryLock() {
		return nil, ErrBusy
	}
	defer s.busy.Unlock()

	a := s.agent
	log := logger.FromContext(ctx).With().Str("session", s.ID).Logger()
	traceStart := s.trace.Len()
	history := s.Turns()
	if len(history) == 0 {
		system := Turn{Role: RoleSystem, Content: SystemPrompt(a.registry, a.opts.Now())}
		s.append(system)
		history = append(history, system)
	}
	turnStart := len(history)
	s.append(Turn{Role: RoleQuestion, Content: question})
	s.trace.Record(trace.Entry{Kind: trace.KindQuestion, Result: question, OK: true})
	log.Info().Str("question", question).Msg("question received")

	out := &Outcome{SessionID: s.ID, Question: question}
	scope := tools.NewScope()
	schemas := a.registry.Schemas()
	conv := append(priorExchanges(history), Turn{Role: RoleQuestion, Content: question})

	finish := func(answer string, status Status, err error) (*Outcome, error) {
		s.append(Turn{Role: RoleFinalAnswer, Content: answer})
		kind := trace.KindAnswer
		if err != nil {
			kind = trace.KindError
		}
		s.trace.Record(trace.Entry{Iteration: out.Iterations, Kind: kind, Result: answer, OK: err == nil})

		out.Answer = answer
		out.Status = status
		out.Turns = s.Turns()[turnStart:]
		out.Trace = s.trace.Since(traceStart)
		return out, err
	}

	for iter := 1; iter <= a.opts.MaxIterations; iter++ {
		out.Iterations = iter
		log.Debug().Int("iteration", iter).Int("turns", len(conv)).Msg("calling provider")

		reply, err := a.send(ctx, conv, schemas)
		if err != nil {
			log.Error().Err(err).Int("iteration", iter).Msg("provider failed")
			return finish(errorAnswerPrefix+err.Error(), StatusProviderError, err)
		}

		if reply.IsFinal() {
			log.Info().Int("iterations", iter).Msg("question answered")
			return finish(strings.TrimSpace(reply.Content), StatusAnswered, nil)
		}

		calls := make([]ToolCall, len(reply.ToolCalls))
		for i, c := range reply.ToolCalls {
			if c.ID == "" {
				c.ID = id.FormatCallID(iter, i)
			}
			calls[i] = c
		}
		request := Turn{Role: RoleToolRequest, Content: reply.Content, ToolCalls: calls}
		s.append(request)
		conv = append(conv, request)

		for i, res := range a.dispatch(ctx, log, scope, s.trace, iter, calls) {
			if res.Chart != nil {
				out.Chart = res.Chart
			}
			if res.Metric != nil {
				out.Metrics = append(out.Metrics, tools.MetricContent{MetricID: res.MetricID, Metric: *res.Metric})
			}
			t := Turn{Role: RoleToolResult, Content: res.Text(), ToolCallID: calls[i].ID, ToolName: calls[i].Name}
			s.append(t)
			conv = append(conv, t)
		}
	}

	log.Warn().Int("max_iterations", a.opts.MaxIterations).Msg("iteration limit reached")
	return finish(LimitAnswer, StatusReasoningLimit, ErrReasoningLimitExceeded)
}

// priorExchanges keeps the system turn and earlier questions with their
// final answers. Tool exchanges of earlier questions are left out.
func priorExchanges(history []Turn) []Turn {
	var conv []Turn
	for _, t := range history {
		switch t.Role {
		case RoleSystem, RoleQuestion, RoleFinalAnswer:
			conv = append(conv, t)
		}
	}
	return conv
}

func (a *Agent) send(ctx context.Context, conv []Turn, schemas []tools.Schema) (Reply, error) {
	tctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	reply, err := a.provider.Send(tctx, conv, schemas)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return Reply{}, &ProviderTimeoutError{Timeout: a.opts.Timeout, Err: err}
		}
		return Reply{}, &ProviderError{Err: err}
	}
	if reply.IsFinal() && strings.TrimSpace(reply.Content) == "" {
		return Reply{}, &ProviderError{Err: ErrEmptyReply}
	}
	return reply, nil
}

// dispatch runs the calls and returns their results in request order. Every
// call and result is recorded in the trace in that order.
func (a *Agent) dispatch(ctx context.Context, log zerolog.Logger, sc *tools.Scope, tl *trace.Log, iter int, calls []ToolCall) []tools.Result {
	for _, c := range calls {
		tl.Record(trace.Entry{Iteration: iter, Kind: trace.KindToolCall, Tool: c.Name, CallID: c.ID, Arguments: c.Arguments, OK: true})
	}

	parallel := a.opts.ParallelTools && len(calls) > 1
	results := make([]tools.Result, len(calls))
	run := func(i int) {
		c := calls[i]
		start := time.Now()
		req := tools.Request{ID: c.ID, Name: c.Name, RawArguments: c.Arguments}
		if parallel {
			results[i] = a.registry.Execute(ctx, sc, req)
		} else {
			results[i] = a.registry.Dispatch(ctx, sc, req)
		}

		ev := log.Info()
		if !results[i].OK {
			ev = log.Warn().Str("error", results[i].Error).Str("error_type", results[i].ErrorKind)
		}
		ev.Int("iteration", iter).Str("tool", c.Name).Str("call_id", c.ID).
			Dur("elapsed", time.Since(start)).Bool("ok", results[i].OK).Msg("tool call")
	}

	if parallel {
		var wg sync.WaitGroup
		for i := range calls {
			wg.Add(1)
			go func() {
				defer wg.Done()
				run(i)
			}()
		}
		wg.Wait()
		for i := range results {
			sc.Commit(&results[i])
		}
	} else {
		for i := range calls {
			run(i)
		}
	}

	for i, res := range results {
		tl.Record(trace.Entry{
			Iteration: iter,
			Kind:      trace.KindToolResult,
			Tool:      calls[i].Name,
			CallID:    calls[i].ID,
			Result:    res.Text(),
			OK:        res.OK,
		})
	}
	return results
}

// MarshalIndent renders an outcome for display.
func (o *Outcome) MarshalIndent() (string, error) {
	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding outcome: %w", err)
	}
	return string(b), nil
}
