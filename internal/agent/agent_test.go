package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/finqa/internal/chart"
	"github.com/cleared-dev/finqa/internal/dataset"
	"github.com/cleared-dev/finqa/internal/fx"
	"github.com/cleared-dev/finqa/internal/tools"
	"github.com/cleared-dev/finqa/internal/trace"
)

// scripted replays replies in order and records what it was sent.
type scripted struct {
	mu      sync.Mutex
	replies []Reply
	sent    [][]Turn
}

func (s *scripted) Send(_ context.Context, turns []Turn, _ []tools.Schema) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, append([]Turn(nil), turns...))
	if len(s.replies) == 0 {
		return Reply{}, errors.New("script exhausted")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func toolReply(calls ...ToolCall) Reply {
	return Reply{ToolCalls: calls}
}

func fixtureRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	d, err := dataset.LoadDir("../../testdata", nil)
	require.NoError(t, err)
	return tools.NewRegistry(d, fx.NewConverter(d.Rates()))
}

func eurRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	header := "month,entity,account_category,amount,currency\n"
	d, err := dataset.Load(
		strings.NewReader(header+"2025-06,EMEA,Revenue,100000,EUR\n"),
		strings.NewReader(header+"2025-06,EMEA,Revenue,90000,EUR\n"),
		strings.NewReader("month,currency,rate_to_usd\n2025-06,EUR,1.10\n"),
		strings.NewReader("month,entity,cash_usd\n2025-06,EMEA,500000\n"),
	)
	require.NoError(t, err)
	return tools.NewRegistry(d, fx.NewConverter(d.Rates()))
}

func fixedNow() time.Time {
	return time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)
}

func newAgent(p Provider, reg *tools.Registry) *Agent {
	opts := DefaultOptions()
	opts.Now = fixedNow
	return New(p, reg, opts)
}

func TestAsk_RevenueVersusBudgetInEUR(t *testing.T) {
	p := &scripted{replies: []Reply{
		toolReply(ToolCall{ID: "c1", Name: tools.ExtractCSVData,
			Arguments: `{"dataset_name":"actuals","filters":{"month":"2025-06","metric":"revenue","compare_to_budget":true}}`}),
		{Content: "June revenue was $110,000 against a $99,000 budget, 11.11% ahead."},
	}}
	s := newAgent(p, eurRegistry(t)).NewSession()

	out, err := s.Ask(context.Background(), "How did June revenue compare with budget?")
	require.NoError(t, err)
	assert.Equal(t, StatusAnswered, out.Status)
	assert.Equal(t, 2, out.Iterations)
	assert.Contains(t, out.Answer, "110,000")

	require.Len(t, out.Metrics, 1)
	m := out.Metrics[0]
	assert.Equal(t, "metric_1", m.MetricID)
	require.NotNil(t, m.Metric.Comparison)
	c := m.Metric.Comparison
	assert.True(t, c.Actual.Equal(decimal.NewFromInt(110000)), c.Actual.String())
	assert.True(t, c.Budget.Equal(decimal.NewFromInt(99000)), c.Budget.String())
	assert.True(t, c.Variance.Equal(decimal.NewFromInt(11000)), c.Variance.String())
	require.True(t, c.VariancePct.Valid)
	assert.Equal(t, "11.11", c.VariancePct.Decimal.StringFixed(2))

	// second send carries the tool exchange
	require.Len(t, p.sent, 2)
	second := p.sent[1]
	require.Len(t, second, 4)
	assert.Equal(t, RoleSystem, second[0].Role)
	assert.Equal(t, RoleToolRequest, second[2].Role)
	assert.Equal(t, RoleToolResult, second[3].Role)
	assert.Equal(t, "c1", second[3].ToolCallID)
	assert.True(t, strings.HasPrefix(second[3].Content, `{"success":true`))

	kinds := make([]trace.Kind, len(out.Trace))
	for i, e := range out.Trace {
		kinds[i] = e.Kind
		assert.Equal(t, s.ID, e.SessionID)
	}
	assert.Equal(t, []trace.Kind{trace.KindQuestion, trace.KindToolCall, trace.KindToolResult, trace.KindAnswer}, kinds)
}

func TestAsk_MarginTrendWithChart(t *testing.T) {
	p := &scripted{replies: []Reply{
		toolReply(ToolCall{Name: tools.ExtractCSVData,
			Arguments: `{"dataset_name":"actuals","filters":{"last_n_months":3,"metric":"gross margin"}}`}),
		toolReply(ToolCall{Name: tools.CreateChart, Arguments: `{"chart_type":"line"}`}),
		{Content: "Gross margin moved from 56.49% to 58.47%."},
	}}
	out, err := newAgent(p, fixtureRegistry(t)).NewSession().Ask(context.Background(), "Show the gross margin trend for the last 3 months")
	require.NoError(t, err)

	require.Len(t, out.Metrics, 1)
	res := out.Metrics[0].Metric
	require.Len(t, res.Breakdown, 3)
	want := []string{"56.49", "56.47", "58.47"}
	for i, e := range res.Breakdown {
		assert.Equal(t, want[i], e.Value.Decimal.StringFixed(2), e.Label)
	}

	require.NotNil(t, out.Chart)
	assert.Equal(t, chart.Line, out.Chart.Type)
	assert.Equal(t, []string{"2025-04", "2025-05", "2025-06"}, out.Chart.XLabels)

	// IDs assigned for calls without one
	var callIDs []string
	for _, e := range out.Trace {
		if e.Kind == trace.KindToolCall {
			callIDs = append(callIDs, e.CallID)
		}
	}
	assert.Equal(t, []string{"call_1_0", "call_2_0"}, callIDs)
}

func TestAsk_RecoversFromToolError(t *testing.T) {
	p := &scripted{replies: []Reply{
		toolReply(ToolCall{ID: "a", Name: tools.ExploreCSV, Arguments: `{"dataset_name":"forecast"}`}),
		toolReply(ToolCall{ID: "b", Name: tools.ExploreCSV, Arguments: `{"dataset_name":"actuals"}`}),
		{Content: "The actuals cover April to June 2025."},
	}}
	out, err := newAgent(p, fixtureRegistry(t)).NewSession().Ask(context.Background(), "What months do you have?")
	require.NoError(t, err)
	assert.Equal(t, StatusAnswered, out.Status)
	assert.Equal(t, 3, out.Iterations)

	var results []trace.Entry
	for _, e := range out.Trace {
		if e.Kind == trace.KindToolResult {
			results = append(results, e)
		}
	}
	require.Len(t, results, 2)
	assert.False(t, results[0].OK)
	assert.Contains(t, results[0].Result, `"error_type":"unknown_argument"`)
	assert.True(t, results[1].OK)
}

func TestAsk_ReasoningLimit(t *testing.T) {
	loop := ProviderFunc(func(context.Context, []Turn, []tools.Schema) (Reply, error) {
		return toolReply(ToolCall{Name: tools.ExploreCSV, Arguments: `{"dataset_name":"fx"}`}), nil
	})
	opts := DefaultOptions()
	opts.MaxIterations = 3
	out, err := New(loop, fixtureRegistry(t), opts).NewSession().Ask(context.Background(), "loop forever")

	require.ErrorIs(t, err, ErrReasoningLimitExceeded)
	require.NotNil(t, out)
	assert.Equal(t, StatusReasoningLimit, out.Status)
	assert.Equal(t, LimitAnswer, out.Answer)
	assert.Equal(t, 3, out.Iterations)
	assert.Equal(t, trace.KindError, out.Trace[len(out.Trace)-1].Kind)
}

func TestAsk_ProviderTimeout(t *testing.T) {
	slow := ProviderFunc(func(ctx context.Context, _ []Turn, _ []tools.Schema) (Reply, error) {
		<-ctx.Done()
		return Reply{}, ctx.Err()
	})
	opts := DefaultOptions()
	opts.Timeout = 10 * time.Millisecond
	out, err := New(slow, fixtureRegistry(t), opts).NewSession().Ask(context.Background(), "anything")

	var timeout *ProviderTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, StatusProviderError, out.Status)
	assert.Equal(t, "Error occurred during processing: model provider timed out after 10ms", out.Answer)
}

func TestAsk_ProviderError(t *testing.T) {
	failing := ProviderFunc(func(context.Context, []Turn, []tools.Schema) (Reply, error) {
		return Reply{}, errors.New("401 unauthorized")
	})
	out, err := newAgent(failing, fixtureRegistry(t)).NewSession().Ask(context.Background(), "anything")

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Error occurred during processing: model provider: 401 unauthorized", out.Answer)
}

func TestAsk_EmptyReply(t *testing.T) {
	p := &scripted{replies: []Reply{{Content: "  "}}}
	_, err := newAgent(p, fixtureRegistry(t)).NewSession().Ask(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestAsk_EmptyQuestion(t *testing.T) {
	_, err := newAgent(&scripted{}, fixtureRegistry(t)).NewSession().Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAsk_ParallelToolsKeepRequestOrder(t *testing.T) {
	calls := make([]ToolCall, 4)
	for i, name := range []string{"actuals", "budget", "fx", "cash"} {
		calls[i] = ToolCall{ID: fmt.Sprintf("c%d", i), Name: tools.ExploreCSV, Arguments: fmt.Sprintf(`{"dataset_name":%q}`, name)}
	}
	p := &scripted{replies: []Reply{toolReply(calls...), {Content: "done"}}}
	opts := DefaultOptions()
	opts.ParallelTools = true
	out, err := New(p, fixtureRegistry(t), opts).NewSession().Ask(context.Background(), "describe everything")
	require.NoError(t, err)

	var got []string
	for _, turn := range out.Turns {
		if turn.Role == RoleToolResult {
			got = append(got, turn.ToolCallID)
		}
	}
	assert.Equal(t, []string{"c0", "c1", "c2", "c3"}, got)

	var seqs []int
	for _, e := range out.Trace {
		seqs = append(seqs, e.Seq)
	}
	assert.IsIncreasing(t, seqs)
}

func TestAsk_ParallelMetricIDsFollowRequestOrder(t *testing.T) {
	names := []string{"revenue", "cogs", "opex", "ebitda"}
	for range 20 {
		calls := make([]ToolCall, len(names))
		for i, m := range names {
			calls[i] = ToolCall{ID: fmt.Sprintf("c%d", i), Name: tools.ExtractCSVData,
				Arguments: fmt.Sprintf(`{"dataset_name":"actuals","filters":{"metric":%q}}`, m)}
		}
		p := &scripted{replies: []Reply{toolReply(calls...), {Content: "done"}}}
		opts := DefaultOptions()
		opts.ParallelTools = true
		out, err := New(p, fixtureRegistry(t), opts).NewSession().Ask(context.Background(), "everything for June")
		require.NoError(t, err)

		var results []Turn
		for _, turn := range out.Turns {
			if turn.Role == RoleToolResult {
				results = append(results, turn)
			}
		}
		require.Len(t, results, len(names))
		require.Len(t, out.Metrics, len(names))
		for i, m := range names {
			want := fmt.Sprintf("metric_%d", i+1)
			assert.Equal(t, fmt.Sprintf("c%d", i), results[i].ToolCallID)
			assert.Contains(t, results[i].Content, `"metric_id":"`+want+`"`)
			assert.Equal(t, want, out.Metrics[i].MetricID)
			assert.Equal(t, m, out.Metrics[i].Metric.Metric)
		}
	}
}

func TestAsk_Busy(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	blocking := ProviderFunc(func(context.Context, []Turn, []tools.Schema) (Reply, error) {
		close(started)
		<-release
		return Reply{Content: "ok"}, nil
	})
	s := newAgent(blocking, fixtureRegistry(t)).NewSession()

	done := make(chan error, 1)
	go func() {
		_, err := s.Ask(context.Background(), "first")
		done <- err
	}()
	<-started

	_, err := s.Ask(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
}

func TestAsk_FollowUpSeesEarlierAnswers(t *testing.T) {
	p := &scripted{replies: []Reply{
		toolReply(ToolCall{ID: "x", Name: tools.ExploreCSV, Arguments: `{"dataset_name":"cash"}`}),
		{Content: "first answer"},
		{Content: "second answer"},
	}}
	s := newAgent(p, fixtureRegistry(t)).NewSession()

	_, err := s.Ask(context.Background(), "first question")
	require.NoError(t, err)
	out, err := s.Ask(context.Background(), "second question")
	require.NoError(t, err)
	assert.Equal(t, "second answer", out.Answer)

	last := p.sent[len(p.sent)-1]
	roles := make([]Role, len(last))
	for i, turn := range last {
		roles[i] = turn.Role
	}
	assert.Equal(t, []Role{RoleSystem, RoleQuestion, RoleFinalAnswer, RoleQuestion}, roles)
	assert.Len(t, out.Turns, 2)
	assert.Len(t, s.Turns(), 7)
}

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt(fixtureRegistry(t), fixedNow())
	assert.Contains(t, prompt, "Current date: 2025-07-02")
	assert.Contains(t, prompt, "actuals: monthly financial results")
	assert.Contains(t, prompt, "(2025-04 to 2025-06)")
	assert.Contains(t, prompt, tools.ExtractCSVData)
	assert.Contains(t, prompt, "gross margin")
	assert.Contains(t, prompt, "Never include code")
}
