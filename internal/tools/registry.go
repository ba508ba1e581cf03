// Package tools is the closed set of deterministic tools the agent can call.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/cleared-dev/finqa/internal/chart"
	"github.com/cleared-dev/finqa/internal/dataset"
	"github.com/cleared-dev/finqa/internal/fx"
	"github.com/cleared-dev/finqa/internal/id"
	"github.com/cleared-dev/finqa/internal/metrics"
)

// Tool names.
const (
	ExploreCSV     = "explore_csv"
	ExtractCSVData = "extract_csv_data"
	CreateChart    = "create_chart"
)

// DefaultMaxRows caps raw extraction results.
const DefaultMaxRows = 200

// Schema declares a tool to a model provider. Parameters is a JSON schema object.
type Schema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is one tool invocation asked for by the model.
type Request struct {
	ID           string
	Name         string
	Arguments    map[string]any
	RawArguments string
}

// Result is the outcome of one invocation. Text renders what the model sees.
type Result struct {
	CallID    string
	Name      string
	OK        bool
	Content   any
	Error     string
	ErrorKind string

	Chart    *chart.Spec
	Metric   *metrics.Result
	MetricID string
}

type envelope struct {
	Success   bool   `json:"success"`
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

// Text renders the result envelope sent back to the model.
func (r Result) Text() string {
	env := envelope{Success: r.OK, Result: r.Content}
	if !r.OK {
		env = envelope{Error: r.Error, ErrorType: r.ErrorKind}
	}
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q,"error_type":%q}`, "encoding result: "+err.Error(), KindInternal)
	}
	return string(b)
}

// Handler executes a tool.
type Handler func(ctx context.Context, sc *Scope, args map[string]any) (*Result, error)

type tool struct {
	schema  Schema
	handler Handler
}

// Registry holds the tools and the data they run against.
type Registry struct {
	data    *dataset.Dataset
	fx      *fx.Converter
	engine  *metrics.Engine
	maxRows int
	tools   map[string]tool
	order   []string
}

// NewRegistry returns a registry with explore_csv, extract_csv_data and create_chart.
func NewRegistry(data *dataset.Dataset, conv *fx.Converter) *Registry {
	r := &Registry{
		data:    data,
		fx:      conv,
		engine:  metrics.NewEngine(data, conv),
		maxRows: DefaultMaxRows,
		tools:   make(map[string]tool),
	}
	r.Register(exploreSchema(), r.explore)
	r.Register(extractSchema(), r.extract)
	r.Register(chartSchema(), r.createChart)
	return r
}

// SetMaxRows changes the raw extraction cap.
func (r *Registry) SetMaxRows(n int) {
	if n > 0 {
		r.maxRows = n
	}
}

// Register adds a tool. Panics on a duplicate name.
func (r *Registry) Register(s Schema, h Handler) {
	if _, ok := r.tools[s.Name]; ok {
		panic("duplicate tool: " + s.Name)
	}
	r.tools[s.Name] = tool{schema: s, handler: h}
	r.order = append(r.order, s.Name)
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Schemas returns the tool declarations in registration order.
func (r *Registry) Schemas() []Schema {
	out := make([]Schema, len(r.order))
	for i, n := range r.order {
		out[i] = r.tools[n].schema
	}
	return out
}

// Dataset returns the dataset the tools read.
func (r *Registry) Dataset() *dataset.Dataset {
	return r.data
}

// Dispatch runs one request and commits its metric to sc. It never returns
// an error: failures become results with OK false so the model can correct
// itself.
func (r *Registry) Dispatch(ctx context.Context, sc *Scope, req Request) Result {
	if sc == nil {
		sc = NewScope()
	}
	res := r.Execute(ctx, sc, req)
	sc.Commit(&res)
	return res
}

// Execute runs one request without storing its metric. sc is only read.
// Callers running requests concurrently commit the results in request order
// so metric IDs do not depend on scheduling.
func (r *Registry) Execute(ctx context.Context, sc *Scope, req Request) (res Result) {
	if sc == nil {
		sc = NewScope()
	}
	fail := func(err error) Result {
		return Result{CallID: req.ID, Name: req.Name, Error: err.Error(), ErrorKind: errorKind(err)}
	}

	t, ok := r.tools[req.Name]
	if !ok {
		return fail(fmt.Errorf("%w %q (available: %s)", ErrUnknownTool, req.Name, strings.Join(r.order, ", ")))
	}

	args := req.Arguments
	if args == nil && strings.TrimSpace(req.RawArguments) != "" {
		if err := json.Unmarshal([]byte(req.RawArguments), &args); err != nil {
			out := fail(fmt.Errorf("arguments are not a JSON object: %w", err))
			out.ErrorKind = KindInvalidArguments
			return out
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	defer func() {
		if p := recover(); p != nil {
			res = fail(fmt.Errorf("%s failed: %v", req.Name, p))
		}
	}()

	out, err := t.handler(ctx, sc, args)
	if err != nil {
		return fail(err)
	}
	out.CallID, out.Name, out.OK = req.ID, req.Name, true
	return *out
}

// Scope stores metric results for the duration of one question so that
// create_chart can refer to them by ID.
type Scope struct {
	mu      sync.Mutex
	results []metrics.Result
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Store saves res and returns its ID ("metric_1", "metric_2", ...).
func (s *Scope) Store(res metrics.Result) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
	return id.FormatResultID(len(s.results))
}

// Commit stores the metric carried by res, if any, and fills in its ID and
// content. Failed results and results already committed are left alone.
func (s *Scope) Commit(res *Result) {
	if !res.OK || res.Metric == nil || res.MetricID != "" {
		return
	}
	res.MetricID = s.Store(*res.Metric)
	res.Content = MetricContent{MetricID: res.MetricID, Metric: *res.Metric}
}

// Lookup returns the result stored under resultID.
func (s *Scope) Lookup(resultID string) (metrics.Result, bool) {
	seq, err := id.ParseResultID(resultID)
	if err != nil {
		return metrics.Result{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > len(s.results) {
		return metrics.Result{}, false
	}
	return s.results[seq-1], true
}

// Last returns the most recently stored result.
func (s *Scope) Last() (metrics.Result, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return metrics.Result{}, "", false
	}
	return s.results[len(s.results)-1], id.FormatResultID(len(s.results)), true
}

// Len returns the number of stored results.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}
