package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/finqa/internal/agent"
	"github.com/cleared-dev/finqa/internal/dataset"
	"github.com/cleared-dev/finqa/internal/tables"
	"github.com/cleared-dev/finqa/internal/trace"
)

type mockAsker struct {
	mock.Mock
}

func (m *mockAsker) Ask(ctx context.Context, question string) (*agent.Outcome, error) {
	args := m.Called(ctx, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*agent.Outcome), args.Error(1)
}

type mockExplorer struct {
	mock.Mock
}

func (m *mockExplorer) SchemaSummary(name tables.Name) (dataset.TableSummary, error) {
	args := m.Called(name)
	return args.Get(0).(dataset.TableSummary), args.Error(1)
}

type mockTrace struct {
	mock.Mock
}

func (m *mockTrace) Entries() []trace.Entry {
	args := m.Called()
	return args.Get(0).([]trace.Entry)
}

func setup(asker *mockAsker, explorer *mockExplorer, tr *mockTrace) http.Handler {
	logger := zerolog.New(zerolog.NewTestWriter(nil))
	return NewWebAPI(logger, Config{Dependencies: Dependencies{Session: asker, Data: explorer, Trace: tr}}).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAsk(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*mockAsker)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "answered",
			body: `{"question":"June revenue?"}`,
			setupMock: func(m *mockAsker) {
				m.On("Ask", mock.Anything, "June revenue?").Return(
					&agent.Outcome{Question: "June revenue?", Answer: "$360,000", Status: agent.StatusAnswered, Iterations: 2}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"answer":"$360,000"`,
		},
		{
			name: "degraded answer is still 200",
			body: `{"question":"loop"}`,
			setupMock: func(m *mockAsker) {
				m.On("Ask", mock.Anything, "loop").Return(
					&agent.Outcome{Answer: agent.LimitAnswer, Status: agent.StatusReasoningLimit}, agent.ErrReasoningLimitExceeded)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"reasoning_limit"`,
		},
		{
			name: "busy",
			body: `{"question":"again"}`,
			setupMock: func(m *mockAsker) {
				m.On("Ask", mock.Anything, "again").Return(nil, agent.ErrBusy)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"error":"a question is already in progress"`,
		},
		{
			name: "empty question",
			body: `{"question":""}`,
			setupMock: func(m *mockAsker) {
				m.On("Ask", mock.Anything, "").Return(nil, agent.ErrEmptyQuestion)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unexpected failure",
			body: `{"question":"x"}`,
			setupMock: func(m *mockAsker) {
				m.On("Ask", mock.Anything, "x").Return(nil, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"internal error"`,
		},
		{
			name:           "malformed body",
			body:           `{`,
			setupMock:      func(*mockAsker) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := new(mockAsker)
			tt.setupMock(asker)

			rec := do(t, setup(asker, new(mockExplorer), new(mockTrace)), http.MethodPost, "/api/v1/ask", tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
			asker.AssertExpectations(t)
		})
	}
}

func TestAsk_OnOutcome(t *testing.T) {
	asker := new(mockAsker)
	asker.On("Ask", mock.Anything, "q").Return(&agent.Outcome{Answer: "a", Status: agent.StatusAnswered}, nil)

	var seen *agent.Outcome
	api := NewWebAPI(zerolog.Nop(), Config{Dependencies: Dependencies{
		Session:   asker,
		OnOutcome: func(_ context.Context, out *agent.Outcome) { seen = out },
	}})
	rec := do(t, api.Handler(), http.MethodPost, "/api/v1/ask", `{"question":"q"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "a", seen.Answer)
}

func TestDataset(t *testing.T) {
	explorer := new(mockExplorer)
	explorer.On("SchemaSummary", tables.FX).Return(dataset.TableSummary{Dataset: tables.FX, RowCount: 6}, nil)
	h := setup(new(mockAsker), explorer, new(mockTrace))

	rec := do(t, h, http.MethodGet, "/api/v1/datasets/fx.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got dataset.TableSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 6, got.RowCount)

	rec = do(t, h, http.MethodGet, "/api/v1/datasets/forecast", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "available: actuals, budget, fx, cash")

	rec = do(t, h, http.MethodGet, "/api/v1/datasets", "")
	assert.JSONEq(t, `{"datasets":["actuals","budget","fx","cash"]}`, rec.Body.String())
	explorer.AssertExpectations(t)
}

func TestTrace(t *testing.T) {
	tr := new(mockTrace)
	tr.On("Entries").Return([]trace.Entry{{SessionID: "s1", Seq: 1, Kind: trace.KindQuestion, Result: "q", OK: true}})

	rec := do(t, setup(new(mockAsker), new(mockExplorer), tr), http.MethodGet, "/api/v1/trace", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []trace.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, trace.KindQuestion, got[0].Kind)
}

func TestRecoverer(t *testing.T) {
	asker := new(mockAsker)
	asker.On("Ask", mock.Anything, "panic").Run(func(mock.Arguments) { panic("boom") })

	rec := do(t, setup(asker, new(mockExplorer), new(mockTrace)), http.MethodPost, "/api/v1/ask", `{"question":"panic"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := do(t, setup(new(mockAsker), new(mockExplorer), new(mockTrace)), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
