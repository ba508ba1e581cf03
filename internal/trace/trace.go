// Package trace records every step an agent session takes, in memory and as
// an append-only CSV export.
package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Kind classifies a trace entry.
type Kind string

const (
	KindQuestion   Kind = "question"
	KindToolCall   Kind = "tool_call"
	KindToolResult Kind = "tool_result"
	KindAnswer     Kind = "answer"
	KindError      Kind = "error"
)

// Entry is one immutable trace row.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Iteration int       `json:"iteration"`
	Kind      Kind      `json:"kind"`
	Tool      string    `json:"tool,omitempty"`
	CallID    string    `json:"call_id,omitempty"`
	Arguments string    `json:"arguments,omitempty"`
	Result    string    `json:"result,omitempty"`
	OK        bool      `json:"ok"`
}

// Header is the CSV header for trace.csv.
const Header = "timestamp,session_id,seq,iteration,kind,tool,call_id,arguments,result,ok"

// FileName is the trace file inside the trace directory.
const FileName = "trace.csv"

const (
	numFields    = 10
	colTimestamp = 0
	colSession   = 1
	colSeq       = 2
	colIteration = 3
	colKind      = 4
	colTool      = 5
	colCallID    = 6
	colArguments = 7
	colResult    = 8
	colOK        = 9
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339Nano)
	row[colSession] = e.SessionID
	row[colSeq] = strconv.Itoa(e.Seq)
	row[colIteration] = strconv.Itoa(e.Iteration)
	row[colKind] = string(e.Kind)
	row[colTool] = e.Tool
	row[colCallID] = e.CallID
	row[colArguments] = e.Arguments
	row[colResult] = e.Result
	row[colOK] = strconv.FormatBool(e.OK)
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339Nano, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	seq, err := strconv.Atoi(record[colSeq])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing seq %q: %w", record[colSeq], err)
	}
	iteration, err := strconv.Atoi(record[colIteration])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing iteration %q: %w", record[colIteration], err)
	}
	ok, err := strconv.ParseBool(record[colOK])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing ok %q: %w", record[colOK], err)
	}

	return Entry{
		Timestamp: ts,
		SessionID: record[colSession],
		Seq:       seq,
		Iteration: iteration,
		Kind:      Kind(record[colKind]),
		Tool:      record[colTool],
		CallID:    record[colCallID],
		Arguments: record[colArguments],
		Result:    record[colResult],
		OK:        ok,
	}, nil
}

// Log is an append-only, in-memory trace for one session. Safe for
// concurrent use by parallel tool calls.
type Log struct {
	mu        sync.Mutex
	sessionID string
	now       func() time.Time
	entries   []Entry
}

// NewLog creates an empty trace for sessionID.
func NewLog(sessionID string) *Log {
	return &Log{sessionID: sessionID, now: time.Now}
}

// Record stamps e with the session, sequence number and time, appends it, and
// returns the stored copy.
func (l *Log) Record(e Entry) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.SessionID = l.sessionID
	e.Seq = len(l.entries) + 1
	e.Timestamp = l.now().UTC()
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of the recorded entries.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// Since returns the entries after the first n.
func (l *Log) Since(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n >= len(l.entries) {
		return nil
	}
	return slices.Clone(l.entries[n:])
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Append writes entries to <dir>/trace.csv, creating the file and header if needed.
func Append(dir string, entries []Entry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating trace dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening trace: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <dir>/trace.csv.
// Returns an empty slice if the file does not exist.
func Read(dir string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening trace: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading trace CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Filter returns the entries of sessionID, or all entries when sessionID is empty.
func Filter(entries []Entry, sessionID string) []Entry {
	if sessionID == "" {
		return entries
	}
	var out []Entry
	for _, e := range entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}
