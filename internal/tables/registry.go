package tables

import (
	"fmt"
	"os"
	"path/filepath"
)

// Registry holds the parser for each table.
type Registry struct {
	parsers map[Name]Parser
}

// FileInfo describes a resolved source file.
type FileInfo struct {
	Table Name
	Path  string
	Size  int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[Name]Parser)}
}

// Register adds a parser. Panics on a duplicate table.
func (r *Registry) Register(p Parser) {
	if _, ok := r.parsers[p.Table()]; ok {
		panic("duplicate parser for table: " + string(p.Table()))
	}
	r.parsers[p.Table()] = p
}

// Get returns the parser for table, or nil.
func (r *Registry) Get(table Name) Parser {
	return r.parsers[table]
}

// DefaultRegistry returns a registry with parsers for all four tables.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&LedgerParser{Name: Actuals})
	r.Register(&LedgerParser{Name: Budget})
	r.Register(&FXParser{})
	r.Register(&CashParser{})
	return r
}

// Scan resolves the four source files under dir. files overrides the default
// file name per table. A missing file is an error: the dataset needs all four.
func Scan(dir string, files map[Name]string) ([]FileInfo, error) {
	out := make([]FileInfo, 0, len(Names))
	for _, n := range Names {
		name := files[n]
		if name == "" {
			name = n.FileName()
		}
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, name)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("locating %s table: %w", n, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("locating %s table: %s is a directory", n, path)
		}
		out = append(out, FileInfo{Table: n, Path: path, Size: info.Size()})
	}
	return out, nil
}
