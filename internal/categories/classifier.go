package categories

import (
	"fmt"
	"os"
	"strings"
)

// Class groups account categories for metric computation.
type Class string

const (
	ClassRevenue Class = "revenue"
	ClassCOGS    Class = "cogs"
	ClassOpex    Class = "opex"
	ClassOther   Class = "other"
)

// ParseClass parses a class name case-insensitively.
func ParseClass(s string) (Class, error) {
	switch c := Class(strings.ToLower(strings.TrimSpace(s))); c {
	case ClassRevenue, ClassCOGS, ClassOpex, ClassOther:
		return c, nil
	default:
		return "", fmt.Errorf("unknown category class %q", s)
	}
}

// Rule maps a category name to a class. A trailing "*" makes Pattern a prefix match.
type Rule struct {
	Pattern string
	Class   Class
}

func (r Rule) matches(category string) bool {
	c := strings.ToLower(strings.TrimSpace(category))
	p := strings.ToLower(r.Pattern)
	if prefix, ok := strings.CutSuffix(p, "*"); ok {
		return strings.HasPrefix(c, prefix)
	}
	return c == p
}

// Classifier resolves categories to classes. First matching rule wins.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a Classifier from rules.
func NewClassifier(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Default returns a Classifier over DefaultRules.
func Default() *Classifier {
	return NewClassifier(DefaultRules())
}

// Load reads a rules CSV from path. An empty path yields the defaults.
func Load(path string) (*Classifier, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening category rules: %w", err)
	}
	defer f.Close()

	rules, err := ReadRules(f)
	if err != nil {
		return nil, fmt.Errorf("reading category rules: %w", err)
	}
	return NewClassifier(rules), nil
}

// Rules returns the classifier's rules.
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// Classify returns the class of category, or ClassOther.
func (c *Classifier) Classify(category string) Class {
	for _, r := range c.rules {
		if r.matches(category) {
			return r.Class
		}
	}
	return ClassOther
}

// Is reports whether category belongs to class.
func (c *Classifier) Is(category string, class Class) bool {
	return c.Classify(category) == class
}
