package trigger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no pack file exists for a name.
var ErrNotFound = errors.New("trigger pack not found")

// LoadError reports a pack that could not be loaded at all.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load trigger pack %q: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PatternError reports a rule whose regular expression does not compile.
type PatternError struct {
	Rule    RuleID
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// RuleError collects every problem found in one rule.
type RuleError struct {
	Rule     RuleID
	Problems []error
}

func (e *RuleError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("rule %s: %s", e.Rule, strings.Join(msgs, "; "))
}

func (e *RuleError) Unwrap() []error { return e.Problems }
