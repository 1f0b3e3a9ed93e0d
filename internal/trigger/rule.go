// Package trigger defines trigger sets ("packs"), compiles them from their
// on-disk JSON/YAML form and loads them from a pack directory.
package trigger

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/gyaneshwarpardhi/mudbot/internal/condition"
)

// Kind discriminates the two rule variants.
type Kind string

const (
	KindReactive Kind = "reactive"
	KindCommand  Kind = "command"
)

// RuleID identifies a rule by set name and position within the set.
type RuleID struct {
	Set   string
	Index int
}

func (id RuleID) String() string {
	return fmt.Sprintf("%s@@%d", id.Set, id.Index)
}

// Assignment is a state mutation directive.
type Assignment struct {
	Name  string
	Value interface{}
}

// Rule is one compiled entry of a trigger set.
//
// A Reactive rule fires on remote lines; a Command rule fires only when its
// Command name is dispatched. A rule with a non-nil Err was rejected at load
// time and never fires, but keeps its index.
type Rule struct {
	Kind Kind

	// Reactive fields.
	Pattern    *regexp2.Regexp
	PatternSrc string
	And        []condition.Condition
	Or         []condition.Condition
	HasOr      bool
	Cooldown   time.Duration
	Delay      time.Duration

	// Command field.
	Command string

	// Shared fields.
	Out *string
	Set []Assignment

	Err error
}

// Valid reports whether the rule passed validation.
func (r *Rule) Valid() bool { return r.Err == nil }

// IsCommand reports whether r is a Command rule.
func (r *Rule) IsCommand() bool { return r.Kind == KindCommand }

// Summary renders a one-line description for listings.
func (r *Rule) Summary() string {
	var parts []string
	if r.Kind == KindCommand {
		parts = append(parts, "cmd="+r.Command)
	}
	if r.PatternSrc != "" {
		parts = append(parts, fmt.Sprintf("match=%q", r.PatternSrc))
	}
	if len(r.And) > 0 {
		parts = append(parts, fmt.Sprintf("and=%v", r.And))
	}
	if r.HasOr {
		parts = append(parts, fmt.Sprintf("or=%v", r.Or))
	}
	if r.Cooldown > 0 {
		parts = append(parts, "cd="+r.Cooldown.String())
	}
	if r.Delay > 0 {
		parts = append(parts, "delay="+r.Delay.String())
	}
	if r.Out != nil {
		parts = append(parts, fmt.Sprintf("out=%q", *r.Out))
	}
	for _, a := range r.Set {
		parts = append(parts, fmt.Sprintf("set %s=%v", a.Name, a.Value))
	}
	if r.Err != nil {
		parts = append(parts, "INVALID: "+r.Err.Error())
	}
	return strings.Join(parts, " ")
}

// Set is a named, ordered collection of rules loaded as a unit.
type Set struct {
	Name     string
	Source   string
	LoadedAt time.Time
	Rules    []*Rule
}

// ID returns the identity of the rule at index i.
func (s *Set) ID(i int) RuleID {
	return RuleID{Set: s.Name, Index: i}
}

// Problems returns the load errors of all quarantined rules.
func (s *Set) Problems() []error {
	var out []error
	for _, r := range s.Rules {
		if r.Err != nil {
			out = append(out, r.Err)
		}
	}
	return out
}

// Counts returns the number of reactive, command and quarantined rules.
func (s *Set) Counts() (reactive, command, invalid int) {
	for _, r := range s.Rules {
		switch {
		case r.Err != nil:
			invalid++
		case r.Kind == KindCommand:
			command++
		default:
			reactive++
		}
	}
	return reactive, command, invalid
}
