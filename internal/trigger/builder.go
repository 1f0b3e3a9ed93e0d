package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/mudbot/internal/condition"
	"github.com/gyaneshwarpardhi/mudbot/internal/state"
)

// Format is the encoding of a pack file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// MatchTimeout bounds a single pattern evaluation.
const MatchTimeout = 250 * time.Millisecond

// Parse decodes and compiles a pack. The document must be a list of rule
// objects. A malformed document is an error; a malformed rule is kept in the
// set with Err set so the indices of its siblings do not shift.
func Parse(name string, data []byte, format Format) (*Set, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	defs, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	set := &Set{
		Name:     name,
		LoadedAt: time.Now(),
		Rules:    make([]*Rule, len(defs)),
	}
	for i, d := range defs {
		set.Rules[i] = compile(set.ID(i), d)
	}
	return set, nil
}

// ValidName rejects names that could escape the pack directory or make rule
// keys ambiguous. No '@' is allowed, so "<set>@@" never prefixes the keys of
// another set.
func ValidName(name string) error {
	switch {
	case name == "":
		return errors.New("pack name is empty")
	case strings.ContainsAny(name, `/\`) || strings.Contains(name, ".."):
		return fmt.Errorf("pack name %q must not contain path elements", name)
	case strings.Contains(name, "@"):
		return fmt.Errorf("pack name %q must not contain '@'", name)
	case strings.ContainsAny(name, " \t\r\n"):
		return fmt.Errorf("pack name %q must not contain whitespace", name)
	}
	return nil
}

// decoded pairs a rule definition with the error from decoding it.
type decoded struct {
	def ruleDef
	err error
}

func decode(data []byte, format Format) ([]decoded, error) {
	switch format {
	case FormatJSON:
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		out := make([]decoded, len(raw))
		for i, r := range raw {
			out[i].err = json.Unmarshal(r, &out[i].def)
		}
		return out, nil
	case FormatYAML:
		var nodes []yaml.Node
		if err := yaml.Unmarshal(data, &nodes); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		out := make([]decoded, len(nodes))
		for i := range nodes {
			out[i].err = nodes[i].Decode(&out[i].def)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported pack format %q", format)
	}
}

// compile validates one definition and builds the rule. Every problem is
// collected so a pack author sees them all at once.
func compile(id RuleID, d decoded) *Rule {
	r := &Rule{Kind: KindReactive}
	var problems []error
	if d.err != nil {
		r.Err = &RuleError{Rule: id, Problems: []error{fmt.Errorf("decode: %w", d.err)}}
		return r
	}
	def := d.def

	r.Out = def.Out
	r.Set, problems = compileAssignments(def.Set, problems)

	if def.Cmd != nil {
		r.Kind = KindCommand
		r.Command = strings.TrimSpace(*def.Cmd)
		if r.Command == "" {
			problems = append(problems, errors.New("cmd must not be empty"))
		}
		if strings.ContainsAny(r.Command, " \t") {
			problems = append(problems, fmt.Errorf("cmd %q must be a single word", r.Command))
		}
		return finish(r, id, problems)
	}

	src, err := patternSource(def)
	if err != nil {
		problems = append(problems, err)
	}
	if src != "" {
		re, err := compilePattern(src)
		if err != nil {
			problems = append(problems, &PatternError{Rule: id, Pattern: src, Err: err})
		} else {
			r.Pattern = re
		}
		r.PatternSrc = src
	}

	r.And, problems = compileConditions("and", def.And, problems)
	if def.Or != nil {
		r.HasOr = true
		r.Or, problems = compileConditions("or", *def.Or, problems)
	}
	r.Cooldown, problems = millis("cd", def.Cd, problems)
	r.Delay, problems = millis("delay", def.Delay, problems)

	return finish(r, id, problems)
}

func finish(r *Rule, id RuleID, problems []error) *Rule {
	if len(problems) > 0 {
		r.Err = &RuleError{Rule: id, Problems: problems}
	}
	return r
}

func patternSource(def ruleDef) (string, error) {
	switch {
	case def.Match != nil && def.Pattern != nil && *def.Match != *def.Pattern:
		return *def.Match, errors.New("match and pattern disagree; set only one")
	case def.Match != nil:
		return *def.Match, nil
	case def.Pattern != nil:
		return *def.Pattern, nil
	}
	return "", nil
}

func compileConditions(field string, defs []condDef, problems []error) ([]condition.Condition, []error) {
	out := make([]condition.Condition, 0, len(defs))
	for i, c := range defs {
		op, err := condition.ParseOp(c.Op)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s[%d]: %w", field, i, err))
			continue
		}
		if c.Name == "" {
			problems = append(problems, fmt.Errorf("%s[%d]: name is required", field, i))
			continue
		}
		if !state.Valid(c.Value) {
			problems = append(problems, fmt.Errorf("%s[%d]: value must be a string, number, boolean or null", field, i))
			continue
		}
		out = append(out, condition.Condition{Name: c.Name, Op: op, Value: state.Normalize(c.Value)})
	}
	return out, problems
}

func compileAssignments(defs []assignDef, problems []error) ([]Assignment, []error) {
	out := make([]Assignment, 0, len(defs))
	for i, a := range defs {
		switch {
		case a.Name == "":
			problems = append(problems, fmt.Errorf("set[%d]: name is required", i))
		case state.IsReserved(a.Name):
			problems = append(problems, fmt.Errorf("set[%d]: name %q uses the reserved separator %q", i, a.Name, state.Sep))
		case !state.Valid(a.Value):
			problems = append(problems, fmt.Errorf("set[%d]: value must be a string, number, boolean or null", i))
		default:
			out = append(out, Assignment{Name: a.Name, Value: state.Normalize(a.Value)})
		}
	}
	return out, problems
}

func millis(field string, v *float64, problems []error) (time.Duration, []error) {
	if v == nil {
		return 0, problems
	}
	if *v < 0 {
		return 0, append(problems, fmt.Errorf("%s must not be negative, got %v", field, *v))
	}
	return time.Duration(*v * float64(time.Millisecond)), problems
}
