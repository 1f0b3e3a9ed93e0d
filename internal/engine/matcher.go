package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/gyaneshwarpardhi/mudbot/internal/condition"
	"github.com/gyaneshwarpardhi/mudbot/internal/state"
	"github.com/gyaneshwarpardhi/mudbot/internal/trigger"
)

// Group is one capture group of a pattern match. Matched is false for a
// group that did not participate in the match.
type Group struct {
	Text    string
	Matched bool
}

// Captures holds the groups of the match that fired a rule; Captures[0] is $1.
type Captures []Group

// Lookup resolves a "$k" reference. ok is false when the reference is
// malformed, out of range or names a group that did not participate.
func (c Captures) Lookup(ref string) (string, bool) {
	if len(ref) < 2 || ref[0] != '$' || ref[1] == '0' {
		return "", false
	}
	n, err := strconv.Atoi(ref[1:])
	if err != nil || n < 1 || n > len(c) || !c[n-1].Matched {
		return "", false
	}
	return c[n-1].Text, true
}

// Expand replaces "$k" placeholders in s. The longest digit run naming an
// existing group wins, so "$10" is group ten when there are ten groups and
// group one followed by "0" otherwise. A placeholder naming no group
// expands to nothing.
func (c Captures) Expand(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '$' || i+1 >= len(s) || s[i+1] < '1' || s[i+1] > '9' {
			b.WriteByte(s[i])
			continue
		}
		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		end := j
		for ; end > i+1; end-- {
			if n, err := strconv.Atoi(s[i+1 : end]); err == nil && n <= len(c) {
				b.WriteString(c[n-1].Text)
				break
			}
		}
		if end == i+1 {
			end = j // no such group: drop the whole placeholder
		}
		i = end - 1
	}
	return b.String()
}

func capturesOf(m *regexp2.Match) Captures {
	groups := m.Groups()
	if len(groups) <= 1 {
		return nil
	}
	out := make(Captures, 0, len(groups)-1)
	for _, g := range groups[1:] {
		out = append(out, Group{Text: g.String(), Matched: len(g.Captures) > 0})
	}
	return out
}

// Firing is a reactive rule accepted for one line.
type Firing struct {
	ID       trigger.RuleID
	Rule     *trigger.Rule
	Captures Captures
}

// FindFiring returns every reactive rule that fires for line, in set load
// order then rule order. Accepting a rule stamps its last-fire time, so
// calling FindFiring has side effects on the state store.
func (e *Engine) FindFiring(line string) []Firing {
	now := e.nowMillis()
	var out []Firing
	for _, set := range e.sets {
		for i, r := range set.Rules {
			if !r.Valid() || r.IsCommand() {
				continue
			}
			id := set.ID(i)
			caps, ok := e.accept(id, r, line, now)
			if ok {
				out = append(out, Firing{ID: id, Rule: r, Captures: caps})
			}
		}
	}
	return out
}

func (e *Engine) accept(id trigger.RuleID, r *trigger.Rule, line string, now float64) (Captures, bool) {
	if !condition.All(r.And, e.store) {
		return nil, false
	}
	if r.HasOr {
		list := r.Or
		if e.orMode == OrLegacy {
			list = r.And
		}
		if !condition.Any(list, e.store) {
			return nil, false
		}
	}

	var caps Captures
	if r.Pattern != nil {
		m, err := r.Pattern.FindStringMatch(line)
		if err != nil {
			e.log.Warn("pattern evaluation failed", "rule", id.String(), "pattern", r.PatternSrc, "err", err)
			return nil, false
		}
		if m == nil {
			return nil, false
		}
		caps = capturesOf(m)
	}

	key := state.CooldownKey(id.String())
	if r.Cooldown > 0 {
		last, _ := state.ToFloat64(e.store.Lookup(key))
		if now-last < float64(r.Cooldown)/float64(time.Millisecond) {
			return nil, false
		}
	}
	e.store.Set(key, now)
	return caps, true
}
