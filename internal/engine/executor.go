package engine

import (
	"strings"

	"github.com/gyaneshwarpardhi/mudbot/internal/metrics"
	"github.com/gyaneshwarpardhi/mudbot/internal/state"
	"github.com/gyaneshwarpardhi/mudbot/internal/trigger"
)

// repeatSentinel as a rendered output re-sends the last message.
const repeatSentinel = "$$"

const delaySuffix = state.Sep + "delay"

// Execute performs the actions of a fired reactive rule: render and emit (or
// schedule) its output, then apply its state mutations.
func (e *Engine) Execute(f Firing) {
	r := f.Rule
	if r.Out != nil {
		if msg, ok := e.render(*r.Out, f.Captures); ok {
			if r.Delay > 0 {
				e.schedule(f.ID, msg, r)
			} else {
				e.emit(msg, SourceTrigger, f.ID.String())
			}
		} else {
			e.log.Debug("nothing to repeat", "rule", f.ID.String())
		}
	}
	for _, a := range r.Set {
		e.store.Set(a.Name, resolve(a.Value, f.Captures))
	}
}

func (e *Engine) schedule(id trigger.RuleID, msg string, r *trigger.Rule) {
	now := e.now()
	key := id.String() + delaySuffix
	outcome := e.sched.Schedule(key, now, now.Add(r.Delay), msg)
	metrics.TasksScheduled.WithLabelValues(string(outcome)).Inc()
	metrics.TasksPending.Set(float64(e.sched.Len()))
	e.log.Debug("schedule", "key", key, "delay", r.Delay, "outcome", outcome, "msg", msg)
}

// render expands {name} state references, then either resolves the repeat
// sentinel or expands capture placeholders. ok is false only for a repeat
// with nothing emitted yet.
func (e *Engine) render(tmpl string, caps Captures) (string, bool) {
	out := expandState(tmpl, e.store)
	if out == repeatSentinel {
		return e.last, e.hasLast
	}
	return caps.Expand(out), true
}

// expandState substitutes {name} with the formatted state value. {{ and }}
// produce literal braces; an unterminated { is copied through.
func expandState(tmpl string, st *state.Store) string {
	if !strings.ContainsAny(tmpl, "{}") {
		return tmpl
	}
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case (c == '{' || c == '}') && i+1 < len(tmpl) && tmpl[i+1] == c:
			b.WriteByte(c)
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				b.WriteString(tmpl[i:])
				return b.String()
			}
			b.WriteString(state.Format(st.Lookup(tmpl[i+1 : i+1+end])))
			i += end + 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// resolve turns a "$k" directive value into its capture, or nil when there
// is no such capture. Other values are stored as-is.
func resolve(v interface{}, caps Captures) interface{} {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "$") {
		return v
	}
	if text, ok := caps.Lookup(s); ok {
		return text
	}
	return nil
}
