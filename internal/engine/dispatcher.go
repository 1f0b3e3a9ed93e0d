package engine

import (
	"strconv"

	"github.com/gyaneshwarpardhi/mudbot/internal/metrics"
)

// Dispatch fires every command rule named name, in load order. Output is
// sent verbatim and state directives are stored literally. It returns the
// number of rules fired; no match is not an error.
func (e *Engine) Dispatch(name string) int {
	fired := 0
	for _, set := range e.sets {
		for i, r := range set.Rules {
			if !r.Valid() || !r.IsCommand() || r.Command != name {
				continue
			}
			fired++
			if r.Out != nil {
				e.emit(*r.Out, SourceCommand, set.ID(i).String())
			}
			for _, a := range r.Set {
				e.store.Set(a.Name, a.Value)
			}
		}
	}
	metrics.CommandsDispatched.WithLabelValues(strconv.FormatBool(fired > 0)).Inc()
	if fired == 0 {
		e.log.Debug("no command rule", "cmd", name)
	}
	return fired
}
