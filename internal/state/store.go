// Package state holds the engine's variable store.
//
// Values are one of string, float64, bool or nil (absent). Keys containing
// the reserved separator "@@" belong to the engine's own bookkeeping.
package state

import (
	"sort"
	"strconv"
	"strings"
)

// Sep separates the parts of an engine-owned key. User variable names must
// not contain it.
const Sep = "@@"

const cooldownSuffix = Sep + "cd"

// Store maps variable names to values. It is not safe for concurrent use;
// the session loop is its only writer.
type Store struct {
	vals map[string]interface{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{vals: make(map[string]interface{})}
}

// Get returns the value stored under name. ok is false when the name was
// never set; a name explicitly set to an absent value returns (nil, true).
func (s *Store) Get(name string) (interface{}, bool) {
	v, ok := s.vals[name]
	return v, ok
}

// Lookup returns the value stored under name, or nil.
func (s *Store) Lookup(name string) interface{} {
	return s.vals[name]
}

// Set stores v under name. Integer types are widened to float64.
func (s *Store) Set(name string, v interface{}) {
	s.vals[name] = Normalize(v)
}

// DeleteFunc removes every name for which match returns true and returns how
// many were removed.
func (s *Store) DeleteFunc(match func(name string) bool) int {
	n := 0
	for k := range s.vals {
		if match(k) {
			delete(s.vals, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored names.
func (s *Store) Len() int {
	return len(s.vals)
}

// Names returns all stored names in sorted order.
func (s *Store) Names() []string {
	out := make([]string, 0, len(s.vals))
	for k := range s.vals {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of the store contents.
func (s *Store) Snapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(s.vals))
	for k, v := range s.vals {
		out[k] = v
	}
	return out
}

// CooldownKey returns the key holding the last-fire timestamp of a rule.
func CooldownKey(ruleID string) string {
	return ruleID + cooldownSuffix
}

// OwnedBy reports whether key is a per-rule key of the named set, that is
// "<set>@@<index>@@<suffix>". A set named "a" does not own the keys of a set
// named "a@".
func OwnedBy(key, set string) bool {
	rest, ok := strings.CutPrefix(key, set+Sep)
	if !ok {
		return false
	}
	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	return digits > 0 && strings.HasPrefix(rest[digits:], Sep)
}

// IsReserved reports whether name is an engine-owned key.
func IsReserved(name string) bool {
	return strings.Contains(name, Sep)
}

// Normalize converts numeric values to float64 and leaves strings, bools and
// nil untouched. Other types are returned as-is.
func Normalize(v interface{}) interface{} {
	if f, ok := ToFloat64(v); ok {
		return f
	}
	return v
}

// Valid reports whether v is a storable scalar.
func Valid(v interface{}) bool {
	switch Normalize(v).(type) {
	case nil, string, float64, bool:
		return true
	}
	return false
}

// ToFloat64 coerces a numeric value to float64.
func ToFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Format renders a value for output templates. Absent renders empty.
func Format(v interface{}) string {
	switch x := Normalize(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}
