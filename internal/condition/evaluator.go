// Package condition evaluates state predicates attached to trigger rules.
package condition

import "fmt"

// Getter is the read side of the state store.
type Getter interface {
	Get(name string) (interface{}, bool)
}

// Condition compares the state variable Name against Value.
type Condition struct {
	Name  string      `json:"name" yaml:"name"`
	Op    Operator    `json:"op" yaml:"op"`
	Value interface{} `json:"value" yaml:"value"`
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Name, c.Op, c.Value)
}

// Evaluate reports whether c holds against the current state. An absent
// variable is nil: unequal to any concrete value and never gt/lt anything.
func Evaluate(c Condition, g Getter) bool {
	cur, _ := g.Get(c.Name)
	return compare(c.Op, cur, c.Value)
}

// All returns true if every condition holds (AND). An empty list is
// vacuously true.
func All(conds []Condition, g Getter) bool {
	for _, c := range conds {
		if !Evaluate(c, g) {
			return false // short-circuit
		}
	}
	return true
}

// Any returns true if at least one condition holds. An empty list is false.
func Any(conds []Condition, g Getter) bool {
	for _, c := range conds {
		if Evaluate(c, g) {
			return true // short-circuit
		}
	}
	return false
}
