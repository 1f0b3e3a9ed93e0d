package condition

import (
	"fmt"
	"math"
	"strings"

	"github.com/gyaneshwarpardhi/mudbot/internal/state"
)

// Operator represents a comparison operator.
type Operator string

const (
	OpEq  Operator = "eq"
	OpNot Operator = "not"
	OpGt  Operator = "gt"
	OpLt  Operator = "lt"
)

// ParseOp validates an operator name from a trigger pack.
func ParseOp(s string) (Operator, error) {
	switch op := Operator(strings.ToLower(strings.TrimSpace(s))); op {
	case OpEq, OpNot, OpGt, OpLt:
		return op, nil
	}
	return "", fmt.Errorf("unknown operator %q (want eq, not, gt or lt)", s)
}

// compare applies a binary comparison operator to two values.
func compare(op Operator, left, right interface{}) bool {
	switch op {
	case OpEq:
		return equal(left, right)
	case OpNot:
		return !equal(left, right)
	case OpGt, OpLt:
		return numericCompare(op, left, right)
	default:
		return false
	}
}

// equal compares numbers by value and everything else only within its own
// type. nil (absent) equals only nil.
func equal(left, right interface{}) bool {
	lf, lok := state.ToFloat64(left)
	rf, rok := state.ToFloat64(right)
	if lok || rok {
		return lok && rok && math.Abs(lf-rf) < 1e-9
	}
	switch l := left.(type) {
	case nil:
		return right == nil
	case bool:
		r, ok := right.(bool)
		return ok && l == r
	case string:
		r, ok := right.(string)
		return ok && l == r
	}
	return false
}

func numericCompare(op Operator, left, right interface{}) bool {
	lf, lok := state.ToFloat64(left)
	rf, rok := state.ToFloat64(right)
	if !lok || !rok {
		return false
	}
	if op == OpGt {
		return lf > rf
	}
	return lf < rf
}
