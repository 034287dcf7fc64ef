package scenario

import (
	"math"

	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// Rule 比较规则
type Rule int

const (
	EqualTo Rule = iota
	GreaterThan
	LessThan
	GreaterOrEqual
	LessOrEqual
	NotEqualTo
)

// 相等比较的相对误差
const equalEpsilon = 1e-9

var ruleNames = map[Rule]string{
	EqualTo:        "equalTo",
	GreaterThan:    "greaterThan",
	LessThan:       "lessThan",
	GreaterOrEqual: "greaterOrEqual",
	LessOrEqual:    "lessOrEqual",
	NotEqualTo:     "notEqualTo",
}

func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	simerror.Fault("unexpected rule value %d", int(r))
	return ""
}

// ParseRule 解析比较规则
func ParseRule(name string) (Rule, error) {
	for r, n := range ruleNames {
		if n == name {
			return r, nil
		}
	}
	return 0, simerror.Semantic(name, "unexpected value %q specified as type Rule", name)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= equalEpsilon*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// Apply 比较lhs与rhs，任一操作数为NaN时结果为false
func (r Rule) Apply(lhs, rhs float64) bool {
	if math.IsNaN(lhs) || math.IsNaN(rhs) {
		return false
	}
	switch r {
	case EqualTo:
		return almostEqual(lhs, rhs)
	case GreaterThan:
		return lhs > rhs
	case LessThan:
		return lhs < rhs
	case GreaterOrEqual:
		return lhs >= rhs
	case LessOrEqual:
		return lhs <= rhs
	case NotEqualTo:
		return !almostEqual(lhs, rhs)
	default:
		simerror.Fault("unexpected rule value %d", int(r))
		return false
	}
}
