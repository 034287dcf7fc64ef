package scenario

import (
	"fmt"
	"strings"

	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// TriggeringEntitiesRule 触发实体的组合规则
type TriggeringEntitiesRule int

const (
	Any TriggeringEntitiesRule = iota
	All
)

func (r TriggeringEntitiesRule) String() string {
	switch r {
	case Any:
		return "any"
	case All:
		return "all"
	default:
		simerror.Fault("unexpected triggering entities rule %d", int(r))
		return ""
	}
}

// ParseTriggeringEntitiesRule 解析组合规则，空字符串视为any
func ParseTriggeringEntitiesRule(name string) (TriggeringEntitiesRule, error) {
	switch name {
	case "", "any":
		return Any, nil
	case "all":
		return All, nil
	default:
		return 0, simerror.Semantic(name, "unexpected value %q specified as type TriggeringEntitiesRule", name)
	}
}

// TriggeringEntities 条件的触发实体集合
type TriggeringEntities struct {
	Rule TriggeringEntitiesRule
	Refs []string
}

// Apply 对每个实体求值并按规则组合
// 说明：不短路，每个实体每次都会被求值，以保证结果缓冲区与实体一一对应；
// all对空集合为true，any对空集合为false
func (t TriggeringEntities) Apply(f func(name string) (bool, error)) (bool, error) {
	satisfied := t.Rule == All
	for _, name := range t.Refs {
		ok, err := f(name)
		if err != nil {
			return false, err
		}
		if t.Rule == All {
			satisfied = satisfied && ok
		} else {
			satisfied = satisfied || ok
		}
	}
	return satisfied, nil
}

// Description 例如 "Any of [ego, npc1]"
func (t TriggeringEntities) Description() string {
	prefix := "Any"
	if t.Rule == All {
		prefix = "All"
	}
	return fmt.Sprintf("%s of [%s]", prefix, strings.Join(t.Refs, ", "))
}
