package scenario

import (
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// StoryboardElementType 故事板元素类型
type StoryboardElementType int

const (
	ElementAct StoryboardElementType = iota
	ElementAction
	ElementEvent
	ElementManeuver
	ElementManeuverGroup
	ElementStory
)

var storyboardElementTypeNames = []string{"act", "action", "event", "maneuver", "maneuverGroup", "story"}

// ParseStoryboardElementType 解析故事板元素类型
func ParseStoryboardElementType(name string) (StoryboardElementType, error) {
	if i := lo.IndexOf(storyboardElementTypeNames, name); i >= 0 {
		return StoryboardElementType(i), nil
	}
	return 0, simerror.Semantic(name, "unexpected value %q specified as type StoryboardElementType", name)
}

func (t StoryboardElementType) String() string {
	if int(t) < 0 || int(t) >= len(storyboardElementTypeNames) {
		simerror.Fault("unexpected value %d assigned to type StoryboardElementType", int(t))
	}
	return storyboardElementTypeNames[t]
}
