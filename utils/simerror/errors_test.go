package simerror_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

func TestSemanticErrorCarriesIdentifier(t *testing.T) {
	err := simerror.NotExist("npc1")
	assert.Contains(t, err.Error(), "npc1")
	assert.Contains(t, err.Error(), "does not exist")
	assert.True(t, simerror.IsSemantic(err))

	wrapped := fmt.Errorf("spawn failed: %w", simerror.AlreadyExists("ego"))
	assert.True(t, simerror.IsSemantic(wrapped))
	assert.False(t, simerror.IsSemantic(fmt.Errorf("plain")))
}

func TestFaultPanics(t *testing.T) {
	assert.PanicsWithError(t, "implementation fault: shape cubic", func() {
		simerror.Fault("shape %s", "cubic")
	})
}
