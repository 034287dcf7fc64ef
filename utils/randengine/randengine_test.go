package randengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/randengine"
)

func TestEngineIsReproducible(t *testing.T) {
	a := randengine.New(42)
	b := randengine.New(42)
	for range 10 {
		assert.Equal(t, a.Uniform(-1, 1), b.Uniform(-1, 1))
	}
}

func TestDiscreteDistribution(t *testing.T) {
	e := randengine.New(7)
	for range 100 {
		// 权重为0的下标永远不会被选中
		i := e.DiscreteDistribution([]float64{0, 1, 0})
		assert.Equal(t, int32(1), i)
	}
	for range 100 {
		v := e.UniformSafe(2, 3)
		assert.GreaterOrEqual(t, v, 2.0)
		assert.Less(t, v, 3.0)
	}
}
