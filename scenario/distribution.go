package scenario

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/randengine"
	"github.com/tsinghua-fib-lab/scenario-sim/utils/simerror"
)

// UniformDistribution [Lower, Upper)上的均匀分布
type UniformDistribution struct {
	Lower, Upper float64
}

func NewUniformDistribution(lower, upper float64) (UniformDistribution, error) {
	if lower > upper {
		return UniformDistribution{}, simerror.Semantic(
			fmt.Sprintf("[%v, %v]", lower, upper), "lower bound %v is greater than upper bound %v", lower, upper)
	}
	return UniformDistribution{Lower: lower, Upper: upper}, nil
}

func (d UniformDistribution) Evaluate(engine *randengine.Engine) float64 {
	return engine.Uniform(d.Lower, d.Upper)
}

// ProbabilityDistributionSetElement 离散分布的一个取值及其权重
type ProbabilityDistributionSetElement struct {
	Value  float64
	Weight float64
}

// ProbabilityDistributionSet 按权重取值的离散分布
type ProbabilityDistributionSet struct {
	Elements []ProbabilityDistributionSetElement
}

func NewProbabilityDistributionSet(elements []ProbabilityDistributionSetElement) (ProbabilityDistributionSet, error) {
	if len(elements) == 0 {
		return ProbabilityDistributionSet{}, simerror.Semantic("ProbabilityDistributionSet", "no element given")
	}
	total := 0.0
	for _, e := range elements {
		if e.Weight < 0 {
			return ProbabilityDistributionSet{}, simerror.Semantic(fmt.Sprint(e.Value), "negative weight %v", e.Weight)
		}
		total += e.Weight
	}
	if total <= 0 {
		return ProbabilityDistributionSet{}, simerror.Semantic("ProbabilityDistributionSet", "weights sum to zero")
	}
	return ProbabilityDistributionSet{Elements: elements}, nil
}

func (d ProbabilityDistributionSet) Evaluate(engine *randengine.Engine) float64 {
	weights := lo.Map(d.Elements, func(e ProbabilityDistributionSetElement, _ int) float64 { return e.Weight })
	return d.Elements[engine.DiscreteDistribution(weights)].Value
}
