// 随机数引擎，包装了golang.org/x/exp/rand，为场景中的随机分布提供可复现的随机数
package randengine

import (
	"flag"
	"log"
	"sync"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：提供可复现的随机数生成功能，支持离散分布、均匀分布与线程安全操作
// 说明：同一种子（加上种子偏移量）产生同一序列，保证随机场景可重放
type Engine struct {
	*rand.Rand            // 底层随机数生成器
	mtx        sync.Mutex // 互斥锁，用于线程安全操作
}

// New 创建随机数引擎
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// DiscreteDistribution 按给定权重生成随机下标（非线程安全）
// 功能：根据权重数组生成离散分布的随机数
// 参数：weight-权重数组，每个元素表示对应索引的概率权重
// 返回：随机生成的索引值（0到len(weight)-1）
// 算法说明：
// 1. 计算总权重并在[0, 总权重)中取随机数
// 2. 累积权重直到超过随机数，返回对应下标
func (e *Engine) DiscreteDistribution(weight []float64) int32 {
	random := .0
	for _, w := range weight {
		random += w
	}
	random *= e.Float64()
	sum := 0.
	for i, w := range weight {
		sum += w
		if sum > random {
			return int32(i)
		}
	}
	log.Panicf("randengine: DiscreteDistribution: sum: %f random: %f", sum, random)
	return -1
}

// Uniform 在[lower, upper)内均匀取值（非线程安全）
func (e *Engine) Uniform(lower, upper float64) float64 {
	return lower + (upper-lower)*e.Float64()
}

// PTrue 以指定概率返回true（非线程安全）
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}

// UniformSafe 在[lower, upper)内均匀取值（线程安全）
func (e *Engine) UniformSafe(lower, upper float64) float64 {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Uniform(lower, upper)
}

// DiscreteDistributionSafe 按给定权重生成随机下标（线程安全）
func (e *Engine) DiscreteDistributionSafe(weight []float64) int32 {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.DiscreteDistribution(weight)
}
