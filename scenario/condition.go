package scenario

import (
	"math"
	"strconv"
	"strings"
)

// Condition 场景触发条件
type Condition interface {
	// Evaluate 基于最近一次提交的实体状态求值，每次求值前清空结果缓冲区
	Evaluate() (bool, error)
	// Description 人类可读的描述，包含触发实体、最近一次的结果、比较规则与阈值
	Description() string
}

// 结果列表的文本形式，例如 [1.5, NaN]
func formatResults(results []float64) string {
	parts := make([]string, len(results))
	for i, r := range results {
		if math.IsNaN(r) {
			parts[i] = "NaN"
		} else {
			parts[i] = strconv.FormatFloat(r, 'g', -1, 64)
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatNestedResults(results [][]float64) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = formatResults(r)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
