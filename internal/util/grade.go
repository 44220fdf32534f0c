package util

import (
	"math"

	"workshopplus_backend/internal/model"
)

// 成绩以 5 位小数的百分比存储，差值小于该容差视为相同
const GradeEpsilon = 0.00001

// RealGradeValue 把百分比成绩换算为工作坊满分下的真实分，按 decimals 位小数取整
func RealGradeValue(raw float64, max float64, decimals int) float64 {
	if max <= 0 {
		return 0
	}
	real := max * raw / 100
	shift := math.Pow(10, float64(decimals))
	return math.Round(real*shift) / shift
}

// RawGradeValue 真实分反算百分比。先钳制到 [0, max]，结果钳制到 [0,100]；max<=0 退化为 0
func RawGradeValue(real float64, max float64) float64 {
	if max <= 0 {
		return 0
	}
	if real < 0 {
		real = 0
	}
	if real > max {
		real = max
	}
	return ClampGrade(real / max * 100)
}

// GradesDiffer 浮点容差比较；空值与任何数值不同，双空相同
func GradesDiffer(a, b *float64) bool {
	if a == nil || b == nil {
		return (a == nil) != (b == nil)
	}
	return math.Abs(*a-*b) > GradeEpsilon
}

// ClampGrade 钳制百分比到 [0,100]
func ClampGrade(g float64) float64 {
	if g < 0 {
		return 0
	}
	if g > 100 {
		return 100
	}
	return g
}

// ClampWeight 钳制评审权重到 [WeightMin, WeightMax]
func ClampWeight(w int) int {
	if w < model.WeightMin {
		return model.WeightMin
	}
	if w > model.WeightMax {
		return model.WeightMax
	}
	return w
}

// Float64Ptr 便于构造可空成绩字段
func Float64Ptr(v float64) *float64 {
	return &v
}
