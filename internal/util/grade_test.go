package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRealGradeValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      float64
		max      float64
		decimals int
		want     float64
	}{
		{"满分80工作坊的86.67%", 86.66667, 80, 2, 69.33},
		{"整百", 100, 80, 2, 80},
		{"零分", 0, 80, 2, 0},
		{"零位小数", 86.66667, 80, 0, 69},
		{"非法满分退化为零", 50, 0, 2, 0},
		{"负满分退化为零", 50, -10, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RealGradeValue(tt.raw, tt.max, tt.decimals), GradeEpsilon)
		})
	}
}

func TestRawGradeValue(t *testing.T) {
	assert.InDelta(t, 86.6625, RawGradeValue(69.33, 80), 0.001)
	assert.Equal(t, 0.0, RawGradeValue(-5, 80))
	assert.Equal(t, 100.0, RawGradeValue(90, 80))
	assert.Equal(t, 0.0, RawGradeValue(50, 0))
}

// 真实分来回换算后应落回原值的容差范围内
func TestGradeRoundTrip(t *testing.T) {
	for _, raw := range []float64{0, 12.5, 50, 86.66667, 100} {
		real := RealGradeValue(raw, 80, 5)
		back := RawGradeValue(real, 80)
		assert.InDelta(t, raw, back, 0.001, "raw=%v", raw)
	}
}

func TestGradesDiffer(t *testing.T) {
	a := Float64Ptr(86.66667)
	b := Float64Ptr(86.66667 + GradeEpsilon/2)
	c := Float64Ptr(86.7)

	assert.False(t, GradesDiffer(a, b), "容差内视为相同")
	assert.True(t, GradesDiffer(a, c))
	assert.True(t, GradesDiffer(nil, a), "空值与数值不同")
	assert.True(t, GradesDiffer(a, nil))
	assert.False(t, GradesDiffer(nil, nil), "双空相同")
}

func TestClampWeight(t *testing.T) {
	assert.Equal(t, 0, ClampWeight(-3))
	assert.Equal(t, 1, ClampWeight(1))
	assert.Equal(t, 16, ClampWeight(99))
}
