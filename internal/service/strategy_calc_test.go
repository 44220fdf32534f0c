package service

import (
	"testing"

	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accumulativeDim(id uint, gradeMax float64, weight int) model.AccumulativeDimension {
	d := model.AccumulativeDimension{GradeMax: gradeMax, Weight: weight}
	d.ID = id
	return d
}

func TestCalcAccumulativeGrade(t *testing.T) {
	dims := []model.AccumulativeDimension{
		accumulativeDim(1, 10, 1),
		accumulativeDim(2, 20, 3),
	}

	// (1*(5/10) + 3*(10/20)) / 4 * 100 = 50
	grade, err := CalcAccumulativeGrade(dims, map[uint]float64{1: 5, 2: 10})
	require.NoError(t, err)
	assert.InDelta(t, 50, grade, util.GradeEpsilon)

	// 满分
	grade, err = CalcAccumulativeGrade(dims, map[uint]float64{1: 10, 2: 20})
	require.NoError(t, err)
	assert.InDelta(t, 100, grade, util.GradeEpsilon)

	// 超出维度满分的打分钳制
	grade, err = CalcAccumulativeGrade(dims, map[uint]float64{1: 99, 2: -5})
	require.NoError(t, err)
	assert.InDelta(t, 25, grade, util.GradeEpsilon)

	// 缺维度
	_, err = CalcAccumulativeGrade(dims, map[uint]float64{1: 5})
	assert.ErrorIs(t, err, util.ErrMissingDimension)

	// 无维度定义
	_, err = CalcAccumulativeGrade(nil, nil)
	assert.ErrorIs(t, err, util.ErrFormNotReady)
}

func numErrorsDim(id uint, weight int) model.NumErrorsDimension {
	d := model.NumErrorsDimension{Weight: weight}
	d.ID = id
	return d
}

func TestWeightedErrorCount(t *testing.T) {
	dims := []model.NumErrorsDimension{
		numErrorsDim(1, 1),
		numErrorsDim(2, 2),
		numErrorsDim(3, 1),
	}

	count, err := WeightedErrorCount(dims, map[uint]bool{1: true, 2: false, 3: false})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = WeightedErrorCount(dims, map[uint]bool{1: true, 2: true, 3: true})
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = WeightedErrorCount(dims, map[uint]bool{1: true})
	assert.ErrorIs(t, err, util.ErrMissingDimension)
}

func TestErrorsToGrade(t *testing.T) {
	mappings := []model.NumErrorsMapping{
		{NoNegative: 0, Grade: 100},
		{NoNegative: 2, Grade: 80},
		{NoNegative: 5, Grade: 30},
	}

	// 未定义的错误数取不大于它的最近已定义项
	tests := []struct {
		errors int
		want   float64
	}{
		{0, 100},
		{1, 100},
		{2, 80},
		{3, 80},
		{4, 80},
		{5, 30},
		{6, 30},
		{100, 30},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ErrorsToGrade(mappings, tt.errors), util.GradeEpsilon, "errors=%d", tt.errors)
	}

	// 空映射表：任何错误数都是满分缺省
	assert.InDelta(t, 100, ErrorsToGrade(nil, 7), util.GradeEpsilon)
}

func rubricCriterion(id uint, levels ...model.RubricLevel) model.RubricCriterion {
	c := model.RubricCriterion{Levels: levels}
	c.ID = id
	return c
}

func rubricLevel(id uint, grade float64) model.RubricLevel {
	l := model.RubricLevel{Grade: grade}
	l.ID = id
	return l
}

func TestCalcRubricGrade(t *testing.T) {
	criteria := []model.RubricCriterion{
		rubricCriterion(1, rubricLevel(11, 0), rubricLevel(12, 1), rubricLevel(13, 2)),
		rubricCriterion(2, rubricLevel(21, 1), rubricLevel(22, 3)),
	}

	// 全选最高档
	grade, err := CalcRubricGrade(criteria, map[uint]uint{1: 13, 2: 22})
	require.NoError(t, err)
	assert.InDelta(t, 100, grade, util.GradeEpsilon)

	// 全选最低档
	grade, err = CalcRubricGrade(criteria, map[uint]uint{1: 11, 2: 21})
	require.NoError(t, err)
	assert.InDelta(t, 0, grade, util.GradeEpsilon)

	// (1+1 - 1) / (5 - 1) * 100 = 25
	grade, err = CalcRubricGrade(criteria, map[uint]uint{1: 12, 2: 21})
	require.NoError(t, err)
	assert.InDelta(t, 25, grade, util.GradeEpsilon)

	// 缺准则与未知等级
	_, err = CalcRubricGrade(criteria, map[uint]uint{1: 12})
	assert.ErrorIs(t, err, util.ErrMissingDimension)
	_, err = CalcRubricGrade(criteria, map[uint]uint{1: 99, 2: 21})
	assert.ErrorIs(t, err, util.ErrMissingDimension)

	// 所有等级同分视为满分
	flat := []model.RubricCriterion{
		rubricCriterion(1, rubricLevel(11, 2), rubricLevel(12, 2)),
	}
	grade, err = CalcRubricGrade(flat, map[uint]uint{1: 11})
	require.NoError(t, err)
	assert.InDelta(t, 100, grade, util.GradeEpsilon)
}
