package service

import (
	"testing"

	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvaluationStore struct {
	assessments []model.Assessment
	dimGrades   map[uint][]model.DimensionGrade
	settings    *model.BestEvaluationSettings

	written map[uint]*float64
}

func newFakeEvaluationStore(compareLevel int) *fakeEvaluationStore {
	return &fakeEvaluationStore{
		dimGrades: make(map[uint][]model.DimensionGrade),
		settings:  &model.BestEvaluationSettings{CompareLevel: compareLevel},
		written:   make(map[uint]*float64),
	}
}

func (f *fakeEvaluationStore) ListWorkshopAssessments(workshopID uint) ([]model.Assessment, error) {
	return f.assessments, nil
}

func (f *fakeEvaluationStore) ListDimensionGrades(assessmentID uint) ([]model.DimensionGrade, error) {
	return f.dimGrades[assessmentID], nil
}

func (f *fakeEvaluationStore) UpdateGradingGrade(assessmentID uint, gradingGrade *float64) error {
	f.written[assessmentID] = gradingGrade
	return nil
}

func (f *fakeEvaluationStore) BestSettings(workshopID uint) (*model.BestEvaluationSettings, error) {
	return f.settings, nil
}

func (f *fakeEvaluationStore) addAssessment(id, submissionID, reviewerID uint, weight int, grades map[uint]float64) {
	a := assessment(id, submissionID, reviewerID, weight, util.Float64Ptr(0))
	f.assessments = append(f.assessments, a)
	var rows []model.DimensionGrade
	for dim, g := range grades {
		rows = append(rows, model.DimensionGrade{AssessmentID: id, DimensionID: dim, Grade: g})
	}
	f.dimGrades[id] = rows
}

func TestNormalizedDistance(t *testing.T) {
	ref := map[uint]float64{1: 10, 2: 0}
	span := map[uint]float64{1: 10, 2: 10}

	assert.InDelta(t, 0, NormalizedDistance(ref, map[uint]float64{1: 10, 2: 0}, span), util.GradeEpsilon)
	assert.InDelta(t, 1, NormalizedDistance(ref, map[uint]float64{1: 0, 2: 10}, span), util.GradeEpsilon)
	assert.InDelta(t, 0.5, NormalizedDistance(ref, map[uint]float64{1: 5, 2: 5}, span), util.GradeEpsilon)

	// 零跨度维度视为一致，不计入
	span0 := map[uint]float64{1: 10, 2: 0}
	assert.InDelta(t, 0.5, NormalizedDistance(ref, map[uint]float64{1: 5, 2: 99}, span0), util.GradeEpsilon)

	// 无可比维度
	assert.Equal(t, 0.0, NormalizedDistance(map[uint]float64{}, nil, nil))
}

func TestBestGradingGrade(t *testing.T) {
	assert.InDelta(t, 100, BestGradingGrade(0, 5), util.GradeEpsilon)
	assert.InDelta(t, 0, BestGradingGrade(1, 5), util.GradeEpsilon)

	// 严格度越高同样偏差扣得越狠
	lenient := BestGradingGrade(0.2, 1)
	strict := BestGradingGrade(0.2, 9)
	assert.Greater(t, lenient, strict)
	assert.InDelta(t, 80, lenient, util.GradeEpsilon)
}

func TestBestEvaluatorWithReference(t *testing.T) {
	store := newFakeEvaluationStore(5)
	// 助教评审作为参考
	store.addAssessment(1, 1, 50, 16, map[uint]float64{1: 10, 2: 8})
	// 与参考完全一致的互评
	store.addAssessment(2, 1, 51, 1, map[uint]float64{1: 10, 2: 8})
	// 偏离参考的互评
	store.addAssessment(3, 1, 52, 1, map[uint]float64{1: 0, 2: 2})

	svc := NewEvaluationService(store)
	w := &model.Workshop{Phase: model.PhaseEvaluation, Evaluation: EvaluationBest}
	w.ID = 7

	result, err := svc.Run(w)
	require.NoError(t, err)
	assert.Equal(t, StatusExecuted, result.Status)

	// 参考评审与一致者拿满分
	require.NotNil(t, store.written[1])
	assert.InDelta(t, 100, *store.written[1], util.GradeEpsilon)
	require.NotNil(t, store.written[2])
	assert.InDelta(t, 100, *store.written[2], util.GradeEpsilon)

	// 最大偏离者接近零分
	require.NotNil(t, store.written[3])
	assert.InDelta(t, 0, *store.written[3], util.GradeEpsilon)
}

func TestBestEvaluatorMeanReference(t *testing.T) {
	store := newFakeEvaluationStore(1)
	// 无助教评审时以维度均值为参考
	store.addAssessment(1, 1, 50, 1, map[uint]float64{1: 0})
	store.addAssessment(2, 1, 51, 1, map[uint]float64{1: 10})

	svc := NewEvaluationService(store)
	w := &model.Workshop{Phase: model.PhaseEvaluation, Evaluation: EvaluationBest}
	w.ID = 7

	result, err := svc.Run(w)
	require.NoError(t, err)
	assert.Equal(t, StatusExecuted, result.Status)

	// 两者到均值 5 的距离相同：|0-5|/10 = 0.5，严格度 1 即 50 分
	require.NotNil(t, store.written[1])
	assert.InDelta(t, 50, *store.written[1], util.GradeEpsilon)
	require.NotNil(t, store.written[2])
	assert.InDelta(t, 50, *store.written[2], util.GradeEpsilon)
}

func TestEvaluationRunPhaseGuard(t *testing.T) {
	store := newFakeEvaluationStore(5)
	svc := NewEvaluationService(store)

	w := &model.Workshop{Phase: model.PhaseAssessment, Evaluation: EvaluationBest}
	result, err := svc.Run(w)
	require.NoError(t, err)
	assert.Equal(t, StatusVoid, result.Status)
	assert.Empty(t, store.written)
}

func TestResolveEvaluator(t *testing.T) {
	svc := NewEvaluationService(newFakeEvaluationStore(5))

	evaluator, err := svc.Resolve(EvaluationBest)
	require.NoError(t, err)
	assert.Equal(t, EvaluationBest, evaluator.Name())

	_, err = svc.Resolve("calibrated")
	assert.ErrorIs(t, err, util.ErrEvaluatorNotFound)
}
