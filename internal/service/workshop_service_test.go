package service

import (
	"testing"
	"time"

	"workshopplus_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestValidPhase(t *testing.T) {
	for _, code := range []int{
		model.PhaseSetup, model.PhaseSubmission, model.PhaseAssessment,
		model.PhaseEvaluation, model.PhaseClosed,
	} {
		assert.True(t, model.ValidPhase(code), "code=%d", code)
	}
	for _, code := range []int{0, 15, 25, 35, 45, 55, -10, 99} {
		assert.False(t, model.ValidPhase(code), "code=%d", code)
	}
}

func TestCreatingSubmissionAllowed(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		w      model.Workshop
		ignore bool
		want   bool
	}{
		{"提交阶段无窗口", model.Workshop{Phase: model.PhaseSubmission}, false, true},
		{"准备阶段不可提交", model.Workshop{Phase: model.PhaseSetup}, false, false},
		{"评审阶段默认不可", model.Workshop{Phase: model.PhaseAssessment}, false, false},
		{"迟交开启后评审阶段可", model.Workshop{Phase: model.PhaseAssessment, LateSubmissions: true}, false, true},
		{"关闭阶段迟交也不行", model.Workshop{Phase: model.PhaseClosed, LateSubmissions: true}, false, false},
		{"开放时间未到", model.Workshop{
			Phase:           model.PhaseSubmission,
			SubmissionStart: timePtr(now.Add(time.Second)),
		}, false, false},
		{"开放时间未到但可无视截止", model.Workshop{
			Phase:           model.PhaseSubmission,
			SubmissionStart: timePtr(now.Add(time.Second)),
		}, true, true},
		{"无视截止也要求阶段正确", model.Workshop{Phase: model.PhaseSetup}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CreatingSubmissionAllowed(&tt.w, now, tt.ignore))
		})
	}
}

func TestModifyingSubmissionAllowed(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	end := now

	// 截止时刻整点已不可编辑，前一秒仍可
	w := model.Workshop{Phase: model.PhaseSubmission, SubmissionEnd: timePtr(end)}
	assert.False(t, ModifyingSubmissionAllowed(&w, now, false))
	assert.True(t, ModifyingSubmissionAllowed(&w, now.Add(-time.Second), false))

	// 迟交标志不延长编辑窗口
	late := model.Workshop{Phase: model.PhaseAssessment, LateSubmissions: true}
	assert.False(t, ModifyingSubmissionAllowed(&late, now, false))

	// 教师可无视截止
	assert.True(t, ModifyingSubmissionAllowed(&w, now, true))
}

func TestAssessingAllowed(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	assessment := model.Workshop{Phase: model.PhaseAssessment}
	assert.True(t, AssessingAllowed(&assessment, now, false, false))

	// 评价阶段仅限持覆盖权限者
	evaluation := model.Workshop{Phase: model.PhaseEvaluation}
	assert.False(t, AssessingAllowed(&evaluation, now, false, false))
	assert.True(t, AssessingAllowed(&evaluation, now, false, true))

	// 评审窗口边界
	windowed := model.Workshop{
		Phase:           model.PhaseAssessment,
		AssessmentStart: timePtr(now.Add(-time.Hour)),
		AssessmentEnd:   timePtr(now),
	}
	assert.False(t, AssessingAllowed(&windowed, now, false, false))
	assert.True(t, AssessingAllowed(&windowed, now.Add(-time.Second), false, false))
	assert.True(t, AssessingAllowed(&windowed, now, true, false), "无视截止后窗口不再约束")
}

func TestAssessingExamplesAllowed(t *testing.T) {
	disabled := model.Workshop{Phase: model.PhaseSubmission}
	assert.Nil(t, AssessingExamplesAllowed(&disabled), "未启用范例返回 nil")

	voluntary := model.Workshop{UseExamples: true, ExamplesMode: model.ExamplesVoluntary, Phase: model.PhaseSetup}
	if got := AssessingExamplesAllowed(&voluntary); assert.NotNil(t, got) {
		assert.True(t, *got)
	}

	beforeSubmission := model.Workshop{UseExamples: true, ExamplesMode: model.ExamplesBeforeSubmission, Phase: model.PhaseAssessment}
	if got := AssessingExamplesAllowed(&beforeSubmission); assert.NotNil(t, got) {
		assert.False(t, *got)
	}

	beforeAssessment := model.Workshop{UseExamples: true, ExamplesMode: model.ExamplesBeforeAssessment, Phase: model.PhaseAssessment}
	if got := AssessingExamplesAllowed(&beforeAssessment); assert.NotNil(t, got) {
		assert.True(t, *got)
	}
}

func TestAssessmentsAvailable(t *testing.T) {
	assert.False(t, AssessmentsAvailable(&model.Workshop{Phase: model.PhaseEvaluation}))
	assert.True(t, AssessmentsAvailable(&model.Workshop{Phase: model.PhaseClosed}))
}

func TestValidateWindows(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	ok := model.Workshop{
		SubmissionStart: timePtr(now),
		SubmissionEnd:   timePtr(now.Add(24 * time.Hour)),
		AssessmentStart: timePtr(now.Add(24 * time.Hour)),
		AssessmentEnd:   timePtr(now.Add(48 * time.Hour)),
	}
	assert.NoError(t, ok.ValidateWindows())

	inverted := model.Workshop{
		SubmissionStart: timePtr(now.Add(time.Hour)),
		SubmissionEnd:   timePtr(now),
	}
	assert.ErrorIs(t, inverted.ValidateWindows(), model.ErrInvalidTimeWindow)

	overlapping := model.Workshop{
		SubmissionEnd:   timePtr(now.Add(24 * time.Hour)),
		AssessmentStart: timePtr(now),
	}
	assert.ErrorIs(t, overlapping.ValidateWindows(), model.ErrOverlappingWindows)
}
