package model

import (
	"time"
)

// Workshop 生命周期阶段
const (
	PhaseSetup      = 10
	PhaseSubmission = 20
	PhaseAssessment = 30
	PhaseEvaluation = 40
	PhaseClosed     = 50
)

// ValidPhase 判断是否是合法的阶段编码
func ValidPhase(phase int) bool {
	switch phase {
	case PhaseSetup, PhaseSubmission, PhaseAssessment, PhaseEvaluation, PhaseClosed:
		return true
	}
	return false
}

// 范例评审模式
const (
	ExamplesVoluntary        = 0
	ExamplesBeforeSubmission = 1
	ExamplesBeforeAssessment = 2
)

// swagger:model Workshop
type Workshop struct {
	BaseModel
	Name         string `gorm:"size:255;not null" json:"name"`
	Intro        string `gorm:"type:text" json:"intro"`
	Phase        int    `gorm:"default:10" json:"phase"`
	Strategy     string `gorm:"size:30;not null" json:"strategy"`   // 评分策略名称 accumulative/numerrors/rubric/comments
	Evaluation   string `gorm:"size:30;default:'best'" json:"evaluation"` // 评审质量评价方法
	Grade        float64 `gorm:"default:80" json:"grade"`            // 提交成绩满分（真实分制）
	GradingGrade float64 `gorm:"default:20" json:"gradingGrade"`     // 评审成绩满分（真实分制）
	GradeDecimals int    `gorm:"default:2" json:"gradeDecimals"`

	UseExamples           bool `gorm:"default:false" json:"useExamples"`
	UseSelfAssessment     bool `gorm:"default:false" json:"useSelfAssessment"`
	LateSubmissions       bool `gorm:"default:false" json:"lateSubmissions"`
	PhaseSwitchAssessment bool `gorm:"default:false" json:"phaseSwitchAssessment"` // 截止后自动进入评审阶段
	ExamplesMode          int  `gorm:"default:0" json:"examplesMode"`

	// 定时分配：教师选择 scheduled 方法时置位并保存参数，后台任务只处理已开启的工作坊
	ScheduledAllocation   bool `gorm:"default:false" json:"scheduledAllocation"`
	AllocNumPerSubmission int  `gorm:"default:3" json:"allocNumPerSubmission"`
	AllocNumPerReviewer   int  `gorm:"default:0" json:"allocNumPerReviewer"`
	AllocSelfAssessment   bool `gorm:"default:false" json:"allocSelfAssessment"`

	SubmissionStart *time.Time `json:"submissionStart,omitempty"`
	SubmissionEnd   *time.Time `json:"submissionEnd,omitempty"`
	AssessmentStart *time.Time `json:"assessmentStart,omitempty"`
	AssessmentEnd   *time.Time `json:"assessmentEnd,omitempty"`
}

func (Workshop) TableName() string {
	return "workshops"
}

// ValidateWindows 校验时间窗口：各自 start < end，且提交窗口不得与评审窗口重叠
func (w *Workshop) ValidateWindows() error {
	if w.SubmissionStart != nil && w.SubmissionEnd != nil && !w.SubmissionStart.Before(*w.SubmissionEnd) {
		return ErrInvalidTimeWindow
	}
	if w.AssessmentStart != nil && w.AssessmentEnd != nil && !w.AssessmentStart.Before(*w.AssessmentEnd) {
		return ErrInvalidTimeWindow
	}
	if w.SubmissionEnd != nil && w.AssessmentStart != nil && w.AssessmentStart.Before(*w.SubmissionEnd) {
		return ErrOverlappingWindows
	}
	return nil
}
