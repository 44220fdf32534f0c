package model

import (
	"time"
)

// 评审权重边界。weight==0 不参与聚合，weight==1 普通互评，weight>1 为助教/参考评审
const (
	WeightMin = 0
	WeightMax = 16
)

// swagger:model Assessment
type Assessment struct {
	BaseModel
	SubmissionID uint `gorm:"uniqueIndex:uniq_submission_reviewer;not null" json:"submissionId"`
	ReviewerID   uint `gorm:"uniqueIndex:uniq_submission_reviewer;not null" json:"reviewerId"`
	Weight       int  `gorm:"default:1" json:"weight"`

	Grade              *float64 `gorm:"type:decimal(10,5)" json:"grade"`            // 评审者给提交打出的原始百分比
	GradingGrade       *float64 `gorm:"type:decimal(10,5)" json:"gradingGrade"`     // 评审质量分，由评价方法写入
	GradingGradeOver   *float64 `gorm:"type:decimal(10,5)" json:"gradingGradeOver"` // 教师覆盖的评审质量分
	GradingGradeOverBy *uint    `json:"gradingGradeOverBy,omitempty"`
	FeedbackAuthor     string   `gorm:"type:text" json:"feedbackAuthor"`

	Reviewer        *User            `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	DimensionGrades []DimensionGrade `gorm:"foreignKey:AssessmentID;constraint:OnDelete:CASCADE" json:"dimensionGrades,omitempty"`
}

func (Assessment) TableName() string {
	return "workshop_assessments"
}

// FinalGradingGrade 覆盖值优先；两者皆空表示尚未被评价
func (a *Assessment) FinalGradingGrade() *float64 {
	if a.GradingGradeOver != nil {
		return a.GradingGradeOver
	}
	return a.GradingGrade
}

// DimensionGrade 一份评审表中单个维度的打分
type DimensionGrade struct {
	BaseModel
	AssessmentID uint    `gorm:"uniqueIndex:uniq_assessment_dimension;not null" json:"assessmentId"`
	Strategy     string  `gorm:"uniqueIndex:uniq_assessment_dimension;size:30;not null" json:"strategy"`
	DimensionID  uint    `gorm:"uniqueIndex:uniq_assessment_dimension;not null" json:"dimensionId"`
	Grade        float64 `gorm:"type:decimal(10,5)" json:"grade"`
	PeerComment  string  `gorm:"type:text" json:"peerComment"`
}

func (DimensionGrade) TableName() string {
	return "workshop_dimension_grades"
}

// Aggregation 每个评审者在整个工作坊内的评审质量汇总，一人一行，惰性创建
type Aggregation struct {
	BaseModel
	WorkshopID   uint       `gorm:"uniqueIndex:uniq_workshop_reviewer;not null" json:"workshopId"`
	UserID       uint       `gorm:"uniqueIndex:uniq_workshop_reviewer;not null" json:"userId"`
	GradingGrade *float64   `gorm:"type:decimal(10,5)" json:"gradingGrade"`
	TimeGraded   *time.Time `json:"timeGraded,omitempty"`
}

func (Aggregation) TableName() string {
	return "workshop_aggregations"
}
