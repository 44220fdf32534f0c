package model

import (
	"time"
)

// 成绩册条目类型：提交成绩 / 评审成绩
const (
	GradeItemSubmission = "submission"
	GradeItemGrading    = "grading"
)

// GradeItem 推送给成绩册协作方的成绩行。关闭阶段写入，重算后刷新
type GradeItem struct {
	BaseModel
	WorkshopID uint       `gorm:"uniqueIndex:uniq_workshop_user_type;not null" json:"workshopId"`
	UserID     uint       `gorm:"uniqueIndex:uniq_workshop_user_type;not null" json:"userId"`
	ItemType   string     `gorm:"uniqueIndex:uniq_workshop_user_type;size:20;not null" json:"itemType"`
	RawGrade   *float64   `gorm:"type:decimal(10,5)" json:"rawGrade"`  // 0-100 百分比
	RealGrade  *float64   `gorm:"type:decimal(10,5)" json:"realGrade"` // 按工作坊满分换算后的真实分
	Feedback   string     `gorm:"type:text" json:"feedback"`
	DateGraded *time.Time `json:"dateGraded,omitempty"`
}

func (GradeItem) TableName() string {
	return "workshop_grade_items"
}

// BestEvaluationSettings best 评价方法的设置，一个工作坊一行
type BestEvaluationSettings struct {
	BaseModel
	WorkshopID   uint `gorm:"uniqueIndex;not null" json:"workshopId"`
	CompareLevel int  `gorm:"default:5" json:"compareLevel"` // 比较严格程度因子，越大越严格
}

func (BestEvaluationSettings) TableName() string {
	return "workshop_evaluation_best_settings"
}
