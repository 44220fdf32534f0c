package model

import (
	"time"
)

// swagger:model Submission
type Submission struct {
	BaseModel
	WorkshopID uint   `gorm:"index:idx_workshop_author;not null" json:"workshopId"`
	AuthorID   uint   `gorm:"index:idx_workshop_author;not null" json:"authorId"`
	Example    bool   `gorm:"default:false" json:"example"` // 训练范例，不参与正式互评
	Title      string `gorm:"size:255;not null" json:"title"`
	Content    string `gorm:"type:text" json:"content"`

	Grade       *float64 `gorm:"type:decimal(10,5)" json:"grade"`     // 聚合后的原始百分比成绩
	GradeOver   *float64 `gorm:"type:decimal(10,5)" json:"gradeOver"` // 教师覆盖值，显示/成绩册层优先采用
	GradeOverBy *uint    `json:"gradeOverBy,omitempty"`
	Feedback    string   `gorm:"type:text" json:"feedback"`
	Published   bool     `gorm:"default:false" json:"published"`

	TimeGraded *time.Time `json:"timeGraded,omitempty"`

	Author      *User                  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Assessments []Assessment           `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"assessments,omitempty"`
	Attachments []SubmissionAttachment `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
}

func (Submission) TableName() string {
	return "workshop_submissions"
}

type SubmissionAttachment struct {
	UUIDBase
	SubmissionID uint   `gorm:"index;not null" json:"submissionId"`
	FileName     string `gorm:"size:255;not null" json:"fileName"`
	ContentType  string `gorm:"size:100" json:"contentType"`
	Size         int64  `gorm:"default:0" json:"size"`
	URL          string `gorm:"size:500" json:"url"`
}

func (SubmissionAttachment) TableName() string {
	return "workshop_submission_attachments"
}
