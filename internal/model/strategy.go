package model

// 评分策略名称
const (
	StrategyAccumulative = "accumulative"
	StrategyNumErrors    = "numerrors"
	StrategyRubric       = "rubric"
	StrategyComments     = "comments"
)

// AccumulativeDimension 累加式评分维度：每个维度独立打分后按权重取加权均值
type AccumulativeDimension struct {
	BaseModel
	WorkshopID  uint    `gorm:"index;not null" json:"workshopId"`
	Description string  `gorm:"type:text;not null" json:"description"`
	GradeMax    float64 `gorm:"default:10" json:"gradeMax"`
	Weight      int     `gorm:"default:1" json:"weight"`
	Order       int     `gorm:"default:0" json:"order"`
}

func (AccumulativeDimension) TableName() string {
	return "workshop_accumulative_dimensions"
}

// NumErrorsDimension 错误数式维度：评审者对每个维度只作通过/不通过判定
type NumErrorsDimension struct {
	BaseModel
	WorkshopID  uint   `gorm:"index;not null" json:"workshopId"`
	Description string `gorm:"type:text;not null" json:"description"`
	Weight      int    `gorm:"default:1" json:"weight"`
	Order       int    `gorm:"default:0" json:"order"`
	GradeFail   string `gorm:"size:50;default:'No'" json:"gradeFail"`
	GradePass   string `gorm:"size:50;default:'Yes'" json:"gradePass"`
}

func (NumErrorsDimension) TableName() string {
	return "workshop_numerrors_dimensions"
}

// NumErrorsMapping 稀疏映射表：加权错误数 -> 成绩百分比。
// 未定义的错误数取不大于它的最近已定义项；0 个错误缺省为 100%
type NumErrorsMapping struct {
	BaseModel
	WorkshopID uint    `gorm:"uniqueIndex:uniq_workshop_nonegative;not null" json:"workshopId"`
	NoNegative int     `gorm:"uniqueIndex:uniq_workshop_nonegative;not null" json:"noNegative"`
	Grade      float64 `gorm:"type:decimal(10,5);not null" json:"grade"`
}

func (NumErrorsMapping) TableName() string {
	return "workshop_numerrors_mappings"
}

// RubricCriterion 量规准则，包含若干等级
type RubricCriterion struct {
	BaseModel
	WorkshopID  uint   `gorm:"index;not null" json:"workshopId"`
	Description string `gorm:"type:text;not null" json:"description"`
	Order       int    `gorm:"default:0" json:"order"`

	Levels []RubricLevel `gorm:"foreignKey:CriterionID;constraint:OnDelete:CASCADE" json:"levels,omitempty"`
}

func (RubricCriterion) TableName() string {
	return "workshop_rubric_criteria"
}

type RubricLevel struct {
	BaseModel
	CriterionID uint    `gorm:"index;not null" json:"criterionId"`
	Definition  string  `gorm:"type:text" json:"definition"`
	Grade       float64 `gorm:"type:decimal(10,5);not null" json:"grade"`
}

func (RubricLevel) TableName() string {
	return "workshop_rubric_levels"
}

// CommentsDimension 纯评语维度：不产生成绩
type CommentsDimension struct {
	BaseModel
	WorkshopID  uint   `gorm:"index;not null" json:"workshopId"`
	Description string `gorm:"type:text;not null" json:"description"`
	Order       int    `gorm:"default:0" json:"order"`
}

func (CommentsDimension) TableName() string {
	return "workshop_comments_dimensions"
}
