package service

import (
	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/repository"
	"workshopplus_backend/internal/util"
)

// DimensionInfo 评分表的一个维度，按定义顺序排列
type DimensionInfo struct {
	ID          uint    `json:"id"`
	Description string  `json:"description"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Weight      int     `json:"weight"`
}

// DimensionFormInput 评审者对单个维度的填写。不同策略取用不同字段：
// accumulative 用 Grade，numerrors 用 Passed，rubric 用 LevelID
type DimensionFormInput struct {
	DimensionID uint    `json:"dimensionId"`
	Grade       float64 `json:"grade"`
	Passed      *bool   `json:"passed"`
	LevelID     uint    `json:"levelId"`
	Comment     string  `json:"comment"`
}

type AssessmentFormData struct {
	Dimensions     []DimensionFormInput `json:"dimensions" binding:"required"`
	FeedbackAuthor string               `json:"feedbackAuthor"`
}

// GradingStrategy 评分策略契约。SaveAssessment 落盘维度打分并返回整表的
// 原始百分比成绩（comments 策略返回 nil）；把成绩写回评审行是核心的职责，
// 不在策略内完成
type GradingStrategy interface {
	Name() string
	FormReady(workshopID uint) (bool, error)
	DimensionsInfo(workshopID uint) ([]DimensionInfo, error)
	SaveAssessment(workshopID uint, assessment *model.Assessment, form AssessmentFormData) (*float64, error)
}

// 显式注册表，按名称分发，不用反射
var gradingStrategies = map[string]func(repo *repository.StrategyRepository) GradingStrategy{
	model.StrategyAccumulative: func(repo *repository.StrategyRepository) GradingStrategy {
		return &AccumulativeStrategy{Repo: repo}
	},
	model.StrategyNumErrors: func(repo *repository.StrategyRepository) GradingStrategy {
		return &NumErrorsStrategy{Repo: repo}
	},
	model.StrategyRubric: func(repo *repository.StrategyRepository) GradingStrategy {
		return &RubricStrategy{Repo: repo}
	},
	model.StrategyComments: func(repo *repository.StrategyRepository) GradingStrategy {
		return &CommentsStrategy{Repo: repo}
	},
}

// ResolveStrategy 名称无对应实现属于致命配置错误：活动在重新配置前不可用
func ResolveStrategy(name string, repo *repository.StrategyRepository) (GradingStrategy, error) {
	factory, ok := gradingStrategies[name]
	if !ok {
		return nil, util.ErrStrategyNotFound
	}
	return factory(repo), nil
}
