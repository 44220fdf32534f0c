package repository

import (
	"workshopplus_backend/internal/model"
)

// EvaluationStore 评价方法的存储门面：读评审与维度打分，只写评审质量分
type EvaluationStore struct {
	Assessments *AssessmentRepository
	Strategies  *StrategyRepository
	Settings    *EvaluationRepository
}

func NewEvaluationStore(assessments *AssessmentRepository, strategies *StrategyRepository, settings *EvaluationRepository) *EvaluationStore {
	return &EvaluationStore{
		Assessments: assessments,
		Strategies:  strategies,
		Settings:    settings,
	}
}

func (s *EvaluationStore) ListWorkshopAssessments(workshopID uint) ([]model.Assessment, error) {
	return s.Assessments.ListByWorkshop(workshopID, false)
}

func (s *EvaluationStore) ListDimensionGrades(assessmentID uint) ([]model.DimensionGrade, error) {
	return s.Strategies.ListDimensionGrades(assessmentID)
}

func (s *EvaluationStore) UpdateGradingGrade(assessmentID uint, gradingGrade *float64) error {
	return s.Assessments.UpdateGradingGrade(assessmentID, gradingGrade)
}

func (s *EvaluationStore) BestSettings(workshopID uint) (*model.BestEvaluationSettings, error) {
	return s.Settings.BestSettings(workshopID)
}
