package repository

import (
	"time"

	"workshopplus_backend/internal/model"

	"gorm.io/gorm"
)

// GradeStore 聚合引擎的存储门面，聚合服务通过它读写三张表
type GradeStore struct {
	Assessments  *AssessmentRepository
	Submissions  *SubmissionRepository
	Aggregations *AggregationRepository
}

func NewGradeStore(assessments *AssessmentRepository, submissions *SubmissionRepository, aggregations *AggregationRepository) *GradeStore {
	return &GradeStore{
		Assessments:  assessments,
		Submissions:  submissions,
		Aggregations: aggregations,
	}
}

func (s *GradeStore) StreamSubmissionAssessments(workshopID uint, restrict []uint, fn func(model.Assessment) error) error {
	return s.Assessments.StreamSubmissionAssessments(workshopID, restrict, fn)
}

func (s *GradeStore) StreamReviewerAssessments(workshopID uint, restrict []uint, fn func(model.Assessment) error) error {
	return s.Assessments.StreamReviewerAssessments(workshopID, restrict, fn)
}

func (s *GradeStore) SubmissionGrade(submissionID uint) (*float64, error) {
	return s.Submissions.Grade(submissionID)
}

func (s *GradeStore) ListSubmissionIDs(workshopID uint) ([]uint, error) {
	return s.Submissions.ListIDs(workshopID)
}

func (s *GradeStore) WriteSubmissionGrade(submissionID uint, grade *float64, gradedAt time.Time) error {
	return s.Submissions.WriteGrade(submissionID, grade, gradedAt)
}

func (s *GradeStore) ReviewerAggregation(workshopID, userID uint) (*model.Aggregation, bool, error) {
	agg, err := s.Aggregations.FindByWorkshopAndUser(workshopID, userID)
	if err == gorm.ErrRecordNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return agg, true, nil
}

func (s *GradeStore) UpsertReviewerAggregation(agg *model.Aggregation) error {
	return s.Aggregations.Upsert(agg)
}

func (s *GradeStore) ClearGradingGrades(workshopID uint) error {
	return s.Assessments.ClearGradingGrades(workshopID)
}
