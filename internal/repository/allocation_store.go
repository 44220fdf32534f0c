package repository

import (
	"errors"

	"workshopplus_backend/internal/model"

	"gorm.io/gorm"
)

// AllocationStore 分配器的存储门面
type AllocationStore struct {
	Assessments *AssessmentRepository
	Submissions *SubmissionRepository
}

func NewAllocationStore(assessments *AssessmentRepository, submissions *SubmissionRepository) *AllocationStore {
	return &AllocationStore{
		Assessments: assessments,
		Submissions: submissions,
	}
}

func (s *AllocationStore) FindAssessment(submissionID, reviewerID uint) (*model.Assessment, bool, error) {
	a, err := s.Assessments.FindBySubmissionAndReviewer(submissionID, reviewerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

func (s *AllocationStore) CreateAssessment(a *model.Assessment) error {
	return s.Assessments.Create(a)
}

func (s *AllocationStore) ListWorkshopSubmissions(workshopID uint) ([]model.Submission, error) {
	return s.Submissions.ListAll(workshopID)
}

func (s *AllocationStore) ListWorkshopAssessments(workshopID uint) ([]model.Assessment, error) {
	return s.Assessments.ListByWorkshop(workshopID, false)
}
