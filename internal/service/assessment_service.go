package service

import (
	"time"

	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/repository"
	"workshopplus_backend/internal/util"
	"workshopplus_backend/pkg/logger"

	"go.uber.org/zap"
)

type AssessmentService struct {
	Assessments *repository.AssessmentRepository
	Submissions *repository.SubmissionRepository
	Workshops   *repository.WorkshopRepository
	Strategies  *repository.StrategyRepository
	Aggregator  *AggregationService
	Now         Clock
}

func NewAssessmentService(
	assessments *repository.AssessmentRepository,
	submissions *repository.SubmissionRepository,
	workshops *repository.WorkshopRepository,
	strategies *repository.StrategyRepository,
	aggregator *AggregationService,
) *AssessmentService {
	return &AssessmentService{
		Assessments: assessments,
		Submissions: submissions,
		Workshops:   workshops,
		Strategies:  strategies,
		Aggregator:  aggregator,
		Now:         time.Now,
	}
}

func (s *AssessmentService) Get(id uint) (*model.Assessment, error) {
	return s.Assessments.FindByID(id)
}

func (s *AssessmentService) ListForReviewer(workshopID, reviewerID uint) ([]model.Assessment, error) {
	return s.Assessments.ListByReviewer(workshopID, reviewerID)
}

// Form 取评分表结构，表未配置完整时拒绝
func (s *AssessmentService) Form(w *model.Workshop) ([]DimensionInfo, error) {
	strategy, err := ResolveStrategy(w.Strategy, s.Strategies)
	if err != nil {
		return nil, err
	}
	ready, err := strategy.FormReady(w.ID)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, util.ErrFormNotReady
	}
	return strategy.DimensionsInfo(w.ID)
}

// Save 评审者提交评分表。阶段守卫 → 策略落盘维度打分 → 回写评审行，
// 随后只重算该提交的聚合成绩。范例评审不触发聚合
func (s *AssessmentService) Save(w *model.Workshop, assessmentID uint, reviewer *model.User, form AssessmentFormData) (*model.Assessment, error) {
	a, err := s.Assessments.FindByID(assessmentID)
	if err != nil {
		return nil, err
	}
	if a.ReviewerID != reviewer.ID && !reviewer.CanOverrideGrades() {
		return nil, util.ErrPermissionDenied
	}

	sub, err := s.Submissions.FindByID(a.SubmissionID)
	if err != nil {
		return nil, err
	}

	override := reviewer.CanOverrideGrades()
	if sub.Example {
		if allowed := AssessingExamplesAllowed(w); allowed == nil || (!*allowed && !override) {
			return nil, util.ErrAssessingClosed
		}
	} else if !AssessingAllowed(w, s.Now(), override, override) {
		return nil, util.ErrAssessingClosed
	}

	strategy, err := ResolveStrategy(w.Strategy, s.Strategies)
	if err != nil {
		return nil, err
	}
	ready, err := strategy.FormReady(w.ID)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, util.ErrFormNotReady
	}

	grade, err := strategy.SaveAssessment(w.ID, a, form)
	if err != nil {
		return nil, err
	}
	if err := s.Assessments.UpdatePeerGrade(a.ID, grade, form.FeedbackAuthor); err != nil {
		return nil, err
	}
	a.Grade = grade
	a.FeedbackAuthor = form.FeedbackAuthor

	if !sub.Example {
		if err := s.Aggregator.AggregateSubmissionGrades(w.ID, []uint{sub.ID}); err != nil {
			return nil, err
		}
	}

	logger.Log.Info("assessment saved",
		zap.Uint("assessmentId", a.ID),
		zap.Uint("submissionId", sub.ID),
		zap.String("strategy", strategy.Name()))
	return a, nil
}

// SetWeight 调整评审权重后该提交的成绩构成随之变化，立即重算
func (s *AssessmentService) SetWeight(w *model.Workshop, assessmentID uint, weight int) error {
	a, err := s.Assessments.FindByID(assessmentID)
	if err != nil {
		return err
	}
	if err := s.Assessments.UpdateWeight(a.ID, util.ClampWeight(weight)); err != nil {
		return err
	}
	return s.Aggregator.AggregateSubmissionGrades(w.ID, []uint{a.SubmissionID})
}

// SetGradingGradeOver 教师覆盖评审质量分，评审者的评审成绩随之重算
func (s *AssessmentService) SetGradingGradeOver(w *model.Workshop, assessmentID uint, over *float64, by *model.User) error {
	if !by.CanOverrideGrades() {
		return util.ErrPermissionDenied
	}
	a, err := s.Assessments.FindByID(assessmentID)
	if err != nil {
		return err
	}
	if err := s.Assessments.UpdateGradingGradeOver(a.ID, over, by.ID); err != nil {
		return err
	}
	return s.Aggregator.AggregateGradingGrades(w.ID, []uint{a.ReviewerID})
}

// AddExampleAssessment 学员自愿评审范例提交。权重 0，不进入任何聚合
func (s *AssessmentService) AddExampleAssessment(w *model.Workshop, exampleID, reviewerID uint) (*model.Assessment, error) {
	sub, err := s.Submissions.FindByID(exampleID)
	if err != nil {
		return nil, err
	}
	if !sub.Example {
		return nil, util.ErrSubmissionNotFound
	}
	if allowed := AssessingExamplesAllowed(w); allowed == nil || !*allowed {
		return nil, util.ErrAssessingClosed
	}

	if existing, err := s.Assessments.FindBySubmissionAndReviewer(sub.ID, reviewerID); err == nil {
		return existing, nil
	}
	a := &model.Assessment{
		SubmissionID: sub.ID,
		ReviewerID:   reviewerID,
		Weight:       model.WeightMin,
	}
	if err := s.Assessments.Create(a); err != nil {
		return nil, err
	}
	return a, nil
}
