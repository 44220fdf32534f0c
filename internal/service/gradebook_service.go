package service

import (
	"time"

	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/repository"
	"workshopplus_backend/internal/util"
	"workshopplus_backend/pkg/logger"

	"go.uber.org/zap"
)

// GradebookService 工作坊关闭时把两类最终成绩落到成绩册条目：
// 提交成绩（作者）与评审成绩（评审者）。百分比按工作坊满分换算成真实分
type GradebookService struct {
	Submissions  *repository.SubmissionRepository
	Aggregations *repository.AggregationRepository
	Items        *repository.GradeItemRepository
	Now          Clock
}

func NewGradebookService(
	submissions *repository.SubmissionRepository,
	aggregations *repository.AggregationRepository,
	items *repository.GradeItemRepository,
) *GradebookService {
	return &GradebookService{
		Submissions:  submissions,
		Aggregations: aggregations,
		Items:        items,
		Now:          time.Now,
	}
}

// PushFinalGrades 幂等：条目按 (工作坊, 用户, 类型) 唯一，重复推送只覆盖
func (s *GradebookService) PushFinalGrades(w *model.Workshop) error {
	now := s.Now()

	ss, _, err := s.Submissions.List(w.ID, false, 1, 100000)
	if err != nil {
		return err
	}
	pushed := 0
	for _, sub := range ss {
		// 覆盖值优先于聚合值
		raw := sub.Grade
		if sub.GradeOver != nil {
			raw = sub.GradeOver
		}
		if raw == nil {
			continue
		}
		real := util.RealGradeValue(*raw, w.Grade, w.GradeDecimals)
		item := &model.GradeItem{
			WorkshopID: w.ID,
			UserID:     sub.AuthorID,
			ItemType:   model.GradeItemSubmission,
			RawGrade:   raw,
			RealGrade:  &real,
			Feedback:   sub.Feedback,
			DateGraded: &now,
		}
		if err := s.Items.Upsert(item); err != nil {
			return err
		}
		pushed++
	}

	aggs, err := s.Aggregations.ListByWorkshop(w.ID)
	if err != nil {
		return err
	}
	for _, agg := range aggs {
		if agg.GradingGrade == nil {
			continue
		}
		real := util.RealGradeValue(*agg.GradingGrade, w.GradingGrade, w.GradeDecimals)
		item := &model.GradeItem{
			WorkshopID: w.ID,
			UserID:     agg.UserID,
			ItemType:   model.GradeItemGrading,
			RawGrade:   agg.GradingGrade,
			RealGrade:  &real,
			DateGraded: &now,
		}
		if err := s.Items.Upsert(item); err != nil {
			return err
		}
		pushed++
	}

	logger.Log.Info("gradebook items pushed",
		zap.Uint("workshopId", w.ID),
		zap.Int("items", pushed))
	return nil
}

// Report 成绩册视角的条目列表，教师导出用
func (s *GradebookService) Report(workshopID uint, itemType string) ([]model.GradeItem, error) {
	return s.Items.ListByWorkshop(workshopID, itemType)
}
