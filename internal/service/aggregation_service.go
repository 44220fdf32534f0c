package service

import (
	"time"

	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/util"
	"workshopplus_backend/pkg/logger"
	"workshopplus_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// AggregationStore 聚合引擎对持久层的全部要求。评审行按 submission_id（或
// reviewer_id）升序交付，引擎逐批处理、批间落盘，支撑大规模选课人数。
// 由 repository 层的具体类型实现；测试用内存伪实现
type AggregationStore interface {
	StreamSubmissionAssessments(workshopID uint, restrict []uint, fn func(model.Assessment) error) error
	StreamReviewerAssessments(workshopID uint, restrict []uint, fn func(model.Assessment) error) error
	ListSubmissionIDs(workshopID uint) ([]uint, error)
	SubmissionGrade(submissionID uint) (*float64, error)
	WriteSubmissionGrade(submissionID uint, grade *float64, gradedAt time.Time) error
	ReviewerAggregation(workshopID, userID uint) (*model.Aggregation, bool, error)
	UpsertReviewerAggregation(agg *model.Aggregation) error
	ClearGradingGrades(workshopID uint) error
}

// Clock 所有截止比较与打点使用同一时钟来源
type Clock func() time.Time

type AggregationService struct {
	Store         AggregationStore
	TAWeightRatio float64
	Now           Clock

	// 成绩写入后需要失效的缓存，可为空
	Invalidator interface{ InvalidateReport(workshopID uint) }
}

func NewAggregationService(store AggregationStore, taWeightRatio float64) *AggregationService {
	if taWeightRatio <= 0 {
		taWeightRatio = 5
	}
	return &AggregationService{
		Store:         store,
		TAWeightRatio: taWeightRatio,
		Now:           time.Now,
	}
}

// CombineSubmissionGrades 一份提交全部评审行 -> 单一聚合百分比。纯函数。
// weight==0 与未打分的行整体排除；weight>1 视为助教评审，与普通互评分开取均值；
// 两侧都有时按 ratio:1 合成（缺省 5:1，助教侧权重五倍于互评侧整体）；
// 无任何有效评审时返回 nil（保持未评分）
func CombineSubmissionGrades(assessments []model.Assessment, ratio float64) *float64 {
	var taSum, peerSum float64
	var taN, peerN int
	for _, a := range assessments {
		if a.Weight == 0 || a.Grade == nil {
			continue
		}
		if a.Weight > 1 {
			taSum += *a.Grade
			taN++
		} else {
			peerSum += *a.Grade
			peerN++
		}
	}
	switch {
	case taN > 0 && peerN > 0:
		final := (ratio*(taSum/float64(taN)) + peerSum/float64(peerN)) / (ratio + 1)
		return &final
	case peerN > 0:
		final := peerSum / float64(peerN)
		return &final
	case taN > 0:
		final := taSum / float64(taN)
		return &final
	}
	return nil
}

// CombineReviewerGrades 一个评审者的全部评审行 -> 评审质量均分。纯函数。
// 每行先取教师覆盖值，否则取评价方法算出的值，两者皆空跳过；
// 与提交聚合不同，这里不按权重加权，是简单算术均值
func CombineReviewerGrades(assessments []model.Assessment) *float64 {
	var sum float64
	var n int
	for _, a := range assessments {
		g := a.FinalGradingGrade()
		if g == nil {
			continue
		}
		sum += *g
		n++
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

// AggregateSubmissionGrades 按 submission_id 顺序流扫，凑齐一份提交即刷写。
// restrict 非空时只重算给定提交（单份评审保存后的增量重算）。
// 流里未出现的范围内提交（评审行已全部删除）按空评审归零，旧成绩不残留。
// 幂等：仅当新值与存量超出浮点容差才落盘并更新 timegraded
func (s *AggregationService) AggregateSubmissionGrades(workshopID uint, restrict []uint) error {
	monitoring.AggregationRuns.WithLabelValues("submission").Inc()

	var batch []model.Assessment
	var current uint
	visited := map[uint]bool{}

	flush := func() error {
		if current == 0 {
			return nil
		}
		if err := s.flushSubmission(workshopID, current, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	err := s.Store.StreamSubmissionAssessments(workshopID, restrict, func(a model.Assessment) error {
		if a.SubmissionID != current {
			if err := flush(); err != nil {
				return err
			}
			current = a.SubmissionID
		}
		visited[a.SubmissionID] = true
		batch = append(batch, a)
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	pending := restrict
	if len(restrict) == 0 {
		pending, err = s.Store.ListSubmissionIDs(workshopID)
		if err != nil {
			return err
		}
	}
	for _, id := range pending {
		if visited[id] {
			continue
		}
		if err := s.flushSubmission(workshopID, id, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *AggregationService) flushSubmission(workshopID, submissionID uint, batch []model.Assessment) error {
	computed := CombineSubmissionGrades(batch, s.TAWeightRatio)
	stored, err := s.Store.SubmissionGrade(submissionID)
	if err != nil {
		return err
	}
	if !util.GradesDiffer(stored, computed) {
		return nil
	}
	if err := s.Store.WriteSubmissionGrade(submissionID, computed, s.Now()); err != nil {
		return err
	}
	monitoring.GradesWritten.WithLabelValues("submission").Inc()
	logger.Log.Debug("submission grade aggregated",
		zap.Uint("workshopId", workshopID),
		zap.Uint("submissionId", submissionID),
		zap.Any("grade", computed))
	if s.Invalidator != nil {
		s.Invalidator.InvalidateReport(workshopID)
	}
	return nil
}

// AggregateGradingGrades 按 reviewer_id 顺序流扫，逐评审者刷写 Aggregation 行
func (s *AggregationService) AggregateGradingGrades(workshopID uint, restrict []uint) error {
	monitoring.AggregationRuns.WithLabelValues("reviewer").Inc()

	var batch []model.Assessment
	var current uint

	flush := func() error {
		if current == 0 {
			return nil
		}
		if err := s.flushReviewer(workshopID, current, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	err := s.Store.StreamReviewerAssessments(workshopID, restrict, func(a model.Assessment) error {
		if a.ReviewerID != current {
			if err := flush(); err != nil {
				return err
			}
			current = a.ReviewerID
		}
		batch = append(batch, a)
		return nil
	})
	if err != nil {
		return err
	}
	return flush()
}

func (s *AggregationService) flushReviewer(workshopID, reviewerID uint, batch []model.Assessment) error {
	computed := CombineReviewerGrades(batch)
	existing, found, err := s.Store.ReviewerAggregation(workshopID, reviewerID)
	if err != nil {
		return err
	}
	if found && !util.GradesDiffer(existing.GradingGrade, computed) {
		return nil
	}

	now := s.Now()
	agg := &model.Aggregation{
		WorkshopID:   workshopID,
		UserID:       reviewerID,
		GradingGrade: computed,
		TimeGraded:   &now,
	}
	if found {
		agg.ID = existing.ID
		agg.CreatedAt = existing.CreatedAt
	}
	if err := s.Store.UpsertReviewerAggregation(agg); err != nil {
		return err
	}
	monitoring.GradesWritten.WithLabelValues("reviewer").Inc()
	logger.Log.Debug("reviewer grading grade aggregated",
		zap.Uint("workshopId", workshopID),
		zap.Uint("reviewerId", reviewerID),
		zap.Any("gradingGrade", computed))
	if s.Invalidator != nil {
		s.Invalidator.InvalidateReport(workshopID)
	}
	return nil
}

// RecalculateAll 管理端"重算聚合成绩"维护动作：全量扫一遍，幂等
func (s *AggregationService) RecalculateAll(workshopID uint) error {
	if err := s.AggregateSubmissionGrades(workshopID, nil); err != nil {
		return err
	}
	return s.AggregateGradingGrades(workshopID, nil)
}

// ClearAssessments 管理端"清除评审成绩"维护动作：清空评价方法写入的
// 质量分（教师覆盖值保留）后全量重算
func (s *AggregationService) ClearAssessments(workshopID uint) error {
	if err := s.Store.ClearGradingGrades(workshopID); err != nil {
		return err
	}
	logger.Log.Info("assessment grading grades cleared", zap.Uint("workshopId", workshopID))
	return s.RecalculateAll(workshopID)
}
