package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/repository"
	"workshopplus_backend/internal/util"
	"workshopplus_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 守卫谓词为纯函数：只依赖工作坊状态、当前时间与调用方的"无视截止"授权，
// 不抛错误，不自行鉴权。调用方负责把 false 转成拒绝响应。

// CreatingSubmissionAllowed 仅提交阶段可新建；开启迟交后评审阶段也可。
// 受 submissionstart 下界约束，除非调用方可无视截止
func CreatingSubmissionAllowed(w *model.Workshop, now time.Time, ignoreDeadlines bool) bool {
	if w.Phase != model.PhaseSubmission && !(w.LateSubmissions && w.Phase == model.PhaseAssessment) {
		return false
	}
	if ignoreDeadlines {
		return true
	}
	if w.SubmissionStart != nil && now.Before(*w.SubmissionStart) {
		return false
	}
	return true
}

// ModifyingSubmissionAllowed 仅提交阶段、且在提交窗口内可编辑；迟交标志不延长编辑
func ModifyingSubmissionAllowed(w *model.Workshop, now time.Time, ignoreDeadlines bool) bool {
	if w.Phase != model.PhaseSubmission {
		return false
	}
	if ignoreDeadlines {
		return true
	}
	if w.SubmissionStart != nil && now.Before(*w.SubmissionStart) {
		return false
	}
	if w.SubmissionEnd != nil && !now.Before(*w.SubmissionEnd) {
		return false
	}
	return true
}

// AssessingAllowed 评审阶段可评；评价阶段仅限持覆盖权限者（教师补改）。
// 始终受评审窗口约束，除非无视截止
func AssessingAllowed(w *model.Workshop, now time.Time, ignoreDeadlines, hasOverrideAuthority bool) bool {
	if w.Phase != model.PhaseAssessment && !(w.Phase == model.PhaseEvaluation && hasOverrideAuthority) {
		return false
	}
	if ignoreDeadlines {
		return true
	}
	if w.AssessmentStart != nil && now.Before(*w.AssessmentStart) {
		return false
	}
	if w.AssessmentEnd != nil && !now.Before(*w.AssessmentEnd) {
		return false
	}
	return true
}

// AssessingExamplesAllowed 三态：范例未启用返回 nil
func AssessingExamplesAllowed(w *model.Workshop) *bool {
	if !w.UseExamples {
		return nil
	}
	allowed := false
	switch w.ExamplesMode {
	case model.ExamplesVoluntary:
		allowed = true
	case model.ExamplesBeforeSubmission:
		allowed = w.Phase == model.PhaseSubmission
	case model.ExamplesBeforeAssessment:
		allowed = w.Phase == model.PhaseAssessment
	}
	return &allowed
}

// AssessmentsAvailable 作者只有在关闭阶段才能看到收到的评审
func AssessmentsAvailable(w *model.Workshop) bool {
	return w.Phase == model.PhaseClosed
}

type WorkshopService struct {
	Repo        *repository.WorkshopRepository
	Submissions *repository.SubmissionRepository
	Gradebook   *GradebookService
	Redis       *redis.Client
}

func NewWorkshopService(repo *repository.WorkshopRepository, submissions *repository.SubmissionRepository, gradebook *GradebookService, rdb *redis.Client) *WorkshopService {
	return &WorkshopService{
		Repo:        repo,
		Submissions: submissions,
		Gradebook:   gradebook,
		Redis:       rdb,
	}
}

type WorkshopRequest struct {
	Name          string     `json:"name" binding:"required"`
	Intro         string     `json:"intro"`
	Strategy      string     `json:"strategy" binding:"required"`
	Evaluation    string     `json:"evaluation"`
	Grade         float64    `json:"grade"`
	GradingGrade  float64    `json:"gradingGrade"`
	GradeDecimals int        `json:"gradeDecimals"`
	UseExamples   bool       `json:"useExamples"`
	UseSelfAssessment     bool `json:"useSelfAssessment"`
	LateSubmissions       bool `json:"lateSubmissions"`
	PhaseSwitchAssessment bool `json:"phaseSwitchAssessment"`
	ExamplesMode          int  `json:"examplesMode"`
	SubmissionStart *time.Time `json:"submissionStart"`
	SubmissionEnd   *time.Time `json:"submissionEnd"`
	AssessmentStart *time.Time `json:"assessmentStart"`
	AssessmentEnd   *time.Time `json:"assessmentEnd"`
}

func (s *WorkshopService) Create(req WorkshopRequest) (*model.Workshop, error) {
	if _, ok := gradingStrategies[req.Strategy]; !ok {
		return nil, util.ErrStrategyNotFound
	}
	evaluation := req.Evaluation
	if evaluation == "" {
		evaluation = EvaluationBest
	}
	if _, ok := gradingEvaluators[evaluation]; !ok {
		return nil, util.ErrEvaluatorNotFound
	}

	w := &model.Workshop{
		Name:          req.Name,
		Intro:         req.Intro,
		Phase:         model.PhaseSetup,
		Strategy:      req.Strategy,
		Evaluation:    evaluation,
		Grade:         req.Grade,
		GradingGrade:  req.GradingGrade,
		GradeDecimals: req.GradeDecimals,
		UseExamples:   req.UseExamples,
		UseSelfAssessment:     req.UseSelfAssessment,
		LateSubmissions:       req.LateSubmissions,
		PhaseSwitchAssessment: req.PhaseSwitchAssessment,
		ExamplesMode:          req.ExamplesMode,
		SubmissionStart: req.SubmissionStart,
		SubmissionEnd:   req.SubmissionEnd,
		AssessmentStart: req.AssessmentStart,
		AssessmentEnd:   req.AssessmentEnd,
	}
	if w.Grade == 0 {
		w.Grade = 80
	}
	if w.GradingGrade == 0 {
		w.GradingGrade = 20
	}
	if w.GradeDecimals == 0 {
		w.GradeDecimals = 2
	}
	if err := w.ValidateWindows(); err != nil {
		return nil, err
	}
	if err := s.Repo.Create(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WorkshopService) Get(id uint) (*model.Workshop, error) {
	return s.Repo.FindByID(id)
}

func (s *WorkshopService) List(page, limit int) ([]model.Workshop, int64, error) {
	return s.Repo.List(page, limit)
}

func (s *WorkshopService) Update(id uint, req WorkshopRequest) (*model.Workshop, error) {
	w, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	w.Name = req.Name
	w.Intro = req.Intro
	w.UseExamples = req.UseExamples
	w.UseSelfAssessment = req.UseSelfAssessment
	w.LateSubmissions = req.LateSubmissions
	w.PhaseSwitchAssessment = req.PhaseSwitchAssessment
	w.ExamplesMode = req.ExamplesMode
	w.SubmissionStart = req.SubmissionStart
	w.SubmissionEnd = req.SubmissionEnd
	w.AssessmentStart = req.AssessmentStart
	w.AssessmentEnd = req.AssessmentEnd
	if req.Grade > 0 {
		w.Grade = req.Grade
	}
	if req.GradingGrade > 0 {
		w.GradingGrade = req.GradingGrade
	}
	if err := w.ValidateWindows(); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(w); err != nil {
		return nil, err
	}
	s.invalidateReport(w.ID)
	return w, nil
}

// ConfigureScheduledAllocation 教师选择 scheduled 分配方法时保存开关与参数，
// 后台任务据此在截止后执行
func (s *WorkshopService) ConfigureScheduledAllocation(w *model.Workshop, settings AllocationSettings) error {
	w.ScheduledAllocation = true
	if settings.NumPerSubmission > 0 {
		w.AllocNumPerSubmission = settings.NumPerSubmission
	}
	w.AllocNumPerReviewer = settings.NumPerReviewer
	w.AllocSelfAssessment = settings.AddSelfAssessment
	return s.Repo.Update(w)
}

func (s *WorkshopService) Delete(id uint) error {
	s.invalidateReport(id)
	return s.Repo.Delete(id)
}

// SwitchPhase 教师显式切换阶段。未知编码返回 false 且不产生任何变更。
// 进入关闭阶段时把最终成绩推给成绩册，这是本核心内唯一带副作用的切换
func (s *WorkshopService) SwitchPhase(w *model.Workshop, newPhase int) (bool, error) {
	if !model.ValidPhase(newPhase) {
		return false, nil
	}
	if err := s.Repo.UpdatePhase(w.ID, newPhase); err != nil {
		return false, err
	}
	w.Phase = newPhase

	if newPhase == model.PhaseClosed {
		if err := s.Gradebook.PushFinalGrades(w); err != nil {
			logger.Log.Error("failed to push final grades to gradebook",
				zap.Uint("workshopId", w.ID), zap.Error(err))
			return true, err
		}
		logger.Log.Info("final grades pushed to gradebook", zap.Uint("workshopId", w.ID))
	}
	s.invalidateReport(w.ID)
	return true, nil
}

// GradesReportRow 教师端成绩总览的一行
type GradesReportRow struct {
	SubmissionID    uint     `json:"submissionId"`
	AuthorID        uint     `json:"authorId"`
	AuthorName      string   `json:"authorName"`
	Title           string   `json:"title"`
	Grade           *float64 `json:"grade"`
	GradeOver       *float64 `json:"gradeOver"`
	Published       bool     `json:"published"`
	AssessmentCount int      `json:"assessmentCount"`
}

const reportCacheTTL = 5 * time.Minute

func reportCacheKey(workshopID uint) string {
	return fmt.Sprintf("workshop:%d:grades_report", workshopID)
}

// GradesReport 成绩总览，redis 缓存，聚合写入后失效
func (s *WorkshopService) GradesReport(ctx context.Context, workshopID uint) ([]GradesReportRow, error) {
	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, reportCacheKey(workshopID)).Result(); err == nil {
			var rows []GradesReportRow
			if json.Unmarshal([]byte(cached), &rows) == nil {
				return rows, nil
			}
		}
	}

	ss, _, err := s.Submissions.List(workshopID, false, 1, 10000)
	if err != nil {
		return nil, err
	}
	rows := make([]GradesReportRow, 0, len(ss))
	for _, sub := range ss {
		row := GradesReportRow{
			SubmissionID: sub.ID,
			AuthorID:     sub.AuthorID,
			Title:        sub.Title,
			Grade:        sub.Grade,
			GradeOver:    sub.GradeOver,
			Published:    sub.Published,
		}
		if sub.Author != nil {
			row.AuthorName = sub.Author.Name
		}
		var count int64
		if err := s.Repo.DB.Model(&model.Assessment{}).
			Where("submission_id = ? AND weight > 0", sub.ID).Count(&count).Error; err == nil {
			row.AssessmentCount = int(count)
		}
		rows = append(rows, row)
	}

	if s.Redis != nil {
		if data, err := json.Marshal(rows); err == nil {
			s.Redis.Set(ctx, reportCacheKey(workshopID), data, reportCacheTTL)
		}
	}
	return rows, nil
}

func (s *WorkshopService) invalidateReport(workshopID uint) {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(context.Background(), reportCacheKey(workshopID))
}

// InvalidateReport 聚合引擎写入成绩后调用
func (s *WorkshopService) InvalidateReport(workshopID uint) {
	s.invalidateReport(workshopID)
}
