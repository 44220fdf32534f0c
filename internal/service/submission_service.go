package service

import (
	"context"
	"errors"
	"io"
	"time"

	"workshopplus_backend/internal/model"
	"workshopplus_backend/internal/repository"
	"workshopplus_backend/internal/util"
	"workshopplus_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SubmissionService struct {
	Repo       *repository.SubmissionRepository
	Storage    StorageProvider
	Aggregator *AggregationService
	Now        Clock
}

func NewSubmissionService(repo *repository.SubmissionRepository, storage StorageProvider, aggregator *AggregationService) *SubmissionService {
	return &SubmissionService{
		Repo:       repo,
		Storage:    storage,
		Aggregator: aggregator,
		Now:        time.Now,
	}
}

type SubmissionRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content"`
}

// Create 一人一份正式提交；阶段与窗口守卫先行。教师可无视截止补录
func (s *SubmissionService) Create(w *model.Workshop, author *model.User, req SubmissionRequest) (*model.Submission, error) {
	ignore := author.CanOverrideGrades()
	if !CreatingSubmissionAllowed(w, s.Now(), ignore) {
		return nil, util.ErrSubmissionClosed
	}

	if _, err := s.Repo.FindByWorkshopAndAuthor(w.ID, author.ID); err == nil {
		return nil, util.ErrAlreadySubmitted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub := &model.Submission{
		WorkshopID: w.ID,
		AuthorID:   author.ID,
		Title:      req.Title,
		Content:    req.Content,
	}
	if err := s.Repo.Create(sub); err != nil {
		return nil, err
	}
	logger.Log.Info("submission created",
		zap.Uint("workshopId", w.ID),
		zap.Uint("authorId", author.ID),
		zap.Uint("submissionId", sub.ID))
	return sub, nil
}

// CreateExample 教师录入训练范例，不受提交窗口限制，不参与互评聚合
func (s *SubmissionService) CreateExample(w *model.Workshop, teacher *model.User, req SubmissionRequest) (*model.Submission, error) {
	if !teacher.CanOverrideGrades() {
		return nil, util.ErrPermissionDenied
	}
	sub := &model.Submission{
		WorkshopID: w.ID,
		AuthorID:   teacher.ID,
		Example:    true,
		Title:      req.Title,
		Content:    req.Content,
	}
	if err := s.Repo.Create(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Update 只在提交阶段的窗口内允许；迟交标志不放宽编辑
func (s *SubmissionService) Update(w *model.Workshop, sub *model.Submission, actor *model.User, req SubmissionRequest) error {
	if sub.AuthorID != actor.ID && !actor.CanOverrideGrades() {
		return util.ErrPermissionDenied
	}
	if !sub.Example && !ModifyingSubmissionAllowed(w, s.Now(), actor.CanOverrideGrades()) {
		return util.ErrModifyingClosed
	}
	sub.Title = req.Title
	sub.Content = req.Content
	return s.Repo.Update(sub)
}

func (s *SubmissionService) Get(id uint) (*model.Submission, error) {
	return s.Repo.FindByID(id)
}

func (s *SubmissionService) List(workshopID uint, page, limit int) ([]model.Submission, int64, error) {
	return s.Repo.List(workshopID, false, page, limit)
}

func (s *SubmissionService) ListExamples(workshopID uint) ([]model.Submission, error) {
	return s.Repo.ListExamples(workshopID)
}

func (s *SubmissionService) Delete(w *model.Workshop, sub *model.Submission, actor *model.User) error {
	if sub.AuthorID != actor.ID && !actor.CanOverrideGrades() {
		return util.ErrPermissionDenied
	}
	if sub.AuthorID == actor.ID && !actor.CanOverrideGrades() && !ModifyingSubmissionAllowed(w, s.Now(), false) {
		return util.ErrModifyingClosed
	}
	return s.Repo.Delete(sub.ID)
}

// OverrideGrade 教师直接覆盖聚合成绩。聚合值保持不动，展示与成绩册层采用覆盖值
func (s *SubmissionService) OverrideGrade(sub *model.Submission, by *model.User, gradeOver *float64, feedback string) error {
	if !by.CanOverrideGrades() {
		return util.ErrPermissionDenied
	}
	if gradeOver != nil {
		clamped := util.ClampGrade(*gradeOver)
		gradeOver = &clamped
	}
	if err := s.Repo.UpdateGradeOver(sub.ID, gradeOver, by.ID, feedback); err != nil {
		return err
	}
	logger.Log.Info("submission grade overridden",
		zap.Uint("submissionId", sub.ID),
		zap.Uint("by", by.ID))
	return nil
}

func (s *SubmissionService) Publish(sub *model.Submission, by *model.User, published bool) error {
	if !by.CanOverrideGrades() {
		return util.ErrPermissionDenied
	}
	sub.Published = published
	return s.Repo.Update(sub)
}

// AttachFile 上传附件并挂到提交。存储键由存储层生成，失败不留孤儿记录
func (s *SubmissionService) AttachFile(ctx context.Context, w *model.Workshop, sub *model.Submission, fileName, contentType string, size int64, r io.Reader) (*model.SubmissionAttachment, error) {
	key := AttachmentKey(w.ID, fileName)
	url, err := s.Storage.Save(ctx, key, r, size, contentType)
	if err != nil {
		return nil, err
	}
	att := &model.SubmissionAttachment{
		SubmissionID: sub.ID,
		FileName:     fileName,
		ContentType:  contentType,
		Size:         size,
		URL:          url,
	}
	if err := s.Repo.CreateAttachment(att); err != nil {
		s.Storage.Remove(ctx, key)
		return nil, err
	}
	return att, nil
}
