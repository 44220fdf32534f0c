package repository

import (
	"workshopplus_backend/internal/model"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func (r *AssessmentRepository) Create(a *model.Assessment) error {
	return r.DB.Create(a).Error
}

func (r *AssessmentRepository) Update(a *model.Assessment) error {
	return r.DB.Save(a).Error
}

func (r *AssessmentRepository) FindByID(id uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.Preload("Reviewer").Preload("DimensionGrades").First(&a, id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssessmentRepository) FindBySubmissionAndReviewer(submissionID, reviewerID uint) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.Where("submission_id = ? AND reviewer_id = ?", submissionID, reviewerID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssessmentRepository) ListBySubmission(submissionID uint) ([]model.Assessment, error) {
	var as []model.Assessment
	err := r.DB.Preload("Reviewer").Where("submission_id = ?", submissionID).Order("id").Find(&as).Error
	return as, err
}

func (r *AssessmentRepository) ListByReviewer(workshopID, reviewerID uint) ([]model.Assessment, error) {
	var as []model.Assessment
	err := r.DB.Joins("JOIN workshop_submissions ON workshop_submissions.id = workshop_assessments.submission_id").
		Where("workshop_submissions.workshop_id = ? AND workshop_assessments.reviewer_id = ?", workshopID, reviewerID).
		Where("workshop_submissions.deleted_at IS NULL").
		Order("workshop_assessments.submission_id").
		Find(&as).Error
	return as, err
}

func (r *AssessmentRepository) ListByWorkshop(workshopID uint, includeExamples bool) ([]model.Assessment, error) {
	var as []model.Assessment
	query := r.DB.Joins("JOIN workshop_submissions ON workshop_submissions.id = workshop_assessments.submission_id").
		Where("workshop_submissions.workshop_id = ?", workshopID).
		Where("workshop_submissions.deleted_at IS NULL")
	if !includeExamples {
		query = query.Where("workshop_submissions.example = ?", false)
	}
	err := query.Order("workshop_assessments.submission_id").Find(&as).Error
	return as, err
}

func (r *AssessmentRepository) UpdateWeight(id uint, weight int) error {
	return r.DB.Model(&model.Assessment{}).Where("id = ?", id).Update("weight", weight).Error
}

func (r *AssessmentRepository) UpdatePeerGrade(id uint, grade *float64, feedback string) error {
	return r.DB.Model(&model.Assessment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"grade":           grade,
		"feedback_author": feedback,
	}).Error
}

func (r *AssessmentRepository) UpdateGradingGrade(id uint, gradingGrade *float64) error {
	return r.DB.Model(&model.Assessment{}).Where("id = ?", id).Update("grading_grade", gradingGrade).Error
}

func (r *AssessmentRepository) UpdateGradingGradeOver(id uint, over *float64, overBy uint) error {
	return r.DB.Model(&model.Assessment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"grading_grade_over":    over,
		"grading_grade_over_by": overBy,
	}).Error
}

// ClearGradingGrades 维护动作：清空评审质量分（覆盖值保留）
func (r *AssessmentRepository) ClearGradingGrades(workshopID uint) error {
	return r.DB.Exec(`UPDATE workshop_assessments a
		JOIN workshop_submissions s ON s.id = a.submission_id
		SET a.grading_grade = NULL
		WHERE s.workshop_id = ?`, workshopID).Error
}

// StreamSubmissionAssessments 按 submission_id 升序流式遍历该工作坊的全部评审行，
// 聚合引擎依赖该顺序逐提交成批处理，避免整活动载入内存。
// restrict 非空时只扫描给定提交
func (r *AssessmentRepository) StreamSubmissionAssessments(workshopID uint, restrict []uint, fn func(model.Assessment) error) error {
	query := r.DB.Model(&model.Assessment{}).
		Joins("JOIN workshop_submissions ON workshop_submissions.id = workshop_assessments.submission_id").
		Where("workshop_submissions.workshop_id = ? AND workshop_submissions.example = ?", workshopID, false).
		Where("workshop_submissions.deleted_at IS NULL")
	if len(restrict) > 0 {
		query = query.Where("workshop_assessments.submission_id IN ?", restrict)
	}
	rows, err := query.Order("workshop_assessments.submission_id, workshop_assessments.id").Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Assessment
		if err := r.DB.ScanRows(rows, &a); err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return rows.Err()
}

// StreamReviewerAssessments 按 reviewer_id 升序流式遍历，供评审成绩汇总分批处理
func (r *AssessmentRepository) StreamReviewerAssessments(workshopID uint, restrict []uint, fn func(model.Assessment) error) error {
	query := r.DB.Model(&model.Assessment{}).
		Joins("JOIN workshop_submissions ON workshop_submissions.id = workshop_assessments.submission_id").
		Where("workshop_submissions.workshop_id = ? AND workshop_submissions.example = ?", workshopID, false).
		Where("workshop_submissions.deleted_at IS NULL")
	if len(restrict) > 0 {
		query = query.Where("workshop_assessments.reviewer_id IN ?", restrict)
	}
	rows, err := query.Order("workshop_assessments.reviewer_id, workshop_assessments.id").Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Assessment
		if err := r.DB.ScanRows(rows, &a); err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return rows.Err()
}
