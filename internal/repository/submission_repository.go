package repository

import (
	"time"

	"workshopplus_backend/internal/model"

	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) Create(s *model.Submission) error {
	return r.DB.Create(s).Error
}

func (r *SubmissionRepository) Update(s *model.Submission) error {
	return r.DB.Save(s).Error
}

func (r *SubmissionRepository) FindByID(id uint) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.Preload("Author").Preload("Attachments").First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByWorkshopAndAuthor 查找作者在该工作坊的正式提交（范例除外）。
// 每个 (工作坊, 作者) 至多一份正式提交，靠查找而非数据库约束保证
func (r *SubmissionRepository) FindByWorkshopAndAuthor(workshopID, authorID uint) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.Where("workshop_id = ? AND author_id = ? AND example = ?", workshopID, authorID, false).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubmissionRepository) List(workshopID uint, includeExamples bool, page, limit int) ([]model.Submission, int64, error) {
	var ss []model.Submission
	var total int64
	query := r.DB.Model(&model.Submission{}).Where("workshop_id = ?", workshopID)
	if !includeExamples {
		query = query.Where("example = ?", false)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Preload("Author").Order("created_at desc").Offset(offset).Limit(limit).Find(&ss).Error
	return ss, total, err
}

// ListAll 不分页取全部正式提交，分配器按提交遍历时使用
func (r *SubmissionRepository) ListAll(workshopID uint) ([]model.Submission, error) {
	var ss []model.Submission
	err := r.DB.Where("workshop_id = ? AND example = ?", workshopID, false).Order("id").Find(&ss).Error
	return ss, err
}

func (r *SubmissionRepository) ListIDs(workshopID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Submission{}).
		Where("workshop_id = ? AND example = ?", workshopID, false).
		Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *SubmissionRepository) ListExamples(workshopID uint) ([]model.Submission, error) {
	var ss []model.Submission
	err := r.DB.Where("workshop_id = ? AND example = ?", workshopID, true).Order("id").Find(&ss).Error
	return ss, err
}

func (r *SubmissionRepository) UpdateGradeOver(id uint, gradeOver *float64, overBy uint, feedback string) error {
	return r.DB.Model(&model.Submission{}).Where("id = ?", id).Updates(map[string]interface{}{
		"grade_over":    gradeOver,
		"grade_over_by": overBy,
		"feedback":      feedback,
	}).Error
}

func (r *SubmissionRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var assessmentIDs []uint
		if err := tx.Model(&model.Assessment{}).Where("submission_id = ?", id).Pluck("id", &assessmentIDs).Error; err != nil {
			return err
		}
		if len(assessmentIDs) > 0 {
			if err := tx.Where("assessment_id IN ?", assessmentIDs).Delete(&model.DimensionGrade{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", assessmentIDs).Delete(&model.Assessment{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("submission_id = ?", id).Delete(&model.SubmissionAttachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Submission{}, id).Error
	})
}

// ClearGrades 维护动作：清空聚合成绩，随后由聚合引擎重算
func (r *SubmissionRepository) ClearGrades(workshopID uint) error {
	return r.DB.Model(&model.Submission{}).Where("workshop_id = ?", workshopID).Updates(map[string]interface{}{
		"grade":       nil,
		"time_graded": nil,
	}).Error
}

func (r *SubmissionRepository) CreateAttachment(a *model.SubmissionAttachment) error {
	return r.DB.Create(a).Error
}

// Grade / WriteGrade 供聚合引擎按提交逐批读写
func (r *SubmissionRepository) Grade(submissionID uint) (*float64, error) {
	var s model.Submission
	if err := r.DB.Select("grade").First(&s, submissionID).Error; err != nil {
		return nil, err
	}
	return s.Grade, nil
}

func (r *SubmissionRepository) WriteGrade(submissionID uint, grade *float64, gradedAt time.Time) error {
	return r.DB.Model(&model.Submission{}).Where("id = ?", submissionID).Updates(map[string]interface{}{
		"grade":       grade,
		"time_graded": gradedAt,
	}).Error
}
