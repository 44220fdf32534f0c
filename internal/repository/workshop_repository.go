package repository

import (
	"workshopplus_backend/internal/model"

	"gorm.io/gorm"
)

type WorkshopRepository struct {
	DB *gorm.DB
}

func NewWorkshopRepository(db *gorm.DB) *WorkshopRepository {
	return &WorkshopRepository{DB: db}
}

func (r *WorkshopRepository) Create(w *model.Workshop) error {
	return r.DB.Create(w).Error
}

func (r *WorkshopRepository) FindByID(id uint) (*model.Workshop, error) {
	var w model.Workshop
	err := r.DB.First(&w, id).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WorkshopRepository) List(page, limit int) ([]model.Workshop, int64, error) {
	var ws []model.Workshop
	var total int64
	query := r.DB.Model(&model.Workshop{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&ws).Error
	return ws, total, err
}

func (r *WorkshopRepository) Update(w *model.Workshop) error {
	return r.DB.Save(w).Error
}

func (r *WorkshopRepository) UpdatePhase(id uint, phase int) error {
	return r.DB.Model(&model.Workshop{}).Where("id = ?", id).Update("phase", phase).Error
}

// Delete 级联清理工作坊拥有的提交、评审与汇总
func (r *WorkshopRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var submissionIDs []uint
		if err := tx.Model(&model.Submission{}).Where("workshop_id = ?", id).Pluck("id", &submissionIDs).Error; err != nil {
			return err
		}
		if len(submissionIDs) > 0 {
			var assessmentIDs []uint
			if err := tx.Model(&model.Assessment{}).Where("submission_id IN ?", submissionIDs).Pluck("id", &assessmentIDs).Error; err != nil {
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
			if err := tx.Where("submission_id IN ?", submissionIDs).Delete(&model.SubmissionAttachment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", submissionIDs).Delete(&model.Submission{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("workshop_id = ?", id).Delete(&model.Aggregation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workshop_id = ?", id).Delete(&model.GradeItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Workshop{}, id).Error
	})
}

// ListPendingScheduledAllocation 提交截止已过、且开启了定时分配或自动切换
// 阶段的工作坊；两项都未开启的工作坊后台任务不会触碰
func (r *WorkshopRepository) ListPendingScheduledAllocation() ([]model.Workshop, error) {
	var ws []model.Workshop
	err := r.DB.Where("phase = ? AND submission_end IS NOT NULL AND submission_end < NOW()", model.PhaseSubmission).
		Where("scheduled_allocation = ? OR phase_switch_assessment = ?", true, true).
		Find(&ws).Error
	return ws, err
}
