package repository

import (
	"workshopplus_backend/internal/model"

	"gorm.io/gorm"
)

// StrategyRepository 各评分策略的维度定义与维度打分行
type StrategyRepository struct {
	DB *gorm.DB
}

func NewStrategyRepository(db *gorm.DB) *StrategyRepository {
	return &StrategyRepository{DB: db}
}

func (r *StrategyRepository) ListAccumulativeDimensions(workshopID uint) ([]model.AccumulativeDimension, error) {
	var dims []model.AccumulativeDimension
	err := r.DB.Where("workshop_id = ?", workshopID).Order("`order` asc, id asc").Find(&dims).Error
	return dims, err
}

func (r *StrategyRepository) CreateAccumulativeDimension(d *model.AccumulativeDimension) error {
	return r.DB.Create(d).Error
}

func (r *StrategyRepository) ListNumErrorsDimensions(workshopID uint) ([]model.NumErrorsDimension, error) {
	var dims []model.NumErrorsDimension
	err := r.DB.Where("workshop_id = ?", workshopID).Order("`order` asc, id asc").Find(&dims).Error
	return dims, err
}

func (r *StrategyRepository) CreateNumErrorsDimension(d *model.NumErrorsDimension) error {
	return r.DB.Create(d).Error
}

func (r *StrategyRepository) ListNumErrorsMappings(workshopID uint) ([]model.NumErrorsMapping, error) {
	var maps []model.NumErrorsMapping
	err := r.DB.Where("workshop_id = ?", workshopID).Order("no_negative asc").Find(&maps).Error
	return maps, err
}

func (r *StrategyRepository) SaveNumErrorsMapping(m *model.NumErrorsMapping) error {
	var existing model.NumErrorsMapping
	err := r.DB.Where("workshop_id = ? AND no_negative = ?", m.WorkshopID, m.NoNegative).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.DB.Create(m).Error
	}
	if err != nil {
		return err
	}
	existing.Grade = m.Grade
	return r.DB.Save(&existing).Error
}

func (r *StrategyRepository) ListRubricCriteria(workshopID uint) ([]model.RubricCriterion, error) {
	var cs []model.RubricCriterion
	err := r.DB.Preload("Levels", func(db *gorm.DB) *gorm.DB {
		return db.Order("grade asc")
	}).Where("workshop_id = ?", workshopID).Order("`order` asc, id asc").Find(&cs).Error
	return cs, err
}

func (r *StrategyRepository) CreateRubricCriterion(c *model.RubricCriterion) error {
	return r.DB.Create(c).Error
}

func (r *StrategyRepository) ListCommentsDimensions(workshopID uint) ([]model.CommentsDimension, error) {
	var dims []model.CommentsDimension
	err := r.DB.Where("workshop_id = ?", workshopID).Order("`order` asc, id asc").Find(&dims).Error
	return dims, err
}

func (r *StrategyRepository) CreateCommentsDimension(d *model.CommentsDimension) error {
	return r.DB.Create(d).Error
}

// ReplaceDimensionGrades 重提评审表时整体替换维度打分
func (r *StrategyRepository) ReplaceDimensionGrades(assessmentID uint, grades []model.DimensionGrade) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("assessment_id = ?", assessmentID).Delete(&model.DimensionGrade{}).Error; err != nil {
			return err
		}
		for i := range grades {
			grades[i].AssessmentID = assessmentID
			if err := tx.Create(&grades[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *StrategyRepository) ListDimensionGrades(assessmentID uint) ([]model.DimensionGrade, error) {
	var gs []model.DimensionGrade
	err := r.DB.Where("assessment_id = ?", assessmentID).Order("dimension_id").Find(&gs).Error
	return gs, err
}
