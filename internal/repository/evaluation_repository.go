package repository

import (
	"workshopplus_backend/internal/model"

	"gorm.io/gorm"
)

type EvaluationRepository struct {
	DB *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{DB: db}
}

func (r *EvaluationRepository) BestSettings(workshopID uint) (*model.BestEvaluationSettings, error) {
	var s model.BestEvaluationSettings
	err := r.DB.Where("workshop_id = ?", workshopID).First(&s).Error
	if err == gorm.ErrRecordNotFound {
		// 未配置时采用缺省严格度
		return &model.BestEvaluationSettings{WorkshopID: workshopID, CompareLevel: 5}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *EvaluationRepository) SaveBestSettings(s *model.BestEvaluationSettings) error {
	var existing model.BestEvaluationSettings
	err := r.DB.Where("workshop_id = ?", s.WorkshopID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.DB.Create(s).Error
	}
	if err != nil {
		return err
	}
	existing.CompareLevel = s.CompareLevel
	return r.DB.Save(&existing).Error
}
