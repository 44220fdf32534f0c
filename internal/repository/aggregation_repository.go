package repository

import (
	"workshopplus_backend/internal/model"

	"gorm.io/gorm"
)

type AggregationRepository struct {
	DB *gorm.DB
}

func NewAggregationRepository(db *gorm.DB) *AggregationRepository {
	return &AggregationRepository{DB: db}
}

func (r *AggregationRepository) FindByWorkshopAndUser(workshopID, userID uint) (*model.Aggregation, error) {
	var agg model.Aggregation
	err := r.DB.Where("workshop_id = ? AND user_id = ?", workshopID, userID).First(&agg).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

// Upsert 一人一行，首次汇总时惰性创建
func (r *AggregationRepository) Upsert(agg *model.Aggregation) error {
	existing, err := r.FindByWorkshopAndUser(agg.WorkshopID, agg.UserID)
	if err == gorm.ErrRecordNotFound {
		return r.DB.Create(agg).Error
	}
	if err != nil {
		return err
	}
	agg.ID = existing.ID
	agg.CreatedAt = existing.CreatedAt
	return r.DB.Save(agg).Error
}

func (r *AggregationRepository) ListByWorkshop(workshopID uint) ([]model.Aggregation, error) {
	var aggs []model.Aggregation
	err := r.DB.Where("workshop_id = ?", workshopID).Order("user_id").Find(&aggs).Error
	return aggs, err
}
