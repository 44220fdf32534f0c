package repository

import (
	"workshopplus_backend/internal/model"

	"gorm.io/gorm"
)

type GradeItemRepository struct {
	DB *gorm.DB
}

func NewGradeItemRepository(db *gorm.DB) *GradeItemRepository {
	return &GradeItemRepository{DB: db}
}

func (r *GradeItemRepository) Upsert(item *model.GradeItem) error {
	var existing model.GradeItem
	err := r.DB.Where("workshop_id = ? AND user_id = ? AND item_type = ?",
		item.WorkshopID, item.UserID, item.ItemType).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.DB.Create(item).Error
	}
	if err != nil {
		return err
	}
	item.ID = existing.ID
	item.CreatedAt = existing.CreatedAt
	return r.DB.Save(item).Error
}

func (r *GradeItemRepository) ListByWorkshop(workshopID uint, itemType string) ([]model.GradeItem, error) {
	var items []model.GradeItem
	query := r.DB.Where("workshop_id = ?", workshopID)
	if itemType != "" {
		query = query.Where("item_type = ?", itemType)
	}
	err := query.Order("user_id").Find(&items).Error
	return items, err
}
