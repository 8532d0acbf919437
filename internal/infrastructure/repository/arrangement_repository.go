package repository

import (
	"context"
	"errors"

	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"

	"gorm.io/gorm"
)

// ArrangementRepository implements ArrangementRepository using GORM
type ArrangementRepository struct {
	db *gorm.DB
}

// NewArrangementRepository creates a new GORM arrangement repository
func NewArrangementRepository(db *gorm.DB) interfaces.ArrangementRepository {
	return &ArrangementRepository{
		db: db,
	}
}

// GetByID retrieves an arrangement by ID
func (r *ArrangementRepository) GetByID(ctx context.Context, id int64) (*domain.Arrangement, error) {
	var arrangement domain.Arrangement
	err := r.db.WithContext(ctx).First(&arrangement, "arrangeid = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &arrangement, nil
}

// GetByClassAndSeason retrieves the single arrangement of a class in a season
func (r *ArrangementRepository) GetByClassAndSeason(ctx context.Context, classID, seasonID int64) (*domain.Arrangement, error) {
	var arrangement domain.Arrangement
	err := r.db.WithContext(ctx).
		Where("classid = ? AND seasonid = ?", classID, seasonID).
		First(&arrangement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &arrangement, nil
}
