package repository

import (
	"context"
	"errors"
	"fmt"

	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"

	"gorm.io/gorm"
)

// SeasonRepository implements SeasonRepository using GORM
type SeasonRepository struct {
	db *gorm.DB
}

// NewSeasonRepository creates a new GORM season repository
func NewSeasonRepository(db *gorm.DB) interfaces.SeasonRepository {
	return &SeasonRepository{
		db: db,
	}
}

// GetByID retrieves a season by ID
func (r *SeasonRepository) GetByID(ctx context.Context, id int64) (*domain.Season, error) {
	var season domain.Season
	err := r.db.WithContext(ctx).First(&season, "seasonid = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &season, nil
}

// GetTriple resolves the year/fall/spring cycle that contains seasonID.
// The fall half is the member that starts first.
func (r *SeasonRepository) GetTriple(ctx context.Context, seasonID int64) (*domain.SeasonTriple, error) {
	season, err := r.GetByID(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	if season == nil {
		return nil, nil
	}

	year := season
	if !season.IsYear() {
		year, err = r.GetByID(ctx, season.BeginSeasonID)
		if err != nil {
			return nil, err
		}
		if year == nil {
			return nil, fmt.Errorf("season %d: begin season %d missing: %w", season.SeasonID, season.BeginSeasonID, domain.ErrSeasonNotFound)
		}
	}

	var halves []*domain.Season
	err = r.db.WithContext(ctx).
		Where("beginseasonid = ? AND seasonid <> ?", year.SeasonID, year.SeasonID).
		Order("startdate ASC").
		Find(&halves).Error
	if err != nil {
		return nil, err
	}

	triple := &domain.SeasonTriple{Year: year}
	for _, half := range halves {
		switch {
		case half.IsSpring && triple.Spring == nil:
			triple.Spring = half
		case !half.IsSpring && triple.Fall == nil:
			triple.Fall = half
		}
	}
	return triple, nil
}

// GetActiveYear returns the year record of the active cycle.
func (r *SeasonRepository) GetActiveYear(ctx context.Context) (*domain.Season, error) {
	var season domain.Season
	err := r.db.WithContext(ctx).
		Where("status = ? AND (beginseasonid = 0 OR beginseasonid = seasonid)", domain.SeasonActive).
		Order("startdate DESC").
		First(&season).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &season, nil
}
