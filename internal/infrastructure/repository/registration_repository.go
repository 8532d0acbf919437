package repository

import (
	"context"
	"errors"

	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var activeStatuses = []domain.RegStatus{domain.RegSubmitted, domain.RegRegistered}

// forUpdate adds SELECT ... FOR UPDATE to the query.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// RegistrationRepository implements ClassRegistrationRepository using GORM
type RegistrationRepository struct {
	db *gorm.DB
}

// NewRegistrationRepository creates a new GORM registration repository
func NewRegistrationRepository(db *gorm.DB) interfaces.ClassRegistrationRepository {
	return &RegistrationRepository{
		db: db,
	}
}

// Create creates a new registration
func (r *RegistrationRepository) Create(ctx context.Context, registration *domain.ClassRegistration) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(registration).Error
}

func (r *RegistrationRepository) first(query *gorm.DB) (*domain.ClassRegistration, error) {
	var registration domain.ClassRegistration
	if err := query.First(&registration).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &registration, nil
}

// GetByID retrieves a registration by ID
func (r *RegistrationRepository) GetByID(ctx context.Context, id int64) (*domain.ClassRegistration, error) {
	return r.first(r.db.WithContext(ctx).Where("regid = ?", id))
}

// GetByIDForUpdate retrieves and locks a registration
func (r *RegistrationRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.ClassRegistration, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)).Where("regid = ?", id))
}

// GetByIDAndStudentForUpdate retrieves and locks a registration owned by the student
func (r *RegistrationRepository) GetByIDAndStudentForUpdate(ctx context.Context, regID, studentID int64) (*domain.ClassRegistration, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)).Where("regid = ? AND studentid = ?", regID, studentID))
}

// Update updates an existing registration
func (r *RegistrationRepository) Update(ctx context.Context, registration *domain.ClassRegistration) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(registration).Error
}

// Delete removes a registration row
func (r *RegistrationRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.ClassRegistration{}, "regid = ?", id).Error
}

// ListActiveByStudent returns the student's submitted or registered classes in
// the given seasons, with their arrangements loaded.
func (r *RegistrationRepository) ListActiveByStudent(ctx context.Context, studentID int64, seasonIDs []int64, excludeRegID int64) ([]*domain.ClassRegistration, error) {
	var registrations []*domain.ClassRegistration
	if len(seasonIDs) == 0 {
		return registrations, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Arrangement").
		Where("studentid = ? AND seasonid IN ? AND statusid IN ? AND regid <> ?", studentID, seasonIDs, activeStatuses, excludeRegID).
		Find(&registrations).Error
	if err != nil {
		return nil, err
	}
	return registrations, nil
}

// ListByBalanceForUpdate locks every registration funded by the balance row
func (r *RegistrationRepository) ListByBalanceForUpdate(ctx context.Context, balanceID int64) ([]*domain.ClassRegistration, error) {
	var registrations []*domain.ClassRegistration
	err := forUpdate(r.db.WithContext(ctx)).
		Where("familybalanceid = ?", balanceID).
		Order("regid ASC").
		Find(&registrations).Error
	if err != nil {
		return nil, err
	}
	return registrations, nil
}

// CountActiveByBalance counts active registrations funded by the balance row
func (r *RegistrationRepository) CountActiveByBalance(ctx context.Context, balanceID, excludeRegID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ClassRegistration{}).
		Where("familybalanceid = ? AND regid <> ? AND statusid IN ?", balanceID, excludeRegID, activeStatuses).
		Count(&count).Error
	return count, err
}

// ListByFamily retrieves all registrations for a family
func (r *RegistrationRepository) ListByFamily(ctx context.Context, familyID int64) ([]*domain.ClassRegistration, error) {
	var registrations []*domain.ClassRegistration
	err := r.db.WithContext(ctx).
		Preload("Arrangement").
		Where("familyid = ?", familyID).
		Order("regid ASC").
		Find(&registrations).Error
	if err != nil {
		return nil, err
	}
	return registrations, nil
}

// ListBySeason retrieves all registrations for a season
func (r *RegistrationRepository) ListBySeason(ctx context.Context, seasonID int64) ([]*domain.ClassRegistration, error) {
	var registrations []*domain.ClassRegistration
	err := r.db.WithContext(ctx).
		Preload("Arrangement").
		Where("seasonid = ?", seasonID).
		Order("regid ASC").
		Find(&registrations).Error
	if err != nil {
		return nil, err
	}
	return registrations, nil
}
