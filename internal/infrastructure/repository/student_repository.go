package repository

import (
	"context"
	"errors"

	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"

	"gorm.io/gorm"
)

type StudentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) interfaces.StudentRepository {
	return &StudentRepository{
		db: db,
	}
}

func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*domain.Student, error) {
	var student domain.Student
	err := r.db.WithContext(ctx).First(&student, "studentid = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &student, nil
}

// GetByFamilyAndID returns the student only when it belongs to the family.
func (r *StudentRepository) GetByFamilyAndID(ctx context.Context, familyID, studentID int64) (*domain.Student, error) {
	var student domain.Student
	err := r.db.WithContext(ctx).
		Where("studentid = ? AND familyid = ?", studentID, familyID).
		First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &student, nil
}

type FamilyRepository struct {
	db *gorm.DB
}

func NewFamilyRepository(db *gorm.DB) interfaces.FamilyRepository {
	return &FamilyRepository{
		db: db,
	}
}

func (r *FamilyRepository) GetByID(ctx context.Context, id int64) (*domain.Family, error) {
	var family domain.Family
	err := r.db.WithContext(ctx).First(&family, "familyid = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &family, nil
}

// GetByIDForUpdate locks the family row. Registration takes this lock first so
// that all ledger writes for one family run one at a time.
func (r *FamilyRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Family, error) {
	var family domain.Family
	err := forUpdate(r.db.WithContext(ctx)).First(&family, "familyid = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &family, nil
}
