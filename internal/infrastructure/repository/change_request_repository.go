package repository

import (
	"context"
	"errors"

	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"

	"gorm.io/gorm"
)

type ChangeRequestRepository struct {
	db *gorm.DB
}

func NewChangeRequestRepository(db *gorm.DB) interfaces.RegChangeRequestRepository {
	return &ChangeRequestRepository{
		db: db,
	}
}

func (r *ChangeRequestRepository) Create(ctx context.Context, request *domain.RegChangeRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *ChangeRequestRepository) GetByID(ctx context.Context, id int64) (*domain.RegChangeRequest, error) {
	var request domain.RegChangeRequest
	err := r.db.WithContext(ctx).First(&request, "requestid = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// GetForUpdate locks a request belonging to the family.
func (r *ChangeRequestRepository) GetForUpdate(ctx context.Context, requestID, familyID int64) (*domain.RegChangeRequest, error) {
	var request domain.RegChangeRequest
	err := forUpdate(r.db.WithContext(ctx)).
		Where("requestid = ? AND familyid = ?", requestID, familyID).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

func (r *ChangeRequestRepository) HasPending(ctx context.Context, regID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RegChangeRequest{}).
		Where("regid = ? AND reqstatusid = ?", regID, domain.ReqPending).
		Count(&count).Error
	return count > 0, err
}

func (r *ChangeRequestRepository) Update(ctx context.Context, request *domain.RegChangeRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) interfaces.BalanceAuditRepository {
	return &AuditRepository{
		db: db,
	}
}

func (r *AuditRepository) Create(ctx context.Context, audit *domain.BalanceAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

func (r *AuditRepository) ListByBalance(ctx context.Context, balanceID int64) ([]*domain.BalanceAudit, error) {
	var audits []*domain.BalanceAudit
	err := r.db.WithContext(ctx).
		Where("balanceid = ?", balanceID).
		Order("createdat ASC").
		Find(&audits).Error
	if err != nil {
		return nil, err
	}
	return audits, nil
}
