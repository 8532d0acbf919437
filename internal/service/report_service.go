package service

import (
	"context"

	"school-registration/internal/auth"
	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"
	serviceInterfaces "school-registration/internal/interfaces/service"
)

var _ serviceInterfaces.ReportService = (*ReportService)(nil)

type ReportService struct {
	uow      interfaces.UnitOfWork
	reporter interfaces.LedgerReporter
}

func NewReportService(uow interfaces.UnitOfWork, reporter interfaces.LedgerReporter) *ReportService {
	return &ReportService{uow: uow, reporter: reporter}
}

// SeasonBalances totals every family's ledger for the cycle of seasonID.
func (s *ReportService) SeasonBalances(ctx context.Context, seasonID int64) ([]domain.FamilySeasonBalance, error) {
	if _, err := auth.RequireRole(ctx, auth.RoleAdmin); err != nil {
		return nil, err
	}
	triple, err := loadTriple(ctx, s.uow.Reader(), seasonID)
	if err != nil {
		return nil, err
	}
	return s.reporter.SeasonBalances(ctx, triple.Year.SeasonID)
}
