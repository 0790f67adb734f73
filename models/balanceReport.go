package models

import (
	"context"
	"time"

	"github.com/faisalhakim47/jurukasa-ledger/config"
	"github.com/faisalhakim47/jurukasa-ledger/utils"
)

// BalanceReport records a report request so that the same snapshot can be
// regenerated later. Report rows are computed from posted entries on read,
// never stored.
type BalanceReport struct {
	ID           int               `gorm:"primary_key" json:"id"`
	Name         string            `gorm:"size:120;not null" json:"name" binding:"required"`
	ReportType   BalanceReportType `gorm:"size:30;not null" json:"report_type" binding:"required"`
	ReportTime   time.Time         `gorm:"not null" json:"report_time" binding:"required"`
	FiscalYearId *int              `gorm:"index" json:"fiscal_year_id"`
	CreatedBy    string            `gorm:"size:100" json:"created_by"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

type NewBalanceReport struct {
	Name         string            `json:"name" binding:"required"`
	ReportType   BalanceReportType `json:"report_type" binding:"required"`
	ReportTime   time.Time         `json:"report_time" binding:"required"`
	FiscalYearId *int              `json:"fiscal_year_id"`
}

func (r *BalanceReport) GetId() int {
	return r.ID
}

func CreateBalanceReport(ctx context.Context, input *NewBalanceReport) (*BalanceReport, error) {
	if !input.ReportType.Valid() {
		return nil, utils.NewValidationError("invalid report type '%s'", input.ReportType)
	}
	if input.ReportTime.IsZero() {
		return nil, utils.NewValidationError("report time is required")
	}
	if input.ReportType == BalanceReportTypeIncomeStatement {
		if input.FiscalYearId == nil {
			return nil, utils.NewValidationError("income statement requires a fiscal year")
		}
	}
	if input.FiscalYearId != nil {
		if err := utils.ValidateResourceId[FiscalYear](ctx, *input.FiscalYearId); err != nil {
			return nil, err
		}
	}

	createdBy, _ := utils.GetUserNameFromContext(ctx)
	report := BalanceReport{
		Name:         input.Name,
		ReportType:   input.ReportType,
		ReportTime:   input.ReportTime,
		FiscalYearId: input.FiscalYearId,
		CreatedBy:    createdBy,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func GetBalanceReport(ctx context.Context, id int) (*BalanceReport, error) {
	return utils.FetchModel[BalanceReport](ctx, id)
}

func GetBalanceReports(ctx context.Context) ([]*BalanceReport, error) {
	return utils.FetchAllModels[BalanceReport](ctx)
}
