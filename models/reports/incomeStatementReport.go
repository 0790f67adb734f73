package reports

import (
	"context"
	"time"

	"github.com/faisalhakim47/jurukasa-ledger/config"
	"github.com/faisalhakim47/jurukasa-ledger/models"
	"github.com/faisalhakim47/jurukasa-ledger/utils"
	"github.com/shopspring/decimal"
)

type IncomeStatementRow struct {
	AccountId   int             `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Amount      decimal.Decimal `json:"amount"`
}

type IncomeStatementSection struct {
	Title string                `json:"title"`
	Rows  []*IncomeStatementRow `json:"rows"`
	Total decimal.Decimal       `json:"total"`
}

type IncomeStatementReport struct {
	FiscalYearId   int                     `json:"fiscal_year_id"`
	FiscalYearName string                  `json:"fiscal_year_name"`
	BeginTime      time.Time               `json:"begin_time"`
	EndTime        time.Time               `json:"end_time"`
	Revenue        *IncomeStatementSection `json:"revenue"`
	CostOfGoods    *IncomeStatementSection `json:"cost_of_goods_sold"`
	Expenses       *IncomeStatementSection `json:"expenses"`
	GrossProfit    decimal.Decimal         `json:"gross_profit"`
	NetIncome      decimal.Decimal         `json:"net_income"`
}

// taggedActivityInWindow nets posted activity per tagged account over the
// fiscal year window, begin exclusive and end inclusive. Revenue accounts net
// credit minus debit, cost and expense accounts debit minus credit.
func taggedActivityInWindow(ctx context.Context, tag string, begin time.Time, end time.Time, creditNormal bool) ([]*IncomeStatementRow, error) {
	type activityRow struct {
		AccountId   int
		AccountCode string
		AccountName string
		Debit       decimal.Decimal
		Credit      decimal.Decimal
	}
	var activity []activityRow

	db := config.GetDB()
	err := db.WithContext(ctx).Raw(`
		SELECT
			accounts.id AS account_id,
			accounts.code AS account_code,
			accounts.name AS account_name,
			COALESCE(SUM(journal_entry_lines.debit), 0) AS debit,
			COALESCE(SUM(journal_entry_lines.credit), 0) AS credit
		FROM journal_entry_lines
		JOIN journal_entries ON journal_entries.id = journal_entry_lines.journal_entry_id
		JOIN accounts ON accounts.id = journal_entry_lines.account_id
		JOIN account_tags ON account_tags.account_id = accounts.id AND account_tags.tag = ?
		WHERE journal_entries.post_time IS NOT NULL
		  AND journal_entries.entry_time > ?
		  AND journal_entries.entry_time <= ?
		  AND journal_entries.source_reference NOT LIKE 'FiscalYear #%'
		GROUP BY accounts.id, accounts.code, accounts.name
		ORDER BY accounts.code
	`, tag, begin, end).Scan(&activity).Error
	if err != nil {
		return nil, err
	}

	rows := make([]*IncomeStatementRow, 0, len(activity))
	for _, a := range activity {
		amount := a.Debit.Sub(a.Credit)
		if creditNormal {
			amount = a.Credit.Sub(a.Debit)
		}
		rows = append(rows, &IncomeStatementRow{
			AccountId:   a.AccountId,
			AccountCode: a.AccountCode,
			AccountName: a.AccountName,
			Amount:      amount,
		})
	}
	return rows, nil
}

func buildIncomeSection(ctx context.Context, title string, tag string, begin time.Time, end time.Time, creditNormal bool) (*IncomeStatementSection, error) {
	rows, err := taggedActivityInWindow(ctx, tag, begin, end, creditNormal)
	if err != nil {
		return nil, err
	}
	section := IncomeStatementSection{Title: title, Rows: rows, Total: decimal.Zero}
	for _, row := range rows {
		section.Total = section.Total.Add(row.Amount)
	}
	return &section, nil
}

func GetIncomeStatementReport(ctx context.Context, fiscalYearId int) (*IncomeStatementReport, error) {
	started := time.Now()
	defer logSlowReport(ctx, "income_statement", started, map[string]any{"fiscal_year_id": fiscalYearId})

	fiscalYear, err := utils.FetchModel[models.FiscalYear](ctx, fiscalYearId)
	if err != nil {
		return nil, err
	}

	revenue, err := buildIncomeSection(ctx, "Revenue", models.TagIncomeStatementRevenue, fiscalYear.BeginTime, fiscalYear.EndTime, true)
	if err != nil {
		return nil, err
	}
	costOfGoods, err := buildIncomeSection(ctx, "Cost of Goods Sold", models.TagIncomeStatementCOGS, fiscalYear.BeginTime, fiscalYear.EndTime, false)
	if err != nil {
		return nil, err
	}
	expenses, err := buildIncomeSection(ctx, "Expenses", models.TagIncomeStatementExpense, fiscalYear.BeginTime, fiscalYear.EndTime, false)
	if err != nil {
		return nil, err
	}

	grossProfit := revenue.Total.Sub(costOfGoods.Total)
	return &IncomeStatementReport{
		FiscalYearId:   fiscalYear.ID,
		FiscalYearName: fiscalYear.Name,
		BeginTime:      fiscalYear.BeginTime,
		EndTime:        fiscalYear.EndTime,
		Revenue:        revenue,
		CostOfGoods:    costOfGoods,
		Expenses:       expenses,
		GrossProfit:    grossProfit,
		NetIncome:      grossProfit.Sub(expenses.Total),
	}, nil
}
