package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/faisalhakim47/jurukasa-ledger/config"
	"github.com/faisalhakim47/jurukasa-ledger/models"
	"github.com/shopspring/decimal"
)

type TrialBalanceRow struct {
	AccountId     int                  `json:"account_id"`
	AccountCode   string               `json:"account_code"`
	AccountName   string               `json:"account_name"`
	NormalBalance models.NormalBalance `json:"normal_balance"`
	Debit         decimal.Decimal      `json:"debit"`
	Credit        decimal.Decimal      `json:"credit"`
}

type TrialBalanceReport struct {
	ReportTime  time.Time          `json:"report_time"`
	Rows        []*TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal    `json:"total_debit"`
	TotalCredit decimal.Decimal    `json:"total_credit"`
}

// GetTrialBalanceReport lists every account with posted activity up to
// reportTime. A debit-normal account with a negative signed balance shows in
// the credit column and vice versa, so the two totals always agree.
func GetTrialBalanceReport(ctx context.Context, reportTime time.Time) (*TrialBalanceReport, error) {
	started := time.Now()
	defer logSlowReport(ctx, "trial_balance", started, map[string]any{"report_time": reportTime})

	cacheKey := fmt.Sprintf("report:trial-balance:%d", reportTime.UnixMilli())
	if reportCacheEnabled() {
		var cached TrialBalanceReport
		if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	type activityRow struct {
		AccountId     int
		AccountCode   string
		AccountName   string
		NormalBalance models.NormalBalance
		Debit         decimal.Decimal
		Credit        decimal.Decimal
	}
	var activity []activityRow

	db := config.GetDB()
	err := db.WithContext(ctx).Raw(`
		SELECT
			accounts.id AS account_id,
			accounts.code AS account_code,
			accounts.name AS account_name,
			accounts.normal_balance AS normal_balance,
			COALESCE(SUM(journal_entry_lines.debit), 0) AS debit,
			COALESCE(SUM(journal_entry_lines.credit), 0) AS credit
		FROM journal_entry_lines
		JOIN journal_entries ON journal_entries.id = journal_entry_lines.journal_entry_id
		JOIN accounts ON accounts.id = journal_entry_lines.account_id
		WHERE journal_entries.post_time IS NOT NULL
		  AND journal_entries.entry_time <= ?
		GROUP BY accounts.id, accounts.code, accounts.name, accounts.normal_balance
		ORDER BY accounts.code
	`, reportTime).Scan(&activity).Error
	if err != nil {
		return nil, err
	}

	report := TrialBalanceReport{
		ReportTime:  reportTime,
		Rows:        make([]*TrialBalanceRow, 0, len(activity)),
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for _, a := range activity {
		row := TrialBalanceRow{
			AccountId:     a.AccountId,
			AccountCode:   a.AccountCode,
			AccountName:   a.AccountName,
			NormalBalance: a.NormalBalance,
		}
		net := a.Debit.Sub(a.Credit)
		if a.NormalBalance == models.NormalBalanceCredit {
			net = a.Credit.Sub(a.Debit)
			if net.IsNegative() {
				row.Debit = net.Neg()
			} else {
				row.Credit = net
			}
		} else {
			if net.IsNegative() {
				row.Credit = net.Neg()
			} else {
				row.Debit = net
			}
		}
		if row.Debit.IsZero() && row.Credit.IsZero() {
			continue
		}
		report.TotalDebit = report.TotalDebit.Add(row.Debit)
		report.TotalCredit = report.TotalCredit.Add(row.Credit)
		report.Rows = append(report.Rows, &row)
	}

	if reportCacheEnabled() {
		_ = cacheSet(cacheKey, &report, reportCacheTTL())
	}
	return &report, nil
}
