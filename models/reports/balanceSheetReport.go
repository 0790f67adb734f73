package reports

import (
	"context"
	"time"

	"github.com/faisalhakim47/jurukasa-ledger/config"
	"github.com/faisalhakim47/jurukasa-ledger/models"
	"github.com/shopspring/decimal"
)

type BalanceSheetRow struct {
	AccountId   int             `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Amount      decimal.Decimal `json:"amount"`
}

type BalanceSheetSection struct {
	Title string             `json:"title"`
	Rows  []*BalanceSheetRow `json:"rows"`
	Total decimal.Decimal    `json:"total"`
}

type BalanceSheetReport struct {
	ReportTime                time.Time            `json:"report_time"`
	Assets                    *BalanceSheetSection `json:"assets"`
	Liabilities               *BalanceSheetSection `json:"liabilities"`
	Equity                    *BalanceSheetSection `json:"equity"`
	UnrealizedNetIncome       decimal.Decimal      `json:"unrealized_net_income"`
	TotalAssets               decimal.Decimal      `json:"total_assets"`
	TotalLiabilitiesAndEquity decimal.Decimal      `json:"total_liabilities_and_equity"`
}

// taggedBalancesAsOf returns the signed balance per account carrying the tag,
// computed from posted entries with entry_time <= asOf. The sign follows each
// account's normal-balance convention.
func taggedBalancesAsOf(ctx context.Context, tag string, asOf time.Time) ([]*BalanceSheetRow, error) {
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
			COALESCE(posted.debit, 0) AS debit,
			COALESCE(posted.credit, 0) AS credit
		FROM accounts
		JOIN account_tags ON account_tags.account_id = accounts.id AND account_tags.tag = ?
		LEFT JOIN (
			SELECT
				journal_entry_lines.account_id AS account_id,
				SUM(journal_entry_lines.debit) AS debit,
				SUM(journal_entry_lines.credit) AS credit
			FROM journal_entry_lines
			JOIN journal_entries ON journal_entries.id = journal_entry_lines.journal_entry_id
			WHERE journal_entries.post_time IS NOT NULL
			  AND journal_entries.entry_time <= ?
			GROUP BY journal_entry_lines.account_id
		) AS posted ON posted.account_id = accounts.id
		ORDER BY accounts.code
	`, tag, asOf).Scan(&activity).Error
	if err != nil {
		return nil, err
	}

	rows := make([]*BalanceSheetRow, 0, len(activity))
	for _, a := range activity {
		amount := a.Debit.Sub(a.Credit)
		if a.NormalBalance == models.NormalBalanceCredit {
			amount = a.Credit.Sub(a.Debit)
		}
		rows = append(rows, &BalanceSheetRow{
			AccountId:   a.AccountId,
			AccountCode: a.AccountCode,
			AccountName: a.AccountName,
			Amount:      amount,
		})
	}
	return rows, nil
}

func buildSection(ctx context.Context, title string, tag string, asOf time.Time) (*BalanceSheetSection, error) {
	rows, err := taggedBalancesAsOf(ctx, tag, asOf)
	if err != nil {
		return nil, err
	}
	section := BalanceSheetSection{Title: title, Rows: rows, Total: decimal.Zero}
	for _, row := range rows {
		section.Total = section.Total.Add(row.Amount)
	}
	return &section, nil
}

// unrealizedNetIncomeAsOf sums the temporary accounts that have not been
// swept into retained earnings yet. Closing entries zero those accounts, so
// after a fiscal year close this contribution naturally drops to the activity
// of the following period.
func unrealizedNetIncomeAsOf(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	net := decimal.Zero
	for _, tag := range []string{
		models.TagIncomeStatementRevenue,
		models.TagIncomeStatementCOGS,
		models.TagIncomeStatementExpense,
	} {
		rows, err := taggedBalancesAsOf(ctx, tag, asOf)
		if err != nil {
			return decimal.Zero, err
		}
		for _, row := range rows {
			if tag == models.TagIncomeStatementRevenue {
				net = net.Add(row.Amount)
			} else {
				net = net.Sub(row.Amount)
			}
		}
	}
	return net, nil
}

func GetBalanceSheetReport(ctx context.Context, reportTime time.Time) (*BalanceSheetReport, error) {
	started := time.Now()
	defer logSlowReport(ctx, "balance_sheet", started, map[string]any{"report_time": reportTime})

	assets, err := buildSection(ctx, "Assets", models.TagBalanceSheetAsset, reportTime)
	if err != nil {
		return nil, err
	}
	liabilities, err := buildSection(ctx, "Liabilities", models.TagBalanceSheetLiability, reportTime)
	if err != nil {
		return nil, err
	}
	equity, err := buildSection(ctx, "Equity", models.TagBalanceSheetEquity, reportTime)
	if err != nil {
		return nil, err
	}
	netIncome, err := unrealizedNetIncomeAsOf(ctx, reportTime)
	if err != nil {
		return nil, err
	}

	return &BalanceSheetReport{
		ReportTime:                reportTime,
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		UnrealizedNetIncome:       netIncome,
		TotalAssets:               assets.Total,
		TotalLiabilitiesAndEquity: liabilities.Total.Add(equity.Total).Add(netIncome),
	}, nil
}
