package models

// NormalBalance is the side on which an account's natural positive balance
// sits. The cached accounts.balance column is signed per this convention.
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "Debit"
	NormalBalanceCredit NormalBalance = "Credit"
)

func (n NormalBalance) Valid() bool {
	return n == NormalBalanceDebit || n == NormalBalanceCredit
}

type EntrySourceType string

const (
	EntrySourceTypeManual EntrySourceType = "Manual"
	EntrySourceTypeSystem EntrySourceType = "System"
	EntrySourceTypePOS    EntrySourceType = "POS"
	EntrySourceTypeImport EntrySourceType = "Import"
)

// SystemUserName is stamped on created_by of engine-generated entries
// (closing, reversal, reconciliation adjustment).
const SystemUserName = "System"

type MatchType string

const (
	MatchTypeExact     MatchType = "Exact"
	MatchTypeManual    MatchType = "Manual"
	MatchTypeSuggested MatchType = "Suggested"
)

type DiscrepancyType string

const (
	DiscrepancyTypeUnrecordedDebit  DiscrepancyType = "UnrecordedDebit"
	DiscrepancyTypeUnrecordedCredit DiscrepancyType = "UnrecordedCredit"
)

type DiscrepancyResolution string

const (
	DiscrepancyResolutionAdjusted DiscrepancyResolution = "Adjusted"
	DiscrepancyResolutionPending  DiscrepancyResolution = "Pending"
)

type BalanceReportType string

const (
	BalanceReportTypeTrialBalance    BalanceReportType = "TrialBalance"
	BalanceReportTypeBalanceSheet    BalanceReportType = "BalanceSheet"
	BalanceReportTypeIncomeStatement BalanceReportType = "IncomeStatement"
)

func (t BalanceReportType) Valid() bool {
	switch t {
	case BalanceReportTypeTrialBalance, BalanceReportTypeBalanceSheet, BalanceReportTypeIncomeStatement:
		return true
	}
	return false
}

// Well-known account tags. Tags drive classification for fiscal year closing
// and the reporting views; the engines resolve system accounts by tag lookup.
const (
	TagClosingRevenue         = "Fiscal Year Closing - Revenue"
	TagClosingExpense         = "Fiscal Year Closing - Expense"
	TagClosingDividend        = "Fiscal Year Closing - Dividend"
	TagClosingRetainedEarning = "Fiscal Year Closing - Retained Earning"

	TagReconciliationAdjustment = "Reconciliation - Adjustment"

	TagBalanceSheetAsset     = "Balance Sheet - Asset"
	TagBalanceSheetLiability = "Balance Sheet - Liability"
	TagBalanceSheetEquity    = "Balance Sheet - Equity"

	TagIncomeStatementRevenue = "Income Statement - Revenue"
	TagIncomeStatementCOGS    = "Income Statement - Cost of Goods Sold"
	TagIncomeStatementExpense = "Income Statement - Expense"
)

// closingTags are the temporary-account tags zeroed into retained earnings at
// fiscal year close, in closing-entry line order.
var closingTags = []string{TagClosingRevenue, TagClosingExpense, TagClosingDividend}
