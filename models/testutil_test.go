package models_test

import (
	"context"
	"testing"
	"time"

	"github.com/faisalhakim47/jurukasa-ledger/config"
	"github.com/faisalhakim47/jurukasa-ledger/models"
	"github.com/faisalhakim47/jurukasa-ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB binds the process-wide handle to a fresh in-memory sqlite
// database. A single connection keeps every session on the same memory store.
func setupTestDB(t *testing.T) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	config.SetDB(db)
	models.MigrateTable()

	t.Cleanup(func() {
		_ = sqlDB.Close()
		config.SetDB(nil)
	})
}

func testContext() context.Context {
	return utils.SetUserNameInContext(context.Background(), "Test")
}

type chartAccounts struct {
	Cash             *models.Account
	Bank             *models.Account
	Inventory        *models.Account
	Payable          *models.Account
	Capital          *models.Account
	RetainedEarnings *models.Account
	Drawings         *models.Account
	Sales            *models.Account
	CostOfGoods      *models.Account
	Rent             *models.Account
	Salaries         *models.Account
	ReconAdjustment  *models.Account
}

func mustCreateAccount(t *testing.T, ctx context.Context, input *models.NewAccount) *models.Account {
	t.Helper()
	account, err := models.CreateAccount(ctx, input)
	if err != nil {
		t.Fatalf("CreateAccount %s: %v", input.Code, err)
	}
	return account
}

// seedChart creates the minimal retail chart the scenario tests post against.
func seedChart(t *testing.T, ctx context.Context) *chartAccounts {
	t.Helper()
	c := chartAccounts{}
	c.Cash = mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "11000", Name: "Cash on Hand", NormalBalance: models.NormalBalanceDebit,
		Tags: []string{models.TagBalanceSheetAsset},
	})
	c.Bank = mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "11100", Name: "Bank", NormalBalance: models.NormalBalanceDebit,
		Tags: []string{models.TagBalanceSheetAsset},
	})
	c.Inventory = mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "12000", Name: "Inventory", NormalBalance: models.NormalBalanceDebit,
		Tags: []string{models.TagBalanceSheetAsset},
	})
	c.Payable = mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "21000", Name: "Accounts Payable", NormalBalance: models.NormalBalanceCredit,
		Tags: []string{models.TagBalanceSheetLiability},
	})
	c.Capital = mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "31000", Name: "Owner Capital", NormalBalance: models.NormalBalanceCredit,
		Tags: []string{models.TagBalanceSheetEquity},
	})
	c.RetainedEarnings = mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "32000", Name: "Retained Earnings", NormalBalance: models.NormalBalanceCredit,
		Tags: []string{models.TagBalanceSheetEquity, models.TagClosingRetainedEarning},
	})
	c.Drawings = mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "33000", Name: "Owner Drawings", NormalBalance: models.NormalBalanceDebit,
		Tags: []string{models.TagClosingDividend},
	})
	c.Sales = mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "41000", Name: "Sales Revenue", NormalBalance: models.NormalBalanceCredit,
		Tags: []string{models.TagClosingRevenue, models.TagIncomeStatementRevenue},
	})
	c.CostOfGoods = mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "50000", Name: "Cost of Goods Sold", NormalBalance: models.NormalBalanceDebit,
		Tags: []string{models.TagClosingExpense, models.TagIncomeStatementCOGS},
	})
	c.Rent = mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "61000", Name: "Rent Expense", NormalBalance: models.NormalBalanceDebit,
		Tags: []string{models.TagClosingExpense, models.TagIncomeStatementExpense},
	})
	c.Salaries = mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "62000", Name: "Salaries Expense", NormalBalance: models.NormalBalanceDebit,
		Tags: []string{models.TagClosingExpense, models.TagIncomeStatementExpense},
	})
	c.ReconAdjustment = mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "69000", Name: "Reconciliation Adjustments", NormalBalance: models.NormalBalanceDebit,
		Tags: []string{models.TagClosingExpense, models.TagIncomeStatementExpense, models.TagReconciliationAdjustment},
	})
	return &c
}

// postEntry drafts and posts a balanced two-or-more line entry.
func postEntry(t *testing.T, ctx context.Context, entryTime time.Time, lines []models.NewJournalEntryLine) *models.JournalEntry {
	t.Helper()
	entry, err := models.DraftJournalEntry(ctx, &models.NewJournalEntry{
		EntryTime: entryTime,
		Note:      "test entry",
		Lines:     lines,
	})
	if err != nil {
		t.Fatalf("DraftJournalEntry: %v", err)
	}
	posted, err := models.PostJournalEntry(ctx, entry.ID, entryTime)
	if err != nil {
		t.Fatalf("PostJournalEntry: %v", err)
	}
	return posted
}

func debitLine(accountId int, amount int64) models.NewJournalEntryLine {
	return models.NewJournalEntryLine{AccountId: accountId, Debit: decimal.NewFromInt(amount)}
}

func creditLine(accountId int, amount int64) models.NewJournalEntryLine {
	return models.NewJournalEntryLine{AccountId: accountId, Credit: decimal.NewFromInt(amount)}
}

func accountBalance(t *testing.T, ctx context.Context, accountId int) decimal.Decimal {
	t.Helper()
	account, err := models.GetAccount(ctx, accountId)
	if err != nil {
		t.Fatalf("GetAccount %d: %v", accountId, err)
	}
	return account.Balance
}

func requireAmount(t *testing.T, what string, got decimal.Decimal, want int64) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Fatalf("%s = %s, want %d", what, got.String(), want)
	}
}
