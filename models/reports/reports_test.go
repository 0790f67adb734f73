package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/faisalhakim47/jurukasa-ledger/config"
	"github.com/faisalhakim47/jurukasa-ledger/models"
	"github.com/faisalhakim47/jurukasa-ledger/models/reports"
	"github.com/faisalhakim47/jurukasa-ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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
		t.Fatalf("raw db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	config.SetDB(db)
	models.MigrateTable()
	t.Cleanup(func() {
		sqlDB.Close()
		config.SetDB(nil)
	})
}

type reportChart struct {
	Cash             *models.Account
	Inventory        *models.Account
	Capital          *models.Account
	RetainedEarnings *models.Account
	Sales            *models.Account
	CostOfGoods      *models.Account
	Rent             *models.Account
}

func seedReportChart(t *testing.T, ctx context.Context) *reportChart {
	t.Helper()
	create := func(input *models.NewAccount) *models.Account {
		account, err := models.CreateAccount(ctx, input)
		if err != nil {
			t.Fatalf("CreateAccount %s: %v", input.Code, err)
		}
		return account
	}
	return &reportChart{
		Cash: create(&models.NewAccount{
			Code: "11000", Name: "Cash on Hand", NormalBalance: models.NormalBalanceDebit,
			Tags: []string{models.TagBalanceSheetAsset},
		}),
		Inventory: create(&models.NewAccount{
			Code: "12000", Name: "Inventory", NormalBalance: models.NormalBalanceDebit,
			Tags: []string{models.TagBalanceSheetAsset},
		}),
		Capital: create(&models.NewAccount{
			Code: "31000", Name: "Owner Capital", NormalBalance: models.NormalBalanceCredit,
			Tags: []string{models.TagBalanceSheetEquity},
		}),
		RetainedEarnings: create(&models.NewAccount{
			Code: "32000", Name: "Retained Earnings", NormalBalance: models.NormalBalanceCredit,
			Tags: []string{models.TagBalanceSheetEquity, models.TagClosingRetainedEarning},
		}),
		Sales: create(&models.NewAccount{
			Code: "41000", Name: "Sales Revenue", NormalBalance: models.NormalBalanceCredit,
			Tags: []string{models.TagClosingRevenue, models.TagIncomeStatementRevenue},
		}),
		CostOfGoods: create(&models.NewAccount{
			Code: "50000", Name: "Cost of Goods Sold", NormalBalance: models.NormalBalanceDebit,
			Tags: []string{models.TagClosingExpense, models.TagIncomeStatementCOGS},
		}),
		Rent: create(&models.NewAccount{
			Code: "61000", Name: "Rent Expense", NormalBalance: models.NormalBalanceDebit,
			Tags: []string{models.TagClosingExpense, models.TagIncomeStatementExpense},
		}),
	}
}

func post(t *testing.T, ctx context.Context, entryTime time.Time, lines []models.NewJournalEntryLine) {
	t.Helper()
	entry, err := models.DraftJournalEntry(ctx, &models.NewJournalEntry{
		EntryTime: entryTime,
		Note:      "report test entry",
		Lines:     lines,
	})
	if err != nil {
		t.Fatalf("DraftJournalEntry: %v", err)
	}
	if _, err := models.PostJournalEntry(ctx, entry.ID, entryTime); err != nil {
		t.Fatalf("PostJournalEntry: %v", err)
	}
}

func dr(accountId int, amount int64) models.NewJournalEntryLine {
	return models.NewJournalEntryLine{AccountId: accountId, Debit: decimal.NewFromInt(amount)}
}

func cr(accountId int, amount int64) models.NewJournalEntryLine {
	return models.NewJournalEntryLine{AccountId: accountId, Credit: decimal.NewFromInt(amount)}
}

func wantAmount(t *testing.T, what string, got decimal.Decimal, want int64) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Fatalf("%s = %s, want %d", what, got.String(), want)
	}
}

// seedTradingYear posts one year of retail activity:
// capital 1000000 in, inventory bought for 300000, a 500000 sale carrying
// 200000 of cost, and 60000 rent.
func seedTradingYear(t *testing.T, ctx context.Context, chart *reportChart) {
	t.Helper()
	post(t, ctx, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), []models.NewJournalEntryLine{
		dr(chart.Cash.ID, 1000000), cr(chart.Capital.ID, 1000000),
	})
	post(t, ctx, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), []models.NewJournalEntryLine{
		dr(chart.Inventory.ID, 300000), cr(chart.Cash.ID, 300000),
	})
	post(t, ctx, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), []models.NewJournalEntryLine{
		dr(chart.Cash.ID, 500000), cr(chart.Sales.ID, 500000),
		dr(chart.CostOfGoods.ID, 200000), cr(chart.Inventory.ID, 200000),
	})
	post(t, ctx, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), []models.NewJournalEntryLine{
		dr(chart.Rent.ID, 60000), cr(chart.Cash.ID, 60000),
	})
}

func TestTrialBalanceReport(t *testing.T) {
	setupTestDB(t)
	ctx := utils.SetUserNameInContext(context.Background(), "Test")
	chart := seedReportChart(t, ctx)
	seedTradingYear(t, ctx, chart)

	report, err := reports.GetTrialBalanceReport(ctx, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetTrialBalanceReport: %v", err)
	}
	wantAmount(t, "total debit", report.TotalDebit, 1500000)
	wantAmount(t, "total credit", report.TotalCredit, 1500000)
	if len(report.Rows) != 6 {
		t.Fatalf("got %d rows, want 6", len(report.Rows))
	}

	byCode := map[string]*reports.TrialBalanceRow{}
	for _, row := range report.Rows {
		byCode[row.AccountCode] = row
	}
	wantAmount(t, "cash debit", byCode["11000"].Debit, 1140000)
	wantAmount(t, "inventory debit", byCode["12000"].Debit, 100000)
	wantAmount(t, "capital credit", byCode["31000"].Credit, 1000000)
	wantAmount(t, "sales credit", byCode["41000"].Credit, 500000)

	// a report dated before any activity has nothing to show
	empty, err := reports.GetTrialBalanceReport(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetTrialBalanceReport empty: %v", err)
	}
	if len(empty.Rows) != 0 {
		t.Fatalf("got %d rows before activity, want 0", len(empty.Rows))
	}
}

func TestBalanceSheetReportBalances(t *testing.T) {
	setupTestDB(t)
	ctx := utils.SetUserNameInContext(context.Background(), "Test")
	chart := seedReportChart(t, ctx)
	seedTradingYear(t, ctx, chart)

	report, err := reports.GetBalanceSheetReport(ctx, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetBalanceSheetReport: %v", err)
	}
	wantAmount(t, "total assets", report.TotalAssets, 1240000)
	wantAmount(t, "assets section", report.Assets.Total, 1240000)
	wantAmount(t, "liabilities section", report.Liabilities.Total, 0)
	wantAmount(t, "equity section", report.Equity.Total, 1000000)
	wantAmount(t, "unrealized net income", report.UnrealizedNetIncome, 240000)
	wantAmount(t, "total liabilities and equity", report.TotalLiabilitiesAndEquity, 1240000)
}

func TestIncomeStatementReport(t *testing.T) {
	setupTestDB(t)
	ctx := utils.SetUserNameInContext(context.Background(), "Test")
	chart := seedReportChart(t, ctx)
	seedTradingYear(t, ctx, chart)

	fy, err := models.CreateFiscalYear(ctx, &models.NewFiscalYear{
		Name:      "FY2025",
		BeginTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateFiscalYear: %v", err)
	}

	report, err := reports.GetIncomeStatementReport(ctx, fy.ID)
	if err != nil {
		t.Fatalf("GetIncomeStatementReport: %v", err)
	}
	wantAmount(t, "revenue", report.Revenue.Total, 500000)
	wantAmount(t, "cost of goods sold", report.CostOfGoods.Total, 200000)
	wantAmount(t, "expenses", report.Expenses.Total, 60000)
	wantAmount(t, "gross profit", report.GrossProfit, 300000)
	wantAmount(t, "net income", report.NetIncome, 240000)
}

func TestReportsAfterFiscalYearClose(t *testing.T) {
	setupTestDB(t)
	ctx := utils.SetUserNameInContext(context.Background(), "Test")
	chart := seedReportChart(t, ctx)
	seedTradingYear(t, ctx, chart)

	fy, err := models.CreateFiscalYear(ctx, &models.NewFiscalYear{
		Name:      "FY2025",
		BeginTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateFiscalYear: %v", err)
	}
	if _, err := models.CloseFiscalYear(ctx, fy.ID, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("CloseFiscalYear: %v", err)
	}

	// closing entries are excluded from the window, so the statement still
	// shows the year's trading activity
	income, err := reports.GetIncomeStatementReport(ctx, fy.ID)
	if err != nil {
		t.Fatalf("GetIncomeStatementReport: %v", err)
	}
	wantAmount(t, "revenue after close", income.Revenue.Total, 500000)
	wantAmount(t, "net income after close", income.NetIncome, 240000)

	// after the sweep the net income sits in retained earnings instead of the
	// unrealized line
	sheet, err := reports.GetBalanceSheetReport(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetBalanceSheetReport: %v", err)
	}
	wantAmount(t, "unrealized net income after close", sheet.UnrealizedNetIncome, 0)
	wantAmount(t, "equity after close", sheet.Equity.Total, 1240000)
	wantAmount(t, "total assets after close", sheet.TotalAssets, 1240000)
	wantAmount(t, "total liabilities and equity after close", sheet.TotalLiabilitiesAndEquity, 1240000)

	// swept temporary accounts drop off the trial balance
	trial, err := reports.GetTrialBalanceReport(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetTrialBalanceReport: %v", err)
	}
	for _, row := range trial.Rows {
		if row.AccountCode == chart.Sales.Code || row.AccountCode == chart.Rent.Code {
			t.Fatalf("account %s should have been swept to zero", row.AccountCode)
		}
	}
	wantAmount(t, "trial total debit after close", trial.TotalDebit, 1240000)
	wantAmount(t, "trial total credit after close", trial.TotalCredit, 1240000)
}

func TestBuildTrialBalanceWorkbook(t *testing.T) {
	setupTestDB(t)
	ctx := utils.SetUserNameInContext(context.Background(), "Test")
	chart := seedReportChart(t, ctx)
	seedTradingYear(t, ctx, chart)

	report, err := reports.GetTrialBalanceReport(ctx, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetTrialBalanceReport: %v", err)
	}
	f, err := reports.BuildTrialBalanceWorkbook(report)
	if err != nil {
		t.Fatalf("BuildTrialBalanceWorkbook: %v", err)
	}
	heading, err := f.GetCellValue("Sheet1", "A1")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if heading != "AccountCode" {
		t.Fatalf("heading = %q, want AccountCode", heading)
	}
	code, err := f.GetCellValue("Sheet1", "A2")
	if err != nil {
		t.Fatalf("GetCellValue first row: %v", err)
	}
	if code != chart.Cash.Code {
		t.Fatalf("first account code = %q, want %q", code, chart.Cash.Code)
	}
}
