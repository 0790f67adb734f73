package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/faisalhakim47/jurukasa-ledger/config"
	"github.com/faisalhakim47/jurukasa-ledger/models"
	"github.com/faisalhakim47/jurukasa-ledger/utils"
)

type seedAccount struct {
	Code          string
	Name          string
	NormalBalance models.NormalBalance
	ParentCode    string
	Tags          []string
}

// Default chart of accounts for a retail point-of-sale deployment. Codes
// group by the first digit: 1 assets, 2 liabilities, 3 equity, 4 revenue,
// 5 cost of goods sold, 6 expenses.
var defaultChart = []seedAccount{
	{Code: "10000", Name: "Assets", NormalBalance: models.NormalBalanceDebit},
	{Code: "11000", Name: "Cash on Hand", NormalBalance: models.NormalBalanceDebit, ParentCode: "10000", Tags: []string{models.TagBalanceSheetAsset}},
	{Code: "11100", Name: "Bank", NormalBalance: models.NormalBalanceDebit, ParentCode: "10000", Tags: []string{models.TagBalanceSheetAsset}},
	{Code: "12000", Name: "Inventory", NormalBalance: models.NormalBalanceDebit, ParentCode: "10000", Tags: []string{models.TagBalanceSheetAsset}},
	{Code: "13000", Name: "Accounts Receivable", NormalBalance: models.NormalBalanceDebit, ParentCode: "10000", Tags: []string{models.TagBalanceSheetAsset}},

	{Code: "20000", Name: "Liabilities", NormalBalance: models.NormalBalanceCredit},
	{Code: "21000", Name: "Accounts Payable", NormalBalance: models.NormalBalanceCredit, ParentCode: "20000", Tags: []string{models.TagBalanceSheetLiability}},
	{Code: "22000", Name: "Sales Tax Payable", NormalBalance: models.NormalBalanceCredit, ParentCode: "20000", Tags: []string{models.TagBalanceSheetLiability}},

	{Code: "30000", Name: "Equity", NormalBalance: models.NormalBalanceCredit},
	{Code: "31000", Name: "Owner Capital", NormalBalance: models.NormalBalanceCredit, ParentCode: "30000", Tags: []string{models.TagBalanceSheetEquity}},
	{Code: "32000", Name: "Retained Earnings", NormalBalance: models.NormalBalanceCredit, ParentCode: "30000", Tags: []string{models.TagBalanceSheetEquity, models.TagClosingRetainedEarning}},
	{Code: "33000", Name: "Owner Drawings", NormalBalance: models.NormalBalanceDebit, ParentCode: "30000", Tags: []string{models.TagClosingDividend}},

	{Code: "40000", Name: "Revenue", NormalBalance: models.NormalBalanceCredit},
	{Code: "41000", Name: "Sales Revenue", NormalBalance: models.NormalBalanceCredit, ParentCode: "40000", Tags: []string{models.TagClosingRevenue, models.TagIncomeStatementRevenue}},
	{Code: "42000", Name: "Other Income", NormalBalance: models.NormalBalanceCredit, ParentCode: "40000", Tags: []string{models.TagClosingRevenue, models.TagIncomeStatementRevenue}},

	{Code: "50000", Name: "Cost of Goods Sold", NormalBalance: models.NormalBalanceDebit, Tags: []string{models.TagClosingExpense, models.TagIncomeStatementCOGS}},

	{Code: "60000", Name: "Expenses", NormalBalance: models.NormalBalanceDebit},
	{Code: "61000", Name: "Rent Expense", NormalBalance: models.NormalBalanceDebit, ParentCode: "60000", Tags: []string{models.TagClosingExpense, models.TagIncomeStatementExpense}},
	{Code: "62000", Name: "Salaries Expense", NormalBalance: models.NormalBalanceDebit, ParentCode: "60000", Tags: []string{models.TagClosingExpense, models.TagIncomeStatementExpense}},
	{Code: "63000", Name: "Utilities Expense", NormalBalance: models.NormalBalanceDebit, ParentCode: "60000", Tags: []string{models.TagClosingExpense, models.TagIncomeStatementExpense}},
	{Code: "69000", Name: "Reconciliation Adjustments", NormalBalance: models.NormalBalanceDebit, ParentCode: "60000", Tags: []string{models.TagClosingExpense, models.TagIncomeStatementExpense, models.TagReconciliationAdjustment}},
}

func main() {
	dryRun := flag.Bool("dry-run", false, "List what would be created without writing")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx = utils.SetUserNameInContext(ctx, "SeedChart")

	created := 0
	for _, seed := range defaultChart {
		existing, err := models.GetAccountByCode(ctx, seed.Code)
		if err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
			fmt.Fprintf(os.Stderr, "account %s: lookup failed: %v\n", seed.Code, err)
			os.Exit(1)
		}
		if existing != nil {
			fmt.Printf("account %s (%s) already exists; skipping\n", seed.Code, seed.Name)
			continue
		}
		if *dryRun {
			fmt.Printf("would create account %s (%s)\n", seed.Code, seed.Name)
			continue
		}

		input := models.NewAccount{
			Code:          seed.Code,
			Name:          seed.Name,
			NormalBalance: seed.NormalBalance,
			Tags:          seed.Tags,
		}
		if seed.ParentCode != "" {
			parent, err := models.GetAccountByCode(ctx, seed.ParentCode)
			if err != nil {
				fmt.Fprintf(os.Stderr, "account %s: parent %s not found: %v\n", seed.Code, seed.ParentCode, err)
				os.Exit(1)
			}
			input.ParentAccountId = parent.ID
		}
		if _, err := models.CreateAccount(ctx, &input); err != nil {
			fmt.Fprintf(os.Stderr, "account %s: create failed: %v\n", seed.Code, err)
			os.Exit(1)
		}
		fmt.Printf("created account %s (%s)\n", seed.Code, seed.Name)
		created++
	}
	fmt.Printf("done; %d accounts created\n", created)
}
