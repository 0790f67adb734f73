package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/faisalhakim47/jurukasa-ledger/models"
	"github.com/faisalhakim47/jurukasa-ledger/utils"
)

func TestCreateAccountValidation(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	cash := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "11000", Name: "Cash", NormalBalance: models.NormalBalanceDebit,
	})

	// duplicate code
	_, err := models.CreateAccount(ctx, &models.NewAccount{
		Code: "11000", Name: "Petty Cash", NormalBalance: models.NormalBalanceDebit,
	})
	if err == nil {
		t.Fatal("duplicate code should fail")
	}

	// duplicate name
	_, err = models.CreateAccount(ctx, &models.NewAccount{
		Code: "11001", Name: "Cash", NormalBalance: models.NormalBalanceDebit,
	})
	if err == nil {
		t.Fatal("duplicate name should fail")
	}

	// bad normal balance
	_, err = models.CreateAccount(ctx, &models.NewAccount{
		Code: "11002", Name: "Cash Two", NormalBalance: "Sideways",
	})
	if !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("invalid normal balance should fail, got %v", err)
	}

	// missing parent
	_, err = models.CreateAccount(ctx, &models.NewAccount{
		Code: "11003", Name: "Cash Three", NormalBalance: models.NormalBalanceDebit,
		ParentAccountId: cash.ID + 1000,
	})
	if err == nil {
		t.Fatal("missing parent should fail")
	}
}

func TestParentWithPostingsCannotBecomeControl(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()
	chart := seedChart(t, ctx)

	postEntry(t, ctx, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), []models.NewJournalEntryLine{
		debitLine(chart.Cash.ID, 1000),
		creditLine(chart.Sales.ID, 1000),
	})

	_, err := models.CreateAccount(ctx, &models.NewAccount{
		Code: "11050", Name: "Cash Register", NormalBalance: models.NormalBalanceDebit,
		ParentAccountId: chart.Cash.ID,
	})
	if !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("parenting onto a posted account should fail, got %v", err)
	}
}

func TestUpdateAccountNormalBalance(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()
	chart := seedChart(t, ctx)

	// allowed while there are no postings
	updated, err := models.UpdateAccount(ctx, chart.Drawings.ID, &models.NewAccount{
		Code: chart.Drawings.Code, Name: chart.Drawings.Name,
		NormalBalance: models.NormalBalanceCredit,
	})
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if updated.NormalBalance != models.NormalBalanceCredit {
		t.Fatalf("normal balance = %q", updated.NormalBalance)
	}

	postEntry(t, ctx, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), []models.NewJournalEntryLine{
		debitLine(chart.Cash.ID, 1000),
		creditLine(chart.Sales.ID, 1000),
	})
	_, err = models.UpdateAccount(ctx, chart.Cash.ID, &models.NewAccount{
		Code: chart.Cash.Code, Name: chart.Cash.Name,
		NormalBalance: models.NormalBalanceCredit,
	})
	if !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("flipping convention on a posted account should fail, got %v", err)
	}
}

func TestDeleteAccountGuards(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	parent := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "10000", Name: "Assets", NormalBalance: models.NormalBalanceDebit,
	})
	child := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "11000", Name: "Cash", NormalBalance: models.NormalBalanceDebit,
		ParentAccountId: parent.ID,
	})
	sales := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "41000", Name: "Sales", NormalBalance: models.NormalBalanceCredit,
	})

	if _, err := models.DeleteAccount(ctx, parent.ID); !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("deleting a parent with children should fail, got %v", err)
	}

	postEntry(t, ctx, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), []models.NewJournalEntryLine{
		debitLine(child.ID, 1000),
		creditLine(sales.ID, 1000),
	})
	if _, err := models.DeleteAccount(ctx, child.ID); !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("deleting a posted account should fail, got %v", err)
	}

	unused := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "99999", Name: "Scratch", NormalBalance: models.NormalBalanceDebit,
		Tags: []string{"Scratch"},
	})
	if _, err := models.DeleteAccount(ctx, unused.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := models.GetAccount(ctx, unused.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("deleted account should be gone, got %v", err)
	}
}

func TestMarkAccountActiveCascades(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	parent := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "10000", Name: "Assets", NormalBalance: models.NormalBalanceDebit,
	})
	child := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "11000", Name: "Cash", NormalBalance: models.NormalBalanceDebit,
		ParentAccountId: parent.ID,
	})
	grandchild := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "11100", Name: "Cash Drawer", NormalBalance: models.NormalBalanceDebit,
		ParentAccountId: child.ID,
	})

	if _, err := models.MarkAccountActive(ctx, parent.ID, false); err != nil {
		t.Fatalf("MarkAccountActive: %v", err)
	}
	for _, id := range []int{parent.ID, child.ID, grandchild.ID} {
		account, err := models.GetAccount(ctx, id)
		if err != nil {
			t.Fatalf("GetAccount %d: %v", id, err)
		}
		if account.IsActive == nil || *account.IsActive {
			t.Fatalf("account %s should be inactive", account.Code)
		}
	}
}

func TestAccountTags(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	cash := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "11000", Name: "Cash", NormalBalance: models.NormalBalanceDebit,
		Tags: []string{models.TagBalanceSheetAsset},
	})

	if _, err := models.TagAccount(ctx, cash.ID, models.TagBalanceSheetAsset); !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("duplicate tag should fail, got %v", err)
	}
	if _, err := models.TagAccount(ctx, cash.ID, "Till"); err != nil {
		t.Fatalf("TagAccount: %v", err)
	}

	tagged, err := models.GetAccountsByTag(ctx, "Till")
	if err != nil {
		t.Fatalf("GetAccountsByTag: %v", err)
	}
	if len(tagged) != 1 || tagged[0].ID != cash.ID {
		t.Fatalf("tagged lookup = %+v", tagged)
	}

	if err := models.UntagAccount(ctx, cash.ID, "Till"); err != nil {
		t.Fatalf("UntagAccount: %v", err)
	}
	if err := models.UntagAccount(ctx, cash.ID, "Till"); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("untagging a missing tag should fail, got %v", err)
	}
}

func TestAccountTreeBalance(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	assets := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "10000", Name: "Assets", NormalBalance: models.NormalBalanceDebit,
	})
	cash := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "11000", Name: "Cash", NormalBalance: models.NormalBalanceDebit,
		ParentAccountId: assets.ID,
	})
	bank := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "11100", Name: "Bank", NormalBalance: models.NormalBalanceDebit,
		ParentAccountId: assets.ID,
	})
	// contra-asset under the same parent offsets the roll-up
	allowance := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "13900", Name: "Allowance for Bad Debt", NormalBalance: models.NormalBalanceCredit,
		ParentAccountId: assets.ID,
	})
	capital := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "31000", Name: "Owner Capital", NormalBalance: models.NormalBalanceCredit,
	})

	postEntry(t, ctx, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), []models.NewJournalEntryLine{
		debitLine(cash.ID, 70000),
		debitLine(bank.ID, 50000),
		creditLine(capital.ID, 120000),
	})
	postEntry(t, ctx, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), []models.NewJournalEntryLine{
		debitLine(cash.ID, 5000),
		creditLine(allowance.ID, 5000),
	})

	total, err := models.GetAccountTreeBalance(ctx, assets.ID)
	if err != nil {
		t.Fatalf("GetAccountTreeBalance: %v", err)
	}
	requireAmount(t, "assets roll-up", total, 120000)

	leaf, err := models.GetAccountTreeBalance(ctx, cash.ID)
	if err != nil {
		t.Fatalf("GetAccountTreeBalance leaf: %v", err)
	}
	requireAmount(t, "cash leaf", leaf, 75000)
}
