package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/faisalhakim47/jurukasa-ledger/models"
	"github.com/faisalhakim47/jurukasa-ledger/utils"
	"github.com/shopspring/decimal"
)

var (
	stmtBegin = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	stmtEnd   = time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)
)

func TestCreateReconciliationSession(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()
	chart := seedChart(t, ctx)

	// prior activity fixes the internal opening balance
	postEntry(t, ctx, stmtBegin.AddDate(0, -1, 0), []models.NewJournalEntryLine{
		debitLine(chart.Bank.ID, 500000),
		creditLine(chart.Capital.ID, 500000),
	})
	// activity inside the statement window
	postEntry(t, ctx, stmtBegin.AddDate(0, 0, 10), []models.NewJournalEntryLine{
		debitLine(chart.Bank.ID, 120000),
		creditLine(chart.Sales.ID, 120000),
	})

	session, err := models.CreateReconciliationSession(ctx, &models.NewReconciliationSession{
		AccountId:               chart.Bank.ID,
		StatementBeginTime:      stmtBegin,
		StatementEndTime:        stmtEnd,
		StatementOpeningBalance: decimal.NewFromInt(500000),
		StatementClosingBalance: decimal.NewFromInt(620000),
	})
	if err != nil {
		t.Fatalf("CreateReconciliationSession: %v", err)
	}
	requireAmount(t, "internal opening", session.InternalOpeningBalance, 500000)
	requireAmount(t, "internal closing", session.InternalClosingBalance, 620000)

	// only one draft per account
	_, err = models.CreateReconciliationSession(ctx, &models.NewReconciliationSession{
		AccountId:          chart.Bank.ID,
		StatementBeginTime: stmtEnd,
		StatementEndTime:   stmtEnd.AddDate(0, 1, 0),
	})
	if !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("second draft session should fail, got %v", err)
	}
}

func TestUpdateReconciliationSession(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()
	chart := seedChart(t, ctx)

	postEntry(t, ctx, stmtBegin.AddDate(0, 0, 15), []models.NewJournalEntryLine{
		debitLine(chart.Bank.ID, 40000),
		creditLine(chart.Sales.ID, 40000),
	})

	session, err := models.CreateReconciliationSession(ctx, &models.NewReconciliationSession{
		AccountId:          chart.Bank.ID,
		StatementBeginTime: stmtBegin,
		StatementEndTime:   stmtBegin.AddDate(0, 0, 10),
	})
	if err != nil {
		t.Fatalf("CreateReconciliationSession: %v", err)
	}
	requireAmount(t, "internal closing before update", session.InternalClosingBalance, 0)

	// widening the window pulls the deposit into the internal snapshot
	updated, err := models.UpdateReconciliationSession(ctx, session.ID, &models.NewReconciliationSession{
		StatementBeginTime:      stmtBegin,
		StatementEndTime:        stmtEnd,
		StatementClosingBalance: decimal.NewFromInt(40000),
	})
	if err != nil {
		t.Fatalf("UpdateReconciliationSession: %v", err)
	}
	if !updated.StatementEndTime.Equal(stmtEnd) {
		t.Fatalf("statement end = %v, want %v", updated.StatementEndTime, stmtEnd)
	}

	fetched, err := models.GetReconciliationSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetReconciliationSession: %v", err)
	}
	requireAmount(t, "internal closing after update", fetched.InternalClosingBalance, 40000)

	// the reconciled account is fixed at creation
	_, err = models.UpdateReconciliationSession(ctx, session.ID, &models.NewReconciliationSession{
		AccountId:          chart.Cash.ID,
		StatementBeginTime: stmtBegin,
		StatementEndTime:   stmtEnd,
	})
	if !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("changing the account should fail, got %v", err)
	}
}

func TestReconciliationRequiresPostingAccount(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()

	parent := mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "10000", Name: "Assets", NormalBalance: models.NormalBalanceDebit,
	})
	mustCreateAccount(t, ctx, &models.NewAccount{
		Code: "11000", Name: "Cash", NormalBalance: models.NormalBalanceDebit, ParentAccountId: parent.ID,
	})

	_, err := models.CreateReconciliationSession(ctx, &models.NewReconciliationSession{
		AccountId:          parent.ID,
		StatementBeginTime: stmtBegin,
		StatementEndTime:   stmtEnd,
	})
	if !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("control account session should fail, got %v", err)
	}
}

func TestMatchStatementItem(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()
	chart := seedChart(t, ctx)

	deposit := postEntry(t, ctx, stmtBegin.AddDate(0, 0, 5), []models.NewJournalEntryLine{
		debitLine(chart.Bank.ID, 75000),
		creditLine(chart.Sales.ID, 75000),
	})

	session, err := models.CreateReconciliationSession(ctx, &models.NewReconciliationSession{
		AccountId:               chart.Bank.ID,
		StatementBeginTime:      stmtBegin,
		StatementEndTime:        stmtEnd,
		StatementClosingBalance: decimal.NewFromInt(75000),
	})
	if err != nil {
		t.Fatalf("CreateReconciliationSession: %v", err)
	}

	item, err := models.AddStatementItem(ctx, session.ID, &models.NewStatementItem{
		ItemTime:    stmtBegin.AddDate(0, 0, 5),
		Description: "deposit",
		Credit:      decimal.NewFromInt(75000),
	})
	if err != nil {
		t.Fatalf("AddStatementItem: %v", err)
	}

	// before matching the entry line shows as outstanding
	outstanding, err := models.GetOutstandingTransactions(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetOutstandingTransactions: %v", err)
	}
	if len(outstanding) != 1 || outstanding[0].JournalEntryId != deposit.ID {
		t.Fatalf("expected the deposit to be outstanding, got %+v", outstanding)
	}

	// the matched line must belong to the session account
	_, err = models.MatchStatementItem(ctx, session.ID, item.ID, deposit.ID, 2, models.MatchTypeManual)
	if !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("matching a line on another account should fail, got %v", err)
	}

	match, err := models.MatchStatementItem(ctx, session.ID, item.ID, deposit.ID, 1, models.MatchTypeManual)
	if err != nil {
		t.Fatalf("MatchStatementItem: %v", err)
	}
	if match.JournalEntryId != deposit.ID {
		t.Fatalf("match references entry %d, want %d", match.JournalEntryId, deposit.ID)
	}

	fetched, err := models.GetReconciliationSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetReconciliationSession: %v", err)
	}
	if !fetched.Items[0].IsMatched || fetched.Items[0].MatchedJournalEntryId == nil {
		t.Fatal("item should be marked matched")
	}

	outstanding, err = models.GetOutstandingTransactions(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetOutstandingTransactions after match: %v", err)
	}
	if len(outstanding) != 0 {
		t.Fatalf("expected no outstanding transactions, got %d", len(outstanding))
	}

	// matched items cannot be deleted
	if err := models.DeleteStatementItem(ctx, session.ID, item.ID); !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("deleting a matched item should fail, got %v", err)
	}

	if err := models.UnmatchStatementItem(ctx, session.ID, item.ID); err != nil {
		t.Fatalf("UnmatchStatementItem: %v", err)
	}
	fetched, _ = models.GetReconciliationSession(ctx, session.ID)
	if fetched.Items[0].IsMatched {
		t.Fatal("item should be unmatched again")
	}
}

func TestCompleteReconciliationPostsAdjustment(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()
	chart := seedChart(t, ctx)

	// internal balance 10000000, statement says a 10000 bank fee was taken
	postEntry(t, ctx, stmtBegin.AddDate(0, -1, 0), []models.NewJournalEntryLine{
		debitLine(chart.Bank.ID, 10000000),
		creditLine(chart.Capital.ID, 10000000),
	})

	session, err := models.CreateReconciliationSession(ctx, &models.NewReconciliationSession{
		AccountId:               chart.Bank.ID,
		StatementBeginTime:      stmtBegin,
		StatementEndTime:        stmtEnd,
		StatementOpeningBalance: decimal.NewFromInt(10000000),
		StatementClosingBalance: decimal.NewFromInt(9990000),
	})
	if err != nil {
		t.Fatalf("CreateReconciliationSession: %v", err)
	}
	requireAmount(t, "internal opening", session.InternalOpeningBalance, 10000000)

	if _, err := models.AddStatementItem(ctx, session.ID, &models.NewStatementItem{
		ItemTime:    stmtBegin.AddDate(0, 0, 20),
		Description: "monthly account fee",
		Debit:       decimal.NewFromInt(10000),
	}); err != nil {
		t.Fatalf("AddStatementItem: %v", err)
	}

	completeTime := stmtEnd.AddDate(0, 0, 2)
	completed, err := models.CompleteReconciliation(ctx, session.ID, completeTime)
	if err != nil {
		t.Fatalf("CompleteReconciliation: %v", err)
	}
	if completed.CompleteTime == nil || completed.AdjustmentJournalEntryId == nil {
		t.Fatal("session should be complete with an adjustment entry")
	}

	discrepancies, err := models.GetReconciliationDiscrepancies(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetReconciliationDiscrepancies: %v", err)
	}
	if len(discrepancies) != 1 {
		t.Fatalf("got %d discrepancies, want 1", len(discrepancies))
	}
	d := discrepancies[0]
	if d.DiscrepancyType != models.DiscrepancyTypeUnrecordedDebit {
		t.Fatalf("discrepancy type = %q, want %q", d.DiscrepancyType, models.DiscrepancyTypeUnrecordedDebit)
	}
	if d.Resolution != models.DiscrepancyResolutionAdjusted {
		t.Fatalf("resolution = %q", d.Resolution)
	}
	requireAmount(t, "difference amount", d.DifferenceAmount, 10000)
	if d.ResolutionJournalEntryId == nil || *d.ResolutionJournalEntryId != *completed.AdjustmentJournalEntryId {
		t.Fatal("discrepancy should reference the adjustment entry")
	}

	entry, err := models.GetJournalEntry(ctx, *completed.AdjustmentJournalEntryId)
	if err != nil {
		t.Fatalf("GetJournalEntry: %v", err)
	}
	if entry.CreatedBy != models.SystemUserName {
		t.Fatalf("adjustment CreatedBy = %q", entry.CreatedBy)
	}
	if !entry.EntryTime.Equal(completeTime) {
		t.Fatalf("adjustment entry time = %v, want %v", entry.EntryTime, completeTime)
	}
	requireAmount(t, "adjustment total", entry.TotalAmount, 10000)

	// the unrecorded debit reduces the bank balance
	requireAmount(t, "bank after adjustment", accountBalance(t, ctx, chart.Bank.ID), 9990000)
	requireAmount(t, "adjustment expense", accountBalance(t, ctx, chart.ReconAdjustment.ID), 10000)

	// completed sessions are immutable
	_, err = models.AddStatementItem(ctx, session.ID, &models.NewStatementItem{
		ItemTime: stmtEnd,
		Debit:    decimal.NewFromInt(1),
	})
	if !errors.Is(err, utils.ErrorStateTransition) {
		t.Fatalf("adding items after completion should fail, got %v", err)
	}
	_, err = models.CompleteReconciliation(ctx, session.ID, completeTime.AddDate(0, 0, 1))
	if !errors.Is(err, utils.ErrorStateTransition) {
		t.Fatalf("double completion should fail, got %v", err)
	}
}

func TestCompleteReconciliationRejectsInconsistentStatement(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()
	chart := seedChart(t, ctx)

	session, err := models.CreateReconciliationSession(ctx, &models.NewReconciliationSession{
		AccountId:               chart.Bank.ID,
		StatementBeginTime:      stmtBegin,
		StatementEndTime:        stmtEnd,
		StatementOpeningBalance: decimal.NewFromInt(100000),
		StatementClosingBalance: decimal.NewFromInt(90000),
	})
	if err != nil {
		t.Fatalf("CreateReconciliationSession: %v", err)
	}
	// item delta (-5000) does not explain the stated change (-10000)
	if _, err := models.AddStatementItem(ctx, session.ID, &models.NewStatementItem{
		ItemTime: stmtBegin.AddDate(0, 0, 3),
		Debit:    decimal.NewFromInt(5000),
	}); err != nil {
		t.Fatalf("AddStatementItem: %v", err)
	}

	_, err = models.CompleteReconciliation(ctx, session.ID, stmtEnd.AddDate(0, 0, 1))
	if !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("inconsistent statement should fail, got %v", err)
	}
}

func TestReconciliationSessionSummary(t *testing.T) {
	setupTestDB(t)
	ctx := testContext()
	chart := seedChart(t, ctx)

	deposit := postEntry(t, ctx, stmtBegin.AddDate(0, 0, 5), []models.NewJournalEntryLine{
		debitLine(chart.Bank.ID, 30000),
		creditLine(chart.Sales.ID, 30000),
	})

	session, err := models.CreateReconciliationSession(ctx, &models.NewReconciliationSession{
		AccountId:               chart.Bank.ID,
		StatementBeginTime:      stmtBegin,
		StatementEndTime:        stmtEnd,
		StatementClosingBalance: decimal.NewFromInt(28000),
	})
	if err != nil {
		t.Fatalf("CreateReconciliationSession: %v", err)
	}

	matched, err := models.AddStatementItem(ctx, session.ID, &models.NewStatementItem{
		ItemTime: stmtBegin.AddDate(0, 0, 5),
		Credit:   decimal.NewFromInt(30000),
	})
	if err != nil {
		t.Fatalf("AddStatementItem: %v", err)
	}
	if _, err := models.MatchStatementItem(ctx, session.ID, matched.ID, deposit.ID, 1, models.MatchTypeExact); err != nil {
		t.Fatalf("MatchStatementItem: %v", err)
	}
	if _, err := models.AddStatementItem(ctx, session.ID, &models.NewStatementItem{
		ItemTime:    stmtBegin.AddDate(0, 0, 8),
		Description: "fee",
		Debit:       decimal.NewFromInt(2000),
	}); err != nil {
		t.Fatalf("AddStatementItem fee: %v", err)
	}

	summary, err := models.GetReconciliationSessionSummary(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetReconciliationSessionSummary: %v", err)
	}
	if summary.MatchedItems != 1 || summary.UnmatchedItems != 1 {
		t.Fatalf("summary counts = %d matched / %d unmatched, want 1/1", summary.MatchedItems, summary.UnmatchedItems)
	}
	if summary.AccountCode != chart.Bank.Code {
		t.Fatalf("summary account code = %q", summary.AccountCode)
	}

	if _, err := models.CompleteReconciliation(ctx, session.ID, stmtEnd.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("CompleteReconciliation: %v", err)
	}
	summary, err = models.GetReconciliationSessionSummary(ctx, session.ID)
	if err != nil {
		t.Fatalf("summary after completion: %v", err)
	}
	if summary.Discrepancies != 1 {
		t.Fatalf("summary discrepancies = %d, want 1", summary.Discrepancies)
	}
	if summary.CompleteTime == nil {
		t.Fatal("summary should carry the completion time")
	}
	// adjustment posted at complete time is outside the statement window, so
	// the refreshed internal closing reflects only window activity
	requireAmount(t, "internal closing", summary.InternalClosingBalance, 30000)
}
