package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/faisalhakim47/jurukasa-ledger/config"
	"github.com/faisalhakim47/jurukasa-ledger/models"
	"github.com/faisalhakim47/jurukasa-ledger/models/reports"
	"github.com/faisalhakim47/jurukasa-ledger/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Timestamps cross the HTTP boundary as integer milliseconds since the Unix
// epoch. Zero means "not provided".
func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func writeError(c *gin.Context, err error) {
	logger := config.GetLogger()
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, utils.ErrorValidation):
		status = http.StatusBadRequest
	case errors.Is(err, utils.ErrorStateTransition):
		status = http.StatusConflict
	case errors.Is(err, utils.ErrorConfiguration):
		status = http.StatusUnprocessableEntity
	default:
		config.LogError(logger, "handlers.go", "writeError", c.FullPath(), nil, err)
	}
	cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
	c.JSON(status, gin.H{"error": err.Error(), "correlation_id": cid})
}

// writeBindError reports request binding failures field by field when the
// error comes from struct validation, otherwise as a single message.
func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

/* Accounts */

func createAccountHandler(c *gin.Context) {
	var input models.NewAccount
	if err := c.ShouldBindJSON(&input); err != nil {
		writeBindError(c, err)
		return
	}
	account, err := models.CreateAccount(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func getAccountsHandler(c *gin.Context) {
	if tag := c.Query("tag"); tag != "" {
		accounts, err := models.GetAccountsByTag(c.Request.Context(), tag)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, accounts)
		return
	}
	var name, code *string
	if v := c.Query("name"); v != "" {
		name = &v
	}
	if v := c.Query("code"); v != "" {
		code = &v
	}
	accounts, err := models.GetAccounts(c.Request.Context(), name, code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func getAccountHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	account, err := models.GetAccount(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func updateAccountHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var input models.NewAccount
	if err := c.ShouldBindJSON(&input); err != nil {
		writeBindError(c, err)
		return
	}
	account, err := models.UpdateAccount(c.Request.Context(), id, &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func deleteAccountHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	account, err := models.DeleteAccount(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func markAccountActiveHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	account, err := models.MarkAccountActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func tagAccountHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req struct {
		Tag string `json:"tag" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	tag, err := models.TagAccount(c.Request.Context(), id, req.Tag)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func untagAccountHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	tag := c.Param("tag")
	if err := models.UntagAccount(c.Request.Context(), id, tag); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func accountTreeBalanceHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	balance, err := models.GetAccountTreeBalance(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": id, "tree_balance": balance})
}

/* Journal entries */

type journalEntryLineRequest struct {
	AccountId   int             `json:"account_id" binding:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

type journalEntryRequest struct {
	EntryTimeMs     int64                     `json:"entry_time_ms" binding:"required"`
	Note            string                    `json:"note"`
	SourceType      models.EntrySourceType    `json:"source_type"`
	SourceReference string                    `json:"source_reference"`
	Lines           []journalEntryLineRequest `json:"lines"`
}

func (req *journalEntryRequest) toInput() *models.NewJournalEntry {
	input := models.NewJournalEntry{
		EntryTime:       msToTime(req.EntryTimeMs),
		Note:            req.Note,
		SourceType:      req.SourceType,
		SourceReference: req.SourceReference,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, models.NewJournalEntryLine{
			AccountId:   line.AccountId,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return &input
}

func draftJournalEntryHandler(c *gin.Context) {
	var req journalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	entry, err := models.DraftJournalEntry(c.Request.Context(), req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func paginateJournalEntriesHandler(c *gin.Context) {
	var limit *int
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = &n
		}
	}
	var after *string
	if v := c.Query("after"); v != "" {
		after = &v
	}
	var entryNumber *string
	if v := c.Query("entry_number"); v != "" {
		entryNumber = &v
	}
	var fromTime, toTime *time.Time
	if v := c.Query("from_time_ms"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			t := msToTime(ms)
			fromTime = &t
		}
	}
	if v := c.Query("to_time_ms"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			t := msToTime(ms)
			toTime = &t
		}
	}
	var sourceType *models.EntrySourceType
	if v := c.Query("source_type"); v != "" {
		st := models.EntrySourceType(v)
		sourceType = &st
	}
	postedOnly := c.Query("posted_only") == "true"

	connection, err := models.PaginateJournalEntries(c.Request.Context(), limit, after, entryNumber, fromTime, toTime, sourceType, postedOnly)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, connection)
}

func getJournalEntryHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	entry, err := models.GetJournalEntry(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func updateJournalEntryHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req struct {
		EntryTimeMs     *int64  `json:"entry_time_ms"`
		Note            *string `json:"note"`
		SourceReference *string `json:"source_reference"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	patch := models.JournalEntryPatch{
		Note:            req.Note,
		SourceReference: req.SourceReference,
	}
	if req.EntryTimeMs != nil {
		t := msToTime(*req.EntryTimeMs)
		patch.EntryTime = &t
	}
	entry, err := models.UpdateDraftJournalEntry(c.Request.Context(), id, &patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func deleteJournalEntryHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	entry, err := models.DeleteJournalEntry(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func addJournalEntryLineHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req journalEntryLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	line, err := models.AddJournalEntryLine(c.Request.Context(), id, &models.NewJournalEntryLine{
		AccountId:   req.AccountId,
		Debit:       req.Debit,
		Credit:      req.Credit,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, line)
}

func removeJournalEntryLineHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	lineNumber, ok := pathId(c, "lineNumber")
	if !ok {
		return
	}
	if err := models.RemoveJournalEntryLine(c.Request.Context(), id, lineNumber); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func postJournalEntryHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req struct {
		PostTimeMs int64 `json:"post_time_ms" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	entry, err := models.PostJournalEntry(c.Request.Context(), id, msToTime(req.PostTimeMs))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

/* Fiscal years */

type fiscalYearRequest struct {
	Name        string `json:"name" binding:"required"`
	BeginTimeMs int64  `json:"begin_time_ms" binding:"required"`
	EndTimeMs   int64  `json:"end_time_ms" binding:"required"`
}

func (req *fiscalYearRequest) toInput() *models.NewFiscalYear {
	return &models.NewFiscalYear{
		Name:      req.Name,
		BeginTime: msToTime(req.BeginTimeMs),
		EndTime:   msToTime(req.EndTimeMs),
	}
}

func createFiscalYearHandler(c *gin.Context) {
	var req fiscalYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	fiscalYear, err := models.CreateFiscalYear(c.Request.Context(), req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fiscalYear)
}

func getFiscalYearsHandler(c *gin.Context) {
	fiscalYears, err := models.GetFiscalYears(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fiscalYears)
}

func getFiscalYearHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	fiscalYear, err := models.GetFiscalYear(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fiscalYear)
}

func updateFiscalYearHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req fiscalYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	fiscalYear, err := models.UpdateFiscalYear(c.Request.Context(), id, req.toInput())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fiscalYear)
}

func deleteFiscalYearHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	fiscalYear, err := models.DeleteFiscalYear(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fiscalYear)
}

func closeFiscalYearHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req struct {
		PostTimeMs int64 `json:"post_time_ms" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	fiscalYear, err := models.CloseFiscalYear(c.Request.Context(), id, msToTime(req.PostTimeMs))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fiscalYear)
}

func reverseFiscalYearHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req struct {
		ReversalTimeMs int64 `json:"reversal_time_ms" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	fiscalYear, err := models.ReverseFiscalYear(c.Request.Context(), id, msToTime(req.ReversalTimeMs))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fiscalYear)
}

func fiscalYearAccountMutationsHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	mutations, err := models.GetFiscalYearAccountMutations(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutations)
}

/* Reconciliation */

type reconciliationSessionRequest struct {
	AccountId               int             `json:"account_id" binding:"required"`
	StatementBeginTimeMs    int64           `json:"statement_begin_time_ms" binding:"required"`
	StatementEndTimeMs      int64           `json:"statement_end_time_ms" binding:"required"`
	StatementOpeningBalance decimal.Decimal `json:"statement_opening_balance"`
	StatementClosingBalance decimal.Decimal `json:"statement_closing_balance"`
}

func createReconciliationSessionHandler(c *gin.Context) {
	var req reconciliationSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	session, err := models.CreateReconciliationSession(c.Request.Context(), &models.NewReconciliationSession{
		AccountId:               req.AccountId,
		StatementBeginTime:      msToTime(req.StatementBeginTimeMs),
		StatementEndTime:        msToTime(req.StatementEndTimeMs),
		StatementOpeningBalance: req.StatementOpeningBalance,
		StatementClosingBalance: req.StatementClosingBalance,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func getReconciliationSessionHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	session, err := models.GetReconciliationSession(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func updateReconciliationSessionHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req struct {
		StatementBeginTimeMs    int64           `json:"statement_begin_time_ms" binding:"required"`
		StatementEndTimeMs      int64           `json:"statement_end_time_ms" binding:"required"`
		StatementOpeningBalance decimal.Decimal `json:"statement_opening_balance"`
		StatementClosingBalance decimal.Decimal `json:"statement_closing_balance"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	session, err := models.UpdateReconciliationSession(c.Request.Context(), id, &models.NewReconciliationSession{
		StatementBeginTime:      msToTime(req.StatementBeginTimeMs),
		StatementEndTime:        msToTime(req.StatementEndTimeMs),
		StatementOpeningBalance: req.StatementOpeningBalance,
		StatementClosingBalance: req.StatementClosingBalance,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func deleteReconciliationSessionHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	session, err := models.DeleteReconciliationSession(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func addStatementItemHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req struct {
		ItemTimeMs  int64           `json:"item_time_ms" binding:"required"`
		Description string          `json:"description"`
		Reference   string          `json:"reference"`
		Debit       decimal.Decimal `json:"debit"`
		Credit      decimal.Decimal `json:"credit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	item, err := models.AddStatementItem(c.Request.Context(), id, &models.NewStatementItem{
		ItemTime:    msToTime(req.ItemTimeMs),
		Description: req.Description,
		Reference:   req.Reference,
		Debit:       req.Debit,
		Credit:      req.Credit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func deleteStatementItemHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	itemId, ok := pathId(c, "itemId")
	if !ok {
		return
	}
	if err := models.DeleteStatementItem(c.Request.Context(), id, itemId); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func matchStatementItemHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	itemId, ok := pathId(c, "itemId")
	if !ok {
		return
	}
	var req struct {
		JournalEntryId int              `json:"journal_entry_id" binding:"required"`
		LineNumber     int              `json:"line_number" binding:"required"`
		MatchType      models.MatchType `json:"match_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	match, err := models.MatchStatementItem(c.Request.Context(), id, itemId, req.JournalEntryId, req.LineNumber, req.MatchType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, match)
}

func unmatchStatementItemHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	itemId, ok := pathId(c, "itemId")
	if !ok {
		return
	}
	if err := models.UnmatchStatementItem(c.Request.Context(), id, itemId); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func completeReconciliationHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	var req struct {
		CompleteTimeMs int64 `json:"complete_time_ms" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	session, err := models.CompleteReconciliation(c.Request.Context(), id, msToTime(req.CompleteTimeMs))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func outstandingTransactionsHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	rows, err := models.GetOutstandingTransactions(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func reconciliationSummaryHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	summary, err := models.GetReconciliationSessionSummary(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func reconciliationDiscrepanciesHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	discrepancies, err := models.GetReconciliationDiscrepancies(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, discrepancies)
}

/* Reports */

func createBalanceReportHandler(c *gin.Context) {
	var req struct {
		Name         string                   `json:"name" binding:"required"`
		ReportType   models.BalanceReportType `json:"report_type" binding:"required"`
		ReportTimeMs int64                    `json:"report_time_ms" binding:"required"`
		FiscalYearId *int                     `json:"fiscal_year_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	report, err := models.CreateBalanceReport(c.Request.Context(), &models.NewBalanceReport{
		Name:         req.Name,
		ReportType:   req.ReportType,
		ReportTime:   msToTime(req.ReportTimeMs),
		FiscalYearId: req.FiscalYearId,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func getBalanceReportsHandler(c *gin.Context) {
	results, err := models.GetBalanceReports(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func getBalanceReportHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	report, err := models.GetBalanceReport(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// renderBalanceReport regenerates the snapshot a BalanceReport record
// describes. Rows are always computed from posted entries, never stored.
func renderBalanceReport(c *gin.Context, report *models.BalanceReport) (interface{}, error) {
	ctx := c.Request.Context()
	switch report.ReportType {
	case models.BalanceReportTypeTrialBalance:
		return reports.GetTrialBalanceReport(ctx, report.ReportTime)
	case models.BalanceReportTypeBalanceSheet:
		return reports.GetBalanceSheetReport(ctx, report.ReportTime)
	case models.BalanceReportTypeIncomeStatement:
		if report.FiscalYearId == nil {
			return nil, utils.NewConfigurationError("income statement report %d has no fiscal year", report.ID)
		}
		return reports.GetIncomeStatementReport(ctx, *report.FiscalYearId)
	}
	return nil, utils.NewValidationError("unknown report type '%s'", report.ReportType)
}

func renderBalanceReportHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	report, err := models.GetBalanceReport(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	rendered, err := renderBalanceReport(c, report)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rendered)
}

func exportBalanceReportHandler(c *gin.Context) {
	id, ok := pathId(c, "id")
	if !ok {
		return
	}
	report, err := models.GetBalanceReport(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	rendered, err := renderBalanceReport(c, report)
	if err != nil {
		writeError(c, err)
		return
	}

	switch r := rendered.(type) {
	case *reports.TrialBalanceReport:
		f, err := reports.BuildTrialBalanceWorkbook(r)
		if err != nil {
			writeError(c, err)
			return
		}
		writeWorkbook(c, f, report.Name)
	case *reports.BalanceSheetReport:
		f, err := reports.BuildBalanceSheetWorkbook(r)
		if err != nil {
			writeError(c, err)
			return
		}
		writeWorkbook(c, f, report.Name)
	case *reports.IncomeStatementReport:
		f, err := reports.BuildIncomeStatementWorkbook(r)
		if err != nil {
			writeError(c, err)
			return
		}
		writeWorkbook(c, f, report.Name)
	}
}

func writeWorkbook(c *gin.Context, f *excelize.File, name string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="`+name+`.xlsx"`)
	if err := f.Write(c.Writer); err != nil {
		config.LogError(config.GetLogger(), "handlers.go", "writeWorkbook", name, nil, err)
	}
}

func trialBalanceHandler(c *gin.Context) {
	ms, err := strconv.ParseInt(c.Query("report_time_ms"), 10, 64)
	if err != nil || ms <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report_time_ms is required"})
		return
	}
	report, err := reports.GetTrialBalanceReport(c.Request.Context(), msToTime(ms))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func balanceSheetHandler(c *gin.Context) {
	ms, err := strconv.ParseInt(c.Query("report_time_ms"), 10, 64)
	if err != nil || ms <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report_time_ms is required"})
		return
	}
	report, err := reports.GetBalanceSheetReport(c.Request.Context(), msToTime(ms))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func incomeStatementHandler(c *gin.Context) {
	fiscalYearId, err := strconv.Atoi(c.Query("fiscal_year_id"))
	if err != nil || fiscalYearId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fiscal_year_id is required"})
		return
	}
	report, err := reports.GetIncomeStatementReport(c.Request.Context(), fiscalYearId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
