package models

import (
	"context"
	"fmt"
	"time"

	"github.com/faisalhakim47/jurukasa-ledger/config"
	"github.com/faisalhakim47/jurukasa-ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReconciliationSession compares one account's internal activity against an
// external statement over (statement_begin_time, statement_end_time].
// complete_time null = draft; a completed session is immutable.
type ReconciliationSession struct {
	ID                       int             `gorm:"primary_key" json:"id"`
	AccountId                int             `gorm:"index;not null" json:"account_id" binding:"required"`
	StatementBeginTime       time.Time       `gorm:"not null" json:"statement_begin_time" binding:"required"`
	StatementEndTime         time.Time       `gorm:"not null" json:"statement_end_time" binding:"required"`
	StatementOpeningBalance  decimal.Decimal `gorm:"type:decimal(20,0);not null;default:0" json:"statement_opening_balance"`
	StatementClosingBalance  decimal.Decimal `gorm:"type:decimal(20,0);not null;default:0" json:"statement_closing_balance"`
	InternalOpeningBalance   decimal.Decimal `gorm:"type:decimal(20,0);not null;default:0" json:"internal_opening_balance"`
	InternalClosingBalance   decimal.Decimal `gorm:"type:decimal(20,0);not null;default:0" json:"internal_closing_balance"`
	CompleteTime             *time.Time      `gorm:"index" json:"complete_time"`
	AdjustmentJournalEntryId *int            `gorm:"index" json:"adjustment_journal_entry_id"`
	Items                    []ReconciliationStatementItem `gorm:"foreignKey:SessionId" json:"items"`
	CreatedAt                time.Time                     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time                     `gorm:"autoUpdateTime" json:"updated_at"`
}

type ReconciliationStatementItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	SessionId   int             `gorm:"index;not null" json:"session_id"`
	ItemTime    time.Time       `gorm:"not null" json:"item_time"`
	Description string          `gorm:"size:255" json:"description"`
	Reference   string          `gorm:"size:100" json:"reference"`
	Debit       decimal.Decimal `gorm:"type:decimal(20,0);not null;default:0" json:"debit"`
	Credit      decimal.Decimal `gorm:"type:decimal(20,0);not null;default:0" json:"credit"`
	// IsMatched and MatchedJournalEntryId are projections owned by the
	// match add/remove operations.
	IsMatched             bool `gorm:"not null;default:false;index" json:"is_matched"`
	MatchedJournalEntryId *int `gorm:"index" json:"matched_journal_entry_id"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type ReconciliationMatch struct {
	ID              int       `gorm:"primary_key" json:"id"`
	StatementItemId int       `gorm:"uniqueIndex;not null" json:"statement_item_id"`
	JournalEntryId  int       `gorm:"index;not null" json:"journal_entry_id"`
	LineNumber      int       `gorm:"not null" json:"line_number"`
	MatchType       MatchType `gorm:"size:16;not null;default:'Manual'" json:"match_type"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type ReconciliationDiscrepancy struct {
	ID                       int                   `gorm:"primary_key" json:"id"`
	SessionId                int                   `gorm:"index;not null" json:"session_id"`
	StatementItemId          int                   `gorm:"index;not null" json:"statement_item_id"`
	DiscrepancyType          DiscrepancyType       `gorm:"size:30;not null" json:"discrepancy_type"`
	ExpectedAmount           decimal.Decimal       `gorm:"type:decimal(20,0);not null;default:0" json:"expected_amount"`
	ActualAmount             decimal.Decimal       `gorm:"type:decimal(20,0);not null;default:0" json:"actual_amount"`
	DifferenceAmount         decimal.Decimal       `gorm:"type:decimal(20,0);not null;default:0" json:"difference_amount"`
	Resolution               DiscrepancyResolution `gorm:"size:20;not null;default:'Pending'" json:"resolution"`
	ResolutionJournalEntryId *int                  `gorm:"index" json:"resolution_journal_entry_id"`
	CreatedAt                time.Time             `gorm:"autoCreateTime" json:"created_at"`
}

type NewReconciliationSession struct {
	AccountId               int             `json:"account_id" binding:"required"`
	StatementBeginTime      time.Time       `json:"statement_begin_time" binding:"required"`
	StatementEndTime        time.Time       `json:"statement_end_time" binding:"required"`
	StatementOpeningBalance decimal.Decimal `json:"statement_opening_balance"`
	StatementClosingBalance decimal.Decimal `json:"statement_closing_balance"`
}

type NewStatementItem struct {
	ItemTime    time.Time       `json:"item_time" binding:"required"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

func (s *ReconciliationSession) GetId() int {
	return s.ID
}

func (s *ReconciliationSession) IsCompleted() bool {
	return s.CompleteTime != nil
}

// internalBalanceAsOf is the account's signed balance over posted entries
// with entry_time <= asOf, per its normal-balance convention.
func internalBalanceAsOf(ctx context.Context, tx *gorm.DB, account *Account, asOf time.Time) (decimal.Decimal, error) {
	type row struct {
		Debit  decimal.Decimal
		Credit decimal.Decimal
	}
	var r row
	err := tx.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(journal_entry_lines.debit), 0) AS debit,
			COALESCE(SUM(journal_entry_lines.credit), 0) AS credit
		FROM journal_entry_lines
		JOIN journal_entries ON journal_entries.id = journal_entry_lines.journal_entry_id
		WHERE journal_entry_lines.account_id = ?
		  AND journal_entries.post_time IS NOT NULL
		  AND journal_entries.entry_time <= ?
	`, account.ID, asOf).Scan(&r).Error
	if err != nil {
		return decimal.Zero, err
	}
	if account.NormalBalance == NormalBalanceCredit {
		return r.Credit.Sub(r.Debit), nil
	}
	return r.Debit.Sub(r.Credit), nil
}

func (input *NewReconciliationSession) validate(ctx context.Context, tx *gorm.DB) (*Account, error) {
	var account Account
	if err := tx.WithContext(ctx).First(&account, input.AccountId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	posting, err := IsPostingAccount(ctx, tx, account.ID)
	if err != nil {
		return nil, err
	}
	if !posting {
		return nil, utils.NewValidationError("reconciliation requires a posting account")
	}
	if !input.StatementEndTime.After(input.StatementBeginTime) {
		return nil, utils.NewValidationError("statement end time must be after begin time")
	}
	if !input.StatementOpeningBalance.IsInteger() || !input.StatementClosingBalance.IsInteger() {
		return nil, utils.NewValidationError("amounts must be integers in the smallest currency unit")
	}

	// only one draft session per account at a time
	var drafts int64
	err = tx.WithContext(ctx).Model(&ReconciliationSession{}).
		Where("account_id = ?", input.AccountId).
		Where("complete_time IS NULL").
		Count(&drafts).Error
	if err != nil {
		return nil, err
	}
	if drafts > 0 {
		return nil, utils.NewValidationError("a draft reconciliation session already exists for this account")
	}
	return &account, nil
}

func CreateReconciliationSession(ctx context.Context, input *NewReconciliationSession) (*ReconciliationSession, error) {
	db := config.GetDB()
	tx := db.Begin()

	account, err := input.validate(ctx, tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	internalOpening, err := internalBalanceAsOf(ctx, tx, account, input.StatementBeginTime)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	internalClosing, err := internalBalanceAsOf(ctx, tx, account, input.StatementEndTime)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	session := ReconciliationSession{
		AccountId:               input.AccountId,
		StatementBeginTime:      input.StatementBeginTime,
		StatementEndTime:        input.StatementEndTime,
		StatementOpeningBalance: input.StatementOpeningBalance,
		StatementClosingBalance: input.StatementClosingBalance,
		InternalOpeningBalance:  internalOpening,
		InternalClosingBalance:  internalClosing,
	}
	if err := tx.WithContext(ctx).Create(&session).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateReconciliationSession replaces the statement window and balances of a
// draft session and recomputes the internal snapshots. The account is fixed at
// creation.
func UpdateReconciliationSession(ctx context.Context, sessionId int, input *NewReconciliationSession) (*ReconciliationSession, error) {
	session, err := fetchDraftSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if input.AccountId != 0 && input.AccountId != session.AccountId {
		return nil, utils.NewValidationError("the reconciled account cannot be changed")
	}
	if !input.StatementEndTime.After(input.StatementBeginTime) {
		return nil, utils.NewValidationError("statement end time must be after begin time")
	}
	if !input.StatementOpeningBalance.IsInteger() || !input.StatementClosingBalance.IsInteger() {
		return nil, utils.NewValidationError("amounts must be integers in the smallest currency unit")
	}

	db := config.GetDB()
	tx := db.Begin()

	var account Account
	if err := tx.WithContext(ctx).First(&account, session.AccountId).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	internalOpening, err := internalBalanceAsOf(ctx, tx, &account, input.StatementBeginTime)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	internalClosing, err := internalBalanceAsOf(ctx, tx, &account, input.StatementEndTime)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	err = tx.WithContext(ctx).Model(&session).Updates(map[string]interface{}{
		"StatementBeginTime":      input.StatementBeginTime,
		"StatementEndTime":        input.StatementEndTime,
		"StatementOpeningBalance": input.StatementOpeningBalance,
		"StatementClosingBalance": input.StatementClosingBalance,
		"InternalOpeningBalance":  internalOpening,
		"InternalClosingBalance":  internalClosing,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return session, nil
}

func fetchDraftSession(ctx context.Context, sessionId int, associations ...string) (*ReconciliationSession, error) {
	session, err := utils.FetchModel[ReconciliationSession](ctx, sessionId, associations...)
	if err != nil {
		return nil, err
	}
	if session.IsCompleted() {
		return nil, utils.NewStateTransitionError("reconciliation session %d is completed and immutable", sessionId)
	}
	return session, nil
}

func DeleteReconciliationSession(ctx context.Context, sessionId int) (*ReconciliationSession, error) {
	session, err := fetchDraftSession(ctx, sessionId, "Items")
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	tx := db.Begin()
	itemIds := make([]int, 0, len(session.Items))
	for _, item := range session.Items {
		itemIds = append(itemIds, item.ID)
	}
	if len(itemIds) > 0 {
		if err := tx.WithContext(ctx).Where("statement_item_id IN ?", itemIds).Delete(&ReconciliationMatch{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.WithContext(ctx).Where("session_id = ?", sessionId).Delete(&ReconciliationStatementItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&session).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return session, nil
}

func GetReconciliationSession(ctx context.Context, sessionId int) (*ReconciliationSession, error) {
	return utils.FetchModel[ReconciliationSession](ctx, sessionId, "Items")
}

func AddStatementItem(ctx context.Context, sessionId int, input *NewStatementItem) (*ReconciliationStatementItem, error) {
	if _, err := fetchDraftSession(ctx, sessionId); err != nil {
		return nil, err
	}
	if err := validateLineAmounts(input.Debit, input.Credit); err != nil {
		return nil, err
	}
	item := ReconciliationStatementItem{
		SessionId:   sessionId,
		ItemTime:    input.ItemTime,
		Description: input.Description,
		Reference:   input.Reference,
		Debit:       input.Debit,
		Credit:      input.Credit,
		IsMatched:   false,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func DeleteStatementItem(ctx context.Context, sessionId int, itemId int) error {
	if _, err := fetchDraftSession(ctx, sessionId); err != nil {
		return err
	}
	item, err := utils.FetchModel[ReconciliationStatementItem](ctx, itemId)
	if err != nil {
		return err
	}
	if item.SessionId != sessionId {
		return utils.NewValidationError("statement item %d does not belong to session %d", itemId, sessionId)
	}
	if item.IsMatched {
		return utils.NewValidationError("statement item %d is matched; remove the match first", itemId)
	}
	db := config.GetDB()
	return db.WithContext(ctx).Delete(&item).Error
}

// MatchStatementItem links a statement item to one posted journal entry line
// on the session's account and flips the item's is_matched projection.
func MatchStatementItem(ctx context.Context, sessionId int, itemId int, journalEntryId int, lineNumber int, matchType MatchType) (*ReconciliationMatch, error) {
	session, err := fetchDraftSession(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	var item ReconciliationStatementItem
	if err := tx.WithContext(ctx).First(&item, itemId).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if item.SessionId != sessionId {
		tx.Rollback()
		return nil, utils.NewValidationError("statement item %d does not belong to session %d", itemId, sessionId)
	}
	if item.IsMatched {
		tx.Rollback()
		return nil, utils.NewValidationError("statement item %d is already matched", itemId)
	}

	var entry JournalEntry
	if err := tx.WithContext(ctx).First(&entry, journalEntryId).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if !entry.IsPosted() {
		tx.Rollback()
		return nil, utils.NewValidationError("journal entry %d is not posted", journalEntryId)
	}
	var line JournalEntryLine
	if err := tx.WithContext(ctx).
		Where("journal_entry_id = ? AND line_number = ?", journalEntryId, lineNumber).
		First(&line).Error; err != nil {
		tx.Rollback()
		return nil, utils.ErrorRecordNotFound
	}
	if line.AccountId != session.AccountId {
		tx.Rollback()
		return nil, utils.NewValidationError("journal entry line is not on the account under reconciliation")
	}

	if matchType == "" {
		matchType = MatchTypeManual
	}
	match := ReconciliationMatch{
		StatementItemId: itemId,
		JournalEntryId:  journalEntryId,
		LineNumber:      lineNumber,
		MatchType:       matchType,
	}
	if err := tx.WithContext(ctx).Create(&match).Error; err != nil {
		tx.Rollback()
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.NewValidationError("statement item %d is already matched", itemId)
		}
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(&item).Updates(map[string]interface{}{
		"IsMatched":             true,
		"MatchedJournalEntryId": journalEntryId,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &match, nil
}

func UnmatchStatementItem(ctx context.Context, sessionId int, itemId int) error {
	if _, err := fetchDraftSession(ctx, sessionId); err != nil {
		return err
	}
	item, err := utils.FetchModel[ReconciliationStatementItem](ctx, itemId)
	if err != nil {
		return err
	}
	if item.SessionId != sessionId {
		return utils.NewValidationError("statement item %d does not belong to session %d", itemId, sessionId)
	}

	db := config.GetDB()
	tx := db.Begin()
	result := tx.WithContext(ctx).Where("statement_item_id = ?", itemId).Delete(&ReconciliationMatch{})
	if result.Error != nil {
		tx.Rollback()
		return result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return utils.ErrorRecordNotFound
	}
	if err := tx.WithContext(ctx).Model(&item).Updates(map[string]interface{}{
		"IsMatched":             false,
		"MatchedJournalEntryId": nil,
	}).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// CompleteReconciliation validates the statement against its stated balance
// change, records a discrepancy for every unmatched item and posts one
// adjusting entry that brings the account in line with the statement. The
// session becomes immutable once complete_time is set.
func CompleteReconciliation(ctx context.Context, sessionId int, completeTime time.Time) (*ReconciliationSession, error) {
	release, err := utils.LedgerLock(ctx, "reconciliation-complete", fmt.Sprintf("session-%d", sessionId), "models", "CompleteReconciliation")
	if err != nil {
		return nil, err
	}
	defer release()

	if completeTime.IsZero() {
		return nil, utils.NewValidationError("complete time is required")
	}

	db := config.GetDB()
	tx := db.Begin()
	session, err := completeReconciliationTx(ctx, tx, sessionId, completeTime)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return session, nil
}

func completeReconciliationTx(ctx context.Context, tx *gorm.DB, sessionId int, completeTime time.Time) (*ReconciliationSession, error) {
	var session ReconciliationSession
	if err := tx.WithContext(ctx).Preload("Items").First(&session, sessionId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if session.IsCompleted() {
		return nil, utils.NewStateTransitionError("reconciliation session %d is already completed", sessionId)
	}

	// statement credits increase the statement balance, debits decrease it
	itemDelta := decimal.Zero
	for _, item := range session.Items {
		itemDelta = itemDelta.Add(item.Credit).Sub(item.Debit)
	}
	statementDelta := session.StatementClosingBalance.Sub(session.StatementOpeningBalance)
	if !itemDelta.Equal(statementDelta) {
		return nil, utils.NewValidationError("statement items do not reconcile to statement balance change")
	}

	type pendingDiscrepancy struct {
		record ReconciliationDiscrepancy
		item   ReconciliationStatementItem
	}
	pending := make([]pendingDiscrepancy, 0)
	for _, item := range session.Items {
		if item.IsMatched {
			continue
		}
		discrepancyType := DiscrepancyTypeUnrecordedCredit
		amount := item.Credit
		if item.Debit.IsPositive() {
			discrepancyType = DiscrepancyTypeUnrecordedDebit
			amount = item.Debit
		}
		pending = append(pending, pendingDiscrepancy{
			record: ReconciliationDiscrepancy{
				SessionId:        sessionId,
				StatementItemId:  item.ID,
				DiscrepancyType:  discrepancyType,
				ExpectedAmount:   amount,
				ActualAmount:     decimal.Zero,
				DifferenceAmount: amount,
				Resolution:       DiscrepancyResolutionAdjusted,
			},
			item: item,
		})
	}

	updates := map[string]interface{}{
		"CompleteTime": completeTime,
	}

	if len(pending) > 0 {
		// One adjusting entry: a line per discrepancy on the reconciled
		// account, balanced against the adjustment absorption account.
		adjustment, err := GetSystemAccountByTag(ctx, tx, TagReconciliationAdjustment)
		if err != nil {
			return nil, err
		}

		lines := make([]NewJournalEntryLine, 0, len(pending)+1)
		net := decimal.Zero // positive = account must come down
		for _, p := range pending {
			line := NewJournalEntryLine{
				AccountId:   session.AccountId,
				Description: "Reconciliation adjustment - " + p.item.Description,
			}
			if p.record.DiscrepancyType == DiscrepancyTypeUnrecordedDebit {
				line.Credit = p.record.DifferenceAmount
				net = net.Add(p.record.DifferenceAmount)
			} else {
				line.Debit = p.record.DifferenceAmount
				net = net.Sub(p.record.DifferenceAmount)
			}
			lines = append(lines, line)
		}
		if !net.IsZero() {
			balancing := NewJournalEntryLine{
				AccountId:   adjustment.ID,
				Description: "Reconciliation adjustment",
			}
			if net.IsPositive() {
				balancing.Debit = net
			} else {
				balancing.Credit = net.Neg()
			}
			lines = append(lines, balancing)
		}

		entry, err := createAndPostEntryTx(ctx, tx, &NewJournalEntry{
			EntryTime:       completeTime,
			Note:            "Reconciliation adjustment",
			SourceType:      EntrySourceTypeSystem,
			SourceReference: fmt.Sprintf("Reconciliation #%d", sessionId),
			Lines:           lines,
		}, completeTime)
		if err != nil {
			return nil, err
		}

		for i := range pending {
			pending[i].record.ResolutionJournalEntryId = &entry.ID
			if err := tx.WithContext(ctx).Create(&pending[i].record).Error; err != nil {
				return nil, err
			}
		}
		updates["AdjustmentJournalEntryId"] = entry.ID
	}

	// refresh the internal closing snapshot now that adjustments are posted
	var account Account
	if err := tx.WithContext(ctx).First(&account, session.AccountId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	internalClosing, err := internalBalanceAsOf(ctx, tx, &account, session.StatementEndTime)
	if err != nil {
		return nil, err
	}
	updates["InternalClosingBalance"] = internalClosing

	if err := tx.WithContext(ctx).Model(&session).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func GetReconciliationDiscrepancies(ctx context.Context, sessionId int) ([]*ReconciliationDiscrepancy, error) {
	db := config.GetDB()
	var results []*ReconciliationDiscrepancy
	err := db.WithContext(ctx).Where("session_id = ?", sessionId).Order("id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// OutstandingTransaction is one row of the
// reconciliation_outstanding_transactions view: a posted line on the
// reconciled account inside the statement window with no match yet. Drives
// the matching UI; not used for invariant enforcement.
type OutstandingTransaction struct {
	JournalEntryId int             `json:"journal_entry_id"`
	EntryNumber    string          `json:"entry_number"`
	EntryTime      time.Time       `json:"entry_time"`
	LineNumber     int             `json:"line_number"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	Description    string          `json:"description"`
}

func GetOutstandingTransactions(ctx context.Context, sessionId int) ([]*OutstandingTransaction, error) {
	session, err := utils.FetchModel[ReconciliationSession](ctx, sessionId)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	var rows []*OutstandingTransaction
	err = db.WithContext(ctx).Raw(`
		SELECT
			journal_entries.id AS journal_entry_id,
			journal_entries.entry_number AS entry_number,
			journal_entries.entry_time AS entry_time,
			journal_entry_lines.line_number AS line_number,
			journal_entry_lines.debit AS debit,
			journal_entry_lines.credit AS credit,
			journal_entry_lines.description AS description
		FROM journal_entry_lines
		JOIN journal_entries ON journal_entries.id = journal_entry_lines.journal_entry_id
		WHERE journal_entry_lines.account_id = ?
		  AND journal_entries.post_time IS NOT NULL
		  AND journal_entries.entry_time > ?
		  AND journal_entries.entry_time <= ?
		  AND NOT EXISTS (
			SELECT 1 FROM reconciliation_matches
			JOIN reconciliation_statement_items
			  ON reconciliation_statement_items.id = reconciliation_matches.statement_item_id
			WHERE reconciliation_matches.journal_entry_id = journal_entries.id
			  AND reconciliation_matches.line_number = journal_entry_lines.line_number
			  AND reconciliation_statement_items.session_id = ?
		  )
		ORDER BY journal_entries.entry_time, journal_entries.id, journal_entry_lines.line_number
	`, session.AccountId, session.StatementBeginTime, session.StatementEndTime, sessionId).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReconciliationSessionSummary is the reconciliation_session_summary view.
type ReconciliationSessionSummary struct {
	SessionId               int             `json:"session_id"`
	AccountId               int             `json:"account_id"`
	AccountCode             string          `json:"account_code"`
	AccountName             string          `json:"account_name"`
	StatementOpeningBalance decimal.Decimal `json:"statement_opening_balance"`
	StatementClosingBalance decimal.Decimal `json:"statement_closing_balance"`
	InternalOpeningBalance  decimal.Decimal `json:"internal_opening_balance"`
	InternalClosingBalance  decimal.Decimal `json:"internal_closing_balance"`
	MatchedItems            int             `json:"matched_items"`
	UnmatchedItems          int             `json:"unmatched_items"`
	Discrepancies           int             `json:"discrepancies"`
	CompleteTime            *time.Time      `json:"complete_time"`
}

func GetReconciliationSessionSummary(ctx context.Context, sessionId int) (*ReconciliationSessionSummary, error) {
	db := config.GetDB()
	var summary ReconciliationSessionSummary
	err := db.WithContext(ctx).Raw(`
		SELECT
			reconciliation_sessions.id AS session_id,
			reconciliation_sessions.account_id AS account_id,
			accounts.code AS account_code,
			accounts.name AS account_name,
			reconciliation_sessions.statement_opening_balance,
			reconciliation_sessions.statement_closing_balance,
			reconciliation_sessions.internal_opening_balance,
			reconciliation_sessions.internal_closing_balance,
			(SELECT COUNT(*) FROM reconciliation_statement_items
				WHERE reconciliation_statement_items.session_id = reconciliation_sessions.id
				  AND reconciliation_statement_items.is_matched) AS matched_items,
			(SELECT COUNT(*) FROM reconciliation_statement_items
				WHERE reconciliation_statement_items.session_id = reconciliation_sessions.id
				  AND NOT reconciliation_statement_items.is_matched) AS unmatched_items,
			(SELECT COUNT(*) FROM reconciliation_discrepancies
				WHERE reconciliation_discrepancies.session_id = reconciliation_sessions.id) AS discrepancies,
			reconciliation_sessions.complete_time
		FROM reconciliation_sessions
		JOIN accounts ON accounts.id = reconciliation_sessions.account_id
		WHERE reconciliation_sessions.id = ?
	`, sessionId).Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	if summary.SessionId == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return &summary, nil
}
