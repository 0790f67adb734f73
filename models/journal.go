package models

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/faisalhakim47/jurukasa-ledger/config"
	"github.com/faisalhakim47/jurukasa-ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type JournalEntry struct {
	ID          int    `gorm:"primary_key" json:"id"`
	EntryNumber string `gorm:"size:30;index" json:"entry_number"`
	SequenceNo  int64  `gorm:"index;not null;default:0" json:"sequence_no"`
	// EntryTime is the accounting date; PostTime null = draft. A posted
	// entry and its lines are immutable.
	EntryTime       time.Time       `gorm:"index;not null" json:"entry_time" binding:"required"`
	PostTime        *time.Time      `gorm:"index" json:"post_time"`
	Note            string          `gorm:"type:text" json:"note"`
	SourceType      EntrySourceType `gorm:"size:16;not null;default:'Manual';index" json:"source_type"`
	CreatedBy       string          `gorm:"size:100" json:"created_by"`
	ReversalOfId    *int            `gorm:"index" json:"reversal_of_id"`
	SourceReference string          `gorm:"size:255;index" json:"source_reference"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,0);not null;default:0" json:"total_amount"`
	Lines           []JournalEntryLine `gorm:"foreignKey:JournalEntryId" json:"lines"`
	CreatedAt       time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type JournalEntryLine struct {
	ID             int             `gorm:"primary_key" json:"id"`
	JournalEntryId int             `gorm:"index;not null;uniqueIndex:idx_entry_line_no,priority:1" json:"journal_entry_id"`
	LineNumber     int             `gorm:"not null;uniqueIndex:idx_entry_line_no,priority:2" json:"line_number"`
	AccountId      int             `gorm:"index;not null" json:"account_id" binding:"required"`
	Debit          decimal.Decimal `gorm:"type:decimal(20,0);not null;default:0" json:"debit"`
	Credit         decimal.Decimal `gorm:"type:decimal(20,0);not null;default:0" json:"credit"`
	Description    string          `gorm:"size:255" json:"description"`
}

type NewJournalEntry struct {
	EntryTime       time.Time            `json:"entry_time" binding:"required"`
	Note            string               `json:"note"`
	SourceType      EntrySourceType      `json:"source_type"`
	SourceReference string               `json:"source_reference"`
	ReversalOfId    *int                 `json:"-"`
	Lines           []NewJournalEntryLine `json:"lines"`
}

type NewJournalEntryLine struct {
	AccountId   int             `json:"account_id" binding:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

type JournalEntriesConnection struct {
	Edges    []*JournalEntriesEdge `json:"edges"`
	PageInfo *PageInfo             `json:"pageInfo"`
}

type JournalEntriesEdge struct {
	Cursor string        `json:"cursor"`
	Node   *JournalEntry `json:"node"`
}

func (j *JournalEntry) GetId() int {
	return j.ID
}

func (j *JournalEntry) IsPosted() bool {
	return j.PostTime != nil
}

// Amounts are integers in the smallest currency unit. Exactly one of
// debit/credit is non-zero per line.
func validateLineAmounts(debit decimal.Decimal, credit decimal.Decimal) error {
	if debit.IsNegative() || credit.IsNegative() {
		return utils.NewValidationError("debit and credit must not be negative")
	}
	if !debit.IsInteger() || !credit.IsInteger() {
		return utils.NewValidationError("amounts must be integers in the smallest currency unit")
	}
	if debit.IsZero() == credit.IsZero() {
		return utils.NewValidationError("exactly one of debit or credit must have value")
	}
	return nil
}

func receiveJournalEntryLines(ctx context.Context, tx *gorm.DB, input []NewJournalEntryLine, startLineNumber int) ([]JournalEntryLine, error) {
	lines := make([]JournalEntryLine, 0, len(input))
	for i, l := range input {
		if err := validateLineAmounts(l.Debit, l.Credit); err != nil {
			return nil, err
		}
		if err := validateLineAccount(ctx, tx, l.AccountId); err != nil {
			return nil, err
		}
		lines = append(lines, JournalEntryLine{
			LineNumber:  startLineNumber + i,
			AccountId:   l.AccountId,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		})
	}
	return lines, nil
}

func validateLineAccount(ctx context.Context, tx *gorm.DB, accountId int) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&Account{}).Where("id = ?", accountId).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return utils.NewValidationError("account %d not found", accountId)
	}
	posting, err := IsPostingAccount(ctx, tx, accountId)
	if err != nil {
		return err
	}
	if !posting {
		return utils.NewValidationError("account %d is a control account; postings are only allowed on posting accounts", accountId)
	}
	return nil
}

// DraftJournalEntry creates a draft entry, optionally with initial lines.
// Drafts stay mutable until they are posted.
func DraftJournalEntry(ctx context.Context, input *NewJournalEntry) (*JournalEntry, error) {
	if input.EntryTime.IsZero() {
		return nil, utils.NewValidationError("entry time is required")
	}
	sourceType := input.SourceType
	if sourceType == "" {
		sourceType = EntrySourceTypeManual
	}
	createdBy, _ := utils.GetUserNameFromContext(ctx)

	db := config.GetDB()
	tx := db.Begin()

	lines, err := receiveJournalEntryLines(ctx, tx, input.Lines, 1)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	entry := JournalEntry{
		EntryTime:       input.EntryTime,
		Note:            input.Note,
		SourceType:      sourceType,
		SourceReference: input.SourceReference,
		CreatedBy:       createdBy,
		Lines:           lines,
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// AddJournalEntryLine appends a line to a draft entry. Line numbers continue
// from the current maximum.
func AddJournalEntryLine(ctx context.Context, entryId int, input *NewJournalEntryLine) (*JournalEntryLine, error) {
	db := config.GetDB()

	entry, err := utils.FetchModel[JournalEntry](ctx, entryId)
	if err != nil {
		return nil, err
	}
	if entry.IsPosted() {
		return nil, utils.NewStateTransitionError("journal entry %d is posted; its lines are immutable", entryId)
	}
	if err := validateLineAmounts(input.Debit, input.Credit); err != nil {
		return nil, err
	}

	tx := db.Begin()
	if err := validateLineAccount(ctx, tx, input.AccountId); err != nil {
		tx.Rollback()
		return nil, err
	}
	var maxLine int
	if err := tx.WithContext(ctx).Model(&JournalEntryLine{}).
		Where("journal_entry_id = ?", entryId).
		Select("COALESCE(MAX(line_number), 0)").Scan(&maxLine).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	line := JournalEntryLine{
		JournalEntryId: entryId,
		LineNumber:     maxLine + 1,
		AccountId:      input.AccountId,
		Debit:          input.Debit,
		Credit:         input.Credit,
		Description:    input.Description,
	}
	if err := tx.WithContext(ctx).Create(&line).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func RemoveJournalEntryLine(ctx context.Context, entryId int, lineNumber int) error {
	entry, err := utils.FetchModel[JournalEntry](ctx, entryId)
	if err != nil {
		return err
	}
	if entry.IsPosted() {
		return utils.NewStateTransitionError("journal entry %d is posted; its lines are immutable", entryId)
	}
	db := config.GetDB()
	result := db.WithContext(ctx).
		Where("journal_entry_id = ? AND line_number = ?", entryId, lineNumber).
		Delete(&JournalEntryLine{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

type JournalEntryPatch struct {
	EntryTime       *time.Time `json:"entry_time"`
	Note            *string    `json:"note"`
	SourceReference *string    `json:"source_reference"`
}

func UpdateDraftJournalEntry(ctx context.Context, entryId int, patch *JournalEntryPatch) (*JournalEntry, error) {
	entry, err := utils.FetchModel[JournalEntry](ctx, entryId, "Lines")
	if err != nil {
		return nil, err
	}
	if entry.IsPosted() {
		return nil, utils.NewStateTransitionError("journal entry %d is posted and immutable", entryId)
	}
	updates := map[string]interface{}{}
	if patch.EntryTime != nil {
		if patch.EntryTime.IsZero() {
			return nil, utils.NewValidationError("entry time is required")
		}
		updates["EntryTime"] = *patch.EntryTime
	}
	if patch.Note != nil {
		updates["Note"] = *patch.Note
	}
	if patch.SourceReference != nil {
		updates["SourceReference"] = *patch.SourceReference
	}
	if len(updates) == 0 {
		return entry, nil
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&entry).Updates(updates).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func DeleteJournalEntry(ctx context.Context, entryId int) (*JournalEntry, error) {
	entry, err := utils.FetchModel[JournalEntry](ctx, entryId, "Lines")
	if err != nil {
		return nil, err
	}
	if entry.IsPosted() {
		return nil, utils.NewStateTransitionError("posted journal entries cannot be deleted")
	}
	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("journal_entry_id = ?", entryId).Delete(&JournalEntryLine{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&entry).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// PostJournalEntry posts a draft entry at postTime. Posting is one-way: it
// sets post_time, assigns the entry number and updates cached account
// balances, all in one transaction.
func PostJournalEntry(ctx context.Context, entryId int, postTime time.Time) (*JournalEntry, error) {
	db := config.GetDB()
	tx := db.Begin()
	entry, err := postJournalEntryTx(ctx, tx, entryId, postTime)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func postJournalEntryTx(ctx context.Context, tx *gorm.DB, entryId int, postTime time.Time) (*JournalEntry, error) {
	var entry JournalEntry
	if err := tx.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_number")
	}).First(&entry, entryId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if entry.IsPosted() {
		return nil, utils.NewStateTransitionError("journal entry %d is already posted", entryId)
	}
	if postTime.IsZero() {
		return nil, utils.NewValidationError("post time is required")
	}
	if len(entry.Lines) < 2 {
		return nil, utils.NewValidationError("journal entry must have at least 2 lines")
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range entry.Lines {
		if err := validateLineAmounts(line.Debit, line.Credit); err != nil {
			return nil, err
		}
		if err := validateLineAccount(ctx, tx, line.AccountId); err != nil {
			return nil, err
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if !totalDebit.Equal(totalCredit) {
		return nil, utils.NewValidationError("journal entry is not balanced: debit %s != credit %s",
			totalDebit.String(), totalCredit.String())
	}

	var seqNo int64
	if err := tx.WithContext(ctx).Model(&JournalEntry{}).
		Select("COALESCE(MAX(sequence_no), 0) + 1").Scan(&seqNo).Error; err != nil {
		return nil, err
	}

	if err := tx.WithContext(ctx).Model(&entry).Updates(map[string]interface{}{
		"PostTime":    postTime,
		"SequenceNo":  seqNo,
		"EntryNumber": fmt.Sprintf("JE-%06d", seqNo),
		"TotalAmount": totalDebit,
	}).Error; err != nil {
		return nil, err
	}

	if err := applyLinesToBalances(ctx, tx, entry.Lines); err != nil {
		return nil, err
	}
	return &entry, nil
}

// applyLinesToBalances moves each posted line into the cached account
// balance: (debit - credit) for debit-normal accounts, (credit - debit) for
// credit-normal accounts.
func applyLinesToBalances(ctx context.Context, tx *gorm.DB, lines []JournalEntryLine) error {
	for _, line := range lines {
		var account Account
		if err := tx.WithContext(ctx).First(&account, line.AccountId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		delta := line.Debit.Sub(line.Credit)
		if account.NormalBalance == NormalBalanceCredit {
			delta = line.Credit.Sub(line.Debit)
		}
		if delta.IsZero() {
			continue
		}
		if err := tx.WithContext(ctx).Model(&Account{}).
			Where("id = ?", line.AccountId).
			Update("balance", gorm.Expr("balance + ?", delta)).Error; err != nil {
			return err
		}
	}
	return nil
}

// createAndPostEntryTx drafts and immediately posts a system-generated entry
// inside the caller's transaction. The closing, reversal and reconciliation
// engines use it so their entry and state change commit atomically.
func createAndPostEntryTx(ctx context.Context, tx *gorm.DB, input *NewJournalEntry, postTime time.Time) (*JournalEntry, error) {
	lines, err := receiveJournalEntryLines(ctx, tx, input.Lines, 1)
	if err != nil {
		return nil, err
	}
	entry := JournalEntry{
		EntryTime:       input.EntryTime,
		Note:            input.Note,
		SourceType:      input.SourceType,
		SourceReference: input.SourceReference,
		ReversalOfId:    input.ReversalOfId,
		CreatedBy:       SystemUserName,
		Lines:           lines,
	}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	return postJournalEntryTx(ctx, tx, entry.ID, postTime)
}

func GetJournalEntry(ctx context.Context, entryId int) (*JournalEntry, error) {
	db := config.GetDB()
	var entry JournalEntry
	err := db.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_number")
	}).First(&entry, entryId).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &entry, nil
}

func PaginateJournalEntries(ctx context.Context, limit *int, after *string, entryNumber *string, fromTime *time.Time, toTime *time.Time, sourceType *EntrySourceType, postedOnly bool) (*JournalEntriesConnection, error) {
	pageSize := utils.DereferencePtr(limit, 20)
	if pageSize <= 0 {
		pageSize = 20
	}
	decodedCursor, _ := DecodeCursor(after)
	var cursorTime *time.Time
	if decodedCursor != "" {
		if nanos, err := strconv.ParseInt(decodedCursor, 10, 64); err == nil {
			t := time.Unix(0, nanos).UTC()
			cursorTime = &t
		}
	}
	edges := make([]*JournalEntriesEdge, pageSize)
	count := 0
	hasNextPage := false

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_number")
	})
	if entryNumber != nil && *entryNumber != "" {
		dbCtx = dbCtx.Where("entry_number LIKE ?", "%"+*entryNumber+"%")
	}
	if fromTime != nil && toTime != nil {
		dbCtx = dbCtx.Where("entry_time BETWEEN ? AND ?", fromTime, toTime)
	}
	if sourceType != nil && *sourceType != "" {
		dbCtx = dbCtx.Where("source_type = ?", *sourceType)
	}
	if postedOnly {
		dbCtx = dbCtx.Where("post_time IS NOT NULL")
	}

	var results []*JournalEntry
	var err error
	if cursorTime == nil {
		err = dbCtx.Order("created_at DESC").Limit(pageSize + 1).Find(&results).Error
	} else {
		err = dbCtx.Order("created_at DESC").Limit(pageSize+1).Where("created_at < ?", *cursorTime).Find(&results).Error
	}
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		if count == pageSize {
			hasNextPage = true
		}
		if count < pageSize {
			edges[count] = &JournalEntriesEdge{
				Cursor: EncodeCursor(strconv.FormatInt(result.CreatedAt.UnixNano(), 10)),
				Node:   result,
			}
			count++
		}
	}

	pageInfo := PageInfo{
		StartCursor: "",
		EndCursor:   "",
		HasNextPage: &hasNextPage,
	}
	if count > 0 {
		pageInfo.StartCursor = EncodeCursor(strconv.FormatInt(edges[0].Node.CreatedAt.UnixNano(), 10))
		pageInfo.EndCursor = EncodeCursor(strconv.FormatInt(edges[count-1].Node.CreatedAt.UnixNano(), 10))
	}

	connection := JournalEntriesConnection{
		Edges:    edges[:count],
		PageInfo: &pageInfo,
	}
	return &connection, nil
}
