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

const (
	fiscalYearMinDays = 30
	fiscalYearMaxDays = 400
)

// FiscalYear covers the accounting window (begin_time, end_time]: an entry
// dated exactly at begin_time belongs to the previous year, one dated at
// end_time belongs to this year. That boundary convention is load-bearing
// throughout this file.
type FiscalYear struct {
	ID                     int        `gorm:"primary_key" json:"id"`
	Name                   string     `gorm:"size:100;not null" json:"name" binding:"required"`
	BeginTime              time.Time  `gorm:"index;not null" json:"begin_time" binding:"required"`
	EndTime                time.Time  `gorm:"index;not null" json:"end_time" binding:"required"`
	PostTime               *time.Time `gorm:"index" json:"post_time"`
	ClosingJournalEntryId  *int       `gorm:"index" json:"closing_journal_entry_id"`
	ReversalTime           *time.Time `gorm:"index" json:"reversal_time"`
	ReversalJournalEntryId *int       `gorm:"index" json:"reversal_journal_entry_id"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFiscalYear struct {
	Name      string    `json:"name" binding:"required"`
	BeginTime time.Time `json:"begin_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

func (fy *FiscalYear) GetId() int {
	return fy.ID
}

func (fy *FiscalYear) IsClosed() bool {
	return fy.PostTime != nil
}

func (fy *FiscalYear) IsReversed() bool {
	return fy.ReversalTime != nil
}

// validate input for both create & update. (id = 0 for create)

func (input *NewFiscalYear) validate(ctx context.Context, id int) error {
	if !input.EndTime.After(input.BeginTime) {
		return utils.NewValidationError("fiscal year end time must be after begin time")
	}
	duration := input.EndTime.Sub(input.BeginTime)
	if duration < fiscalYearMinDays*24*time.Hour || duration > fiscalYearMaxDays*24*time.Hour {
		return utils.NewValidationError("fiscal year duration must be between %d and %d days", fiscalYearMinDays, fiscalYearMaxDays)
	}
	db := config.GetDB()
	return validateNoOverlap(ctx, db, input.BeginTime, input.EndTime, id)
}

// The overlap constraint only considers non-reversed fiscal years: after a
// reversal the same period may be covered again.
func validateNoOverlap(ctx context.Context, tx *gorm.DB, beginTime time.Time, endTime time.Time, excludeId int) error {
	var count int64
	dbCtx := tx.WithContext(ctx).Model(&FiscalYear{}).
		Where("reversal_time IS NULL").
		Where("begin_time < ? AND ? < end_time", endTime, beginTime)
	if excludeId > 0 {
		dbCtx = dbCtx.Where("id <> ?", excludeId)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return utils.NewValidationError("fiscal year period overlaps another non-reversed fiscal year")
	}
	return nil
}

func CreateFiscalYear(ctx context.Context, input *NewFiscalYear) (*FiscalYear, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	fiscalYear := FiscalYear{
		Name:      input.Name,
		BeginTime: input.BeginTime,
		EndTime:   input.EndTime,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&fiscalYear).Error; err != nil {
		return nil, err
	}
	return &fiscalYear, nil
}

func UpdateFiscalYear(ctx context.Context, id int, input *NewFiscalYear) (*FiscalYear, error) {
	fiscalYear, err := utils.FetchModel[FiscalYear](ctx, id)
	if err != nil {
		return nil, err
	}
	if fiscalYear.IsClosed() {
		return nil, utils.NewStateTransitionError("closed fiscal year is immutable")
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&fiscalYear).Updates(map[string]interface{}{
		"Name":      input.Name,
		"BeginTime": input.BeginTime,
		"EndTime":   input.EndTime,
	}).Error
	if err != nil {
		return nil, err
	}
	return fiscalYear, nil
}

func DeleteFiscalYear(ctx context.Context, id int) (*FiscalYear, error) {
	fiscalYear, err := utils.FetchModel[FiscalYear](ctx, id)
	if err != nil {
		return nil, err
	}
	if fiscalYear.IsClosed() || fiscalYear.IsReversed() {
		return nil, utils.NewStateTransitionError("closed or reversed fiscal years cannot be deleted")
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&fiscalYear).Error; err != nil {
		return nil, err
	}
	return fiscalYear, nil
}

func GetFiscalYear(ctx context.Context, id int) (*FiscalYear, error) {
	return utils.FetchModel[FiscalYear](ctx, id)
}

func GetFiscalYears(ctx context.Context) ([]*FiscalYear, error) {
	db := config.GetDB()
	var results []*FiscalYear
	if err := db.WithContext(ctx).Order("begin_time").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type closingMutation struct {
	AccountId int
	Code      string
	Net       decimal.Decimal // SUM(debit - credit) inside the window
}

// Earlier closing entries are excluded so that a period recreated after a
// reversal sees only its trading activity, not the old sweep.
func closingMutationsByTag(ctx context.Context, tx *gorm.DB, tag string, beginTime time.Time, endTime time.Time) ([]closingMutation, error) {
	var rows []closingMutation
	err := tx.WithContext(ctx).Raw(`
		SELECT
			accounts.id AS account_id,
			accounts.code AS code,
			SUM(journal_entry_lines.debit - journal_entry_lines.credit) AS net
		FROM accounts
		JOIN account_tags ON account_tags.account_id = accounts.id
		JOIN journal_entry_lines ON journal_entry_lines.account_id = accounts.id
		JOIN journal_entries ON journal_entries.id = journal_entry_lines.journal_entry_id
		WHERE account_tags.tag = ?
		  AND journal_entries.post_time IS NOT NULL
		  AND journal_entries.source_reference NOT LIKE 'FiscalYear #%'
		  AND journal_entries.entry_time > ?
		  AND journal_entries.entry_time <= ?
		GROUP BY accounts.id, accounts.code
		ORDER BY accounts.code
	`, tag, beginTime, endTime).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CloseFiscalYear zeroes every temporary account's mutation within
// (begin_time, end_time] into retained earnings through one system-generated
// closing entry dated at end_time, then marks the year closed. The whole
// operation commits or rolls back as a unit.
func CloseFiscalYear(ctx context.Context, id int, postTime time.Time) (*FiscalYear, error) {
	release, err := utils.LedgerLock(ctx, "fiscal-year-close", "ledger", "models", "CloseFiscalYear")
	if err != nil {
		return nil, err
	}
	defer release()

	if postTime.IsZero() {
		return nil, utils.NewValidationError("post time is required")
	}

	db := config.GetDB()
	tx := db.Begin()
	fiscalYear, err := closeFiscalYearTx(ctx, tx, id, postTime)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return fiscalYear, nil
}

func closeFiscalYearTx(ctx context.Context, tx *gorm.DB, id int, postTime time.Time) (*FiscalYear, error) {
	var fiscalYear FiscalYear
	if err := tx.WithContext(ctx).First(&fiscalYear, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if fiscalYear.IsClosed() {
		return nil, utils.NewStateTransitionError("fiscal year %q is already closed", fiscalYear.Name)
	}
	if err := validateNoOverlap(ctx, tx, fiscalYear.BeginTime, fiscalYear.EndTime, fiscalYear.ID); err != nil {
		return nil, err
	}

	var unposted int64
	err := tx.WithContext(ctx).Model(&JournalEntry{}).
		Where("post_time IS NULL").
		Where("entry_time > ? AND entry_time <= ?", fiscalYear.BeginTime, fiscalYear.EndTime).
		Count(&unposted).Error
	if err != nil {
		return nil, err
	}
	if unposted > 0 {
		return nil, utils.NewValidationError("unposted journal entries within fiscal year period")
	}

	lines := make([]NewJournalEntryLine, 0)
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, tag := range closingTags {
		mutations, err := closingMutationsByTag(ctx, tx, tag, fiscalYear.BeginTime, fiscalYear.EndTime)
		if err != nil {
			return nil, err
		}
		for _, m := range mutations {
			if m.Net.IsZero() {
				continue
			}
			line := NewJournalEntryLine{
				AccountId:   m.AccountId,
				Description: "Fiscal year closing",
			}
			// the closing line carries the opposite of the period mutation
			if m.Net.IsPositive() {
				line.Credit = m.Net
				totalCredit = totalCredit.Add(m.Net)
			} else {
				line.Debit = m.Net.Neg()
				totalDebit = totalDebit.Add(m.Net.Neg())
			}
			lines = append(lines, line)
		}
	}

	if len(lines) == 0 {
		// No temporary account moved in the window: close without a closing
		// entry rather than posting an empty one.
		if err := tx.WithContext(ctx).Model(&fiscalYear).Updates(map[string]interface{}{
			"PostTime": postTime,
		}).Error; err != nil {
			return nil, err
		}
		return &fiscalYear, nil
	}

	// Net income lands on the credit side of retained earnings, net loss on
	// the debit side.
	retained, err := GetSystemAccountByTag(ctx, tx, TagClosingRetainedEarning)
	if err != nil {
		return nil, err
	}
	if !totalDebit.Equal(totalCredit) {
		retainedLine := NewJournalEntryLine{
			AccountId:   retained.ID,
			Description: "Fiscal year closing - retained earnings",
		}
		if totalDebit.GreaterThan(totalCredit) {
			retainedLine.Credit = totalDebit.Sub(totalCredit)
		} else {
			retainedLine.Debit = totalCredit.Sub(totalDebit)
		}
		lines = append(lines, retainedLine)
	}

	entry, err := createAndPostEntryTx(ctx, tx, &NewJournalEntry{
		EntryTime:       fiscalYear.EndTime,
		Note:            "Fiscal year closing - " + fiscalYear.Name,
		SourceType:      EntrySourceTypeSystem,
		SourceReference: fmt.Sprintf("FiscalYear #%d", fiscalYear.ID),
		Lines:           lines,
	}, postTime)
	if err != nil {
		return nil, err
	}

	if err := tx.WithContext(ctx).Model(&fiscalYear).Updates(map[string]interface{}{
		"PostTime":              postTime,
		"ClosingJournalEntryId": entry.ID,
	}).Error; err != nil {
		return nil, err
	}
	return &fiscalYear, nil
}

// ReverseFiscalYear undoes a closing by posting the closing entry with
// debit/credit swapped. Reversal order must mirror closing order: the year
// can only be reversed while no later non-reversed fiscal year exists.
func ReverseFiscalYear(ctx context.Context, id int, reversalTime time.Time) (*FiscalYear, error) {
	release, err := utils.LedgerLock(ctx, "fiscal-year-reverse", "ledger", "models", "ReverseFiscalYear")
	if err != nil {
		return nil, err
	}
	defer release()

	if reversalTime.IsZero() {
		return nil, utils.NewValidationError("reversal time is required")
	}

	db := config.GetDB()
	tx := db.Begin()
	fiscalYear, err := reverseFiscalYearTx(ctx, tx, id, reversalTime)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return fiscalYear, nil
}

func reverseFiscalYearTx(ctx context.Context, tx *gorm.DB, id int, reversalTime time.Time) (*FiscalYear, error) {
	var fiscalYear FiscalYear
	if err := tx.WithContext(ctx).First(&fiscalYear, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if !fiscalYear.IsClosed() {
		return nil, utils.NewStateTransitionError("fiscal year %q is not closed", fiscalYear.Name)
	}
	if fiscalYear.IsReversed() {
		return nil, utils.NewStateTransitionError("fiscal year %q is already reversed", fiscalYear.Name)
	}

	var newer int64
	err := tx.WithContext(ctx).Model(&FiscalYear{}).
		Where("begin_time > ?", fiscalYear.BeginTime).
		Where("reversal_time IS NULL").
		Count(&newer).Error
	if err != nil {
		return nil, err
	}
	if newer > 0 {
		return nil, utils.NewStateTransitionError("newer fiscal years exist; reverse them first")
	}

	if !reversalTime.After(*fiscalYear.PostTime) {
		return nil, utils.NewValidationError("reversal time must be after the closing post time")
	}

	updates := map[string]interface{}{
		"ReversalTime": reversalTime,
	}

	if fiscalYear.ClosingJournalEntryId != nil {
		var closingEntry JournalEntry
		if err := tx.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_number")
		}).First(&closingEntry, *fiscalYear.ClosingJournalEntryId).Error; err != nil {
			return nil, utils.ErrorRecordNotFound
		}

		lines := make([]NewJournalEntryLine, 0, len(closingEntry.Lines))
		for _, l := range closingEntry.Lines {
			lines = append(lines, NewJournalEntryLine{
				AccountId:   l.AccountId,
				Debit:       l.Credit,
				Credit:      l.Debit,
				Description: "Reversal " + l.Description,
			})
		}

		entry, err := createAndPostEntryTx(ctx, tx, &NewJournalEntry{
			EntryTime:       reversalTime,
			Note:            "Fiscal year closing reversal - " + fiscalYear.Name,
			SourceType:      EntrySourceTypeSystem,
			SourceReference: fmt.Sprintf("FiscalYear #%d", fiscalYear.ID),
			ReversalOfId:    fiscalYear.ClosingJournalEntryId,
			Lines:           lines,
		}, reversalTime)
		if err != nil {
			return nil, err
		}
		updates["ReversalJournalEntryId"] = entry.ID
	}

	if err := tx.WithContext(ctx).Model(&fiscalYear).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &fiscalYear, nil
}

// FiscalYearAccountMutation is one row of the fiscal_year_account_mutation
// view: posted activity per account inside the year's window.
type FiscalYearAccountMutation struct {
	AccountId     int             `json:"account_id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	NormalBalance NormalBalance   `json:"normal_balance"`
	TotalDebit    decimal.Decimal `json:"total_debit"`
	TotalCredit   decimal.Decimal `json:"total_credit"`
	NetMutation   decimal.Decimal `json:"net_mutation"`
}

func GetFiscalYearAccountMutations(ctx context.Context, fiscalYearId int) ([]*FiscalYearAccountMutation, error) {
	fiscalYear, err := utils.FetchModel[FiscalYear](ctx, fiscalYearId)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	var rows []*FiscalYearAccountMutation
	err = db.WithContext(ctx).Raw(`
		SELECT
			accounts.id AS account_id,
			accounts.code AS code,
			accounts.name AS name,
			accounts.normal_balance AS normal_balance,
			SUM(journal_entry_lines.debit) AS total_debit,
			SUM(journal_entry_lines.credit) AS total_credit,
			CASE WHEN accounts.normal_balance = 'Credit'
				THEN SUM(journal_entry_lines.credit - journal_entry_lines.debit)
				ELSE SUM(journal_entry_lines.debit - journal_entry_lines.credit)
			END AS net_mutation
		FROM journal_entry_lines
		JOIN journal_entries ON journal_entries.id = journal_entry_lines.journal_entry_id
		JOIN accounts ON accounts.id = journal_entry_lines.account_id
		WHERE journal_entries.post_time IS NOT NULL
		  AND journal_entries.entry_time > ?
		  AND journal_entries.entry_time <= ?
		GROUP BY accounts.id, accounts.code, accounts.name, accounts.normal_balance
		ORDER BY accounts.code
	`, fiscalYear.BeginTime, fiscalYear.EndTime).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
