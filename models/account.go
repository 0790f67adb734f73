package models

import (
	"context"
	"errors"
	"time"

	"github.com/faisalhakim47/jurukasa-ledger/config"
	"github.com/faisalhakim47/jurukasa-ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Account struct {
	ID              int           `gorm:"primary_key" json:"id"`
	Code            string        `gorm:"uniqueIndex;size:20;not null" json:"code" binding:"required"`
	Name            string        `gorm:"index;size:100;not null" json:"name" binding:"required"`
	NormalBalance   NormalBalance `gorm:"size:16;not null;default:'Debit';index" json:"normal_balance" binding:"required"`
	ParentAccountId int           `gorm:"index;not null;default:0" json:"parent_account_id"`
	Description     string        `gorm:"type:text" json:"description"`
	// Balance is a materialized projection owned by the journal engine.
	// Signed per NormalBalance; never writable from outside models.
	Balance   decimal.Decimal `gorm:"type:decimal(20,0);not null;default:0" json:"balance"`
	IsActive  *bool           `gorm:"not null;default:true" json:"is_active"`
	Tags      []AccountTag    `gorm:"foreignKey:AccountId" json:"tags"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type AccountTag struct {
	ID        int       `gorm:"primary_key" json:"id"`
	AccountId int       `gorm:"not null;index;uniqueIndex:idx_account_tag,priority:1" json:"account_id"`
	Tag       string    `gorm:"size:100;not null;index;uniqueIndex:idx_account_tag,priority:2" json:"tag"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewAccount struct {
	Code            string        `json:"code" binding:"required"`
	Name            string        `json:"name" binding:"required"`
	NormalBalance   NormalBalance `json:"normal_balance" binding:"required"`
	ParentAccountId int           `json:"parent_account_id"`
	Description     string        `json:"description"`
	Tags            []string      `json:"tags"`
}

func (a *Account) GetId() int {
	return a.ID
}

// validate input for both create & update. (id = 0 for create)

func (input *NewAccount) validate(ctx context.Context, id int) error {
	if id > 0 {
		if id == input.ParentAccountId {
			return utils.NewValidationError("self-parent not allowed")
		}
		if err := utils.ValidateResourceId[Account](ctx, id); err != nil {
			return err
		}
	}
	if !input.NormalBalance.Valid() {
		return utils.NewValidationError("normal balance must be Debit or Credit")
	}
	// code
	if err := utils.ValidateUnique[Account](ctx, "code", input.Code, id); err != nil {
		return err
	}
	// name
	if err := utils.ValidateUnique[Account](ctx, "name", input.Name, id); err != nil {
		return err
	}
	if input.ParentAccountId > 0 {
		if err := utils.ValidateResourceId[Account](ctx, input.ParentAccountId); err != nil {
			return errors.New("parent account not found")
		}
		// A parent with its own postings would become a control account and
		// silently stop aggregating to zero; reject up front.
		hasPostings, err := accountHasPostings(ctx, input.ParentAccountId)
		if err != nil {
			return err
		}
		if hasPostings {
			return utils.NewValidationError("parent account already has journal entry lines")
		}
	}
	return nil
}

func CreateAccount(ctx context.Context, input *NewAccount) (*Account, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	account := Account{
		Code:            input.Code,
		Name:            input.Name,
		NormalBalance:   input.NormalBalance,
		ParentAccountId: input.ParentAccountId,
		Description:     input.Description,
		Balance:         decimal.Zero,
		IsActive:        utils.NewTrue(),
	}
	for _, tag := range utils.UniqueSlice(input.Tags) {
		account.Tags = append(account.Tags, AccountTag{Tag: tag})
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&account).Error
	if err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.NewValidationError("code must be unique")
		}
		return nil, err
	}
	invalidateTagCache(input.Tags)
	return &account, nil
}

func UpdateAccount(ctx context.Context, id int, input *NewAccount) (*Account, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	account, err := utils.FetchModel[Account](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if input.NormalBalance != account.NormalBalance {
		hasPostings, err := accountHasPostings(ctx, id)
		if err != nil {
			return nil, err
		}
		if hasPostings {
			return nil, utils.NewValidationError("not allowed to change normal balance when journal entry lines exist")
		}
	}

	updates := map[string]interface{}{
		"Code":          input.Code,
		"Name":          input.Name,
		"NormalBalance": input.NormalBalance,
		"Description":   input.Description,
	}
	if input.ParentAccountId >= 0 {
		updates["ParentAccountId"] = input.ParentAccountId
	}

	err = db.WithContext(ctx).Model(&account).Updates(updates).Error
	if err != nil {
		return nil, err
	}
	return account, nil
}

func MarkAccountActive(ctx context.Context, id int, isActive bool) (*Account, error) {

	db := config.GetDB()
	var main *Account

	err := db.WithContext(ctx).First(&main, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	tx := db.Begin()
	err = markChildAccountsActive(tx, ctx, main, isActive)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return main, tx.Commit().Error
}

func markChildAccountsActive(tx *gorm.DB, ctx context.Context, main *Account, isActive bool) error {
	err := tx.WithContext(ctx).Model(&main).Updates(Account{
		IsActive: &isActive,
	}).Error
	if err != nil {
		return err
	}

	// find & update child accounts
	var children []*Account
	err = tx.WithContext(ctx).Where("parent_account_id = ?", main.ID).Find(&children).Error
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := markChildAccountsActive(tx, ctx, child, isActive); err != nil {
			return err
		}
	}
	return nil
}

func DeleteAccount(ctx context.Context, id int) (*Account, error) {

	db := config.GetDB()

	result, err := utils.FetchModel[Account](ctx, id, "Tags")
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.WithContext(ctx).Model(&Account{}).
		Where("parent_account_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("this account has child account(s)")
	}

	hasPostings, err := accountHasPostings(ctx, id)
	if err != nil {
		return nil, err
	}
	if hasPostings {
		return nil, utils.NewValidationError("this account has journal entry lines")
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("account_id = ?", id).Delete(&AccountTag{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&result).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	for _, t := range result.Tags {
		invalidateTagCache([]string{t.Tag})
	}
	return result, nil
}

func GetAccount(ctx context.Context, id int) (*Account, error) {
	return utils.FetchModel[Account](ctx, id, "Tags")
}

func GetAccountByCode(ctx context.Context, code string) (*Account, error) {
	db := config.GetDB()
	var result Account
	err := db.WithContext(ctx).Preload("Tags").Where("code = ?", code).First(&result).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetAccounts(ctx context.Context, name *string, code *string) ([]*Account, error) {

	db := config.GetDB()
	var results []*Account

	dbCtx := db.WithContext(ctx).Preload("Tags")
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if code != nil && len(*code) > 0 {
		dbCtx = dbCtx.Where("code LIKE ?", "%"+*code+"%")
	}
	err := dbCtx.Order("code").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// IsPostingAccount reports whether the account is a leaf. Accounts with
// children are non-posting control accounts.
func IsPostingAccount(ctx context.Context, tx *gorm.DB, accountId int) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&Account{}).
		Where("parent_account_id = ?", accountId).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func accountHasPostings(ctx context.Context, accountId int) (bool, error) {
	count, err := utils.ResourceCountWhere[JournalEntryLine](ctx, "account_id = ?", accountId)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func TagAccount(ctx context.Context, accountId int, tag string) (*AccountTag, error) {
	if tag == "" {
		return nil, utils.NewValidationError("tag must not be empty")
	}
	if err := utils.ValidateResourceId[Account](ctx, accountId); err != nil {
		return nil, err
	}
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&AccountTag{}).
		Where("account_id = ? AND tag = ?", accountId, tag).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewValidationError("account already carries tag %q", tag)
	}
	record := AccountTag{AccountId: accountId, Tag: tag}
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.NewValidationError("account already carries tag %q", tag)
		}
		return nil, err
	}
	invalidateTagCache([]string{tag})
	return &record, nil
}

func UntagAccount(ctx context.Context, accountId int, tag string) error {
	db := config.GetDB()
	result := db.WithContext(ctx).Where("account_id = ? AND tag = ?", accountId, tag).Delete(&AccountTag{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	invalidateTagCache([]string{tag})
	return nil
}

// GetAccountsByTag lists active accounts carrying a tag, ordered by code.
func GetAccountsByTag(ctx context.Context, tag string) ([]*Account, error) {
	db := config.GetDB()
	var results []*Account
	err := db.WithContext(ctx).
		Joins("JOIN account_tags ON account_tags.account_id = accounts.id").
		Where("account_tags.tag = ?", tag).
		Order("accounts.code").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetSystemAccountByTag resolves the single posting account behind a system
// tag (retained earnings, reconciliation adjustment). Missing or ambiguous
// tags are configuration errors, never silently skipped.
func GetSystemAccountByTag(ctx context.Context, tx *gorm.DB, tag string) (*Account, error) {
	var cachedId int
	exists, err := config.GetRedisObject("TagAccount:"+tag, &cachedId)
	if err != nil {
		return nil, err
	}
	if exists && cachedId > 0 {
		var account Account
		if err := tx.WithContext(ctx).First(&account, cachedId).Error; err == nil {
			return &account, nil
		}
		// stale cache entry; fall through to the query
	}

	var accounts []*Account
	err = tx.WithContext(ctx).
		Joins("JOIN account_tags ON account_tags.account_id = accounts.id").
		Where("account_tags.tag = ?", tag).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, utils.NewConfigurationError("no account tagged %q", tag)
	}
	if len(accounts) > 1 {
		return nil, utils.NewConfigurationError("multiple accounts tagged %q", tag)
	}
	account := accounts[0]
	posting, err := IsPostingAccount(ctx, tx, account.ID)
	if err != nil {
		return nil, err
	}
	if !posting {
		return nil, utils.NewConfigurationError("account tagged %q is a control account", tag)
	}
	if err := config.SetRedisObject("TagAccount:"+tag, account.ID, 0); err != nil {
		return nil, err
	}
	return account, nil
}

func invalidateTagCache(tags []string) {
	for _, tag := range tags {
		_ = config.DeleteRedisObject("TagAccount:" + tag)
	}
}

// GetAccountTreeBalance returns the account's cached balance, or for a
// control account the roll-up of its posting descendants.
func GetAccountTreeBalance(ctx context.Context, id int) (decimal.Decimal, error) {
	db := config.GetDB()
	account, err := utils.FetchModel[Account](ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return accountTreeBalance(ctx, db, account)
}

func accountTreeBalance(ctx context.Context, db *gorm.DB, account *Account) (decimal.Decimal, error) {
	var children []*Account
	if err := db.WithContext(ctx).Where("parent_account_id = ?", account.ID).Find(&children).Error; err != nil {
		return decimal.Zero, err
	}
	if len(children) == 0 {
		return account.Balance, nil
	}
	total := decimal.Zero
	for _, child := range children {
		childTotal, err := accountTreeBalance(ctx, db, child)
		if err != nil {
			return decimal.Zero, err
		}
		// children sharing the parent's convention add; opposite-normal
		// children offset the roll-up
		if child.NormalBalance == account.NormalBalance {
			total = total.Add(childTotal)
		} else {
			total = total.Sub(childTotal)
		}
	}
	return total, nil
}
