package models

import (
	"log"

	"github.com/faisalhakim47/jurukasa-ledger/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Account{}, &AccountTag{},
		&JournalEntry{}, &JournalEntryLine{},
		&FiscalYear{},
		&ReconciliationSession{}, &ReconciliationStatementItem{},
		&ReconciliationMatch{}, &ReconciliationDiscrepancy{},
		&BalanceReport{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
