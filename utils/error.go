package utils

import (
	"errors"
	"fmt"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrorRecordNotFound = errors.New("record not found")

// Error categories surfaced by the engine layer. Callers test them with
// errors.Is; every violation is rejected before any partial mutation commits.
var (
	// ErrorValidation: structurally invalid input (unbalanced lines, posting
	// on a control account, duplicate draft session, bad fiscal year range).
	ErrorValidation = errors.New("validation failed")
	// ErrorStateTransition: an operation that would move a record backwards
	// through its lifecycle (re-posting, un-closing, changing a set
	// reversal/complete time, deleting a closed fiscal year).
	ErrorStateTransition = errors.New("state transition not allowed")
	// ErrorConfiguration: a required system account (by tag) is missing or
	// ambiguous.
	ErrorConfiguration = errors.New("configuration error")
)

func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrorValidation, fmt.Sprintf(format, args...))
}

func NewStateTransitionError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrorStateTransition, fmt.Sprintf(format, args...))
}

func NewConfigurationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrorConfiguration, fmt.Sprintf(format, args...))
}

// IsDuplicateKeyError covers a racing insert slipping past the pre-insert
// uniqueness check. MySQL reports error 1062; other drivers go through
// gorm's translated sentinel.
func IsDuplicateKeyError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
