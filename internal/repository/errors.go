package repository

import (
	"context"
	"errors"
	"strings"

	"go-inventory-pos/internal/apperror"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrForeignKey     = errors.New("foreign key violation")
	ErrStoreTimeout   = errors.New("datastore timeout")
	ErrStoreOperation = errors.New("datastore operation failed")
)

// classify maps driver and gorm errors onto the sentinels above.
// Callers keep the original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return join(ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return join(ErrDuplicateKey, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return join(ErrForeignKey, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return join(ErrStoreTimeout, err)
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return join(ErrDuplicateKey, err)
		case 1451, 1452:
			return join(ErrForeignKey, err)
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return join(ErrDuplicateKey, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return join(ErrForeignKey, err)
	}
	return join(ErrStoreOperation, err)
}

func join(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return errors.Join(sentinel, err)
}

// AsAppError converts a classified store error into the client-facing taxonomy.
// notFound is used as the message for missing records.
func AsAppError(err error, notFound string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return apperror.NotFound(notFound)
	case errors.Is(err, ErrDuplicateKey):
		return apperror.Wrap(apperror.KindConflict, "resource already exists", err)
	case errors.Is(err, ErrForeignKey):
		return apperror.Wrap(apperror.KindInvalidReference, "referenced record does not exist", err)
	case errors.Is(err, ErrStoreTimeout), errors.Is(err, ErrStoreOperation):
		return apperror.Dependency("datastore unavailable", err)
	}
	return apperror.Wrap(apperror.KindInternal, "internal error", err)
}
