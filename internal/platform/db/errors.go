package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/alesteb/alesteb-api/internal/shared"
)

// Translate maps driver errors onto the shared error taxonomy so raw
// SQLSTATE codes never reach clients. Errors already classified are
// returned unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w: %s already exists", shared.ErrConflict, constraintSubject(pgErr))
		case pgerrcode.ForeignKeyViolation:
			if stillReferenced(pgErr) {
				return fmt.Errorf("%w: record is still referenced (%s)", shared.ErrConflict, constraintSubject(pgErr))
			}
			return fmt.Errorf("%w: referenced %s does not exist", shared.ErrValidation, constraintSubject(pgErr))
		case pgerrcode.NotNullViolation:
			return fmt.Errorf("%w: %s is required", shared.ErrValidation, pgErr.ColumnName)
		case pgerrcode.CheckViolation:
			return fmt.Errorf("%w: %s violates %s", shared.ErrValidation, pgErr.TableName, pgErr.ConstraintName)
		case pgerrcode.InvalidTextRepresentation,
			pgerrcode.InvalidDatetimeFormat,
			pgerrcode.NumericValueOutOfRange,
			pgerrcode.StringDataRightTruncationDataException:
			return fmt.Errorf("%w: malformed value", shared.ErrValidation)
		}
	}
	return fmt.Errorf("%w: %w", shared.ErrDatabase, err)
}

// stillReferenced reports a RESTRICT violation raised by deleting or
// re-keying a row that other rows point at, as opposed to a write naming a
// missing parent.
func stillReferenced(pgErr *pgconn.PgError) bool {
	return strings.HasPrefix(pgErr.Message, "update or delete on table") ||
		strings.Contains(pgErr.Detail, "is still referenced")
}

func constraintSubject(pgErr *pgconn.PgError) string {
	if pgErr.ConstraintName != "" {
		return pgErr.ConstraintName
	}
	if pgErr.TableName != "" {
		return pgErr.TableName
	}
	return "record"
}

func isClassified(err error) bool {
	for _, target := range []error{
		shared.ErrValidation,
		shared.ErrNotFound,
		shared.ErrConflict,
		shared.ErrDatabase,
		shared.ErrExternalService,
		shared.ErrForbidden,
		shared.ErrUnauthorized,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
