package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/alesteb/alesteb-api/internal/shared"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, shared.ErrNotFound},
		{"unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "categories_slug_key"}, shared.ErrConflict},
		{"missing parent", &pgconn.PgError{
			Code:    pgerrcode.ForeignKeyViolation,
			Message: `insert or update on table "products" violates foreign key constraint "products_category_id_fkey"`,
			Detail:  `Key (category_id)=(9) is not present in table "categories".`,
		}, shared.ErrValidation},
		{"delete restricted", &pgconn.PgError{
			Code:           pgerrcode.ForeignKeyViolation,
			Message:        `update or delete on table "products" violates foreign key constraint "sale_lines_product_id_fkey" on table "sale_lines"`,
			Detail:         `Key (id)=(3) is still referenced from table "sale_lines".`,
			TableName:      "sale_lines",
			ConstraintName: "sale_lines_product_id_fkey",
		}, shared.ErrConflict},
		{"not null", &pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "name"}, shared.ErrValidation},
		{"malformed literal", &pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation}, shared.ErrValidation},
		{"wrapped unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation}), shared.ErrConflict},
		{"other", errors.New("connection reset"), shared.ErrDatabase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, Translate(tc.err), tc.want)
		})
	}
}

func TestTranslateKeepsClassifiedErrors(t *testing.T) {
	err := fmt.Errorf("%w: image count", shared.ErrValidation)
	assert.Same(t, err, Translate(err))
	assert.NoError(t, Translate(nil))
}

func TestTranslateDoesNotLeakSQLState(t *testing.T) {
	err := Translate(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key", Message: "duplicate key value violates unique constraint"})
	assert.NotContains(t, err.Error(), "23505")
}
