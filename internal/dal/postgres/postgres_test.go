package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		conflict   bool
		notFound   bool
		unique     bool
		foreignKey bool
		check      bool
	}{
		{name: "lock timeout", err: &pgconn.PgError{Code: "55P03"}, conflict: true},
		{name: "deadlock wrapped", err: fmt.Errorf("lock order: %w", &pgconn.PgError{Code: "40P01"}), conflict: true},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, conflict: true},
		{name: "no rows", err: fmt.Errorf("get order: %w", pgx.ErrNoRows), notFound: true},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, unique: true},
		{name: "foreign key", err: fmt.Errorf("insert items: %w", &pgconn.PgError{Code: "23503"}), foreignKey: true},
		{name: "check", err: &pgconn.PgError{Code: "23514"}, check: true},
		{name: "plain", err: errors.New("boom")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.conflict, IsConflict(tc.err))
			assert.Equal(t, tc.notFound, IsNotFound(tc.err))
			assert.Equal(t, tc.unique, IsUniqueViolation(tc.err))
			assert.Equal(t, tc.foreignKey, IsForeignKeyViolation(tc.err))
			assert.Equal(t, tc.check, IsCheckViolation(tc.err))
		})
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")

	assert.NoError(t, err)
	assert.NotEmpty(t, entries)
}
