package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgDuplicateKeyField(t *testing.T) {
	err := fmt.Errorf("create: %w", &pgconn.PgError{
		Code:           "23505",
		TableName:      "casos",
		ConstraintName: "idx_casos_numero_caso",
	})

	field, ok := PgDuplicateKeyField(err)
	assert.True(t, ok)
	assert.Equal(t, "numeroCaso", field)

	field, ok = PgDuplicateKeyField(&pgconn.PgError{Code: "23505", TableName: "users", ConstraintName: "idx_users_email"})
	assert.True(t, ok)
	assert.Equal(t, "email", field)

	_, ok = PgDuplicateKeyField(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)

	_, ok = PgDuplicateKeyField(errors.New("boom"))
	assert.False(t, ok)
}

func TestPostgresDSN(t *testing.T) {
	assert.Equal(t, "postgres://u@h/db", PostgresConfig{URL: "postgres://u@h/db"}.dsn())
	assert.Equal(t,
		"host=h user=u password=p dbname=n port=5432 sslmode=disable",
		PostgresConfig{Host: "h", User: "u", Password: "p", Name: "n", Port: "5432"}.dsn(),
	)
}
