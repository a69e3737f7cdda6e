// Package gormtest opens a Postgres-dialect GORM handle in dry-run mode and
// records the SQL each call would have sent.
package gormtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Recorder is a gorm logger that keeps every traced statement with its
// bound values inlined.
type Recorder struct {
	mu         sync.Mutex
	statements []string
}

func (r *Recorder) LogMode(gormlogger.LogLevel) gormlogger.Interface { return r }

func (r *Recorder) Info(context.Context, string, ...interface{})  {}
func (r *Recorder) Warn(context.Context, string, ...interface{})  {}
func (r *Recorder) Error(context.Context, string, ...interface{}) {}

func (r *Recorder) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	sql, _ := fc()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements = append(r.statements, sql)
}

func (r *Recorder) Statements() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statements...)
}

// Last returns the most recent statement, or "" when nothing ran.
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statements) == 0 {
		return ""
	}
	return r.statements[len(r.statements)-1]
}

// Open never dials the server: the DSN is only parsed, pings and default
// transactions are off, and DryRun stops statements before execution.
func Open(t testing.TB) (*gorm.DB, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	db, err := gorm.Open(postgres.Open("host=localhost user=casetrack dbname=casetrack sslmode=disable"), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 rec,
	})
	require.NoError(t, err)
	return db, rec
}
