package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smallbiznis/memberhud/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNewConfigConvertsSeconds(t *testing.T) {
	cfg := NewConfig(config.Config{DBType: "postgres", DBConnMaxLifetime: 60, DBConnMaxIdleTime: 5})
	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, 60.0, cfg.ConnMaxLifetime.Seconds())
	assert.Equal(t, 5.0, cfg.ConnMaxIdleTime.Seconds())
}

func TestDialect(t *testing.T) {
	for _, typ := range []string{"postgres", "mysql", "sqlite", " Postgres "} {
		d, err := Dialect(Config{Type: typ, Name: "hud"})
		require.NoError(t, err, typ)
		assert.NotNil(t, d)
	}
	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestDSNs(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "hud", Password: "secret", Name: "memberhud"}
	assert.Equal(t, "postgres://hud:secret@db:5432/memberhud?sslmode=disable", PostgresURL(cfg))
	assert.Contains(t, PostgresDSN(cfg), "dbname=memberhud")
	assert.Equal(t, "memberhud.db", SQLitePath(cfg))
	assert.Equal(t, "memberhud.db", SQLitePath(Config{}))
	assert.Equal(t, "file:x?mode=memory", SQLitePath(Config{Name: "file:x?mode=memory"}))
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: hud_sync_runs.id")))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))
}
