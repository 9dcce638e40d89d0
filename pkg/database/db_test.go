package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Path: filepath.Join(t.TempDir(), "nested", "cards.db")}

	db, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db), "migrate twice")

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name IN
		('Cards', 'CardTypes', 'CardKeywords', 'Printings', 'Artists', 'ProductInventory', 'UserInventory')
	`).Scan(&n))
	assert.Equal(t, 7, n)

	var mode string
	require.NoError(t, db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Config{Path: filepath.Join(t.TempDir(), "cards.db")})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(ctx, db))

	_, err = db.ExecContext(ctx, `INSERT INTO Printings (printing_id, card_id) VALUES ('p', 'missing')`)
	assert.Error(t, err)
}

func TestDefaultConfig_Env(t *testing.T) {
	t.Setenv("TCG_DB_PATH", "/tmp/x/cards.db")
	assert.Equal(t, "/tmp/x/cards.db", DefaultConfig().Path)

	t.Setenv("TCG_DB_PATH", "")
	assert.Equal(t, "trading_cards.db", filepath.Base(DefaultConfig().Path))
}
