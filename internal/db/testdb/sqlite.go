package testdb

import (
	"database/sql"
	"os"
	"testing"

	"github.com/nftsentinel/nftsentinel/internal/db"
	"github.com/stretchr/testify/require"
)

func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	dir, err := os.MkdirTemp("", "nftsentinel-test-*")
	require.NoError(t, err)

	sqlite, err := db.OpenSqlite(dir + "/sqlite")
	require.NoError(t, err)

	cleanup := func() {
		sqlite.Close()
		os.RemoveAll(dir)
	}
	return sqlite, cleanup
}
