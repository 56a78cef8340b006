//go:build integration

package compliance

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db))

	suite.Run(t, &StoreSuite{newStore: func() Store {
		_, err := db.Exec(`TRUNCATE credit_purchases, emission_logs, compliance_accounts RESTART IDENTITY`)
		require.NoError(t, err)
		return NewPostgresStore(db)
	}})
}
