// Package dbtest opens migrated throwaway databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/satlaunch/payloadledger/internal/db/bunx"
	"github.com/satlaunch/payloadledger/internal/migrations"
)

// Open returns a fresh in-memory SQLite database with every migration applied.
// The database is private to the test and closed on cleanup.
func Open(t *testing.T) *bun.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s-%s?mode=memory&cache=shared", name, bunx.NewUUIDv7())

	db, err := bunx.NewDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	_, err = migrations.Apply(context.Background(), db)
	require.NoError(t, err)
	return db
}
