package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/satlaunch/payloadledger/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20261001000001, down_20261001000001)
}

// up_20261001000001 creates the world state, history and event tables
func up_20261001000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating world_state table...")
	if _, err := db.NewCreateTable().
		Model((*models.WorldState)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create world_state table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating ledger_history table...")
	if _, err := db.NewCreateTable().
		Model((*models.HistoryEntry)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create ledger_history table: %w", err)
	}
	if _, err := db.NewCreateIndex().
		Model((*models.HistoryEntry)(nil)).
		Index("idx_ledger_history_key").
		Column("key", "committed_at", "id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create ledger_history key index: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] creating ledger_events table...")
	if _, err := db.NewCreateTable().
		Model((*models.LedgerEvent)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create ledger_events table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20261001000001 drops the ledger tables
func down_20261001000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping ledger tables...")

	for _, model := range []any{
		(*models.LedgerEvent)(nil),
		(*models.HistoryEntry)(nil),
		(*models.WorldState)(nil),
	} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop ledger table: %w", err)
		}
	}

	fmt.Println(" OK")
	return nil
}
