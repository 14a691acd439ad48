package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/satlaunch/payloadledger/internal/auth"
	"github.com/satlaunch/payloadledger/internal/auth/bunadapter"
)

func init() {
	Migrations.MustRegister(up_20261001000002, down_20261001000002)
}

// up_20261001000002 creates the policy_rules table and seeds the built-in policy
func up_20261001000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating policy_rules table...")
	if _, err := db.NewCreateTable().
		Model((*bunadapter.PolicyRule)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create policy_rules table: %w", err)
	}
	fmt.Println(" OK")

	fmt.Print(" [up] seeding default policy rules...")
	for _, r := range auth.DefaultRules {
		rule := &bunadapter.PolicyRule{Ptype: "p", Role: r.Role, Action: r.Action, Scope: r.Scope}
		if _, err := db.NewInsert().
			Model(rule).
			On("CONFLICT DO NOTHING"). // Idempotent
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to seed policy rule %s/%s: %w", r.Role, r.Action, err)
		}
	}
	fmt.Println(" OK")

	return nil
}

// down_20261001000002 drops the policy_rules table
func down_20261001000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping policy_rules table...")
	if _, err := db.NewDropTable().
		Model((*bunadapter.PolicyRule)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop policy_rules table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}
