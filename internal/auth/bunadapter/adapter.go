// Package bunadapter stores the casbin policy table in a bun-managed database table.
package bunadapter

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	"github.com/uptrace/bun"
)

var (
	_ persist.Adapter      = (*Adapter)(nil)
	_ persist.BatchAdapter = (*Adapter)(nil)
)

// PolicyRule is one persisted row of the policy table.
type PolicyRule struct {
	bun.BaseModel `bun:"table:policy_rules,alias:pr"`

	// Composite primary key over every column; a rule has no identity beyond its values.
	Ptype  string `bun:",pk,type:varchar(16),notnull"`
	Role   string `bun:",pk,type:varchar(64),notnull"`
	Action string `bun:",pk,type:varchar(64),notnull"`
	Scope  string `bun:",pk,type:varchar(16),notnull"`
}

func newPolicyRule(ptype string, rule []string) *PolicyRule {
	r := &PolicyRule{Ptype: ptype}
	if len(rule) > 0 {
		r.Role = rule[0]
	}
	if len(rule) > 1 {
		r.Action = rule[1]
	}
	if len(rule) > 2 {
		r.Scope = rule[2]
	}
	return r
}

// Values returns the rule as a casbin policy line without the ptype.
func (r *PolicyRule) Values() []string {
	return []string{r.Role, r.Action, r.Scope}
}

// Adapter is a casbin adapter over an existing *bun.DB connection pool.
// Expects the policy_rules table to exist (see migrations).
type Adapter struct {
	db *bun.DB
}

// NewAdapter creates an adapter sharing db.
func NewAdapter(db *bun.DB) (*Adapter, error) {
	if db == nil {
		return nil, fmt.Errorf("bun db is required")
	}
	return &Adapter{db: db}, nil
}

// LoadPolicy loads every rule from the database.
func (a *Adapter) LoadPolicy(m model.Model) error {
	var rules []*PolicyRule
	if err := a.db.NewSelect().Model(&rules).Order("action", "role").Scan(context.Background()); err != nil {
		return fmt.Errorf("failed to load policy from adapter db: %w", err)
	}

	for _, r := range rules {
		if r.Role == "" || r.Action == "" {
			continue // skip empty rule
		}
		_ = m.AddPolicy(r.Ptype, r.Ptype, r.Values())
	}
	return nil
}

// SavePolicy replaces the stored rules with those in the model.
func (a *Adapter) SavePolicy(m model.Model) error {
	var rules []*PolicyRule
	for ptype, assertion := range m["p"] {
		for _, rule := range assertion.Policy {
			rules = append(rules, newPolicyRule(ptype, rule))
		}
	}

	if err := a.save(true, rules...); err != nil {
		return fmt.Errorf("failed to save policy to adapter db: %w", err)
	}
	return nil
}

// AddPolicy adds a rule to the database.
func (a *Adapter) AddPolicy(_ string, ptype string, rule []string) error {
	if err := a.save(false, newPolicyRule(ptype, rule)); err != nil {
		return fmt.Errorf("failed to add adapter policy rule: %w", err)
	}
	return nil
}

// AddPolicies adds rules to the database.
func (a *Adapter) AddPolicies(_ string, ptype string, rules [][]string) error {
	lines := make([]*PolicyRule, 0, len(rules))
	for _, rule := range rules {
		lines = append(lines, newPolicyRule(ptype, rule))
	}
	if err := a.save(false, lines...); err != nil {
		return fmt.Errorf("failed to add policy rules: %w", err)
	}
	return nil
}

// RemovePolicy removes a rule from the database.
func (a *Adapter) RemovePolicy(_ string, ptype string, rule []string) error {
	if err := a.delete(newPolicyRule(ptype, rule)); err != nil {
		return fmt.Errorf("failed to remove adapter policy rule: %w", err)
	}
	return nil
}

// RemovePolicies removes rules from the database.
func (a *Adapter) RemovePolicies(_ string, ptype string, rules [][]string) error {
	lines := make([]*PolicyRule, 0, len(rules))
	for _, rule := range rules {
		lines = append(lines, newPolicyRule(ptype, rule))
	}
	if err := a.delete(lines...); err != nil {
		return fmt.Errorf("failed to remove policy rules: %w", err)
	}
	return nil
}

// RemoveFilteredPolicy removes rules whose fields from fieldIndex on match fieldValues.
// Empty values act as wildcards.
func (a *Adapter) RemoveFilteredPolicy(_ string, ptype string, fieldIndex int, fieldValues ...string) error {
	columns := []string{"role", "action", "scope"}
	query := a.db.NewDelete().Model((*PolicyRule)(nil)).Where("ptype = ?", ptype)
	for i, v := range fieldValues {
		col := fieldIndex + i
		if col < 0 || col >= len(columns) {
			return fmt.Errorf("filter field %d out of range", col)
		}
		if v == "" {
			continue
		}
		query = query.Where("? = ?", bun.Ident(columns[col]), v)
	}

	if _, err := query.Exec(context.Background()); err != nil {
		return fmt.Errorf("failed to remove filtered adapter policy: %w", err)
	}
	return nil
}

func (a *Adapter) save(truncate bool, lines ...*PolicyRule) error {
	return a.db.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		if truncate {
			if _, err := tx.NewDelete().Model((*PolicyRule)(nil)).Where("1 = 1").Exec(ctx); err != nil {
				return err
			}
		}

		for _, line := range lines {
			if _, err := tx.NewInsert().Model(line).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (a *Adapter) delete(lines ...*PolicyRule) error {
	if len(lines) == 0 {
		return nil
	}
	return a.db.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		for _, line := range lines {
			_, err := tx.NewDelete().Model((*PolicyRule)(nil)).
				Where("ptype = ?", line.Ptype).
				Where("role = ?", line.Role).
				Where("action = ?", line.Action).
				Where("scope = ?", line.Scope).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
