package auth

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/uptrace/bun"

	"github.com/satlaunch/payloadledger/internal/auth/bunadapter"
	apperrors "github.com/satlaunch/payloadledger/internal/errors"
	"github.com/satlaunch/payloadledger/internal/identity"
)

//go:embed model.conf
var casbinModelContent string

// Rule is one row of the policy table: role × action × ownership scope.
type Rule struct {
	Role   string
	Action string
	Scope  string
}

func (r Rule) values() []string {
	return []string{r.Role, r.Action, r.Scope}
}

// DefaultRules is the built-in policy table. The admin role is allowed every
// action regardless of the rows present, so admin has no rows of its own.
var DefaultRules = []Rule{
	{Role: RolePayloadOwner, Action: AssetCreate, Scope: ScopeAny},
	{Role: RoleLauncher, Action: AssetVerify, Scope: ScopeAny},
	{Role: RolePayloadOwner, Action: AssetShip, Scope: ScopeAny},
	{Role: RoleLauncher, Action: AssetReceive, Scope: ScopeAny},
	{Role: RoleLauncher, Action: AssetClearForFlight, Scope: ScopeAny},
	{Role: RolePayloadOwner, Action: AssetModify, Scope: ScopeAny},
	{Role: AnyRole, Action: AssetDelete, Scope: ScopeOwner},
	{Role: AnyRole, Action: AssetRead, Scope: ScopeOwner},
	{Role: AnyRole, Action: AssetList, Scope: ScopeAny},
	{Role: RoleCustomer, Action: AssetHistory, Scope: ScopeAny},
	{Role: RoleRegulator, Action: AssetHistory, Scope: ScopeAny},
}

// Engine evaluates the policy table. Safe for concurrent use.
type Engine struct {
	enforcer casbin.IEnforcer
}

// NewEngine creates an engine holding rules in memory.
func NewEngine(rules []Rule) (*Engine, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	if len(rules) > 0 {
		policies := make([][]string, 0, len(rules))
		for _, r := range rules {
			policies = append(policies, r.values())
		}
		if _, err := enforcer.AddPolicies(policies); err != nil {
			return nil, fmt.Errorf("load policy rules: %w", err)
		}
	}

	return &Engine{enforcer: enforcer}, nil
}

// NewPersistentEngine creates an engine whose rules live in the policy_rules table.
// Rules granted or revoked through the engine are written back to the database.
func NewPersistentEngine(db *bun.DB) (*Engine, error) {
	adapter, err := bunadapter.NewAdapter(db)
	if err != nil {
		return nil, fmt.Errorf("create casbin adapter: %w", err)
	}

	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	// NewSyncedEnforcer loads the policy through the adapter.
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	return &Engine{enforcer: enforcer}, nil
}

// Authorize checks caller against the policy table for action. owner is the
// owner of the already-fetched record, or empty when no record is involved.
// Admin is allowed without consulting the table, so revoking every row for an
// action never locks admin out.
func (e *Engine) Authorize(caller identity.Caller, action, assetID, owner string) error {
	if caller.Role == RoleAdmin {
		return nil
	}
	allowed, err := e.enforcer.Enforce(caller.Subject, caller.Role, action, owner)
	if err != nil {
		return fmt.Errorf("evaluate policy for %s: %w", action, err)
	}
	if !allowed {
		return apperrors.Unauthorized(caller.Subject, action, assetID).WithMetadata("role", caller.Role)
	}
	return nil
}

// Rules returns the current policy table sorted by action then role.
func (e *Engine) Rules() ([]Rule, error) {
	policies, err := e.enforcer.GetPolicy()
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}

	rules := make([]Rule, 0, len(policies))
	for _, p := range policies {
		if len(p) < 3 {
			continue
		}
		rules = append(rules, Rule{Role: p[0], Action: p[1], Scope: p[2]})
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Action != rules[j].Action {
			return rules[i].Action < rules[j].Action
		}
		return rules[i].Role < rules[j].Role
	})
	return rules, nil
}

// Grant adds a rule. Returns false if the rule was already present.
func (e *Engine) Grant(r Rule) (bool, error) {
	if err := r.Validate(); err != nil {
		return false, err
	}
	added, err := e.enforcer.AddPolicy(r.Role, r.Action, r.Scope)
	if err != nil {
		return false, fmt.Errorf("add policy rule: %w", err)
	}
	return added, nil
}

// Revoke removes a rule. Returns false if the rule was not present.
func (e *Engine) Revoke(r Rule) (bool, error) {
	removed, err := e.enforcer.RemovePolicy(r.Role, r.Action, r.Scope)
	if err != nil {
		return false, fmt.Errorf("remove policy rule: %w", err)
	}
	return removed, nil
}

// Validate checks that a rule names a known action and scope.
func (r Rule) Validate() error {
	if r.Role == "" {
		return apperrors.Validation("rule role is required")
	}
	if r.Scope != ScopeAny && r.Scope != ScopeOwner {
		return apperrors.Validation("rule scope must be %q or %q, got %q", ScopeAny, ScopeOwner, r.Scope)
	}
	for _, a := range AllActions() {
		if a == r.Action {
			return nil
		}
	}
	return apperrors.Validation("unknown action %q", r.Action)
}
