package auth

import (
	"github.com/satlaunch/payloadledger/internal/asset"
	"github.com/satlaunch/payloadledger/internal/identity"
	"github.com/satlaunch/payloadledger/internal/ledger"
)

// listScopes maps a role to the selector restricting which records it may list.
// Roles without an entry see nothing.
var listScopes = map[string]func(subject string) ledger.Selector{
	RoleAdmin:     func(string) ledger.Selector { return ledger.MatchAll() },
	RoleCustomer:  func(string) ledger.Selector { return ledger.MatchAll() },
	RoleRegulator: func(string) ledger.Selector { return ledger.MatchAll() },
	RolePayloadOwner: func(subject string) ledger.Selector {
		return ledger.Selector{"owner": ledger.Equals(subject)}
	},
	RoleLauncher: func(subject string) ledger.Selector {
		return ledger.Selector{"launcher": ledger.OneOf(asset.NoLauncher, subject)}
	},
}

// ListScope returns the selector for the records caller may list. ok is false
// when the caller's role has no list scope and the result must be empty.
func ListScope(caller identity.Caller) (sel ledger.Selector, ok bool) {
	build, ok := listScopes[caller.Role]
	if !ok {
		return nil, false
	}
	return build(caller.Subject), true
}
