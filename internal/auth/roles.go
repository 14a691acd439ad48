package auth

// Role values carried in the caller's role attribute.
const (
	RoleAdmin        = "admin"
	RolePayloadOwner = "payloadowner"
	RoleLauncher     = "launcher"
	RoleCustomer     = "customer"
	RoleRegulator    = "regulator"

	// Legacy roles. They have no rows in the default policy.
	RoleShipper  = "shipper"
	RoleRetailer = "retailer"
)

// AnyRole matches every caller in a policy rule.
const AnyRole = "*"

// Rule scopes.
const (
	// ScopeAny grants the action regardless of the record's owner.
	ScopeAny = "any"

	// ScopeOwner grants the action only when the caller owns the record.
	ScopeOwner = "owner"
)

// KnownRoles lists every role the system recognises.
func KnownRoles() []string {
	return []string{RoleAdmin, RolePayloadOwner, RoleLauncher, RoleCustomer, RoleRegulator, RoleShipper, RoleRetailer}
}
