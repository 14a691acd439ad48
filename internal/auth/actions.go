package auth

// Action constants for authorization checks.
// Each contract operation maps to exactly one action in the policy table.

// Lifecycle actions (mutating)
const (
	// AssetCreate allows booking a new payload
	AssetCreate = "asset:create"

	// AssetVerify allows a launcher to verify payload details
	AssetVerify = "asset:verify"

	// AssetShip allows marking a payload in transit
	AssetShip = "asset:ship"

	// AssetReceive allows marking a payload received
	AssetReceive = "asset:receive"

	// AssetClearForFlight allows clearing a payload for flight
	AssetClearForFlight = "asset:clear-for-flight"

	// AssetModify allows overwriting payload details
	AssetModify = "asset:modify"

	// AssetDelete allows removing a payload from world state
	AssetDelete = "asset:delete"
)

// Read actions
const (
	// AssetRead allows reading a single payload
	AssetRead = "asset:read"

	// AssetList allows listing payloads (filtered by role scope)
	AssetList = "asset:list"

	// AssetHistory allows reading the commit history of a payload
	AssetHistory = "asset:history"
)

// AllActions returns every action the policy table knows about.
func AllActions() []string {
	return []string{
		AssetCreate,
		AssetVerify,
		AssetShip,
		AssetReceive,
		AssetClearForFlight,
		AssetModify,
		AssetDelete,
		AssetRead,
		AssetList,
		AssetHistory,
	}
}
