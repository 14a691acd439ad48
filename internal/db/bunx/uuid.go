package bunx

import "github.com/google/uuid"

// NewUUIDv7 generates a time-ordered UUIDv7 string. Used for ledger transaction
// ids, history rows and outbox events so that ids sort in commit order.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}
