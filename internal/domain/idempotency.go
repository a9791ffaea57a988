package domain

import "time"

// Idempotency scopes: one key namespace per deduplicated operation.
const (
	ScopeCreateOrder   = "create_order"
	ScopeRecordPayment = "record_payment"
)

// IdempotencyRecord binds a client supplied key to the resource its first
// request produced.
type IdempotencyRecord struct {
	VenueID    int64
	Scope      string
	Key        string
	ResourceID int64
	CreatedAt  time.Time
}
