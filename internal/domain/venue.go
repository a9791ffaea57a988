package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry of a venue.
type Product struct {
	ID      int64
	VenueID int64
	Name    string
	Price   decimal.Decimal
	Active  bool
}

// Capabilities are the modules a venue has enabled, resolved once per session.
type Capabilities struct {
	OrdersEnabled  bool
	KitchenEnabled bool
	ReportsEnabled bool
}

// Actor is the authenticated caller of a venue-scoped operation.
type Actor struct {
	VenueID int64
	UserID  int64
}
