// Package domain defines the core auction types, sentinel errors, and the
// store/cache/blob interfaces implemented by the infrastructure packages.
package domain

import "time"

// Item is a single lot inside a pool. Sold flips exactly once, when a
// winning bid closes; items are only ever deleted by a bulk pool clear.
type Item struct {
	ID        string `json:"id"`
	PoolID    string `json:"poolId"`
	Name      string `json:"name"`
	Photo     string `json:"photo,omitempty"`
	BasePrice Money  `json:"basePrice"`
	Sold      bool   `json:"sold"`
}

// Pool is an ordered collection of items uploaded together. At most one pool
// is active at a time; the active pointer is held by the inventory, not here.
type Pool struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
}

// Acquisition records one item bought by a team and the price paid.
type Acquisition struct {
	ItemID   string `json:"itemId"`
	ItemName string `json:"itemName"`
	Price    Money  `json:"price"`
	Photo    string `json:"photo,omitempty"`
}

// Team is a bidding participant. Budget is authoritative financial state and
// is mutated only through the ledger's commit path.
type Team struct {
	Name         string        `json:"name"`
	Budget       Money         `json:"budget"`
	Acquisitions []Acquisition `json:"acquisitions"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// ActiveBid is the single open bid slot. At most one instance exists
// process-wide; its absence means no bidding is in progress. An empty Leader
// means the item is open but nobody has bid yet.
type ActiveBid struct {
	ItemID string `json:"itemId"`
	Amount Money  `json:"bid"`
	Leader string `json:"leader,omitempty"`
}

// SoldRecord is the immutable audit entry created exactly once per sale.
type SoldRecord struct {
	ItemID     string    `json:"itemId"`
	ItemName   string    `json:"itemName"`
	Team       string    `json:"team"`
	FinalPrice Money     `json:"finalPrice"`
	Photo      string    `json:"photo,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AuctionStatus carries the single monotonic ended flag.
type AuctionStatus struct {
	Ended bool `json:"ended"`
}
