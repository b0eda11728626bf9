package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrItemSold          = errors.New("item already sold")
	ErrBidAlreadyOpen    = errors.New("a bid is already open")
	ErrNoActiveBid       = errors.New("no active bid")
	ErrTeamNotFound      = errors.New("team not found")
	ErrTeamExists        = errors.New("team already exists")
	ErrInsufficientFunds = errors.New("insufficient budget")
	ErrAuctionEnded      = errors.New("auction has ended")
	ErrConsistency       = errors.New("ledger commit failed after pre-check")
	ErrLockHeld          = errors.New("lock already held")
)

// ErrorKind maps a domain error to the machine-readable kind carried in
// unicast error payloads. Unknown errors map to "internal".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrItemNotFound):
		return "ItemNotFound"
	case errors.Is(err, ErrItemSold):
		return "ItemAlreadySold"
	case errors.Is(err, ErrBidAlreadyOpen):
		return "BidAlreadyOpen"
	case errors.Is(err, ErrNoActiveBid):
		return "NoActiveBid"
	case errors.Is(err, ErrTeamNotFound):
		return "TeamNotFound"
	case errors.Is(err, ErrInsufficientFunds):
		return "InsufficientFunds"
	case errors.Is(err, ErrAuctionEnded):
		return "AuctionEnded"
	case errors.Is(err, ErrConsistency):
		return "ConsistencyError"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	default:
		return "internal"
	}
}
