package domain

import "encoding/json"

// Bus channels. The engine publishes every state-change event to exactly one
// of these; the websocket hub subscribes to all of them and fans out to
// connected sessions in emission order.
const (
	ChannelBid    = "auction:bid"
	ChannelTeams  = "auction:teams"
	ChannelPools  = "auction:pools"
	ChannelStatus = "auction:status"

	// EventStream is the bounded redis stream that keeps an audit trail of
	// every broadcast event.
	EventStream = "auction:events"
)

// Event types carried in the envelope's "type" field.
const (
	EventBidOpened         = "bidOpened"
	EventBidUpdated        = "bidUpdated"
	EventBidClosed         = "bidClosed"
	EventBidUnsold         = "bidUnsold"
	EventBidEnded          = "bidEnded"
	EventTeamUpdate        = "teamUpdate"
	EventPoolUpdate        = "poolUpdate"
	EventCurrentPoolUpdate = "currentPoolUpdate"
	EventPoolsCleared      = "poolsCleared"
	EventAllDataCleared    = "allDataCleared"
	EventAuctionEnded      = "auctionEnded"
	EventError             = "error"
)

// Event is the wire envelope for every broadcast and unicast message.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Encode marshals the event envelope to JSON.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// BidSnapshot is the payload of bidOpened and bidUpdated events and of the
// current-bid snapshot pull. Leader is null while the item is open with no
// bids.
type BidSnapshot struct {
	ItemID string  `json:"itemId"`
	Bid    Money   `json:"bid"`
	Leader *string `json:"leader"`
}

// SaleOutcome is the payload of bidClosed and bidEnded events. A bidEnded
// event with all outcome fields null reports a forcibly ended bid (leader
// removed mid-auction).
type SaleOutcome struct {
	ItemID     string  `json:"itemId"`
	Team       *string `json:"team"`
	FinalPrice *Money  `json:"finalPrice"`
	ItemName   *string `json:"itemName"`
	Photo      *string `json:"photo"`
}

// UnsoldNotice is the payload of bidUnsold events.
type UnsoldNotice struct {
	ItemID  string `json:"itemId"`
	Message string `json:"message"`
}

// ErrorNotice is the unicast payload sent only to the session whose request
// was rejected. Recoverable errors are never broadcast.
type ErrorNotice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
