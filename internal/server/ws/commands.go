package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// commandTimeout bounds a single engine call made on behalf of a session.
const commandTimeout = 10 * time.Second

// command is the inbound frame format. Fields beyond action are read
// per-action; unknown fields are ignored.
type command struct {
	Action    string  `json:"action"`
	ItemID    string  `json:"itemId"`
	TeamName  string  `json:"teamName"`
	PoolID    string  `json:"poolId"`
	BasePrice float64 `json:"basePrice"`
}

// handleCommand parses one inbound frame and routes it to the engine.
// Rejections are unicast back to this session only; the broadcast stream
// carries state changes, never failures.
func (s *session) handleCommand(message []byte) {
	var cmd command
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.sendError("internal", "malformed command")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch cmd.Action {
	case "startBid":
		err = s.hub.engine.Open(ctx, cmd.ItemID, domain.MoneyFromFloat(cmd.BasePrice))

	case "placeBid":
		if !s.allowBid(ctx) {
			s.sendError("RateLimited", "too many bids, slow down")
			return
		}
		err = s.hub.engine.Bid(ctx, cmd.ItemID, cmd.TeamName)

	case "endBid":
		err = s.hub.engine.Close(ctx, cmd.ItemID)

	case "setCurrentPool":
		_, err = s.hub.engine.SetCurrentPool(ctx, cmd.PoolID)

	case "endAuction":
		err = s.hub.engine.EndAuction(ctx)

	default:
		s.sendError("internal", "unknown action "+cmd.Action)
		return
	}

	if err != nil {
		s.hub.logger.Info("command rejected",
			slog.String("session_id", s.id),
			slog.String("action", cmd.Action),
			slog.String("error", err.Error()),
		)
		s.sendError(domain.ErrorKind(err), err.Error())
	}
}

// allowBid applies the per-session sliding-window throttle to placeBid
// commands. Limiter failures admit the bid; the engine stays available when
// Redis does not.
func (s *session) allowBid(ctx context.Context) bool {
	if s.hub.limiter == nil || s.hub.cfg.BidRateLimit <= 0 {
		return true
	}
	ok, err := s.hub.limiter.Allow(ctx, "ws:bid:"+s.id, s.hub.cfg.BidRateLimit, time.Second)
	if err != nil {
		s.hub.logger.Warn("bid rate limit check failed",
			slog.String("session_id", s.id),
			slog.String("error", err.Error()),
		)
		return true
	}
	return ok
}

// sendError unicasts an error envelope to this session.
func (s *session) sendError(kind, message string) {
	s.sendEvent(domain.Event{
		Type:    domain.EventError,
		Payload: domain.ErrorNotice{Kind: kind, Message: message},
	})
}
