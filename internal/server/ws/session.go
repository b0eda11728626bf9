package ws

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// session is a single websocket connection registered with the hub. Events
// reach the client through the buffered send channel; commands read off the
// wire are dispatched to the engine.
type session struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// sendEvent marshals an event and queues it for unicast to this session.
// Events are dropped when the session's buffer is full.
func (s *session) sendEvent(ev domain.Event) {
	data, err := ev.Encode()
	if err != nil {
		s.hub.logger.Error("event encode failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
		return
	}
	select {
	case s.send <- data:
	default:
	}
}

// sendInitialState unicasts the current bid slot and auction status so a
// reconnecting client converges without replaying history.
func (s *session) sendInitialState() {
	if bid := s.hub.engine.ActiveBid(); bid != nil {
		snap := domain.BidSnapshot{ItemID: bid.ItemID, Bid: bid.Amount}
		if bid.Leader != "" {
			leader := bid.Leader
			snap.Leader = &leader
		}
		s.sendEvent(domain.Event{Type: domain.EventBidUpdated, Payload: snap})
	}
	if s.hub.engine.Status().Ended {
		s.sendEvent(domain.Event{Type: domain.EventAuctionEnded})
	}
}

// readPump reads command frames from the websocket connection and dispatches
// them to the engine until the connection drops.
func (s *session) readPump() {
	defer func() {
		s.hub.unregister <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("unexpected close",
					slog.String("session_id", s.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		s.handleCommand(message)
	}
}

// writePump pumps queued events to the websocket connection as JSON text
// frames, with periodic pings for keepalive.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
