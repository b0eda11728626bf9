// Package ws bridges the auction event bus to websocket clients. The hub is
// a session registry: every connection gets a server-assigned id, receives
// every auction event, and may submit moderator and bidder commands that are
// routed to the coordination engine.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cricketattax/auctioneer/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming command frame.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing events per session.
	sendBufferSize = 256
)

// fanoutChannels are the bus channels the hub relays to every session.
var fanoutChannels = []string{
	domain.ChannelBid,
	domain.ChannelTeams,
	domain.ChannelPools,
	domain.ChannelStatus,
}

// upgrader configures the WebSocket upgrade parameters. Origin checking is
// delegated to the CORS middleware in front of the handler.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Coordinator is the slice of the engine the hub drives on behalf of
// connected clients.
type Coordinator interface {
	Open(ctx context.Context, itemID string, basePrice domain.Money) error
	Bid(ctx context.Context, itemID, teamName string) error
	Close(ctx context.Context, itemID string) error
	SetCurrentPool(ctx context.Context, poolID string) (domain.Pool, error)
	EndAuction(ctx context.Context) error
	ActiveBid() *domain.ActiveBid
	Status() domain.AuctionStatus
}

// Config tunes the hub's per-session bid throttling.
type Config struct {
	// BidRateLimit is the number of placeBid commands allowed per session
	// per second. Zero disables throttling.
	BidRateLimit int
}

// Hub maintains the set of connected sessions and fans bus events out to all
// of them. Slow sessions have events dropped rather than stalling the fan-out
// loop.
type Hub struct {
	sessions   map[string]*session
	broadcast  chan []byte
	register   chan *session
	unregister chan *session

	bus     domain.EventBus
	engine  Coordinator
	limiter domain.RateLimiter
	cfg     Config
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewHub creates a hub that relays events from the bus to websocket sessions
// and routes their commands to the engine. The limiter may be nil, in which
// case bids are not throttled.
func NewHub(bus domain.EventBus, engine Coordinator, limiter domain.RateLimiter, cfg Config, logger *slog.Logger) *Hub {
	return &Hub{
		sessions:   make(map[string]*session),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *session),
		unregister: make(chan *session),
		bus:        bus,
		engine:     engine,
		limiter:    limiter,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "ws")),
	}
}

// Run starts the hub's main event loop. It should be called in a goroutine.
// It handles session registration, unregistration, and event fan-out. The
// loop exits when the provided context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for _, ch := range fanoutChannels {
		go h.relayChannel(ctx, ch)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, s := range h.sessions {
				close(s.send)
				delete(h.sessions, id)
			}
			h.mu.Unlock()
			return ctx.Err()

		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s.id] = s
			h.mu.Unlock()
			h.logger.Info("session connected",
				slog.String("session_id", s.id),
				slog.Int("total_sessions", h.SessionCount()),
			)

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sessions[s.id]; ok {
				delete(h.sessions, s.id)
				close(s.send)
			}
			h.mu.Unlock()
			h.logger.Info("session disconnected",
				slog.String("session_id", s.id),
				slog.Int("total_sessions", h.SessionCount()),
			)

		case data := <-h.broadcast:
			h.mu.RLock()
			for _, s := range h.sessions {
				select {
				case s.send <- data:
				default:
					// Session's send buffer is full; drop the event.
					h.logger.Warn("dropping event for slow session",
						slog.String("session_id", s.id),
					)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// relayChannel subscribes to a single bus channel and forwards received
// events to the hub's fan-out loop.
func (h *Hub) relayChannel(ctx context.Context, channel string) {
	msgCh, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("channel subscribe failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}

	h.logger.Info("relaying channel", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgCh:
			if !ok {
				h.logger.Warn("channel subscription closed",
					slog.String("channel", channel),
				)
				return
			}
			h.broadcast <- data
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection and registers
// the session with the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	s := &session{
		id:   uuid.New().String(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.register <- s
	s.sendInitialState()

	go s.writePump()
	go s.readPump()
}

// SessionCount returns the number of currently connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
