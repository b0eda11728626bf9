package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// memBus is an in-process EventBus: Publish delivers to the channel's
// subscriber the way the redis pub/sub relay would.
type memBus struct {
	mu   sync.Mutex
	subs map[string]chan []byte
}

func newMemBus() *memBus {
	return &memBus{subs: make(map[string]chan []byte)}
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	sub := b.subs[channel]
	b.mu.Unlock()
	if sub != nil {
		sub <- payload
	}
	return nil
}

func (b *memBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []byte, 16)
	b.subs[channel] = ch
	return ch, nil
}

func (b *memBus) StreamAppend(context.Context, string, []byte) error { return nil }

// recordingEngine satisfies Coordinator with scripted responses.
type recordingEngine struct {
	mu       sync.Mutex
	calls    []string
	bidErr   error
	openErr  error
	closeErr error
	active   *domain.ActiveBid
	status   domain.AuctionStatus
}

func (e *recordingEngine) record(call string) {
	e.mu.Lock()
	e.calls = append(e.calls, call)
	e.mu.Unlock()
}

func (e *recordingEngine) recorded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *recordingEngine) Open(_ context.Context, itemID string, _ domain.Money) error {
	e.record("open:" + itemID)
	return e.openErr
}

func (e *recordingEngine) Bid(_ context.Context, itemID, teamName string) error {
	e.record("bid:" + itemID + ":" + teamName)
	return e.bidErr
}

func (e *recordingEngine) Close(_ context.Context, itemID string) error {
	e.record("close:" + itemID)
	return e.closeErr
}

func (e *recordingEngine) SetCurrentPool(_ context.Context, poolID string) (domain.Pool, error) {
	e.record("setPool:" + poolID)
	return domain.Pool{ID: poolID}, nil
}

func (e *recordingEngine) EndAuction(context.Context) error {
	e.record("endAuction")
	return nil
}

func (e *recordingEngine) ActiveBid() *domain.ActiveBid { return e.active }

func (e *recordingEngine) Status() domain.AuctionStatus { return e.status }

// denyLimiter rejects every bid.
type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, nil
}

type hubHarness struct {
	hub    *Hub
	bus    *memBus
	engine *recordingEngine
	server *httptest.Server
}

func newHubHarness(t *testing.T, engine *recordingEngine, limiter domain.RateLimiter) *hubHarness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := newMemBus()
	hub := NewHub(bus, engine, limiter, Config{BidRateLimit: 20}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(server.Close)

	return &hubHarness{hub: hub, bus: bus, engine: engine, server: server}
}

func (h *hubHarness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev domain.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func waitForSessions(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.SessionCount() == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFanoutReachesEverySession(t *testing.T) {
	h := newHubHarness(t, &recordingEngine{}, nil)

	first := h.dial(t)
	second := h.dial(t)
	waitForSessions(t, h.hub, 2)

	ev := domain.Event{
		Type:    domain.EventBidUpdated,
		Payload: domain.BidSnapshot{ItemID: "i1", Bid: domain.MoneyFromFloat(2.2)},
	}
	data, err := ev.Encode()
	require.NoError(t, err)
	require.NoError(t, h.bus.Publish(context.Background(), domain.ChannelBid, data))

	for _, conn := range []*websocket.Conn{first, second} {
		got := readEvent(t, conn)
		assert.Equal(t, domain.EventBidUpdated, got.Type)
		payload, ok := got.Payload.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "i1", payload["itemId"])
	}
}

func TestInitialStateUnicastOnConnect(t *testing.T) {
	engine := &recordingEngine{
		active: &domain.ActiveBid{
			ItemID: "i1",
			Amount: domain.MoneyFromFloat(4.8),
			Leader: "Lions",
		},
		status: domain.AuctionStatus{Ended: true},
	}
	h := newHubHarness(t, engine, nil)

	conn := h.dial(t)

	got := readEvent(t, conn)
	require.Equal(t, domain.EventBidUpdated, got.Type)
	payload, ok := got.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "i1", payload["itemId"])
	assert.Equal(t, 4.8, payload["bid"])
	assert.Equal(t, "Lions", payload["leader"])

	got = readEvent(t, conn)
	assert.Equal(t, domain.EventAuctionEnded, got.Type)
}

func TestNoInitialStateWhenIdle(t *testing.T) {
	h := newHubHarness(t, &recordingEngine{}, nil)

	conn := h.dial(t)
	waitForSessions(t, h.hub, 1)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestCommandsRouteToEngine(t *testing.T) {
	engine := &recordingEngine{}
	h := newHubHarness(t, engine, nil)

	conn := h.dial(t)
	waitForSessions(t, h.hub, 1)

	frames := []string{
		`{"action":"startBid","itemId":"i1","basePrice":2}`,
		`{"action":"placeBid","itemId":"i1","teamName":"Lions"}`,
		`{"action":"endBid","itemId":"i1"}`,
		`{"action":"setCurrentPool","poolId":"pool-2"}`,
		`{"action":"endAuction"}`,
	}
	for _, frame := range frames {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	}

	require.Eventually(t, func() bool {
		return len(engine.recorded()) == len(frames)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{
		"open:i1",
		"bid:i1:Lions",
		"close:i1",
		"setPool:pool-2",
		"endAuction",
	}, engine.recorded())
}

func TestRejectionIsUnicastNotBroadcast(t *testing.T) {
	engine := &recordingEngine{bidErr: domain.ErrInsufficientFunds}
	h := newHubHarness(t, engine, nil)

	bidder := h.dial(t)
	observer := h.dial(t)
	waitForSessions(t, h.hub, 2)

	frame := `{"action":"placeBid","itemId":"i1","teamName":"Lions"}`
	require.NoError(t, bidder.WriteMessage(websocket.TextMessage, []byte(frame)))

	got := readEvent(t, bidder)
	require.Equal(t, domain.EventError, got.Type)
	payload, ok := got.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "InsufficientFunds", payload["kind"])

	// The observer's stream stays clean.
	require.NoError(t, observer.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := observer.ReadMessage()
	assert.Error(t, err)
}

func TestUnknownActionRejected(t *testing.T) {
	engine := &recordingEngine{}
	h := newHubHarness(t, engine, nil)

	conn := h.dial(t)
	waitForSessions(t, h.hub, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"selfDestruct"}`)))

	got := readEvent(t, conn)
	require.Equal(t, domain.EventError, got.Type)
	assert.Empty(t, engine.recorded())
}

func TestMalformedFrameRejected(t *testing.T) {
	h := newHubHarness(t, &recordingEngine{}, nil)

	conn := h.dial(t)
	waitForSessions(t, h.hub, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{not json`)))

	got := readEvent(t, conn)
	assert.Equal(t, domain.EventError, got.Type)
}

func TestBidThrottleShortCircuitsEngine(t *testing.T) {
	engine := &recordingEngine{}
	h := newHubHarness(t, engine, denyLimiter{})

	conn := h.dial(t)
	waitForSessions(t, h.hub, 1)

	frame := `{"action":"placeBid","itemId":"i1","teamName":"Lions"}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))

	got := readEvent(t, conn)
	require.Equal(t, domain.EventError, got.Type)
	payload, ok := got.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "RateLimited", payload["kind"])
	assert.Empty(t, engine.recorded())

	// Throttling applies to bids only.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"endBid","itemId":"i1"}`)))
	require.Eventually(t, func() bool {
		return len(engine.recorded()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionCountTracksDisconnects(t *testing.T) {
	h := newHubHarness(t, &recordingEngine{}, nil)

	conn := h.dial(t)
	waitForSessions(t, h.hub, 1)

	conn.Close()
	waitForSessions(t, h.hub, 0)
}
