package handler

import (
	"log/slog"
	"net/http"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// StateCoordinator is the read-only slice of the engine serving snapshot
// pulls for reconnecting clients.
type StateCoordinator interface {
	ActiveBid() *domain.ActiveBid
	Status() domain.AuctionStatus
}

// StateHandler serves the auction state snapshot endpoints.
type StateHandler struct {
	engine StateCoordinator
	sold   domain.SoldRecordStore
	logger *slog.Logger
}

// NewStateHandler creates a StateHandler.
func NewStateHandler(engine StateCoordinator, sold domain.SoldRecordStore, logger *slog.Logger) *StateHandler {
	return &StateHandler{
		engine: engine,
		sold:   sold,
		logger: logHandler(logger, "state"),
	}
}

// GetCurrentBid returns the open bid slot, or null when no bid is open.
// GET /api/current-bid
func (h *StateHandler) GetCurrentBid(w http.ResponseWriter, r *http.Request) {
	bid := h.engine.ActiveBid()
	if bid == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	snap := domain.BidSnapshot{ItemID: bid.ItemID, Bid: bid.Amount}
	if bid.Leader != "" {
		leader := bid.Leader
		snap.Leader = &leader
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetAuctionStatus returns whether the auction has ended.
// GET /api/auction-status
func (h *StateHandler) GetAuctionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Status())
}

// ListSoldRecords returns the sale audit trail in sale order.
// GET /api/sold-records
func (h *StateHandler) ListSoldRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.sold.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list sold records failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list sold records")
		return
	}
	writeJSON(w, http.StatusOK, records)
}
