package handler

import (
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/cricketattax/auctioneer/internal/auction"
	"github.com/cricketattax/auctioneer/internal/domain"
)

// photoPrefix is the blob key prefix for uploaded item photos.
const photoPrefix = "photos/"

// clearLockTTL bounds how long the admin clear lock may be held.
const clearLockTTL = 30 * time.Second

// maxUploadSize caps a single pool upload (all photos included).
const maxUploadSize = 64 << 20

// imageContentTypes maps accepted photo extensions to their content type.
// Files with any other extension are skipped, matching the image filter of
// the upload endpoint.
var imageContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// PoolCoordinator is the slice of the engine the pool handler drives.
type PoolCoordinator interface {
	SetCurrentPool(ctx context.Context, poolID string) (domain.Pool, error)
	ActiveBid() *domain.ActiveBid
	Reset(ctx context.Context) error
	Broadcaster() *auction.Broadcaster
}

// PoolCatalog is the in-memory inventory surface: the resolved active pool
// and the reset hook used by the clear endpoints.
type PoolCatalog interface {
	ActivePool() *domain.Pool
	Reset()
}

// PoolHandler serves pool upload, listing, selection, and the destructive
// admin clears. Photo storage is optional; with a nil writer uploads carry
// no photos and clears skip the blob purge.
type PoolHandler struct {
	pools     domain.PoolStore
	teams     domain.TeamStore
	sold      domain.SoldRecordStore
	state     domain.StateStore
	engine    PoolCoordinator
	catalog   PoolCatalog
	writer    domain.BlobWriter
	deleter   domain.BlobDeleter
	locks     domain.LockManager
	basePrice domain.Money
	logger    *slog.Logger
}

// PoolHandlerDeps bundles the pool handler's collaborators.
type PoolHandlerDeps struct {
	Pools     domain.PoolStore
	Teams     domain.TeamStore
	Sold      domain.SoldRecordStore
	State     domain.StateStore
	Engine    PoolCoordinator
	Catalog   PoolCatalog
	Writer    domain.BlobWriter
	Deleter   domain.BlobDeleter
	Locks     domain.LockManager
	BasePrice domain.Money
	Logger    *slog.Logger
}

// NewPoolHandler creates a PoolHandler.
func NewPoolHandler(d PoolHandlerDeps) *PoolHandler {
	return &PoolHandler{
		pools:     d.Pools,
		teams:     d.Teams,
		sold:      d.Sold,
		state:     d.State,
		engine:    d.Engine,
		catalog:   d.Catalog,
		writer:    d.Writer,
		deleter:   d.Deleter,
		locks:     d.Locks,
		basePrice: d.BasePrice,
		logger:    logHandler(d.Logger, "pool"),
	}
}

// ListPools returns every pool with its items in upload order.
// GET /api/pools
func (h *PoolHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	pools, err := h.pools.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list pools failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list pools")
		return
	}
	writeJSON(w, http.StatusOK, pools)
}

// ListItems returns every item across all pools.
// GET /api/items
func (h *PoolHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.pools.ListItems(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list items failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// UploadPool creates a pool from a multipart form: a "name" field and one
// image file per item under "photos". Item names derive from the filenames;
// non-image files are skipped.
// POST /api/upload-pool
func (h *PoolHandler) UploadPool(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing pool name")
		return
	}
	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no photos uploaded")
		return
	}

	pool := domain.Pool{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	for _, fh := range files {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		contentType, ok := imageContentTypes[ext]
		if !ok {
			h.logger.WarnContext(r.Context(), "skipping non-image upload",
				slog.String("filename", fh.Filename),
			)
			continue
		}

		item := domain.Item{
			ID:        uuid.New().String(),
			PoolID:    pool.ID,
			Name:      itemNameFromFilename(fh.Filename),
			BasePrice: h.basePrice,
		}
		if h.writer != nil {
			key := photoPrefix + pool.ID + "/" + item.ID + ext
			if err := h.uploadPhoto(r.Context(), fh, key, contentType); err != nil {
				h.logger.ErrorContext(r.Context(), "photo upload failed",
					slog.String("filename", fh.Filename),
					slog.String("error", err.Error()),
				)
				writeError(w, http.StatusInternalServerError, "photo upload failed")
				return
			}
			item.Photo = key
		}
		pool.Items = append(pool.Items, item)
	}
	if len(pool.Items) == 0 {
		writeError(w, http.StatusBadRequest, "no image files in upload")
		return
	}

	if err := h.pools.Create(r.Context(), pool); err != nil {
		h.logger.ErrorContext(r.Context(), "create pool failed",
			slog.String("pool", name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create pool")
		return
	}

	h.broadcastPools(r.Context())
	h.logger.InfoContext(r.Context(), "pool uploaded",
		slog.String("pool_id", pool.ID),
		slog.String("pool", name),
		slog.Int("items", len(pool.Items)),
	)
	writeJSON(w, http.StatusCreated, pool)
}

// setCurrentPoolRequest is the payload for pool selection.
type setCurrentPoolRequest struct {
	PoolID string `json:"poolId" validate:"required,uuid4"`
}

// SetCurrentPool switches the active pool. Rejected while a bid is open.
// POST /api/set-current-pool
func (h *PoolHandler) SetCurrentPool(w http.ResponseWriter, r *http.Request) {
	var req setCurrentPoolRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pool, err := h.engine.SetCurrentPool(r.Context(), req.PoolID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "set current pool failed",
			slog.String("pool_id", req.PoolID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

// GetCurrentPool returns the active pool, or null when none is selected.
// GET /api/current-pool
func (h *PoolHandler) GetCurrentPool(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.ActivePool())
}

// ClearPools removes every pool, its items, and their stored photos. The
// active-pool pointer is unset. Rejected while a bid is open.
// POST /api/clear-pools
func (h *PoolHandler) ClearPools(w http.ResponseWriter, r *http.Request) {
	unlock, err := h.locks.Acquire(r.Context(), "admin:clear", clearLockTTL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer unlock()

	if h.engine.ActiveBid() != nil {
		writeDomainError(w, domain.ErrBidAlreadyOpen)
		return
	}

	h.purgePhotos(r.Context())
	if err := h.pools.DeleteAll(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "clear pools failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to clear pools")
		return
	}
	if err := h.state.ClearCurrentPool(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "clear current pool failed",
			slog.String("error", err.Error()),
		)
	}
	h.catalog.Reset()

	h.engine.Broadcaster().Publish(r.Context(), domain.ChannelPools, domain.Event{
		Type: domain.EventPoolsCleared,
	})
	h.logger.InfoContext(r.Context(), "pools cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ClearAllData purges teams, pools, sale records, stored photos, and the
// auction state. The auction returns to its initial idle state.
// POST /api/clear-all-data
func (h *PoolHandler) ClearAllData(w http.ResponseWriter, r *http.Request) {
	unlock, err := h.locks.Acquire(r.Context(), "admin:clear", clearLockTTL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer unlock()

	ctx := r.Context()
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"sold records", h.sold.DeleteAll},
		{"teams", h.teams.DeleteAll},
		{"pools", h.pools.DeleteAll},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			h.logger.ErrorContext(ctx, "clear all data failed",
				slog.String("step", step.name),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to clear "+step.name)
			return
		}
	}
	h.purgePhotos(ctx)

	if err := h.engine.Reset(ctx); err != nil {
		h.logger.ErrorContext(ctx, "engine reset failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to reset auction state")
		return
	}

	h.engine.Broadcaster().Publish(ctx, domain.ChannelStatus, domain.Event{
		Type: domain.EventAllDataCleared,
	})
	h.logger.InfoContext(ctx, "all data cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// uploadPhoto streams one multipart file to the blob store.
func (h *PoolHandler) uploadPhoto(ctx context.Context, fh *multipart.FileHeader, key, contentType string) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	return h.writer.Put(ctx, key, f, contentType)
}

// purgePhotos deletes all stored photos. Blob failures are logged, not
// fatal: rows win over orphaned objects.
func (h *PoolHandler) purgePhotos(ctx context.Context) {
	if h.deleter == nil {
		return
	}
	n, err := h.deleter.DeletePrefix(ctx, photoPrefix)
	if err != nil {
		h.logger.ErrorContext(ctx, "photo purge failed",
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.InfoContext(ctx, "photos purged", slog.Int("count", n))
}

// broadcastPools publishes the refreshed pool list.
func (h *PoolHandler) broadcastPools(ctx context.Context) {
	pools, err := h.pools.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "pool list for broadcast failed",
			slog.String("error", err.Error()),
		)
		return
	}
	h.engine.Broadcaster().Publish(ctx, domain.ChannelPools, domain.Event{
		Type:    domain.EventPoolUpdate,
		Payload: pools,
	})
}

// itemNameFromFilename turns "ViratKohli.jpg" into "Virat Kohli": the
// extension is dropped, camel-case boundaries and separators become spaces.
func itemNameFromFilename(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)

	var b strings.Builder
	var prev rune
	for i, r := range base {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(prev) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
