package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// PhotoHandler streams stored item photos back to the web client.
type PhotoHandler struct {
	reader domain.BlobReader
	logger *slog.Logger
}

// NewPhotoHandler creates a PhotoHandler over the given blob reader.
func NewPhotoHandler(reader domain.BlobReader, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{
		reader: reader,
		logger: logHandler(logger, "photo"),
	}
}

// GetPhoto serves one stored photo by its blob key.
// GET /api/photos/{key...}
func (h *PhotoHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")
	if key == "" || strings.Contains(key, "..") {
		writeError(w, http.StatusBadRequest, "invalid photo key")
		return
	}

	body, err := h.reader.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "photo not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "photo fetch failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to fetch photo")
		return
	}
	defer body.Close()

	contentType := imageContentTypes[strings.ToLower(filepath.Ext(key))]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "photo stream interrupted",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
