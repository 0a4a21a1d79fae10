package storage

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/middleware"
)

// MediaHandler serves objects held by a local AferoStore.
type MediaHandler struct {
	store *AferoStore
}

// NewMediaHandler creates a handler over store.
func NewMediaHandler(store *AferoStore) *MediaHandler {
	return &MediaHandler{store: store}
}

// Serve streams the object named by the wildcard path parameter.
func (h *MediaHandler) Serve(c echo.Context) error {
	ctx := c.Request().Context()
	logger := middleware.FromContext(ctx)

	key := strings.TrimPrefix(c.Param("*"), "/")
	if checkKey(key) != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid media path")
	}

	f, err := h.store.Open(ctx, key)
	if err != nil {
		if os.IsNotExist(err) {
			return echo.NewHTTPError(http.StatusNotFound, "media not found")
		}
		logger.Error("Failed to open media", slog.String("key", key), slog.String("error", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not read media")
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		logger.Error("Failed to sniff media type", slog.String("key", key), slog.String("error", err.Error()))
		return echo.NewHTTPError(http.StatusInternalServerError, "could not read media")
	}
	if _, err := f.Seek(0, 0); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not read media")
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Stream(http.StatusOK, mtype.String(), f)
}
