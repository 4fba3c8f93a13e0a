package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type CacheAdmin interface {
	Keys() []string
	Delete(sourceID string) bool
}

// AdminHandler serves health and cache inspection routes.
type AdminHandler struct {
	cache  CacheAdmin
	logger *zap.Logger
	now    func() time.Time
}

func NewAdminHandler(cache CacheAdmin, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		cache:  cache,
		logger: logger.With(zap.String("handler", "admin")),
		now:    time.Now,
	}
}

func (h *AdminHandler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/cache_keys", h.CacheKeys)
	e.POST("/admin/delete_cache/:id", h.DeleteCache)
}

func (h *AdminHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"ok":   true,
		"time": h.now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *AdminHandler) CacheKeys(c echo.Context) error {
	keys := h.cache.Keys()
	return c.JSON(http.StatusOK, map[string]any{
		"count": len(keys),
		"keys":  keys,
	})
}

func (h *AdminHandler) DeleteCache(c echo.Context) error {
	id := c.Param("id")
	if !h.cache.Delete(id) {
		return c.JSON(http.StatusOK, map[string]any{"deleted": nil, "msg": "not found"})
	}
	h.logger.Info("deleted cache entry", zap.String("file_id", id))
	return c.JSON(http.StatusOK, map[string]any{"deleted": id})
}
