package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/curricula/api/http/presenter"
	"github.com/artem13815/curricula/pkg/cache"
)

// CacheHandler exposes the administrative cache invalidation endpoints.
// Entries never expire on their own, so this is the only way to drop them.
type CacheHandler struct {
	cache *cache.Cache
}

func NewCacheHandler(c *cache.Cache) *CacheHandler { return &CacheHandler{cache: c} }

// InvalidateAll drops every cache entry.
// @Summary Invalidate the whole result cache
// @Tags    admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 403 {object} presenter.ErrorResponse
// @Router  /admin/cache [delete]
func (h *CacheHandler) InvalidateAll(c *fiber.Ctx) error {
	if !isAdmin(c) {
		return presenter.Error(c, http.StatusForbidden, "admin only")
	}
	if err := h.cache.InvalidateAll(c.Context()); err != nil {
		return presenter.Error(c, http.StatusInternalServerError, err.Error())
	}
	return presenter.JSON(c, http.StatusOK, fiber.Map{"status": "invalidated"})
}

// InvalidateKey drops one cache entry by its exact key.
// @Summary Invalidate one cache entry
// @Tags    admin
// @Produce json
// @Param   key path string true "Cache key"
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 400 {object} presenter.ErrorResponse
// @Failure 401 {object} presenter.ErrorResponse
// @Failure 403 {object} presenter.ErrorResponse
// @Router  /admin/cache/{key} [delete]
func (h *CacheHandler) InvalidateKey(c *fiber.Ctx) error {
	if !isAdmin(c) {
		return presenter.Error(c, http.StatusForbidden, "admin only")
	}
	key := strings.TrimSpace(c.Params("key"))
	if key == "" {
		return presenter.Error(c, http.StatusBadRequest, "empty cache key")
	}
	if err := h.cache.Invalidate(c.Context(), key); err != nil {
		return presenter.Error(c, http.StatusInternalServerError, err.Error())
	}
	return presenter.JSON(c, http.StatusOK, fiber.Map{"status": "invalidated", "key": key})
}

func isAdmin(c *fiber.Ctx) bool {
	flag, _ := c.Locals("isAdmin").(bool)
	return flag
}
