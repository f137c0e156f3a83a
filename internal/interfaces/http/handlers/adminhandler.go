package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parceldesk/internal/infrastructure/datastore"
	"parceldesk/internal/shared/logger"
)

// AdminHandler exposes operator endpoints: backend introspection, cache
// control and ad-hoc read-only queries on backends that support raw SQL.
type AdminHandler struct {
	store *datastore.CachedStore
	log   logger.Interface
}

func NewAdminHandler(store *datastore.CachedStore, log logger.Interface) *AdminHandler {
	return &AdminHandler{
		store: store,
		log:   log.Named("admin-handler"),
	}
}

// Backend reports which store kind is active and whether it is healthy.
func (h *AdminHandler) Backend(c *gin.Context) {
	healthy := h.store.HealthCheck(c.Request.Context()) == nil
	c.JSON(http.StatusOK, gin.H{
		"backend": string(h.store.Kind()),
		"healthy": healthy,
	})
}

func (h *AdminHandler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.CacheStats(c.Request.Context()))
}

func (h *AdminHandler) ClearCache(c *gin.Context) {
	h.store.ClearCache(c.Request.Context())
	h.log.Infow("cache cleared by operator")
	c.Status(http.StatusNoContent)
}

type rawQueryRequest struct {
	SQL  string `json:"sql" binding:"required"`
	Args []any  `json:"args"`
}

// RawQuery runs a parameterized SELECT against the active backend. Backends
// without raw SQL support answer 501.
func (h *AdminHandler) RawQuery(c *gin.Context) {
	var req rawQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sql is required"})
		return
	}

	rows, err := h.store.RawQuery(c.Request.Context(), req.SQL, req.Args...)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
}
