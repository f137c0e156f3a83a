package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parceldesk/internal/infrastructure/datastore"
	"parceldesk/internal/shared/logger"
)

type DashboardHandler struct {
	store datastore.Store
	log   logger.Interface
}

func NewDashboardHandler(store datastore.Store, log logger.Interface) *DashboardHandler {
	return &DashboardHandler{
		store: store,
		log:   log.Named("dashboard-handler"),
	}
}

// Stats serves the landing-page aggregate counters.
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.store.DashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
