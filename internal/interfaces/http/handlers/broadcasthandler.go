package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parceldesk/internal/infrastructure/datastore"
	"parceldesk/internal/infrastructure/realtime"
	"parceldesk/internal/shared/biztime"
	"parceldesk/internal/shared/logger"
	"parceldesk/internal/shared/query"
)

type BroadcastHandler struct {
	store datastore.Store
	hub   *realtime.Hub
	log   logger.Interface
}

func NewBroadcastHandler(store datastore.Store, hub *realtime.Hub, log logger.Interface) *BroadcastHandler {
	return &BroadcastHandler{
		store: store,
		hub:   hub,
		log:   log.Named("broadcast-handler"),
	}
}

// List filters notification delivery records. Supports status, channel,
// recipient search and a today=true shortcut for the dashboard drill-down.
func (h *BroadcastHandler) List(c *gin.Context) {
	filter := query.Filter{
		Conditions:     map[string]query.Predicate{},
		Search:         c.Query("search"),
		OrderBy:        c.Query("order_by"),
		OrderDirection: c.Query("order"),
	}

	if v := c.Query("status"); v != "" {
		filter.Conditions["status"] = listPredicate(v)
	}
	if v := c.Query("channel"); v != "" {
		filter.Conditions["channel"] = listPredicate(v)
	}
	if v := c.Query("tracking_ref"); v != "" {
		filter.Conditions["tracking_ref"] = query.Eq(v)
	}
	if c.Query("today") == "true" {
		filter.Conditions["sent_at"] = query.GTE(biztime.StartOfDayUTC(biztime.NowUTC()))
	}
	if v := c.Query("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC3339 timestamp"})
			return
		}
		filter.Conditions["sent_at"] = query.GTE(since)
	}

	var err error
	if filter.Limit, err = intQuery(c, "limit", 0); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return
	}
	if filter.Offset, err = intQuery(c, "offset", 0); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be an integer"})
		return
	}

	logs, err := h.store.ListBroadcasts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"broadcasts": toBroadcastResponseList(logs), "count": len(logs)})
}

func (h *BroadcastHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	l, err := h.store.GetBroadcastByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if l == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "broadcast log not found"})
		return
	}
	c.JSON(http.StatusOK, toBroadcastResponse(l))
}

// Patch lets operators reconcile a delivery record, e.g. marking a stuck
// pending entry failed after checking with the provider.
func (h *BroadcastHandler) Patch(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var patch query.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return
	}

	l, err := h.store.UpdateBroadcast(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToRoom(realtime.RoomForRole("admin"),
			realtime.NewEnvelope(realtime.EventBroadcastUpdated, toBroadcastResponse(l)))
		h.hub.Broadcast(realtime.NewEnvelope(realtime.EventDashboardUpdated, nil))
	}
	c.JSON(http.StatusOK, toBroadcastResponse(l))
}
