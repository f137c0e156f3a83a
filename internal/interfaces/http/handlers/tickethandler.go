package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"parceldesk/internal/domain/ticket"
	vo "parceldesk/internal/domain/ticket/valueobjects"
	"parceldesk/internal/infrastructure/datastore"
	"parceldesk/internal/infrastructure/realtime"
	"parceldesk/internal/infrastructure/services"
	"parceldesk/internal/shared/logger"
	"parceldesk/internal/shared/query"
)

type TicketHandler struct {
	store   datastore.Store
	numbers *services.TicketNumberGenerator
	hub     *realtime.Hub
	log     logger.Interface
}

func NewTicketHandler(store datastore.Store, numbers *services.TicketNumberGenerator, hub *realtime.Hub, log logger.Interface) *TicketHandler {
	return &TicketHandler{
		store:   store,
		numbers: numbers,
		hub:     hub,
		log:     log.Named("ticket-handler"),
	}
}

// notifyStaff pushes a ticket event to the staff role rooms and nudges
// dashboards to refresh.
func (h *TicketHandler) notifyStaff(eventType string, t *ticket.Ticket) {
	if h.hub == nil {
		return
	}
	env := realtime.NewEnvelope(eventType, toTicketResponse(t))
	h.hub.BroadcastToRoom(realtime.RoomForRole("admin"), env)
	h.hub.BroadcastToRoom(realtime.RoomForRole("agent"), env)
	h.hub.Broadcast(realtime.NewEnvelope(realtime.EventDashboardUpdated, nil))
}

// canViewTicket applies visibility scoping: admins see everything, agents
// only the tickets assigned to them.
func canViewTicket(c *gin.Context, assigneeID *uint) bool {
	if c.GetString("role") == "admin" {
		return true
	}
	authed := authedAccountID(c)
	return authed != nil && assigneeID != nil && *assigneeID == *authed
}

// List translates query parameters into a filter. Comma-separated status and
// priority values become IN predicates.
func (h *TicketHandler) List(c *gin.Context) {
	filter := query.Filter{
		Conditions:     map[string]query.Predicate{},
		Search:         c.Query("search"),
		OrderBy:        c.Query("order_by"),
		OrderDirection: c.Query("order"),
	}

	if v := c.Query("status"); v != "" {
		filter.Conditions["status"] = listPredicate(v)
	}
	if v := c.Query("priority"); v != "" {
		filter.Conditions["priority"] = listPredicate(v)
	}
	if v := c.Query("assignee_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "assignee_id must be an integer"})
			return
		}
		filter.Conditions["assignee_id"] = query.Eq(uint(id))
	}
	if v := c.Query("tracking_ref"); v != "" {
		filter.Conditions["tracking_ref"] = query.Eq(v)
	}

	// agents only see their own assignments, whatever the query says
	if c.GetString("role") != "admin" {
		if authed := authedAccountID(c); authed != nil {
			filter.Conditions["assignee_id"] = query.Eq(*authed)
		}
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

	tickets, err := h.store.ListTickets(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": toTicketResponseList(tickets), "count": len(tickets)})
}

func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	t, err := h.store.GetTicketByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if t == nil || !canViewTicket(c, t.AssigneeID()) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		return
	}
	c.JSON(http.StatusOK, toTicketResponse(t))
}

type createTicketRequest struct {
	Subject         string `json:"subject" binding:"required,max=200"`
	Description     string `json:"description" binding:"max=5000"`
	Priority        string `json:"priority" binding:"required,oneof=low medium high urgent"`
	TrackingRef     string `json:"tracking_ref" binding:"max=64"`
	CustomerContact string `json:"customer_contact" binding:"max=64"`
	AssigneeID      *uint  `json:"assignee_id"`
}

func (h *TicketHandler) Create(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	number, err := h.numbers.Next(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	t, err := ticket.NewTicket(number, req.Subject, req.Description,
		vo.Priority(req.Priority), req.TrackingRef, req.CustomerContact, req.AssigneeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.CreateTicket(c.Request.Context(), t); err != nil {
		respondError(c, err)
		return
	}

	h.log.Infow("ticket created", "number", t.Number(), "priority", t.Priority().String())
	h.notifyStaff(realtime.EventTicketCreated, t)
	c.JSON(http.StatusCreated, toTicketResponse(t))
}

// Patch applies a partial update. The body is a field map validated against
// the ticket's mutable fields.
func (h *TicketHandler) Patch(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var patch query.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return
	}

	t, err := h.store.UpdateTicket(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifyStaff(realtime.EventTicketUpdated, t)
	if t.AssigneeID() != nil {
		if _, assigned := patch["assignee_id"]; assigned && h.hub != nil {
			h.hub.SendToAccount(*t.AssigneeID(), realtime.NewEnvelope(realtime.EventNotification, gin.H{
				"message": "ticket " + t.Number() + " assigned to you",
				"ticket":  toTicketResponse(t),
			}))
		}
	}
	c.JSON(http.StatusOK, toTicketResponse(t))
}

type closeTicketRequest struct {
	Note string `json:"note" binding:"max=2000"`
}

func (h *TicketHandler) Close(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req closeTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := h.store.CloseTicket(c.Request.Context(), id, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	h.log.Infow("ticket closed", "number", t.Number())
	h.notifyStaff(realtime.EventTicketUpdated, t)
	c.JSON(http.StatusOK, toTicketResponse(t))
}

func (h *TicketHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.store.DeleteTicket(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(realtime.NewEnvelope(realtime.EventDashboardUpdated, nil))
	}
	c.Status(http.StatusNoContent)
}

func (h *TicketHandler) ListComments(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	t, err := h.store.GetTicketByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if t == nil || !canViewTicket(c, t.AssigneeID()) {
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		return
	}

	comments, err := h.store.ListComments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, toCommentResponse(comment))
	}
	c.JSON(http.StatusOK, gin.H{"comments": out})
}

type addCommentRequest struct {
	Text     string `json:"text" binding:"required,max=2000"`
	Internal bool   `json:"internal"`
}

func (h *TicketHandler) AddComment(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authorID := authedAccountID(c)
	comment, err := ticket.NewComment(id, authorID, req.Text, req.Internal)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.AddComment(c.Request.Context(), comment); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCommentResponse(comment))
}

// helpers shared by the entity handlers

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// listPredicate turns "open" into an equality match and "open,pending" into
// an IN match.
func listPredicate(raw string) query.Predicate {
	parts := strings.Split(raw, ",")
	if len(parts) == 1 {
		return query.Eq(parts[0])
	}
	values := make([]any, 0, len(parts))
	for _, p := range parts {
		values = append(values, strings.TrimSpace(p))
	}
	return query.In(values...)
}

func authedAccountID(c *gin.Context) *uint {
	if v, ok := c.Get("account_id"); ok {
		if id, ok := v.(uint); ok && id > 0 {
			return &id
		}
	}
	return nil
}
