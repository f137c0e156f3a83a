package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"parceldesk/internal/infrastructure/auth"
	"parceldesk/internal/infrastructure/datastore"
	"parceldesk/internal/infrastructure/realtime"
	"parceldesk/internal/infrastructure/services"
	sharedconfig "parceldesk/internal/shared/config"
	"parceldesk/internal/shared/logger"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewLogger()
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	tokens := auth.NewJWTService("test-secret")

	fixture := datastore.NewFixtureStore(log)
	require.NoError(t, datastore.SeedDemoData(context.Background(), fixture, hasher, log))

	store := datastore.NewCachedStore(fixture, datastore.NewMemoryCache(time.Minute), log)
	hub := realtime.NewHub(sharedconfig.RealtimeConfig{
		SendBufferSize:      8,
		MaxConnsPerAccount:  4,
		PingIntervalSeconds: 30,
	}, store, tokens, log)

	return NewRouter(RouterDeps{
		Store:     store,
		Hub:       hub,
		Tokens:    tokens,
		Hasher:    hasher,
		Numbers:   services.NewTicketNumberGenerator(store),
		ServerCfg: sharedconfig.ServerConfig{Mode: gin.TestMode},
		Log:       log,
	})
}

func doJSON(engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, engine *gin.Engine, email string) string {
	t.Helper()
	w := doJSON(engine, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    email,
		"password": "admin123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthz(t *testing.T) {
	engine := newTestRouter(t)

	w := doJSON(engine, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp["status"])
	require.Equal(t, "fixture", resp["backend"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	engine := newTestRouter(t)

	w := doJSON(engine, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "admin@parceldesk.local",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoutesRequireAuth(t *testing.T) {
	engine := newTestRouter(t)

	w := doJSON(engine, http.MethodGet, "/api/v1/tickets", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAgentCannotUseAdminRoutes(t *testing.T) {
	engine := newTestRouter(t)
	token := login(t, engine, "agent@parceldesk.local")

	w := doJSON(engine, http.MethodDelete, "/api/v1/tickets/1", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestTicketLifecycle(t *testing.T) {
	engine := newTestRouter(t)
	token := login(t, engine, "admin@parceldesk.local")

	// create
	w := doJSON(engine, http.MethodPost, "/api/v1/tickets", token, gin.H{
		"subject":      "Lost parcel at depot",
		"description":  "Scanned in but never scanned out.",
		"priority":     "high",
		"tracking_ref": "PK900119999",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID     uint    `json:"id"`
		Number string  `json:"number"`
		Status string  `json:"status"`
		Closed *string `json:"closed_at"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "open", created.Status)
	require.Regexp(t, `^T-\d{8}-\d{4}$`, created.Number)
	require.Nil(t, created.Closed)

	base := fmt.Sprintf("/api/v1/tickets/%d", created.ID)

	// patch to pending
	w = doJSON(engine, http.MethodPatch, base, token, gin.H{"status": "pending"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// close with a note
	w = doJSON(engine, http.MethodPost, base+"/close", token, gin.H{"note": "refund issued"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var closed struct {
		Status string  `json:"status"`
		Closed *string `json:"closed_at"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &closed))
	require.Equal(t, "closed", closed.Status)
	require.NotNil(t, closed.Closed)

	// the close note lands as a system comment
	w = doJSON(engine, http.MethodGet, base+"/comments", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var comments struct {
		Comments []struct {
			Text     string `json:"text"`
			Internal bool   `json:"internal"`
		} `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comments))
	require.Len(t, comments.Comments, 1)
	require.Equal(t, "Ticket closed: refund issued", comments.Comments[0].Text)
	require.True(t, comments.Comments[0].Internal)

	// closing twice is a validation error
	w = doJSON(engine, http.MethodPost, base+"/close", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTicketListFilters(t *testing.T) {
	engine := newTestRouter(t)
	token := login(t, engine, "admin@parceldesk.local")

	w := doJSON(engine, http.MethodGet, "/api/v1/tickets?status=closed", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count   int `json:"count"`
		Tickets []struct {
			Status string `json:"status"`
		} `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	require.Equal(t, "closed", resp.Tickets[0].Status)

	// unknown filter field is rejected
	w = doJSON(engine, http.MethodGet, "/api/v1/tickets?order_by=nope", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAgentSeesOnlyAssignedTickets(t *testing.T) {
	engine := newTestRouter(t)
	agentToken := login(t, engine, "agent@parceldesk.local")
	adminToken := login(t, engine, "admin@parceldesk.local")

	// the seeded agent holds 3 of the 5 tickets
	w := doJSON(engine, http.MethodGet, "/api/v1/tickets", agentToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count   int `json:"count"`
		Tickets []struct {
			ID         uint  `json:"id"`
			AssigneeID *uint `json:"assignee_id"`
		} `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Count)
	for _, tk := range resp.Tickets {
		require.NotNil(t, tk.AssigneeID)
	}

	// an unassigned ticket is invisible to the agent but not to the admin
	w = doJSON(engine, http.MethodGet, "/api/v1/tickets/3", agentToken, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(engine, http.MethodGet, "/api/v1/tickets/3", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestDashboardStats(t *testing.T) {
	engine := newTestRouter(t)
	token := login(t, engine, "agent@parceldesk.local")

	w := doJSON(engine, http.MethodGet, "/api/v1/dashboard/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		Tickets struct {
			Total int `json:"total_tickets"`
			Open  int `json:"open_tickets"`
		} `json:"tickets"`
		Broadcasts struct {
			Total  int `json:"total_broadcasts"`
			Failed int `json:"failed_broadcasts"`
		} `json:"broadcasts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Equal(t, 5, stats.Tickets.Total)
	require.Equal(t, 4, stats.Tickets.Open)
	require.Equal(t, 5, stats.Broadcasts.Total)
	require.Equal(t, 2, stats.Broadcasts.Failed)
}

func TestBroadcastListAndPatch(t *testing.T) {
	engine := newTestRouter(t)
	adminToken := login(t, engine, "admin@parceldesk.local")

	w := doJSON(engine, http.MethodGet, "/api/v1/broadcasts?status=failed", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count      int `json:"count"`
		Broadcasts []struct {
			ID     uint   `json:"id"`
			Status string `json:"status"`
		} `json:"broadcasts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)

	// operator reconciles a failed delivery back to success
	id := resp.Broadcasts[0].ID
	w = doJSON(engine, http.MethodPatch, fmt.Sprintf("/api/v1/broadcasts/%d", id), adminToken, gin.H{
		"status":       "success",
		"error_detail": "",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var patched struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &patched))
	require.Equal(t, "success", patched.Status)
}

func TestRawQueryUnsupportedOnFixture(t *testing.T) {
	engine := newTestRouter(t)
	token := login(t, engine, "admin@parceldesk.local")

	w := doJSON(engine, http.MethodPost, "/api/v1/admin/query", token, gin.H{
		"sql": "SELECT * FROM tickets",
	})
	require.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestAccountManagement(t *testing.T) {
	engine := newTestRouter(t)
	adminToken := login(t, engine, "admin@parceldesk.local")

	w := doJSON(engine, http.MethodPost, "/api/v1/accounts", adminToken, gin.H{
		"display_name": "New Agent",
		"email":        "new.agent@parceldesk.local",
		"password":     "s3cret-pass",
		"role":         "agent",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID     uint   `json:"id"`
		Active bool   `json:"active"`
		Role   string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.True(t, created.Active)
	require.Equal(t, "agent", created.Role)

	// deactivate
	w = doJSON(engine, http.MethodPatch, fmt.Sprintf("/api/v1/accounts/%d", created.ID), adminToken, gin.H{
		"active": false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var patched struct {
		Active bool `json:"active"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &patched))
	require.False(t, patched.Active)

	// deactivated accounts cannot log in
	wLogin := doJSON(engine, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "new.agent@parceldesk.local",
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusUnauthorized, wLogin.Code)
}
