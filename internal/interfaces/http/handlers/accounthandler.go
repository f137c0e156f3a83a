package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parceldesk/internal/domain/account"
	"parceldesk/internal/infrastructure/auth"
	"parceldesk/internal/infrastructure/datastore"
	"parceldesk/internal/shared/logger"
	"parceldesk/internal/shared/query"
)

type AccountHandler struct {
	store  datastore.Store
	hasher *auth.BcryptHasher
	log    logger.Interface
}

func NewAccountHandler(store datastore.Store, hasher *auth.BcryptHasher, log logger.Interface) *AccountHandler {
	return &AccountHandler{
		store:  store,
		hasher: hasher,
		log:    log.Named("account-handler"),
	}
}

func (h *AccountHandler) List(c *gin.Context) {
	filter := query.Filter{
		Conditions: map[string]query.Predicate{},
		Search:     c.Query("search"),
	}
	if v := c.Query("role"); v != "" {
		filter.Conditions["role"] = query.Eq(v)
	}
	if v := c.Query("active"); v != "" {
		filter.Conditions["active"] = query.Eq(v == "true")
	}

	accounts, err := h.store.ListAccounts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out})
}

type createAccountRequest struct {
	DisplayName string `json:"display_name" binding:"required,max=100"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role" binding:"required,oneof=admin agent"`
}

func (h *AccountHandler) Create(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	acct, err := account.NewAccount(req.DisplayName, req.Email, hash, account.Role(req.Role))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.CreateAccount(c.Request.Context(), acct); err != nil {
		respondError(c, err)
		return
	}

	h.log.Infow("account created", "email", acct.Email(), "role", acct.Role().String())
	c.JSON(http.StatusCreated, toAccountResponse(acct))
}

// Patch updates display name, role or active flag.
func (h *AccountHandler) Patch(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	var patch query.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return
	}

	acct, err := h.store.UpdateAccount(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(acct))
}

// Delete removes an account. The store rejects deletion while tickets still
// reference the account.
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.store.DeleteAccount(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
