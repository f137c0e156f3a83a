package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parceldesk/internal/infrastructure/auth"
	"parceldesk/internal/infrastructure/datastore"
	"parceldesk/internal/shared/logger"
)

type AuthHandler struct {
	store  datastore.Store
	hasher *auth.BcryptHasher
	tokens *auth.JWTService
	log    logger.Interface
}

func NewAuthHandler(store datastore.Store, hasher *auth.BcryptHasher, tokens *auth.JWTService, log logger.Interface) *AuthHandler {
	return &AuthHandler{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		log:    log.Named("auth-handler"),
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login issues an access token for valid staff credentials.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	acct, err := h.store.GetAccountByEmail(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	if acct == nil || !acct.IsActive() || !h.hasher.Compare(acct.CredentialHash(), req.Password) {
		h.log.Warnw("failed login attempt", "email", req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.tokens.Generate(acct.ID(), acct.Role().String())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"account": toAccountResponse(acct),
	})
}
