// Package handlers implements the dashboard REST API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parceldesk/internal/shared/errors"
)

// respondError maps application errors onto HTTP responses; anything that is
// not an AppError becomes a 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	if appErr := errors.GetAppError(err); appErr != nil {
		c.JSON(appErr.Code, gin.H{"error": appErr.Message, "type": string(appErr.Type)})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
