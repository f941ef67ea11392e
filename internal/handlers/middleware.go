package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ctxOperatorID is the gin context key holding the authenticated operator id.
const ctxOperatorID = "operatorId"

const (
	errMissingAuth   = "missing Authorization header"
	errMalformedAuth = "invalid Authorization header format"
	errRejectedToken = "invalid or expired token"
)

// requireOperator rejects requests without a valid bearer token and stores
// the operator id for downstream handlers.
func (h *Handler) requireOperator(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMissingAuth})
		return
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMalformedAuth})
		return
	}

	operatorID, err := h.services.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Debugw("auth_token_rejected", "path", c.FullPath(), "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errRejectedToken})
		return
	}

	c.Set(ctxOperatorID, operatorID)
	c.Next()
}
