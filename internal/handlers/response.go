package handlers

import (
  "errors"
  "net/http"
  "github.com/gin-gonic/gin"
  "github.com/smartblood-kerala/smartblood-backend/internal/services"
)

// respondError maps service error kinds onto HTTP status codes. Internal
// details stay in the logs, not in responses.
func respondError(c *gin.Context, err error) {
  switch {
  case errors.Is(err, services.ErrValidation):
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
  case errors.Is(err, services.ErrForbidden):
    c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
  case errors.Is(err, services.ErrNotFound):
    c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
  default:
    c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
  }
}
