package handlers

import (
	"errors"
	"net/http"

	dom "Tempo/internal/domain"

	"github.com/gin-gonic/gin"
)

// writeError maps domain errors to status codes. Unknown errors are 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, dom.ErrAuth):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
	case errors.Is(err, dom.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, dom.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, dom.ErrMutexConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
