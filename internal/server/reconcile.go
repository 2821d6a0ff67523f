package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TriggerReconcile runs one full reconcile pass on demand. The pass is
// idempotent, so an overlap with the background loop is harmless.
func (s *Server) TriggerReconcile(c *gin.Context) {
	if err := s.reconciler.RunOnce(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"ok": true}})
}
