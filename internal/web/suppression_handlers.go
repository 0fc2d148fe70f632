// internal/web/suppression_handlers.go - Operator suppression endpoints
package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"sonarboard/internal/suppression"
)

// GET /api/suppressions
func (s *Server) listSuppressions(c *gin.Context) {
	s.respondSuppressions(c)
}

// PUT /api/suppressions/:id
func (s *Server) suppressAccount(c *gin.Context) {
	id := c.Param("id")
	err := s.suppressions.Suppress(c.Request.Context(), id)
	if s.metrics != nil {
		s.metrics.RecordSuppression("suppress", err)
	}
	if err != nil {
		s.suppressionFailed(c, "suppress", id, err)
		return
	}
	s.respondSuppressions(c)
}

// DELETE /api/suppressions/:id
func (s *Server) unsuppressAccount(c *gin.Context) {
	id := c.Param("id")
	err := s.suppressions.Unsuppress(c.Request.Context(), id)
	if s.metrics != nil {
		s.metrics.RecordSuppression("unsuppress", err)
	}
	if err != nil {
		s.suppressionFailed(c, "unsuppress", id, err)
		return
	}
	s.respondSuppressions(c)
}

func (s *Server) respondSuppressions(c *gin.Context) {
	accounts := s.suppressions.List()
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"accounts": accounts,
		"count":    len(accounts),
	})
}

func (s *Server) suppressionFailed(c *gin.Context, op, id string, err error) {
	if errors.Is(err, suppression.ErrInvalidID) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	logrus.WithError(err).WithFields(logrus.Fields{
		"operation":  op,
		"account_id": id,
		"request_id": c.GetString("request_id"),
	}).Error("Suppression update failed")
	c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Failed to save suppressions"})
}
