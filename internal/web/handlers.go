// internal/web/handlers.go
package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"sonarboard/internal/monitoring"
)

// Read endpoints always answer 200; failures are reported in the body.

func (s *Server) getStatusSummary(c *gin.Context) {
	result := s.status.EquipmentSummary(c.Request.Context())
	if !result.OK {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"error":      result.Error,
		}).Warn("Serving error status summary")
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getDownCustomers(c *gin.Context) {
	s.respondAccounts(c, monitoring.StatusDown)
}

func (s *Server) getWarningCustomers(c *gin.Context) {
	s.respondAccounts(c, monitoring.StatusWarning)
}

func (s *Server) respondAccounts(c *gin.Context, status monitoring.AccountStatus) {
	result := s.status.AccountsByStatus(c.Request.Context(), status)
	if !result.OK {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"status":     status,
			"error":      result.Error,
		}).Warn("Serving error account listing")
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) apiHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":                true,
		"status":            "healthy",
		"timestamp":         time.Now(),
		"version":           Version,
		"websocket_clients": s.hub.Len(),
	})
}
