// internal/web/favicon.go
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Status tiles icon.
const faviconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 32 32" width="32" height="32">
  <rect width="32" height="32" rx="6" fill="#111827"/>
  <rect x="4" y="6" width="7" height="20" rx="2" fill="#22c55e"/>
  <rect x="12.5" y="6" width="7" height="20" rx="2" fill="#eab308"/>
  <rect x="21" y="6" width="7" height="20" rx="2" fill="#ef4444"/>
</svg>`

func (s *Server) serveFavicon(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/svg+xml", []byte(faviconSVG))
}
