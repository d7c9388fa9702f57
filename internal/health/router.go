package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the admin engine serving the health routes and, when
// metricsHandler is set, the Prometheus endpoint at metricsPath.
func NewRouter(h *Handler, metricsHandler http.Handler, metricsPath string) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	h.RegisterRoutes(engine)
	if metricsHandler != nil && metricsPath != "" {
		engine.GET(metricsPath, gin.WrapH(metricsHandler))
	}

	return engine
}
