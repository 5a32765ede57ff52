package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/payrail/internal/observability/context"
	"github.com/smallbiznis/payrail/pkg/db"
	"go.uber.org/zap"
)

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": s.cfg.AppName,
	})
}

// HealthDB answers 503 when the database cannot run a trivial query.
func (s *Server) HealthDB(c *gin.Context) {
	if err := db.Ping(c.Request.Context(), s.db); err != nil {
		s.log.Error("database health check failed",
			zap.String("request_id", obscontext.RequestIDFromGin(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
			"service":  s.cfg.AppName,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
		"service":  s.cfg.AppName,
	})
}
