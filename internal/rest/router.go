package rest

import (
	"net/http"
	"time"

	croncontroller "github.com/channelgate/channelgate/internal/api/cron"
	"github.com/channelgate/channelgate/internal/config"
	"github.com/channelgate/channelgate/internal/logger"
	"github.com/channelgate/channelgate/internal/rest/middleware"
	"github.com/channelgate/channelgate/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// NewRouter builds the ops HTTP surface: a health check and the cron
// trigger endpoints. The bot itself does not go through HTTP.
func NewRouter(
	cfg *config.Configuration,
	db *sqlx.DB,
	cronHandler *croncontroller.SubscriptionCronHandler,
	log *logger.Logger,
) *gin.Engine {
	if cfg.Logging.Level != types.LogLevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware(log))

	startedAt := time.Now().UTC()

	router.GET("/health", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(startedAt).String(),
		})
	})

	cron := router.Group("/cron")
	cron.POST("/reconcile", cronHandler.TriggerReconcile)

	return router
}
