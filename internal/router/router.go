// Package router assembles the coordinator's HTTP surface.
package router

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/srdtrk/nft-ica/internal/config"
	"github.com/srdtrk/nft-ica/internal/handlers"
	"github.com/srdtrk/nft-ica/internal/middleware"
	"github.com/srdtrk/nft-ica/internal/push"
	"github.com/srdtrk/nft-ica/internal/services"
)

// New builds the gin engine with all routes wired.
func New(
	cfg *config.Config,
	svc *services.CoordinatorService,
	pushSvc *push.Service,
	logger *logrus.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	r.Use(corsMiddleware(cfg.CORS))

	execute := handlers.NewExecuteHandler(svc, logger)
	query := handlers.NewQueryHandler(svc, logger)
	auth := middleware.NewAuthMiddleware(cfg.Auth, logger)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": services.ContractName})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		// Execute surface. Callbacks and instantiation are delivered by
		// the host/operator, not token owners, and carry no JWT.
		v1.POST("/instantiate", auth.RequireAuth(), execute.InstantiateHandler)
		v1.POST("/callbacks", execute.CallbackHandler)

		authed := v1.Group("", auth.RequireAuth())
		{
			authed.POST("/execute/mint", execute.RequestMintHandler)
			authed.POST("/execute/command", execute.SendCommandHandler)
			authed.POST("/execute/owner", execute.UpdateOwnerHandler)
		}

		// Query surface, public.
		v1.GET("/config", query.GetConfigHandler)
		v1.GET("/owner", query.GetOwnerHandler)
		v1.GET("/bimap/:key", query.LookupBimapHandler)
		v1.GET("/tokens/:token_id/remote-address", query.GetRemoteAddressHandler)
		v1.POST("/tokens/remote-addresses", query.GetRemoteAddressesHandler)
		v1.GET("/tokens/:token_id/history", query.GetHistoryHandler)
		v1.GET("/tokens/:token_id/channel", query.GetChannelStatusHandler)
		v1.GET("/mint-queue", query.GetMintQueueHandler)
	}

	r.GET("/ws/tokens/:token_id", pushSvc.HandleWS)

	return r
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics" {
			return
		}
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("request handled")
	}
}

func corsMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowed := cfg.AllowedOrigins
	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = 3600
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		switch {
		case len(allowed) == 0:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "":
			for _, o := range allowed {
				if strings.TrimSpace(o) == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					c.Header("Vary", "Origin")
					break
				}
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
