package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)
	r.GET("/feeds", handler.GetFeed)
	r.GET("/feeds/:sector", handler.GetFeed)

	read := r.Group("/api")
	{
		read.GET("/articles", handler.APIListArticles)
		read.GET("/articles/:id", handler.APIGetArticle)
		read.GET("/dashboard", handler.APIGetDashboard)
		read.GET("/sectors", handler.APIListSectors)
	}

	write := r.Group("/api")
	if apiAccessKey != "" {
		write.Use(authMiddleware(apiAccessKey))
		slog.Info("Mutating API endpoints require authentication")
	} else {
		slog.Warn("Mutating API endpoints are open (API_ACCESS_KEY not set)")
	}
	{
		write.POST("/ingest", handler.APIIngest)
		write.POST("/claims/verify", handler.APIVerifyClaim)
		write.POST("/articles/:id/feedback", handler.APISubmitFeedback)
	}

	r.GET("/", func(c *gin.Context) {
		suffix := ""
		if apiAccessKey != "" {
			suffix = " (requires X-API-Key header)"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "Veritas",
			"version":     "1.0.0",
			"description": "News ingestion with image and claim verification",
			"endpoints": map[string]string{
				"health":    "/health",
				"feed":      "/feeds/<sector>",
				"articles":  "/api/articles?sector=<sector>&limit=<n>",
				"article":   "/api/articles/<id>",
				"dashboard": "/api/dashboard?sector=<sector>",
				"sectors":   "/api/sectors",
				"ingest":    "/api/ingest (POST)" + suffix,
				"verify":    "/api/claims/verify (POST)" + suffix,
				"feedback":  "/api/articles/<id>/feedback (POST)" + suffix,
			},
			"api_status": map[string]interface{}{
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
