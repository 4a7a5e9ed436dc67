package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/ports"
)

// Server est l'adaptateur Driving HTTP : routage, parsing, mapping des
// enveloppes vers les codes HTTP. Aucune logique métier ici.
type Server struct {
	engine      ports.FollowEngine
	recommender ports.Recommender
	metricsFn   func() any
}

func NewServer(engine ports.FollowEngine, recommender ports.Recommender, metricsFn func() any) *Server {
	return &Server{engine: engine, recommender: recommender, metricsFn: metricsFn}
}

// Router monte toutes les routes avec tracing et CORS
func (s *Server) Router(env string) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("follow-service"))
	router.Use(corsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "follow-service"})
	})
	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.metricsFn())
	})

	api := router.Group("/api/v1")
	{
		// Mutations follow
		api.POST("/follow/:user_id", s.handleFollow)
		api.DELETE("/follow/:user_id", s.handleUnfollow)

		// Block / Mute
		api.POST("/block/:user_id", s.handleBlock)
		api.DELETE("/block/:user_id", s.handleUnblock)
		api.POST("/mute/:user_id", s.handleMute)
		api.DELETE("/mute/:user_id", s.handleUnmute)

		// Bulk
		api.POST("/follows/bulk", s.handleBulkFollow)
		api.DELETE("/follows/bulk", s.handleBulkUnfollow)
		api.POST("/follows/check", s.handleBulkCheck)

		// Lectures
		api.GET("/relationship/:user_id", s.handleGetRelationship)
		api.GET("/users/:user_id/followers", s.handleGetFollowers)
		api.GET("/users/:user_id/following", s.handleGetFollowing)
		api.GET("/users/:user_id/mutual/:other_id", s.handleMutualFriends)
		api.GET("/users/:user_id/analytics", s.handleAnalytics)
		api.GET("/users/:user_id/metrics", s.handleSocialMetrics)

		// Recommandations
		api.GET("/recommendations", s.handleRecommendations)
	}

	return router
}
