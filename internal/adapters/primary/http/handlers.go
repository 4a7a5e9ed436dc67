package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/domain"
)

const (
	minLimit = 1
	maxLimit = 1000
)

// httpStatusFor mappe le statut applicatif de l'enveloppe vers le code HTTP.
// Les issues idempotentes (AlreadyFollowing, NotFollowing) restent des 200.
func httpStatusFor(e domain.Envelope) int {
	if e.Success {
		return http.StatusOK
	}
	switch e.Status {
	case domain.StatusSelfFollow, domain.StatusSelfBlock, domain.StatusSelfMute,
		domain.StatusInvalidInput, domain.StatusBulkSizeExceeded:
		return http.StatusBadRequest
	case domain.StatusUserBlocked:
		return http.StatusForbidden
	case domain.StatusFollowingLimitExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// clampLimit borne le paramètre limit dans [1, 1000]
func clampLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < minLimit {
		return fallback
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// ========== FOLLOW ==========

type followBody struct {
	FollowType string `json:"follow_type"`
	Source     string `json:"source"`
}

func (s *Server) handleFollow(c *gin.Context) {
	target := c.Param("user_id")
	requester := requesterID(c)

	var body followBody
	// Body optionnel : follow standard si absent
	_ = c.ShouldBindJSON(&body)

	result := s.engine.Follow(c.Request.Context(), requester, target, domain.FollowType(body.FollowType), body.Source)
	c.JSON(httpStatusFor(result.Envelope), result)
}

func (s *Server) handleUnfollow(c *gin.Context) {
	result := s.engine.Unfollow(c.Request.Context(), requesterID(c), c.Param("user_id"))
	c.JSON(httpStatusFor(result.Envelope), result)
}

// ========== BLOCK / MUTE ==========

func (s *Server) handleBlock(c *gin.Context) {
	result := s.engine.Block(c.Request.Context(), requesterID(c), c.Param("user_id"))
	c.JSON(httpStatusFor(result.Envelope), result)
}

func (s *Server) handleUnblock(c *gin.Context) {
	result := s.engine.Unblock(c.Request.Context(), requesterID(c), c.Param("user_id"))
	c.JSON(httpStatusFor(result.Envelope), result)
}

func (s *Server) handleMute(c *gin.Context) {
	result := s.engine.Mute(c.Request.Context(), requesterID(c), c.Param("user_id"))
	c.JSON(httpStatusFor(result.Envelope), result)
}

func (s *Server) handleUnmute(c *gin.Context) {
	result := s.engine.Unmute(c.Request.Context(), requesterID(c), c.Param("user_id"))
	c.JSON(httpStatusFor(result.Envelope), result)
}

// ========== BULK ==========

type bulkBody struct {
	UserIDs    []string `json:"user_ids" binding:"required"`
	FollowType string   `json:"follow_type"`
}

func (s *Server) handleBulkFollow(c *gin.Context) {
	var body bulkBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result := s.engine.BulkFollow(c.Request.Context(), requesterID(c), body.UserIDs, domain.FollowType(body.FollowType))
	c.JSON(httpStatusFor(result.Envelope), result)
}

func (s *Server) handleBulkUnfollow(c *gin.Context) {
	var body bulkBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result := s.engine.BulkUnfollow(c.Request.Context(), requesterID(c), body.UserIDs)
	c.JSON(httpStatusFor(result.Envelope), result)
}

func (s *Server) handleBulkCheck(c *gin.Context) {
	var body bulkBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checks, err := s.engine.BulkIsFollowing(c.Request.Context(), requesterID(c), body.UserIDs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"follower_id": requesterID(c), "following": checks})
}

// ========== LECTURES ==========

func (s *Server) handleGetRelationship(c *gin.Context) {
	rel, err := s.engine.GetRelationship(c.Request.Context(), requesterID(c), c.Param("user_id"))
	if err != nil {
		if err == domain.ErrInvalidInput {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user ids cannot be empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch relationship"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"relationship": rel,
		"strength":     rel.CalculateStrength(),
	})
}

func (s *Server) handleGetFollowers(c *gin.Context) {
	result := s.engine.GetFollowers(c.Request.Context(),
		c.Param("user_id"), clampLimit(c, 50), c.Query("cursor"), requesterID(c))
	c.JSON(httpStatusFor(result.Envelope), result)
}

func (s *Server) handleGetFollowing(c *gin.Context) {
	result := s.engine.GetFollowing(c.Request.Context(),
		c.Param("user_id"), clampLimit(c, 50), c.Query("cursor"), requesterID(c))
	c.JSON(httpStatusFor(result.Envelope), result)
}

func (s *Server) handleMutualFriends(c *gin.Context) {
	mutual, err := s.engine.GetMutualFriends(c.Request.Context(),
		c.Param("user_id"), c.Param("other_id"), clampLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch mutual friends"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mutual_friends": mutual, "count": len(mutual)})
}

func (s *Server) handleAnalytics(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}
	analytics, err := s.engine.GetFollowerAnalytics(c.Request.Context(), c.Param("user_id"), requesterID(c), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch analytics"})
		return
	}
	c.JSON(http.StatusOK, analytics)
}

func (s *Server) handleSocialMetrics(c *gin.Context) {
	metrics, err := s.engine.GetSocialMetrics(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch social metrics"})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// ========== RECOMMANDATIONS ==========

func (s *Server) handleRecommendations(c *gin.Context) {
	userID := requesterID(c)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user-id header"})
		return
	}
	result := s.recommender.GetRecommendations(c.Request.Context(),
		userID, clampLimit(c, 20), domain.Algorithm(c.Query("algorithm")))
	c.JSON(httpStatusFor(result.Envelope), result)
}
