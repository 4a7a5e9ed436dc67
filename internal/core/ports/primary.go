package ports

import (
	"context"

	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/domain"
)

// FollowEngine est le port Driving (API).
//
// Les mutations renvoient une enveloppe typée : les rejets de validation,
// de politique et les échecs d'infrastructure sont des résultats, pas des
// erreurs Go. Les lectures pures restent (valeur, error).
type FollowEngine interface {
	Follow(ctx context.Context, followerID, followingID string, followType domain.FollowType, source string) *domain.FollowResult
	Unfollow(ctx context.Context, followerID, followingID string) *domain.UnfollowResult

	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	GetRelationship(ctx context.Context, user1ID, user2ID string) (*domain.Relationship, error)

	Block(ctx context.Context, blockerID, blockedID string) *domain.BlockResult
	Unblock(ctx context.Context, blockerID, blockedID string) *domain.BlockResult
	IsBlocked(ctx context.Context, userID, otherID string) (bool, error)
	Mute(ctx context.Context, muterID, mutedID string) *domain.MuteResult
	Unmute(ctx context.Context, muterID, mutedID string) *domain.MuteResult

	BulkFollow(ctx context.Context, followerID string, targetIDs []string, followType domain.FollowType) *domain.BulkResult
	BulkUnfollow(ctx context.Context, followerID string, targetIDs []string) *domain.BulkResult
	BulkIsFollowing(ctx context.Context, followerID string, targetIDs []string) (map[string]bool, error)

	GetFollowers(ctx context.Context, userID string, limit int, cursor, requesterID string) *domain.PagedResult
	GetFollowing(ctx context.Context, userID string, limit int, cursor, requesterID string) *domain.PagedResult
	GetMutualFriends(ctx context.Context, user1ID, user2ID string, limit int) ([]string, error)
	AreMutualFriends(ctx context.Context, user1ID, user2ID string) (bool, error)

	GetFollowerAnalytics(ctx context.Context, userID, requesterID string, days int) (*domain.FollowerAnalytics, error)
	GetSocialMetrics(ctx context.Context, userID string) (*domain.SocialMetrics, error)
}

// Recommender génère la liste de suggestions pour un utilisateur.
type Recommender interface {
	GetRecommendations(ctx context.Context, userID string, limit int, algorithm domain.Algorithm) *domain.Recommendations
}
