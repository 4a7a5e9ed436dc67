package ports

import (
	"context"
	"time"

	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/domain"
)

// RelationshipStore est le port Driven vers le stockage durable des edges.
//
// Toutes les méthodes bloquent sur le contexte : c'est la traduction Go de
// l'interface asynchrone du store d'origine, le moteur reste agnostique de
// l'exécuteur (pool, event-loop) derrière l'implémentation.
type RelationshipStore interface {
	// CreateFollow est idempotent côté store (upsert sur contrainte unique).
	// created = false signifie que l'edge existait déjà : deux follows
	// concurrents sur la même paire convergent vers AlreadyFollowing.
	CreateFollow(ctx context.Context, followerID, followingID string, followType domain.FollowType) (follow *domain.Follow, created bool, err error)
	RemoveFollow(ctx context.Context, followerID, followingID string) (removed bool, err error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	// GetFollow renvoie (nil, nil) si l'edge n'existe pas.
	GetFollow(ctx context.Context, followerID, followingID string) (*domain.Follow, error)
	GetRelationship(ctx context.Context, user1ID, user2ID string) (*domain.Relationship, error)

	GetFollowers(ctx context.Context, userID string, limit int, cursor string) (*domain.FollowPage, error)
	GetFollowing(ctx context.Context, userID string, limit int, cursor string) (*domain.FollowPage, error)
	GetMutualFollowers(ctx context.Context, user1ID, user2ID string, limit int) ([]string, error)
	BulkIsFollowing(ctx context.Context, followerID string, targetIDs []string) (map[string]bool, error)

	BlockUser(ctx context.Context, blockerID, blockedID string) (created bool, err error)
	UnblockUser(ctx context.Context, blockerID, blockedID string) (removed bool, err error)
	IsBlocked(ctx context.Context, userID, otherID string) (bool, error)
	MuteUser(ctx context.Context, muterID, mutedID string) (created bool, err error)
	UnmuteUser(ctx context.Context, muterID, mutedID string) (removed bool, err error)

	GetFollowerCount(ctx context.Context, userID string) (int64, error)
	GetFollowingCount(ctx context.Context, userID string) (int64, error)
	GetFollowerAnalytics(ctx context.Context, userID string, days int) (*domain.FollowerAnalytics, error)
	GetSocialMetrics(ctx context.Context, userID string) (*domain.SocialMetrics, error)
}

// GraphStore est la projection graphe (Neo4j) : alimentée en best-effort
// après mutation, reconstruisible depuis le store, jamais bloquante.
type GraphStore interface {
	// EnsureSchema crée contraintes et index (idempotent)
	EnsureSchema(ctx context.Context) error
	AddFollow(ctx context.Context, followerID, followingID string) error
	RemoveFollow(ctx context.Context, followerID, followingID string) error

	// Candidats scorés pour la recommandation. Les scores interests/trending
	// sont consommés tels quels (calculés en amont).
	InterestCandidates(ctx context.Context, userID string, limit int) ([]domain.Candidate, error)
	TrendingCandidates(ctx context.Context, userID string, limit int) ([]domain.Candidate, error)
}

// RelationCache est le cache look-aside du booléen "A suit B".
// Un miss tombe directement sur le store, sans retry côté cache.
type RelationCache interface {
	GetFollowing(ctx context.Context, followerID, followingID string) (value bool, hit bool)
	SetFollowing(ctx context.Context, followerID, followingID string, value bool, ttl time.Duration)
	InvalidatePair(ctx context.Context, followerID, followingID string)
}

// CacheInvalidator propage la staleness aux caches dépendants d'un user.
// Idempotent, best-effort : un échec est loggé, jamais remonté à la mutation.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
}

// InteractionRecorder publie les événements d'interaction (fire-and-forget).
type InteractionRecorder interface {
	RecordFollowEvent(ctx context.Context, event domain.FollowEvent) error
}
