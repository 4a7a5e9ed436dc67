package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/domain"
	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/ports"
)

// PostgresRepo est la source de vérité des edges (follows, blocks, mutes).
// Chaque edge est une ligne, PK (owner_id, target_id) : l'unicité de la
// paire est garantie par le schéma, pas par l'appelant.
type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) ports.RelationshipStore {
	return &PostgresRepo{db: db}
}

// CreateFollow : upsert idempotent. ON CONFLICT DO NOTHING fait converger
// deux créations concurrentes : la perdante relit l'edge gagnant et renvoie
// created=false. Si un delete concurrent s'intercale entre le conflit et la
// relecture, on réinsère une seule fois, jamais plus.
func (r *PostgresRepo) CreateFollow(ctx context.Context, followerID, followingID string, followType domain.FollowType) (*domain.Follow, bool, error) {
	query := `
		INSERT INTO follows (follower_id, following_id, follow_type, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (follower_id, following_id) DO NOTHING
	`

	for attempt := 0; attempt < 2; attempt++ {
		now := time.Now().UTC()
		tag, err := r.db.Exec(ctx, query, followerID, followingID, string(followType), now)
		if err != nil {
			return nil, false, fmt.Errorf("create follow: %w", err)
		}

		if tag.RowsAffected() > 0 {
			return &domain.Follow{
				FollowerID:  followerID,
				FollowingID: followingID,
				Type:        followType,
				CreatedAt:   now,
			}, true, nil
		}

		// Perdu la course : la ligne existante fait foi
		existing, err := r.GetFollow(ctx, followerID, followingID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
		// Fenêtre delete concurrent : second et dernier tour de boucle
	}

	return nil, false, fmt.Errorf("create follow: contention on %s -> %s", followerID, followingID)
}

func (r *PostgresRepo) RemoveFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("remove follow: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepo) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2)`,
		followerID, followingID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("is following: %w", err)
	}
	return exists, nil
}

// GetFollow renvoie (nil, nil) quand l'edge n'existe pas
func (r *PostgresRepo) GetFollow(ctx context.Context, followerID, followingID string) (*domain.Follow, error) {
	query := `
		SELECT follower_id, following_id, follow_type, created_at
		FROM follows
		WHERE follower_id = $1 AND following_id = $2
	`

	var f domain.Follow
	var followType string
	err := r.db.QueryRow(ctx, query, followerID, followingID).
		Scan(&f.FollowerID, &f.FollowingID, &followType, &f.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get follow: %w", err)
	}
	f.Type = domain.FollowType(followType)
	return &f, nil
}

// GetRelationship recompose la vue bidirectionnelle en une seule requête :
// les six booléens sortent de sous-requêtes EXISTS, la mutualité est
// toujours dérivée des deux edges dirigés.
func (r *PostgresRepo) GetRelationship(ctx context.Context, user1ID, user2ID string) (*domain.Relationship, error) {
	query := `
		SELECT
			EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2),
			EXISTS(SELECT 1 FROM follows WHERE follower_id = $2 AND following_id = $1),
			EXISTS(SELECT 1 FROM blocks  WHERE blocker_id = $1 AND blocked_id = $2),
			EXISTS(SELECT 1 FROM blocks  WHERE blocker_id = $2 AND blocked_id = $1),
			EXISTS(SELECT 1 FROM mutes   WHERE muter_id = $1 AND muted_id = $2),
			EXISTS(SELECT 1 FROM mutes   WHERE muter_id = $2 AND muted_id = $1),
			(SELECT COUNT(*) FROM follows f1
				JOIN follows f2 ON f1.follower_id = f2.follower_id
				WHERE f1.following_id = $1 AND f2.following_id = $2),
			COALESCE((SELECT MIN(created_at) FROM follows
				WHERE (follower_id = $1 AND following_id = $2)
				   OR (follower_id = $2 AND following_id = $1)), 'epoch'::timestamptz)
	`

	rel := &domain.Relationship{User1ID: user1ID, User2ID: user2ID}
	var mutualCount int64
	err := r.db.QueryRow(ctx, query, user1ID, user2ID).Scan(
		&rel.User1FollowsUser2,
		&rel.User2FollowsUser1,
		&rel.User1BlockedUser2,
		&rel.User2BlockedUser1,
		&rel.User1MutedUser2,
		&rel.User2MutedUser1,
		&mutualCount,
		&rel.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get relationship: %w", err)
	}
	rel.MutualFollowersCount = int(mutualCount)
	return rel, nil
}

// GetFollowers : pagination keyset sur created_at. Le curseur est le
// timestamp RFC3339Nano du dernier edge vu, jamais un OFFSET.
func (r *PostgresRepo) GetFollowers(ctx context.Context, userID string, limit int, cursor string) (*domain.FollowPage, error) {
	return r.pageEdges(ctx, userID, limit, cursor,
		`SELECT follower_id, created_at FROM follows
		 WHERE following_id = $1
		 ORDER BY created_at DESC, follower_id DESC
		 LIMIT $2`,
		`SELECT follower_id, created_at FROM follows
		 WHERE following_id = $1 AND created_at < $3
		 ORDER BY created_at DESC, follower_id DESC
		 LIMIT $2`)
}

func (r *PostgresRepo) GetFollowing(ctx context.Context, userID string, limit int, cursor string) (*domain.FollowPage, error) {
	return r.pageEdges(ctx, userID, limit, cursor,
		`SELECT following_id, created_at FROM follows
		 WHERE follower_id = $1
		 ORDER BY created_at DESC, following_id DESC
		 LIMIT $2`,
		`SELECT following_id, created_at FROM follows
		 WHERE follower_id = $1 AND created_at < $3
		 ORDER BY created_at DESC, following_id DESC
		 LIMIT $2`)
}

func (r *PostgresRepo) pageEdges(ctx context.Context, userID string, limit int, cursor, firstPageQuery, nextPageQuery string) (*domain.FollowPage, error) {
	var rows pgx.Rows
	var err error

	// Cas 1 : première page (pas de curseur)
	if cursor == "" {
		rows, err = r.db.Query(ctx, firstPageQuery, userID, limit)
	} else {
		// Cas 2 : page suivante, on reprend avant le timestamp du curseur
		cursorTime, parseErr := time.Parse(time.RFC3339Nano, cursor)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid cursor: %w", parseErr)
		}
		rows, err = r.db.Query(ctx, nextPageQuery, userID, limit, cursorTime)
	}
	if err != nil {
		return nil, fmt.Errorf("page edges: %w", err)
	}
	defer rows.Close()

	page := &domain.FollowPage{UserIDs: []string{}}
	var lastSeen time.Time
	for rows.Next() {
		var id string
		var createdAt time.Time
		if err := rows.Scan(&id, &createdAt); err != nil {
			return nil, err
		}
		page.UserIDs = append(page.UserIDs, id)
		lastSeen = createdAt
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page.Count = len(page.UserIDs)
	// Curseur seulement si la page est pleine : une page courte épuise la liste
	if page.Count == limit {
		page.NextCursor = lastSeen.UTC().Format(time.RFC3339Nano)
	}
	return page, nil
}

// GetMutualFollowers : intersection des ensembles following via self-join
func (r *PostgresRepo) GetMutualFollowers(ctx context.Context, user1ID, user2ID string, limit int) ([]string, error) {
	query := `
		SELECT f1.following_id
		FROM follows f1
		JOIN follows f2 ON f1.following_id = f2.following_id
		WHERE f1.follower_id = $1 AND f2.follower_id = $2
		ORDER BY f1.following_id
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, user1ID, user2ID, limit)
	if err != nil {
		return nil, fmt.Errorf("get mutual followers: %w", err)
	}
	defer rows.Close()

	var mutual []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		mutual = append(mutual, id)
	}
	return mutual, rows.Err()
}

// BulkIsFollowing : un seul round-trip avec ANY($2), les absents sortent false
func (r *PostgresRepo) BulkIsFollowing(ctx context.Context, followerID string, targetIDs []string) (map[string]bool, error) {
	result := make(map[string]bool, len(targetIDs))
	for _, id := range targetIDs {
		result[id] = false
	}

	rows, err := r.db.Query(ctx,
		`SELECT following_id FROM follows WHERE follower_id = $1 AND following_id = ANY($2)`,
		followerID, targetIDs)
	if err != nil {
		return nil, fmt.Errorf("bulk is following: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = true
	}
	return result, rows.Err()
}

// ========== BLOCKS / MUTES ==========

func (r *PostgresRepo) BlockUser(ctx context.Context, blockerID, blockedID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO blocks (blocker_id, blocked_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (blocker_id, blocked_id) DO NOTHING`,
		blockerID, blockedID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("block user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepo) UnblockUser(ctx context.Context, blockerID, blockedID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`,
		blockerID, blockedID)
	if err != nil {
		return false, fmt.Errorf("unblock user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepo) IsBlocked(ctx context.Context, userID, otherID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id = $1 AND blocked_id = $2)`,
		userID, otherID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("is blocked: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepo) MuteUser(ctx context.Context, muterID, mutedID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO mutes (muter_id, muted_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (muter_id, muted_id) DO NOTHING`,
		muterID, mutedID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("mute user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepo) UnmuteUser(ctx context.Context, muterID, mutedID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM mutes WHERE muter_id = $1 AND muted_id = $2`,
		muterID, mutedID)
	if err != nil {
		return false, fmt.Errorf("unmute user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ========== COMPTEURS & ANALYTICS ==========

func (r *PostgresRepo) GetFollowerCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM follows WHERE following_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("follower count: %w", err)
	}
	return count, nil
}

func (r *PostgresRepo) GetFollowingCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM follows WHERE follower_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("following count: %w", err)
	}
	return count, nil
}

// GetFollowerAnalytics agrège les nouveaux followers par jour sur la fenêtre
func (r *PostgresRepo) GetFollowerAnalytics(ctx context.Context, userID string, days int) (*domain.FollowerAnalytics, error) {
	analytics := &domain.FollowerAnalytics{
		UserID:            userID,
		PeriodDays:        days,
		NewFollowersByDay: make(map[string]int64),
		GeneratedAt:       time.Now().UTC(),
	}

	total, err := r.GetFollowerCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	analytics.TotalFollowers = total
	analytics.UniqueFollowers = total

	query := `
		SELECT to_char(created_at::date, 'YYYY-MM-DD'), COUNT(*)
		FROM follows
		WHERE following_id = $1 AND created_at >= now() - ($2 || ' days')::interval
		GROUP BY created_at::date
		ORDER BY created_at::date
	`
	rows, err := r.db.Query(ctx, query, userID, days)
	if err != nil {
		return nil, fmt.Errorf("follower analytics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day string
		var count int64
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		analytics.NewFollowersByDay[day] = count
	}
	return analytics, rows.Err()
}

func (r *PostgresRepo) GetSocialMetrics(ctx context.Context, userID string) (*domain.SocialMetrics, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM follows WHERE following_id = $1),
			(SELECT COUNT(*) FROM follows WHERE follower_id = $1),
			(SELECT COUNT(*) FROM follows f1
				JOIN follows f2 ON f1.following_id = f2.follower_id
				WHERE f1.follower_id = $1 AND f2.following_id = $1)
	`

	m := &domain.SocialMetrics{UserID: userID}
	err := r.db.QueryRow(ctx, query, userID).
		Scan(&m.FollowerCount, &m.FollowingCount, &m.MutualCount)
	if err != nil {
		return nil, fmt.Errorf("social metrics: %w", err)
	}
	if m.FollowingCount > 0 {
		m.Ratio = float64(m.FollowerCount) / float64(m.FollowingCount)
	}
	return m, nil
}
