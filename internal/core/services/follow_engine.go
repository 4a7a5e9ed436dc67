package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jupiterclapton/cenackle/services/follow-service/config"
	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/domain"
	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/ports"
)

// FollowEngine est l'orchestrateur central : il valide, applique les
// invariants, persiste via le store, tient le graphe à jour, invalide les
// caches et publie les événements d'interaction.
//
// Ordre d'une mutation : validation -> lectures de politique -> mutation
// store (unique, atomique) -> adjacence -> invalidation (best-effort) ->
// événement (best-effort) -> enveloppe. Seule la mutation store décide du
// succès : un échec d'invalidation ou de publication ne remonte jamais.
type FollowEngine struct {
	store       ports.RelationshipStore
	graph       *SocialGraph
	cache       ports.RelationCache
	invalidator ports.CacheInvalidator
	recorder    ports.InteractionRecorder
	perf        *PerformanceTracker
	cfg         config.EngineConfig
}

func NewFollowEngine(
	store ports.RelationshipStore,
	graph *SocialGraph,
	cache ports.RelationCache,
	invalidator ports.CacheInvalidator,
	recorder ports.InteractionRecorder,
	perf *PerformanceTracker,
	cfg config.EngineConfig,
) *FollowEngine {
	slog.Info("🚀 Follow engine initialized",
		"max_following", cfg.MaxFollowingLimit,
		"max_page_size", cfg.MaxPageSize,
		"max_bulk_size", cfg.MaxBulkSize,
		"cache_ttl", cfg.CacheTTL)

	return &FollowEngine{
		store:       store,
		graph:       graph,
		cache:       cache,
		invalidator: invalidator,
		recorder:    recorder,
		perf:        perf,
		cfg:         cfg,
	}
}

// ========== FOLLOW / UNFOLLOW ==========

func (e *FollowEngine) Follow(ctx context.Context, followerID, followingID string, followType domain.FollowType, source string) *domain.FollowResult {
	start := time.Now()
	defer func() { e.perf.Record("follow_user", time.Since(start)) }()

	// 1. Validation (avant tout accès au store)
	if followerID == "" || followingID == "" {
		return &domain.FollowResult{Envelope: domain.NewFailure(domain.StatusInvalidInput, "user ids cannot be empty")}
	}
	if followerID == followingID {
		return &domain.FollowResult{Envelope: domain.NewFailure(domain.StatusSelfFollow, "cannot follow yourself")}
	}
	if followType == "" {
		followType = domain.FollowStandard
	}

	// 2. Idempotence : déjà suivi = succès, pas une erreur
	existing, err := e.store.GetFollow(ctx, followerID, followingID)
	if err != nil {
		return e.followFailed(followerID, followingID, err, start)
	}
	if existing != nil {
		return &domain.FollowResult{
			Envelope:         domain.NewSuccess(domain.StatusAlreadyFollowing),
			FollowerID:       followerID,
			FollowingID:      followingID,
			FollowType:       existing.Type,
			FollowedAt:       existing.CreatedAt,
			AlreadyFollowing: true,
		}
	}

	// 3. Politique : limite de followings sortants
	count, err := e.store.GetFollowingCount(ctx, followerID)
	if err != nil {
		return e.followFailed(followerID, followingID, err, start)
	}
	if count >= int64(e.cfg.MaxFollowingLimit) {
		return &domain.FollowResult{Envelope: domain.NewFailure(domain.StatusFollowingLimitExceeded, "maximum following limit reached")}
	}

	// 4. Politique : précédence du blocage (la cible m'a bloqué)
	blocked, err := e.store.IsBlocked(ctx, followingID, followerID)
	if err != nil {
		return e.followFailed(followerID, followingID, err, start)
	}
	if blocked {
		return &domain.FollowResult{Envelope: domain.NewFailure(domain.StatusUserBlocked, "cannot follow a user who blocked you")}
	}

	// 5. Mutation store. Un create concurrent perdu (created=false) est
	// le chemin AlreadyFollowing, pas une erreur.
	follow, created, err := e.store.CreateFollow(ctx, followerID, followingID, followType)
	if err != nil {
		return e.followFailed(followerID, followingID, err, start)
	}
	if !created {
		return &domain.FollowResult{
			Envelope:         domain.NewSuccess(domain.StatusAlreadyFollowing),
			FollowerID:       followerID,
			FollowingID:      followingID,
			FollowType:       follow.Type,
			FollowedAt:       follow.CreatedAt,
			AlreadyFollowing: true,
		}
	}

	// 6. Effets secondaires (best-effort, re-dérivables depuis le store)
	e.graph.AddFollowRelationship(ctx, followerID, followingID)
	e.cache.SetFollowing(ctx, followerID, followingID, true, e.cfg.CacheTTL)
	e.invalidateUsers(ctx, followerID, followingID)
	e.recordEvent(ctx, followerID, followingID, "follow", source)

	elapsed := time.Since(start)
	slog.Info("✅ Follow successful", "follower", followerID, "following", followingID, "duration_us", elapsed.Microseconds())

	res := &domain.FollowResult{
		Envelope:    domain.NewSuccess(domain.StatusFollowSuccess),
		FollowerID:  followerID,
		FollowingID: followingID,
		FollowType:  follow.Type,
		Source:      source,
		FollowedAt:  follow.CreatedAt,
	}
	res.ProcessingTimeUs = elapsed.Microseconds()
	return res
}

func (e *FollowEngine) Unfollow(ctx context.Context, followerID, followingID string) *domain.UnfollowResult {
	start := time.Now()
	defer func() { e.perf.Record("unfollow_user", time.Since(start)) }()

	if followerID == "" || followingID == "" {
		return &domain.UnfollowResult{Envelope: domain.NewFailure(domain.StatusInvalidInput, "user ids cannot be empty")}
	}
	if followerID == followingID {
		return &domain.UnfollowResult{Envelope: domain.NewFailure(domain.StatusSelfFollow, "cannot unfollow yourself")}
	}

	removed, err := e.store.RemoveFollow(ctx, followerID, followingID)
	if err != nil {
		slog.Error("❌ Unfollow failed", "follower", followerID, "following", followingID, "error", err)
		return &domain.UnfollowResult{Envelope: domain.NewFailure(domain.StatusUnfollowFailed, err.Error())}
	}

	// Idempotence : rien à retirer = succès NotFollowing
	if !removed {
		return &domain.UnfollowResult{
			Envelope:     domain.NewSuccess(domain.StatusNotFollowing),
			FollowerID:   followerID,
			FollowingID:  followingID,
			WasFollowing: false,
		}
	}

	e.graph.RemoveFollowRelationship(ctx, followerID, followingID)
	e.cache.SetFollowing(ctx, followerID, followingID, false, e.cfg.CacheTTL)
	e.invalidateUsers(ctx, followerID, followingID)
	e.recordEvent(ctx, followerID, followingID, "unfollow", "manual")

	elapsed := time.Since(start)
	slog.Info("✅ Unfollow successful", "follower", followerID, "following", followingID, "duration_us", elapsed.Microseconds())

	res := &domain.UnfollowResult{
		Envelope:     domain.NewSuccess(domain.StatusUnfollowSuccess),
		FollowerID:   followerID,
		FollowingID:  followingID,
		WasFollowing: true,
	}
	res.ProcessingTimeUs = elapsed.Microseconds()
	return res
}

// ========== LECTURES ==========

// IsFollowing lit en look-aside : cache d'abord, miss = store, sans retry.
// Le repeuplement du cache est best-effort et n'altère pas la lecture.
func (e *FollowEngine) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	start := time.Now()
	defer func() { e.perf.Record("is_following", time.Since(start)) }()

	if value, hit := e.cache.GetFollowing(ctx, followerID, followingID); hit {
		return value, nil
	}

	value, err := e.store.IsFollowing(ctx, followerID, followingID)
	if err != nil {
		return false, fmt.Errorf("is following: %w", err)
	}
	e.cache.SetFollowing(ctx, followerID, followingID, value, e.cfg.CacheTTL)
	return value, nil
}

// GetRelationship recompose les six booléens + score depuis le store.
// La mutualité est toujours recalculée depuis les deux edges dirigés.
func (e *FollowEngine) GetRelationship(ctx context.Context, user1ID, user2ID string) (*domain.Relationship, error) {
	start := time.Now()
	defer func() { e.perf.Record("get_relationship", time.Since(start)) }()

	if user1ID == "" || user2ID == "" {
		return nil, domain.ErrInvalidInput
	}

	rel, err := e.store.GetRelationship(ctx, user1ID, user2ID)
	if err != nil {
		return nil, fmt.Errorf("get relationship: %w", err)
	}
	return rel, nil
}

// ========== BLOCK / UNBLOCK / MUTE ==========

// Block applique la précédence du blocage : les Follow des deux sens sont
// retirés et leur suppression est attendue avant d'invalider les caches.
func (e *FollowEngine) Block(ctx context.Context, blockerID, blockedID string) *domain.BlockResult {
	start := time.Now()
	defer func() { e.perf.Record("block_user", time.Since(start)) }()

	if blockerID == "" || blockedID == "" {
		return &domain.BlockResult{Envelope: domain.NewFailure(domain.StatusInvalidInput, "user ids cannot be empty")}
	}
	if blockerID == blockedID {
		return &domain.BlockResult{Envelope: domain.NewFailure(domain.StatusSelfBlock, "cannot block yourself")}
	}

	if _, err := e.store.BlockUser(ctx, blockerID, blockedID); err != nil {
		slog.Error("❌ Block failed", "blocker", blockerID, "blocked", blockedID, "error", err)
		return &domain.BlockResult{Envelope: domain.NewFailure(domain.StatusBlockFailed, err.Error())}
	}

	// Retrait des follows dans les deux sens, attendu avant invalidation.
	// Best-effort : un échec ici laisse le Block posé, le store garantit
	// qu'un Block et un Follow ne coexistent pas sur la paire.
	removedFollows := 0
	for _, pair := range [][2]string{{blockerID, blockedID}, {blockedID, blockerID}} {
		removed, err := e.store.RemoveFollow(ctx, pair[0], pair[1])
		if err != nil {
			slog.Warn("⚠️ Follow cleanup failed during block", "follower", pair[0], "following", pair[1], "error", err)
			continue
		}
		if removed {
			removedFollows++
		}
		e.graph.RemoveFollowRelationship(ctx, pair[0], pair[1])
		e.cache.SetFollowing(ctx, pair[0], pair[1], false, e.cfg.CacheTTL)
	}

	e.invalidateUsers(ctx, blockerID, blockedID)
	e.recordEvent(ctx, blockerID, blockedID, "block", "manual")

	elapsed := time.Since(start)
	slog.Info("✅ Block successful", "blocker", blockerID, "blocked", blockedID, "removed_follows", removedFollows)

	res := &domain.BlockResult{
		Envelope:       domain.NewSuccess(domain.StatusBlockSuccess),
		BlockerID:      blockerID,
		BlockedID:      blockedID,
		RemovedFollows: removedFollows,
	}
	res.ProcessingTimeUs = elapsed.Microseconds()
	return res
}

// Unblock est idempotent : retirer un block absent reste un succès.
func (e *FollowEngine) Unblock(ctx context.Context, blockerID, blockedID string) *domain.BlockResult {
	start := time.Now()
	defer func() { e.perf.Record("unblock_user", time.Since(start)) }()

	if blockerID == "" || blockedID == "" {
		return &domain.BlockResult{Envelope: domain.NewFailure(domain.StatusInvalidInput, "user ids cannot be empty")}
	}
	if blockerID == blockedID {
		return &domain.BlockResult{Envelope: domain.NewFailure(domain.StatusSelfBlock, "cannot unblock yourself")}
	}

	if _, err := e.store.UnblockUser(ctx, blockerID, blockedID); err != nil {
		return &domain.BlockResult{Envelope: domain.NewFailure(domain.StatusUnblockFailed, err.Error())}
	}

	e.invalidateUsers(ctx, blockerID, blockedID)
	e.recordEvent(ctx, blockerID, blockedID, "unblock", "manual")

	return &domain.BlockResult{
		Envelope:  domain.NewSuccess(domain.StatusUnblockSuccess),
		BlockerID: blockerID,
		BlockedID: blockedID,
	}
}

func (e *FollowEngine) IsBlocked(ctx context.Context, userID, otherID string) (bool, error) {
	start := time.Now()
	defer func() { e.perf.Record("is_blocked", time.Since(start)) }()

	blocked, err := e.store.IsBlocked(ctx, userID, otherID)
	if err != nil {
		return false, fmt.Errorf("is blocked: %w", err)
	}
	return blocked, nil
}

// Mute n'affecte pas les Follow existants : edge indépendant.
func (e *FollowEngine) Mute(ctx context.Context, muterID, mutedID string) *domain.MuteResult {
	start := time.Now()
	defer func() { e.perf.Record("mute_user", time.Since(start)) }()

	if muterID == "" || mutedID == "" {
		return &domain.MuteResult{Envelope: domain.NewFailure(domain.StatusInvalidInput, "user ids cannot be empty")}
	}
	if muterID == mutedID {
		return &domain.MuteResult{Envelope: domain.NewFailure(domain.StatusSelfMute, "cannot mute yourself")}
	}

	if _, err := e.store.MuteUser(ctx, muterID, mutedID); err != nil {
		return &domain.MuteResult{Envelope: domain.NewFailure(domain.StatusMuteFailed, err.Error())}
	}

	e.invalidateUsers(ctx, muterID, mutedID)
	e.recordEvent(ctx, muterID, mutedID, "mute", "manual")

	return &domain.MuteResult{
		Envelope: domain.NewSuccess(domain.StatusMuteSuccess),
		MuterID:  muterID,
		MutedID:  mutedID,
	}
}

func (e *FollowEngine) Unmute(ctx context.Context, muterID, mutedID string) *domain.MuteResult {
	start := time.Now()
	defer func() { e.perf.Record("unmute_user", time.Since(start)) }()

	if muterID == "" || mutedID == "" {
		return &domain.MuteResult{Envelope: domain.NewFailure(domain.StatusInvalidInput, "user ids cannot be empty")}
	}
	if muterID == mutedID {
		return &domain.MuteResult{Envelope: domain.NewFailure(domain.StatusSelfMute, "cannot unmute yourself")}
	}

	if _, err := e.store.UnmuteUser(ctx, muterID, mutedID); err != nil {
		return &domain.MuteResult{Envelope: domain.NewFailure(domain.StatusUnmuteFailed, err.Error())}
	}

	e.invalidateUsers(ctx, muterID, mutedID)
	e.recordEvent(ctx, muterID, mutedID, "unmute", "manual")

	return &domain.MuteResult{
		Envelope: domain.NewSuccess(domain.StatusUnmuteSuccess),
		MuterID:  muterID,
		MutedID:  mutedID,
	}
}

// ========== BULK ==========

// BulkFollow rejette l'appel entier seulement si la taille dépasse la limite.
// Chaque cible passe ensuite indépendamment par la logique unitaire : pas de
// transaction inter-items, un échec n'annule jamais les succès déjà appliqués.
func (e *FollowEngine) BulkFollow(ctx context.Context, followerID string, targetIDs []string, followType domain.FollowType) *domain.BulkResult {
	start := time.Now()
	defer func() { e.perf.Record("bulk_follow", time.Since(start)) }()

	if len(targetIDs) > e.cfg.MaxBulkSize {
		return &domain.BulkResult{
			Envelope: domain.NewFailure(domain.StatusBulkSizeExceeded,
				fmt.Sprintf("maximum %d users per bulk operation", e.cfg.MaxBulkSize)),
			FollowerID: followerID,
			Requested:  len(targetIDs),
		}
	}

	entries := make([]domain.BulkEntry, 0, len(targetIDs))
	succeeded := 0
	for _, target := range targetIDs {
		single := e.Follow(ctx, followerID, target, followType, "bulk")
		entry := domain.BulkEntry{
			TargetID: target,
			Success:  single.Success,
			Status:   single.Status,
			Message:  single.Message,
		}
		if single.Success {
			succeeded++
		}
		entries = append(entries, entry)
	}

	slog.Info("📦 Bulk follow completed", "follower", followerID, "requested", len(targetIDs), "succeeded", succeeded)

	res := &domain.BulkResult{
		Envelope:   domain.NewSuccess(domain.StatusBulkCompleted),
		FollowerID: followerID,
		Requested:  len(targetIDs),
		Succeeded:  succeeded,
		Failed:     len(targetIDs) - succeeded,
		Results:    entries,
	}
	res.ProcessingTimeUs = time.Since(start).Microseconds()
	return res
}

func (e *FollowEngine) BulkUnfollow(ctx context.Context, followerID string, targetIDs []string) *domain.BulkResult {
	start := time.Now()
	defer func() { e.perf.Record("bulk_unfollow", time.Since(start)) }()

	if len(targetIDs) > e.cfg.MaxBulkSize {
		return &domain.BulkResult{
			Envelope: domain.NewFailure(domain.StatusBulkSizeExceeded,
				fmt.Sprintf("maximum %d users per bulk operation", e.cfg.MaxBulkSize)),
			FollowerID: followerID,
			Requested:  len(targetIDs),
		}
	}

	entries := make([]domain.BulkEntry, 0, len(targetIDs))
	succeeded := 0
	for _, target := range targetIDs {
		single := e.Unfollow(ctx, followerID, target)
		entry := domain.BulkEntry{
			TargetID: target,
			Success:  single.Success,
			Status:   single.Status,
			Message:  single.Message,
		}
		if single.Success {
			succeeded++
		}
		entries = append(entries, entry)
	}

	slog.Info("📦 Bulk unfollow completed", "follower", followerID, "requested", len(targetIDs), "succeeded", succeeded)

	res := &domain.BulkResult{
		Envelope:   domain.NewSuccess(domain.StatusBulkCompleted),
		FollowerID: followerID,
		Requested:  len(targetIDs),
		Succeeded:  succeeded,
		Failed:     len(targetIDs) - succeeded,
		Results:    entries,
	}
	res.ProcessingTimeUs = time.Since(start).Microseconds()
	return res
}

func (e *FollowEngine) BulkIsFollowing(ctx context.Context, followerID string, targetIDs []string) (map[string]bool, error) {
	start := time.Now()
	defer func() { e.perf.Record("bulk_is_following", time.Since(start)) }()

	if len(targetIDs) > e.cfg.MaxBulkSize {
		return nil, fmt.Errorf("maximum %d users per bulk check", e.cfg.MaxBulkSize)
	}
	return e.store.BulkIsFollowing(ctx, followerID, targetIDs)
}

// ========== LISTES ==========

func (e *FollowEngine) GetFollowers(ctx context.Context, userID string, limit int, cursor, requesterID string) *domain.PagedResult {
	return e.page(ctx, "get_followers", userID, limit, cursor, requesterID, e.store.GetFollowers)
}

func (e *FollowEngine) GetFollowing(ctx context.Context, userID string, limit int, cursor, requesterID string) *domain.PagedResult {
	return e.page(ctx, "get_following", userID, limit, cursor, requesterID, e.store.GetFollowing)
}

func (e *FollowEngine) page(
	ctx context.Context,
	op, userID string,
	limit int,
	cursor, requesterID string,
	fetch func(context.Context, string, int, string) (*domain.FollowPage, error),
) *domain.PagedResult {
	start := time.Now()
	defer func() { e.perf.Record(op, time.Since(start)) }()

	if userID == "" {
		return &domain.PagedResult{Envelope: domain.NewFailure(domain.StatusInvalidInput, "user id cannot be empty")}
	}
	// Clamp serveur de la taille de page
	if limit <= 0 || limit > e.cfg.MaxPageSize {
		limit = e.cfg.MaxPageSize
	}

	page, err := fetch(ctx, userID, limit, cursor)
	if err != nil {
		slog.Error("❌ Page fetch failed", "op", op, "user_id", userID, "requester", requesterID, "error", err)
		return &domain.PagedResult{Envelope: domain.NewFailure(domain.StatusFollowFailed, err.Error()), UserID: userID}
	}

	res := &domain.PagedResult{
		Envelope:   domain.NewSuccess(domain.StatusPageReady),
		UserID:     userID,
		UserIDs:    page.UserIDs,
		Count:      page.Count,
		NextCursor: page.NextCursor,
	}
	res.ProcessingTimeUs = time.Since(start).Microseconds()
	return res
}

// GetMutualFriends intersecte les ensembles following, adjacence locale
// d'abord, fallback store quand les users n'y sont pas résidents.
func (e *FollowEngine) GetMutualFriends(ctx context.Context, user1ID, user2ID string, limit int) ([]string, error) {
	start := time.Now()
	defer func() { e.perf.Record("get_mutual_friends", time.Since(start)) }()

	if e.graph.Resident(user1ID) && e.graph.Resident(user2ID) {
		return e.graph.MutualFriends(user1ID, user2ID, limit), nil
	}

	mutual, err := e.store.GetMutualFollowers(ctx, user1ID, user2ID, limit)
	if err != nil {
		return nil, fmt.Errorf("get mutual friends: %w", err)
	}
	return mutual, nil
}

// AreMutualFriends compose deux lectures is_following : la mutualité est
// toujours dérivée des deux edges, jamais un fait caché indépendant.
func (e *FollowEngine) AreMutualFriends(ctx context.Context, user1ID, user2ID string) (bool, error) {
	start := time.Now()
	defer func() { e.perf.Record("are_mutual_friends", time.Since(start)) }()

	forward, err := e.IsFollowing(ctx, user1ID, user2ID)
	if err != nil {
		return false, err
	}
	if !forward {
		return false, nil
	}
	backward, err := e.IsFollowing(ctx, user2ID, user1ID)
	if err != nil {
		return false, err
	}
	return backward, nil
}

// ========== ANALYTICS ==========

func (e *FollowEngine) GetFollowerAnalytics(ctx context.Context, userID, requesterID string, days int) (*domain.FollowerAnalytics, error) {
	start := time.Now()
	defer func() { e.perf.Record("get_follower_analytics", time.Since(start)) }()

	if days <= 0 {
		days = 30
	}
	analytics, err := e.store.GetFollowerAnalytics(ctx, userID, days)
	if err != nil {
		return nil, fmt.Errorf("get follower analytics: %w", err)
	}
	slog.Debug("📊 Analytics retrieved", "user_id", userID, "requester", requesterID, "days", days)
	return analytics, nil
}

func (e *FollowEngine) GetSocialMetrics(ctx context.Context, userID string) (*domain.SocialMetrics, error) {
	start := time.Now()
	defer func() { e.perf.Record("get_social_metrics", time.Since(start)) }()

	metrics, err := e.store.GetSocialMetrics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get social metrics: %w", err)
	}
	return metrics, nil
}

// Metrics expose le snapshot du tracker de performance.
func (e *FollowEngine) Metrics() ServiceMetrics {
	return e.perf.Metrics()
}

// ========== HELPERS ==========

func (e *FollowEngine) followFailed(followerID, followingID string, err error, start time.Time) *domain.FollowResult {
	slog.Error("❌ Follow failed", "follower", followerID, "following", followingID, "error", err)
	res := &domain.FollowResult{Envelope: domain.NewFailure(domain.StatusFollowFailed, err.Error())}
	res.ProcessingTimeUs = time.Since(start).Microseconds()
	return res
}

// invalidateUsers fan-out la staleness sur les deux utilisateurs.
// Idempotent et commutatif : un retry après annulation est sans danger.
func (e *FollowEngine) invalidateUsers(ctx context.Context, userIDs ...string) {
	for _, id := range userIDs {
		if err := e.invalidator.InvalidateUser(ctx, id); err != nil {
			slog.Warn("⚠️ Cache invalidation failed", "user_id", id, "error", err)
		}
	}
}

func (e *FollowEngine) recordEvent(ctx context.Context, followerID, followingID, eventType, source string) {
	event := domain.FollowEvent{
		EventID:     uuid.New().String(),
		FollowerID:  followerID,
		FollowingID: followingID,
		EventType:   eventType,
		Source:      source,
		OccurredAt:  time.Now().UTC(),
	}
	if err := e.recorder.RecordFollowEvent(ctx, event); err != nil {
		slog.Warn("⚠️ Event recording failed", "event_type", eventType, "follower", followerID, "error", err)
	}
}
