package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/cenackle/services/follow-service/config"
	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/domain"
)

type engineFixture struct {
	engine      *FollowEngine
	store       *fakeStore
	cache       *fakeCache
	invalidator *fakeInvalidator
	recorder    *fakeRecorder
	graph       *SocialGraph
}

func newTestEngine(t *testing.T, cfg config.EngineConfig) *engineFixture {
	t.Helper()
	if cfg.MaxFollowingLimit == 0 {
		cfg.MaxFollowingLimit = 7500
	}
	if cfg.MaxPageSize == 0 {
		cfg.MaxPageSize = 1000
	}
	if cfg.MaxBulkSize == 0 {
		cfg.MaxBulkSize = 100
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 300 * time.Second
	}

	store := newFakeStore()
	cache := newFakeCache()
	invalidator := newFakeInvalidator()
	recorder := newFakeRecorder()
	graph := NewSocialGraph(nil)
	perf := NewPerformanceTracker()

	return &engineFixture{
		engine:      NewFollowEngine(store, graph, cache, invalidator, recorder, perf, cfg),
		store:       store,
		cache:       cache,
		invalidator: invalidator,
		recorder:    recorder,
		graph:       graph,
	}
}

func TestFollow_Success(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	result := f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")

	require.True(t, result.Success)
	assert.Equal(t, domain.StatusFollowSuccess, result.Status)
	assert.Equal(t, "alice", result.FollowerID)
	assert.Equal(t, "bob", result.FollowingID)
	assert.False(t, result.AlreadyFollowing)
	assert.False(t, result.FollowedAt.IsZero())

	// L'edge est persisté et le graphe local à jour
	following, err := f.engine.IsFollowing(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, following)
	assert.True(t, f.graph.HasRelationship("alice", "bob"))

	// Les caches des deux users sont invalidés, l'événement publié
	assert.Equal(t, 1, f.invalidator.calls["alice"])
	assert.Equal(t, 1, f.invalidator.calls["bob"])
	assert.Equal(t, []string{"follow"}, f.recorder.eventTypes())
}

func TestFollow_SelfFollowRejected(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})

	result := f.engine.Follow(context.Background(), "alice", "alice", domain.FollowStandard, "manual")

	assert.False(t, result.Success)
	assert.Equal(t, domain.StatusSelfFollow, result.Status)
	// Rien ne doit avoir été écrit
	assert.Empty(t, f.store.follows)
	assert.Empty(t, f.invalidator.calls)
}

func TestFollow_EmptyIDsRejected(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})

	result := f.engine.Follow(context.Background(), "", "bob", domain.FollowStandard, "manual")
	assert.Equal(t, domain.StatusInvalidInput, result.Status)

	result = f.engine.Follow(context.Background(), "alice", "", domain.FollowStandard, "manual")
	assert.Equal(t, domain.StatusInvalidInput, result.Status)
}

func TestFollow_Idempotent(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	first := f.engine.Follow(ctx, "alice", "bob", domain.FollowCloseFriend, "manual")
	require.True(t, first.Success)

	second := f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")

	// Re-follow = succès AlreadyFollowing, l'edge d'origine fait foi
	require.True(t, second.Success)
	assert.Equal(t, domain.StatusAlreadyFollowing, second.Status)
	assert.True(t, second.AlreadyFollowing)
	assert.Equal(t, domain.FollowCloseFriend, second.FollowType)
	assert.Equal(t, first.FollowedAt, second.FollowedAt)

	// Pas de second événement ni de nouvelle invalidation
	assert.Equal(t, []string{"follow"}, f.recorder.eventTypes())
	assert.Equal(t, 1, f.invalidator.calls["alice"])
}

func TestFollow_BlockedByTarget(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	_, err := f.store.BlockUser(ctx, "bob", "alice")
	require.NoError(t, err)

	result := f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")

	assert.False(t, result.Success)
	assert.Equal(t, domain.StatusUserBlocked, result.Status)
	assert.Empty(t, f.store.follows)
}

func TestFollow_LimitExceeded(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{MaxFollowingLimit: 2})
	ctx := context.Background()

	require.True(t, f.engine.Follow(ctx, "alice", "u1", domain.FollowStandard, "manual").Success)
	require.True(t, f.engine.Follow(ctx, "alice", "u2", domain.FollowStandard, "manual").Success)

	// Le N+1-ième follow est rejeté, les N premiers restent intacts
	result := f.engine.Follow(ctx, "alice", "u3", domain.FollowStandard, "manual")
	assert.False(t, result.Success)
	assert.Equal(t, domain.StatusFollowingLimitExceeded, result.Status)

	count, err := f.store.GetFollowingCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestFollow_StoreFailure(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	f.store.failCreate = true

	result := f.engine.Follow(context.Background(), "alice", "bob", domain.FollowStandard, "manual")

	assert.False(t, result.Success)
	assert.Equal(t, domain.StatusFollowFailed, result.Status)
	assert.NotEmpty(t, result.Message)
	// Pas d'effets secondaires sur échec de la mutation
	assert.Empty(t, f.invalidator.calls)
	assert.Empty(t, f.recorder.events)
}

func TestFollow_InvalidationFailureIsSwallowed(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	f.invalidator.fail = true
	f.recorder.fail = true

	// Les effets best-effort ne remontent jamais : la mutation décide seule
	result := f.engine.Follow(context.Background(), "alice", "bob", domain.FollowStandard, "manual")
	require.True(t, result.Success)
	assert.Equal(t, domain.StatusFollowSuccess, result.Status)
}

func TestUnfollow_Success(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")
	result := f.engine.Unfollow(ctx, "alice", "bob")

	require.True(t, result.Success)
	assert.Equal(t, domain.StatusUnfollowSuccess, result.Status)
	assert.True(t, result.WasFollowing)

	following, err := f.engine.IsFollowing(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, following)
	assert.False(t, f.graph.HasRelationship("alice", "bob"))
	assert.Equal(t, []string{"follow", "unfollow"}, f.recorder.eventTypes())
}

func TestUnfollow_NotFollowingIsSuccess(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})

	result := f.engine.Unfollow(context.Background(), "alice", "bob")

	require.True(t, result.Success)
	assert.Equal(t, domain.StatusNotFollowing, result.Status)
	assert.False(t, result.WasFollowing)
	// Pas d'événement pour un no-op
	assert.Empty(t, f.recorder.events)
}

func TestIsFollowing_CacheLookAside(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")

	// Première lecture peuplée par le Follow, une valeur truquée dans le
	// cache doit être servie telle quelle (pas de double lecture store)
	f.cache.SetFollowing(ctx, "alice", "bob", false, time.Minute)
	stale, err := f.engine.IsFollowing(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, stale)

	// Après éviction, le store reprend la main et repeuple
	f.cache.InvalidatePair(ctx, "alice", "bob")
	fresh, err := f.engine.IsFollowing(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, fresh)
	v, hit := f.cache.GetFollowing(ctx, "alice", "bob")
	assert.True(t, hit)
	assert.True(t, v)
}

func TestBlock_RemovesFollowsBothDirections(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")
	f.engine.Follow(ctx, "bob", "alice", domain.FollowStandard, "manual")

	result := f.engine.Block(ctx, "alice", "bob")

	require.True(t, result.Success)
	assert.Equal(t, domain.StatusBlockSuccess, result.Status)
	assert.Equal(t, 2, result.RemovedFollows)

	ab, _ := f.store.IsFollowing(ctx, "alice", "bob")
	ba, _ := f.store.IsFollowing(ctx, "bob", "alice")
	assert.False(t, ab)
	assert.False(t, ba)
	assert.False(t, f.graph.HasRelationship("alice", "bob"))
	assert.False(t, f.graph.HasRelationship("bob", "alice"))

	blocked, err := f.engine.IsBlocked(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestBlock_SelfBlockRejected(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})

	result := f.engine.Block(context.Background(), "alice", "alice")
	assert.False(t, result.Success)
	assert.Equal(t, domain.StatusSelfBlock, result.Status)
}

func TestUnblock_AllowsRefollow(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	f.engine.Block(ctx, "bob", "alice")
	blocked := f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")
	assert.Equal(t, domain.StatusUserBlocked, blocked.Status)

	unblock := f.engine.Unblock(ctx, "bob", "alice")
	require.True(t, unblock.Success)

	refollow := f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")
	assert.True(t, refollow.Success)
}

func TestMute_DoesNotTouchFollows(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")

	result := f.engine.Mute(ctx, "alice", "bob")
	require.True(t, result.Success)
	assert.Equal(t, domain.StatusMuteSuccess, result.Status)

	// Le follow survit au mute
	following, _ := f.engine.IsFollowing(ctx, "alice", "bob")
	assert.True(t, following)

	unmute := f.engine.Unmute(ctx, "alice", "bob")
	require.True(t, unmute.Success)
	assert.Equal(t, domain.StatusUnmuteSuccess, unmute.Status)
}

func TestBulkFollow_PartialFailure(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	_, err := f.store.BlockUser(ctx, "charlie", "alice")
	require.NoError(t, err)

	targets := []string{"bob", "alice", "charlie", "dave"}
	result := f.engine.BulkFollow(ctx, "alice", targets, domain.FollowStandard)

	require.True(t, result.Success)
	assert.Equal(t, domain.StatusBulkCompleted, result.Status)
	assert.Equal(t, 4, result.Requested)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Results, 4)

	// Chaque entrée garde l'ordre et le statut de son item
	assert.True(t, result.Results[0].Success)
	assert.Equal(t, domain.StatusSelfFollow, result.Results[1].Status)
	assert.Equal(t, domain.StatusUserBlocked, result.Results[2].Status)
	assert.True(t, result.Results[3].Success)

	// Les succès sont réellement appliqués malgré les échecs voisins
	ab, _ := f.store.IsFollowing(ctx, "alice", "bob")
	ad, _ := f.store.IsFollowing(ctx, "alice", "dave")
	assert.True(t, ab)
	assert.True(t, ad)
}

func TestBulkFollow_SizeExceeded(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{MaxBulkSize: 3})

	targets := []string{"u1", "u2", "u3", "u4"}
	result := f.engine.BulkFollow(context.Background(), "alice", targets, domain.FollowStandard)

	// Rejet entier : aucun item ne doit avoir été tenté
	assert.False(t, result.Success)
	assert.Equal(t, domain.StatusBulkSizeExceeded, result.Status)
	assert.Empty(t, result.Results)
	assert.Empty(t, f.store.follows)
}

func TestBulkUnfollow(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")

	result := f.engine.BulkUnfollow(ctx, "alice", []string{"bob", "ghost"})

	require.True(t, result.Success)
	assert.Equal(t, 2, result.Succeeded) // NotFollowing est un succès
	assert.Equal(t, domain.StatusUnfollowSuccess, result.Results[0].Status)
	assert.Equal(t, domain.StatusNotFollowing, result.Results[1].Status)
}

func TestBulkIsFollowing(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")

	checks, err := f.engine.BulkIsFollowing(ctx, "alice", []string{"bob", "carol"})
	require.NoError(t, err)
	assert.True(t, checks["bob"])
	assert.False(t, checks["carol"])
}

func TestGetFollowers_LimitClamped(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{MaxPageSize: 5})
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		f.engine.Follow(ctx, fmt.Sprintf("fan-%d", i), "star", domain.FollowStandard, "manual")
	}

	// limit hors borne est ramené au MaxPageSize
	result := f.engine.GetFollowers(ctx, "star", 9999, "", "viewer")
	require.True(t, result.Success)
	assert.Equal(t, domain.StatusPageReady, result.Status)
	assert.Len(t, result.UserIDs, 5)
}

func TestAreMutualFriends(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")

	mutual, err := f.engine.AreMutualFriends(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, mutual)

	// La mutualité apparaît dès que le second edge existe
	f.engine.Follow(ctx, "bob", "alice", domain.FollowStandard, "manual")
	mutual, err = f.engine.AreMutualFriends(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, mutual)

	// Et disparaît avec lui
	f.engine.Unfollow(ctx, "alice", "bob")
	mutual, err = f.engine.AreMutualFriends(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, mutual)
}

func TestGetMutualFriends(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	f.engine.Follow(ctx, "alice", "carol", domain.FollowStandard, "manual")
	f.engine.Follow(ctx, "alice", "dave", domain.FollowStandard, "manual")
	f.engine.Follow(ctx, "bob", "carol", domain.FollowStandard, "manual")
	f.engine.Follow(ctx, "bob", "eve", domain.FollowStandard, "manual")

	mutual, err := f.engine.GetMutualFriends(ctx, "alice", "bob", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, mutual)
}

func TestGetRelationship(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")
	f.engine.Mute(ctx, "bob", "alice")

	rel, err := f.engine.GetRelationship(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, rel.User1FollowsUser2)
	assert.False(t, rel.User2FollowsUser1)
	assert.True(t, rel.User2MutedUser1)
	assert.False(t, rel.AreMutualFriends())

	_, err = f.engine.GetRelationship(ctx, "", "bob")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEngine_MetricsRecorded(t *testing.T) {
	f := newTestEngine(t, config.EngineConfig{})
	ctx := context.Background()

	f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")
	f.engine.Unfollow(ctx, "alice", "bob")
	f.engine.Follow(ctx, "alice", "bob", domain.FollowStandard, "manual")

	m := f.engine.Metrics()
	assert.Equal(t, "follow-service", m.ServiceName)
	assert.Equal(t, uint64(2), m.Operations["follow_user"].Count)
	assert.Equal(t, uint64(1), m.Operations["unfollow_user"].Count)
	assert.Equal(t, uint64(3), m.TotalOperations)
}
