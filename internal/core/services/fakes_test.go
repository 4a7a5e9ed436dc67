package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/domain"
)

// fakeStore est un RelationshipStore en mémoire pour les tests du moteur.
// Les erreurs injectables (failCreate, failCount...) simulent les pannes.
type fakeStore struct {
	mu      sync.Mutex
	follows map[string]*domain.Follow // clé "follower|following"
	blocks  map[string]time.Time     // clé "blocker|blocked"
	mutes   map[string]time.Time

	failCreate bool
	failRemove bool
	failCount  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		follows: make(map[string]*domain.Follow),
		blocks:  make(map[string]time.Time),
		mutes:   make(map[string]time.Time),
	}
}

func edgeKey(a, b string) string { return a + "|" + b }

func (s *fakeStore) CreateFollow(_ context.Context, followerID, followingID string, followType domain.FollowType) (*domain.Follow, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return nil, false, fmt.Errorf("store unavailable")
	}
	key := edgeKey(followerID, followingID)
	if existing, ok := s.follows[key]; ok {
		return existing, false, nil
	}
	f := &domain.Follow{
		FollowerID:  followerID,
		FollowingID: followingID,
		Type:        followType,
		CreatedAt:   time.Now().UTC(),
	}
	s.follows[key] = f
	return f, true, nil
}

func (s *fakeStore) RemoveFollow(_ context.Context, followerID, followingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRemove {
		return false, fmt.Errorf("store unavailable")
	}
	key := edgeKey(followerID, followingID)
	if _, ok := s.follows[key]; !ok {
		return false, nil
	}
	delete(s.follows, key)
	return true, nil
}

func (s *fakeStore) IsFollowing(_ context.Context, followerID, followingID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.follows[edgeKey(followerID, followingID)]
	return ok, nil
}

func (s *fakeStore) GetFollow(_ context.Context, followerID, followingID string) (*domain.Follow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.follows[edgeKey(followerID, followingID)], nil
}

func (s *fakeStore) GetRelationship(_ context.Context, user1ID, user2ID string) (*domain.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel := &domain.Relationship{User1ID: user1ID, User2ID: user2ID}
	_, rel.User1FollowsUser2 = s.follows[edgeKey(user1ID, user2ID)]
	_, rel.User2FollowsUser1 = s.follows[edgeKey(user2ID, user1ID)]
	_, rel.User1BlockedUser2 = s.blocks[edgeKey(user1ID, user2ID)]
	_, rel.User2BlockedUser1 = s.blocks[edgeKey(user2ID, user1ID)]
	_, rel.User1MutedUser2 = s.mutes[edgeKey(user1ID, user2ID)]
	_, rel.User2MutedUser1 = s.mutes[edgeKey(user2ID, user1ID)]
	return rel, nil
}

func (s *fakeStore) GetFollowers(_ context.Context, userID string, limit int, _ string) (*domain.FollowPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, f := range s.follows {
		if f.FollowingID == userID {
			ids = append(ids, f.FollowerID)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return &domain.FollowPage{UserIDs: ids, Count: len(ids)}, nil
}

func (s *fakeStore) GetFollowing(_ context.Context, userID string, limit int, _ string) (*domain.FollowPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, f := range s.follows {
		if f.FollowerID == userID {
			ids = append(ids, f.FollowingID)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return &domain.FollowPage{UserIDs: ids, Count: len(ids)}, nil
}

func (s *fakeStore) GetMutualFollowers(_ context.Context, user1ID, user2ID string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]bool)
	for _, f := range s.follows {
		if f.FollowerID == user1ID {
			set[f.FollowingID] = true
		}
	}
	var mutual []string
	for _, f := range s.follows {
		if f.FollowerID == user2ID && set[f.FollowingID] {
			mutual = append(mutual, f.FollowingID)
		}
	}
	sort.Strings(mutual)
	if len(mutual) > limit {
		mutual = mutual[:limit]
	}
	return mutual, nil
}

func (s *fakeStore) BulkIsFollowing(_ context.Context, followerID string, targetIDs []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string]bool, len(targetIDs))
	for _, id := range targetIDs {
		_, ok := s.follows[edgeKey(followerID, id)]
		result[id] = ok
	}
	return result, nil
}

func (s *fakeStore) BlockUser(_ context.Context, blockerID, blockedID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edgeKey(blockerID, blockedID)
	if _, ok := s.blocks[key]; ok {
		return false, nil
	}
	s.blocks[key] = time.Now().UTC()
	return true, nil
}

func (s *fakeStore) UnblockUser(_ context.Context, blockerID, blockedID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edgeKey(blockerID, blockedID)
	if _, ok := s.blocks[key]; !ok {
		return false, nil
	}
	delete(s.blocks, key)
	return true, nil
}

func (s *fakeStore) IsBlocked(_ context.Context, userID, otherID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blocks[edgeKey(userID, otherID)]
	return ok, nil
}

func (s *fakeStore) MuteUser(_ context.Context, muterID, mutedID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edgeKey(muterID, mutedID)
	if _, ok := s.mutes[key]; ok {
		return false, nil
	}
	s.mutes[key] = time.Now().UTC()
	return true, nil
}

func (s *fakeStore) UnmuteUser(_ context.Context, muterID, mutedID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edgeKey(muterID, mutedID)
	if _, ok := s.mutes[key]; !ok {
		return false, nil
	}
	delete(s.mutes, key)
	return true, nil
}

func (s *fakeStore) GetFollowerCount(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, f := range s.follows {
		if f.FollowingID == userID {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) GetFollowingCount(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCount {
		return 0, fmt.Errorf("store unavailable")
	}
	var count int64
	for _, f := range s.follows {
		if f.FollowerID == userID {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) GetFollowerAnalytics(_ context.Context, userID string, days int) (*domain.FollowerAnalytics, error) {
	total, _ := s.GetFollowerCount(context.Background(), userID)
	return &domain.FollowerAnalytics{
		UserID:            userID,
		PeriodDays:        days,
		TotalFollowers:    total,
		UniqueFollowers:   total,
		NewFollowersByDay: map[string]int64{},
		GeneratedAt:       time.Now().UTC(),
	}, nil
}

func (s *fakeStore) GetSocialMetrics(_ context.Context, userID string) (*domain.SocialMetrics, error) {
	followers, _ := s.GetFollowerCount(context.Background(), userID)
	following, _ := s.GetFollowingCount(context.Background(), userID)
	m := &domain.SocialMetrics{UserID: userID, FollowerCount: followers, FollowingCount: following}
	if following > 0 {
		m.Ratio = float64(followers) / float64(following)
	}
	return m, nil
}

// fakeCache mémorise les paires posées (sans TTL : l'éviction se simule
// via InvalidatePair)
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]bool)}
}

func (c *fakeCache) GetFollowing(_ context.Context, followerID, followingID string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[edgeKey(followerID, followingID)]
	return v, ok
}

func (c *fakeCache) SetFollowing(_ context.Context, followerID, followingID string, value bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[edgeKey(followerID, followingID)] = value
}

func (c *fakeCache) InvalidatePair(_ context.Context, followerID, followingID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, edgeKey(followerID, followingID))
}

// fakeInvalidator compte les invalidations par user, avec panne injectable
type fakeInvalidator struct {
	mu    sync.Mutex
	calls map[string]int
	fail  bool
}

func newFakeInvalidator() *fakeInvalidator {
	return &fakeInvalidator{calls: make(map[string]int)}
}

func (i *fakeInvalidator) InvalidateUser(_ context.Context, userID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.fail {
		return fmt.Errorf("redis down")
	}
	i.calls[userID]++
	return nil
}

// fakeRecorder capture les événements publiés, avec panne injectable
type fakeRecorder struct {
	mu     sync.Mutex
	events []domain.FollowEvent
	fail   bool
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{}
}

func (r *fakeRecorder) RecordFollowEvent(_ context.Context, event domain.FollowEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return fmt.Errorf("nats down")
	}
	r.events = append(r.events, event)
	return nil
}

func (r *fakeRecorder) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.EventType
	}
	return types
}
