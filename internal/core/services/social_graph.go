package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/domain"
	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/ports"
)

// SocialGraph maintient l'adjacence en mémoire du process (hot cache) et
// pousse les mêmes mutations vers la projection GraphStore en best-effort.
//
// L'adjacence locale sert deux usages : l'intersection mutual-friends et la
// génération de candidats friend-of-friend. Elle est reconstruisible depuis
// le store, donc une divergence transitoire est acceptable.
type SocialGraph struct {
	mu       sync.RWMutex
	outgoing map[string]map[string]struct{} // user -> following
	incoming map[string]map[string]struct{} // user -> followers

	graphStore ports.GraphStore // optionnel (nil en test)
}

func NewSocialGraph(graphStore ports.GraphStore) *SocialGraph {
	return &SocialGraph{
		outgoing:   make(map[string]map[string]struct{}),
		incoming:   make(map[string]map[string]struct{}),
		graphStore: graphStore,
	}
}

// AddFollowRelationship tient l'adjacence locale cohérente avec le store
// après une mutation réussie, puis synchronise la projection.
func (g *SocialGraph) AddFollowRelationship(ctx context.Context, followerID, followingID string) {
	g.mu.Lock()
	if g.outgoing[followerID] == nil {
		g.outgoing[followerID] = make(map[string]struct{})
	}
	if g.incoming[followingID] == nil {
		g.incoming[followingID] = make(map[string]struct{})
	}
	g.outgoing[followerID][followingID] = struct{}{}
	g.incoming[followingID][followerID] = struct{}{}
	g.mu.Unlock()

	if g.graphStore != nil {
		if err := g.graphStore.AddFollow(ctx, followerID, followingID); err != nil {
			slog.Warn("⚠️ Graph projection sync failed", "op", "add", "error", err)
		}
	}
}

func (g *SocialGraph) RemoveFollowRelationship(ctx context.Context, followerID, followingID string) {
	g.mu.Lock()
	delete(g.outgoing[followerID], followingID)
	delete(g.incoming[followingID], followerID)
	g.mu.Unlock()

	if g.graphStore != nil {
		if err := g.graphStore.RemoveFollow(ctx, followerID, followingID); err != nil {
			slog.Warn("⚠️ Graph projection sync failed", "op", "remove", "error", err)
		}
	}
}

// HasRelationship consulte uniquement l'adjacence locale.
func (g *SocialGraph) HasRelationship(followerID, followingID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.outgoing[followerID][followingID]
	return ok
}

// MutualFriends est l'intersection des deux ensembles "following",
// bornée par limit. Ordre déterministe (tri lexicographique).
func (g *SocialGraph) MutualFriends(user1ID, user2ID string, limit int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	set1 := g.outgoing[user1ID]
	set2 := g.outgoing[user2ID]
	if len(set1) == 0 || len(set2) == 0 {
		return nil
	}
	// On itère sur le plus petit ensemble
	if len(set2) < len(set1) {
		set1, set2 = set2, set1
	}

	var mutual []string
	for id := range set1 {
		if _, ok := set2[id]; ok {
			mutual = append(mutual, id)
		}
	}
	sort.Strings(mutual)
	if limit > 0 && len(mutual) > limit {
		mutual = mutual[:limit]
	}
	return mutual
}

// MutualFriendCandidates génère des candidats friend-of-friend : les comptes
// suivis par les comptes que je suis, que je ne suis pas encore.
// Score = part des followings qui mènent au candidat, plafonnée à 1.0.
func (g *SocialGraph) MutualFriendCandidates(userID string, limit int) []domain.Candidate {
	g.mu.RLock()
	following := g.outgoing[userID]
	counts := make(map[string]int)
	for friend := range following {
		for fof := range g.outgoing[friend] {
			if fof == userID {
				continue
			}
			if _, already := following[fof]; already {
				continue
			}
			counts[fof]++
		}
	}
	g.mu.RUnlock()

	if len(counts) == 0 {
		return nil
	}

	denom := float64(len(following))
	candidates := make([]domain.Candidate, 0, len(counts))
	for id, n := range counts {
		score := float64(n) / denom
		if score > 1.0 {
			score = 1.0
		}
		candidates = append(candidates, domain.Candidate{
			UserID:  id,
			Score:   score,
			Sources: []string{string(domain.AlgoMutualFriends)},
		})
	}

	// Tri score décroissant, id croissant à score égal (déterminisme)
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].UserID < candidates[j].UserID
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// InterestCandidates délègue à la projection : les scores d'intérêt sont
// calculés en amont, le graphe ne fait que les consommer.
func (g *SocialGraph) InterestCandidates(ctx context.Context, userID string, limit int) []domain.Candidate {
	if g.graphStore == nil {
		return nil
	}
	candidates, err := g.graphStore.InterestCandidates(ctx, userID, limit)
	if err != nil {
		slog.Warn("⚠️ Interest candidates unavailable", "user_id", userID, "error", err)
		return nil
	}
	return candidates
}

func (g *SocialGraph) TrendingCandidates(ctx context.Context, userID string, limit int) []domain.Candidate {
	if g.graphStore == nil {
		return nil
	}
	candidates, err := g.graphStore.TrendingCandidates(ctx, userID, limit)
	if err != nil {
		slog.Warn("⚠️ Trending candidates unavailable", "user_id", userID, "error", err)
		return nil
	}
	return candidates
}

// Resident indique si l'utilisateur a au moins un edge connu localement.
// Sert au fallback store des lectures mutual-friends.
func (g *SocialGraph) Resident(userID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.outgoing[userID]) > 0 || len(g.incoming[userID]) > 0
}
