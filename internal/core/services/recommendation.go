package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/domain"
)

// Pondérations du mode hybride : la première occurrence d'un user id gagne,
// les doublons venant d'une source moins prioritaire sont écartés.
const (
	weightMutualFriends = 1.0
	weightInterests     = 0.8
	weightTrending      = 0.6
)

// RecommendationEngine fusionne les sources de candidats du SocialGraph
// en une seule liste pondérée, dédupliquée et triée.
type RecommendationEngine struct {
	graph *SocialGraph
	perf  *PerformanceTracker
}

func NewRecommendationEngine(graph *SocialGraph, perf *PerformanceTracker) *RecommendationEngine {
	return &RecommendationEngine{graph: graph, perf: perf}
}

func (r *RecommendationEngine) GetRecommendations(ctx context.Context, userID string, limit int, algorithm domain.Algorithm) *domain.Recommendations {
	start := time.Now()
	if limit <= 0 {
		limit = 20
	}
	if algorithm == "" {
		algorithm = domain.AlgoHybrid
	}

	var merged []domain.Candidate
	switch algorithm {
	case domain.AlgoMutualFriends:
		merged = r.graph.MutualFriendCandidates(userID, limit)
	case domain.AlgoInterests:
		merged = r.graph.InterestCandidates(ctx, userID, limit)
	case domain.AlgoTrending:
		merged = r.graph.TrendingCandidates(ctx, userID, limit)
	default:
		merged = r.hybrid(ctx, userID, limit)
	}

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	elapsed := time.Since(start)
	r.perf.Record("get_recommendations", elapsed)

	slog.Debug("🎯 Recommendations generated",
		"user_id", userID, "algorithm", algorithm, "count", len(merged))

	result := &domain.Recommendations{
		Envelope:   domain.NewSuccess(domain.StatusRecommendationsReady),
		UserID:     userID,
		Algorithm:  algorithm,
		Count:      len(merged),
		Candidates: merged,
	}
	result.ProcessingTimeUs = elapsed.Microseconds()
	return result
}

// hybrid applique la fusion pondérée : itération dans l'ordre des sources
// (mutual > interests > trending), multiplication du score brut par le poids
// de la source, première occurrence gagnante, tri décroissant, troncature.
// Une source vide ou indisponible ne contribue rien et ne fait jamais échouer.
func (r *RecommendationEngine) hybrid(ctx context.Context, userID string, limit int) []domain.Candidate {
	type weightedSource struct {
		candidates []domain.Candidate
		weight     float64
	}

	sources := []weightedSource{
		{r.graph.MutualFriendCandidates(userID, limit), weightMutualFriends},
		{r.graph.InterestCandidates(ctx, userID, limit), weightInterests},
		{r.graph.TrendingCandidates(ctx, userID, limit), weightTrending},
	}

	seen := make(map[string]struct{})
	var merged []domain.Candidate
	for _, src := range sources {
		for _, c := range src.candidates {
			if c.UserID == "" {
				continue
			}
			if _, dup := seen[c.UserID]; dup {
				continue
			}
			seen[c.UserID] = struct{}{}
			c.Score *= src.weight
			merged = append(merged, c)
		}
	}

	// Tri stable : à score égal, l'ordre des sources est conservé
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
