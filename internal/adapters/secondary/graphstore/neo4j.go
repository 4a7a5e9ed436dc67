package graphstore

import (
	"context"

	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/domain"
	"github.com/jupiterclapton/cenackle/services/follow-service/internal/core/ports"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jGraph est la projection graphe des edges FOLLOWS : alimentée en
// best-effort après chaque mutation, elle sert les requêtes de découverte
// (intérêts partagés, tendances) que le relationnel exprime mal.
type Neo4jGraph struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jGraph(driver neo4j.DriverWithContext) ports.GraphStore {
	return &Neo4jGraph{driver: driver}
}

// EnsureSchema crée la contrainte d'unicité (et donc l'index) sur User.id
func (g *Neo4jGraph) EnsureSchema(ctx context.Context) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`
		_, err := tx.Run(ctx, query, nil)
		return nil, err
	})
	return err
}

func (g *Neo4jGraph) AddFollow(ctx context.Context, followerID, followingID string) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// MERGE est idempotent : rejouer une projection ne duplique rien
		query := `
			MERGE (a:User {id: $followerId})
			MERGE (b:User {id: $followingId})
			MERGE (a)-[r:FOLLOWS]->(b)
			ON CREATE SET r.created_at = datetime()
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"followerId":  followerID,
			"followingId": followingID,
		})
		return nil, err
	})
	return err
}

func (g *Neo4jGraph) RemoveFollow(ctx context.Context, followerID, followingID string) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (a:User {id: $followerId})-[r:FOLLOWS]->(b:User {id: $followingId})
			DELETE r
		`
		_, err := tx.Run(ctx, query, map[string]any{"followerId": followerID, "followingId": followingID})
		return nil, err
	})
	return err
}

// InterestCandidates : users suivis par les personnes que je suis, que je ne
// suis pas encore. Le score est la fraction de mon following qui les suit.
func (g *Neo4jGraph) InterestCandidates(ctx context.Context, userID string, limit int) ([]domain.Candidate, error) {
	query := `
		MATCH (me:User {id: $userId})-[:FOLLOWS]->(friend:User)-[:FOLLOWS]->(candidate:User)
		WHERE candidate.id <> $userId
		  AND NOT (me)-[:FOLLOWS]->(candidate)
		WITH candidate, count(DISTINCT friend) AS overlap,
		     size([(me)-[:FOLLOWS]->(x) | x]) AS total
		RETURN candidate.id AS id,
		       toFloat(overlap) / toFloat(CASE WHEN total = 0 THEN 1 ELSE total END) AS score
		ORDER BY score DESC, id ASC
		LIMIT $limit
	`
	return g.readCandidates(ctx, query, map[string]any{"userId": userID, "limit": limit}, "interests")
}

// TrendingCandidates : users dont l'in-degree récent est le plus fort,
// normalisé sur le max de la fenêtre.
func (g *Neo4jGraph) TrendingCandidates(ctx context.Context, userID string, limit int) ([]domain.Candidate, error) {
	query := `
		MATCH (candidate:User)<-[r:FOLLOWS]-(:User)
		WHERE candidate.id <> $userId
		  AND r.created_at >= datetime() - duration({days: 7})
		  AND NOT EXISTS {
			MATCH (me:User {id: $userId})-[:FOLLOWS]->(candidate)
		  }
		WITH candidate, count(r) AS recent
		WITH collect({id: candidate.id, recent: recent}) AS rows, max(recent) AS peak
		UNWIND rows AS row
		RETURN row.id AS id,
		       toFloat(row.recent) / toFloat(CASE WHEN peak = 0 THEN 1 ELSE peak END) AS score
		ORDER BY score DESC, id ASC
		LIMIT $limit
	`
	return g.readCandidates(ctx, query, map[string]any{"userId": userID, "limit": limit}, "trending")
}

func (g *Neo4jGraph) readCandidates(ctx context.Context, query string, params map[string]any, source string) ([]domain.Candidate, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		var candidates []domain.Candidate
		for res.Next(ctx) {
			rec := res.Record()
			id, _ := rec.Get("id")
			score, _ := rec.Get("score")
			candidates = append(candidates, domain.Candidate{
				UserID:  id.(string),
				Score:   score.(float64),
				Sources: []string{source},
			})
		}
		return candidates, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Candidate), nil
}
