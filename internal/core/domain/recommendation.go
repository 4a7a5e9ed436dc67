package domain

// Algorithm sélectionne la ou les sources de candidats.
type Algorithm string

const (
	AlgoMutualFriends Algorithm = "mutual_friends"
	AlgoInterests     Algorithm = "interests"
	AlgoTrending      Algorithm = "trending"
	AlgoHybrid        Algorithm = "hybrid"
)

// Candidate est une suggestion de follow avec son score composite.
type Candidate struct {
	UserID  string   `json:"user_id"`
	Score   float64  `json:"score"`
	Sources []string `json:"sources,omitempty"`
}

// Recommendations est la liste fusionnée, dédupliquée et triée.
type Recommendations struct {
	Envelope
	UserID     string      `json:"user_id"`
	Algorithm  Algorithm   `json:"algorithm"`
	Count      int         `json:"count"`
	Candidates []Candidate `json:"recommendations"`
}
