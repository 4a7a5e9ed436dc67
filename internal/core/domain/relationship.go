package domain

import (
	"math"
	"time"
)

// Relationship est l'état dérivé entre deux utilisateurs.
// Jamais stocké : recalculé à la demande depuis les edges sous-jacents,
// la mutualité n'est donc jamais un fait caché divorcé de l'invalidation.
type Relationship struct {
	User1ID string `json:"user1_id"`
	User2ID string `json:"user2_id"`

	User1FollowsUser2 bool `json:"user1_follows_user2"`
	User2FollowsUser1 bool `json:"user2_follows_user1"`
	User1BlockedUser2 bool `json:"user1_blocked_user2"`
	User2BlockedUser1 bool `json:"user2_blocked_user1"`
	User1MutedUser2   bool `json:"user1_muted_user2"`
	User2MutedUser1   bool `json:"user2_muted_user1"`

	// Signaux d'interaction consommés tels quels (calculés ailleurs)
	TotalInteractions    int       `json:"total_interactions"`
	MutualFollowersCount int       `json:"mutual_followers_count"`
	CreatedAt            time.Time `json:"created_at,omitzero"`
	LastInteractionAt    time.Time `json:"last_interaction_at,omitzero"`
}

// AreMutualFriends : les deux edges dirigés existent.
func (r *Relationship) AreMutualFriends() bool {
	return r.User1FollowsUser2 && r.User2FollowsUser1
}

func (r *Relationship) AnyBlock() bool {
	return r.User1BlockedUser2 || r.User2BlockedUser1
}

func (r *Relationship) AnyMute() bool {
	return r.User1MutedUser2 || r.User2MutedUser1
}

// CalculateStrength calcule le score de force de la relation (0.0 - 1.0).
//
// Base 0.5 si mutuel (0.3 si un seul sens), puis facteurs pondérés :
// interactions (plafond 100), récence (décroissance hebdomadaire),
// ancienneté (log), connexions mutuelles (plafond 50).
// Un mute pénalise (-0.3), un block annule tout (-1.0).
func (r *Relationship) CalculateStrength() float64 {
	return r.CalculateStrengthAt(time.Now().UTC())
}

// CalculateStrengthAt évalue le score à un instant donné (tests déterministes).
func (r *Relationship) CalculateStrengthAt(now time.Time) float64 {
	base := 0.0
	if r.AreMutualFriends() {
		base = 0.5
	} else if r.User1FollowsUser2 || r.User2FollowsUser1 {
		base = 0.3
	}

	interactionFactor := math.Min(1.0, float64(r.TotalInteractions)/100.0)

	recencyFactor := 0.0
	if !r.LastInteractionAt.IsZero() {
		hours := now.Sub(r.LastInteractionAt).Hours()
		if hours < 0 {
			hours = 0
		}
		recencyFactor = math.Exp(-hours / 168.0)
	}

	durationFactor := 0.0
	if !r.CreatedAt.IsZero() {
		days := now.Sub(r.CreatedAt).Hours() / 24.0
		if days < 0 {
			days = 0
		}
		durationFactor = math.Log(days+1) / 10.0
	}

	mutualFactor := math.Min(1.0, float64(r.MutualFollowersCount)/50.0)

	penalty := 0.0
	if r.AnyMute() {
		penalty = -0.3
	}
	if r.AnyBlock() {
		penalty = -1.0
	}

	strength := base +
		interactionFactor*0.25 +
		recencyFactor*0.15 +
		durationFactor*0.1 +
		mutualFactor*0.1 +
		penalty

	return math.Max(0.0, math.Min(1.0, strength))
}
