package domain

import "time"

// FollowType qualifie un edge Follow (standard, close friend, notifications actives)
type FollowType string

const (
	FollowStandard     FollowType = "standard"
	FollowCloseFriend  FollowType = "close_friend"
	FollowNotification FollowType = "notification"
)

// Follow représente un lien dirigé (follower -> following).
// Unique par paire ordonnée : la contrainte est portée par le store.
type Follow struct {
	FollowerID  string
	FollowingID string
	Type        FollowType
	CreatedAt   time.Time
}

// Block est un edge dirigé indépendant du Follow.
// Invariant : un Block et un Follow ne coexistent jamais sur la même paire ordonnée.
type Block struct {
	BlockerID string
	BlockedID string
	CreatedAt time.Time
}

// Mute est un edge dirigé sans effet sur les Follow existants.
type Mute struct {
	MuterID   string
	MutedID   string
	CreatedAt time.Time
}

// FollowPage est une page de followers/following avec curseur keyset.
// Le curseur est la date de création du dernier edge vu (RFC3339Nano).
type FollowPage struct {
	UserIDs    []string
	Count      int
	NextCursor string
}

// FollowEvent est l'événement d'interaction publié en best-effort après mutation.
type FollowEvent struct {
	EventID     string    `json:"event_id"`
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	EventType   string    `json:"event_type"` // follow, unfollow, block, unblock, mute, unmute
	Source      string    `json:"source"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// FollowerAnalytics agrège l'évolution des followers sur une fenêtre glissante.
type FollowerAnalytics struct {
	UserID            string           `json:"user_id"`
	PeriodDays        int              `json:"period_days"`
	TotalFollowers    int64            `json:"total_followers"`
	UniqueFollowers   int64            `json:"unique_followers"`
	NewFollowersByDay map[string]int64 `json:"new_followers_by_day"` // clé : date "2006-01-02"
	GeneratedAt       time.Time        `json:"generated_at"`
}

// SocialMetrics est le résumé compteurs d'un utilisateur.
type SocialMetrics struct {
	UserID         string  `json:"user_id"`
	FollowerCount  int64   `json:"follower_count"`
	FollowingCount int64   `json:"following_count"`
	MutualCount    int64   `json:"mutual_count"`
	Ratio          float64 `json:"ratio"` // followers / following (0 si following == 0)
}
