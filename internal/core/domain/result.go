package domain

import "time"

// Status est le code de résultat d'une opération du moteur.
// Jeu fermé : les appelants peuvent switcher exhaustivement dessus
// au lieu de sonder des clés JSON optionnelles.
type Status string

const (
	// Succès
	StatusFollowSuccess   Status = "FollowSuccess"
	StatusAlreadyFollowing Status = "AlreadyFollowing" // idempotent, pas une erreur
	StatusUnfollowSuccess Status = "UnfollowSuccess"
	StatusNotFollowing    Status = "NotFollowing" // idempotent, pas une erreur
	StatusBlockSuccess    Status = "BlockSuccess"
	StatusUnblockSuccess  Status = "UnblockSuccess"
	StatusMuteSuccess     Status = "MuteSuccess"
	StatusUnmuteSuccess   Status = "UnmuteSuccess"
	StatusBulkCompleted   Status = "BulkCompleted"
	StatusRecommendationsReady Status = "RecommendationsReady"
	StatusPageReady       Status = "PageReady"

	// Rejets de validation (avant tout accès au store)
	StatusSelfFollow   Status = "SelfFollow"
	StatusSelfBlock    Status = "SelfBlock"
	StatusSelfMute     Status = "SelfMute"
	StatusInvalidInput Status = "InvalidInput"

	// Rejets de politique (après lecture, avant mutation)
	StatusFollowingLimitExceeded Status = "FollowingLimitExceeded"
	StatusUserBlocked            Status = "UserBlocked"
	StatusBulkSizeExceeded       Status = "BulkSizeExceeded"

	// Échecs d'infrastructure (message sous-jacent transmis tel quel)
	StatusFollowFailed       Status = "FollowFailed"
	StatusUnfollowFailed     Status = "UnfollowFailed"
	StatusBlockFailed        Status = "BlockFailed"
	StatusUnblockFailed      Status = "UnblockFailed"
	StatusMuteFailed         Status = "MuteFailed"
	StatusUnmuteFailed       Status = "UnmuteFailed"
	StatusBulkFollowFailed   Status = "BulkFollowFailed"
	StatusBulkUnfollowFailed Status = "BulkUnfollowFailed"
)

// Envelope porte le jeu de champs fixe commun à tous les résultats.
type Envelope struct {
	Success          bool   `json:"success"`
	Status           Status `json:"status"`
	Message          string `json:"message,omitempty"`
	Timestamp        int64  `json:"timestamp"` // unix millis
	ProcessingTimeUs int64  `json:"processing_time_us,omitempty"`
}

func (e Envelope) IsSuccess() bool { return e.Success }

// NewSuccess / NewFailure fabriquent l'enveloppe datée.
func NewSuccess(status Status) Envelope {
	return Envelope{Success: true, Status: status, Timestamp: time.Now().UnixMilli()}
}

func NewFailure(status Status, message string) Envelope {
	return Envelope{Success: false, Status: status, Message: message, Timestamp: time.Now().UnixMilli()}
}

// FollowResult est le résultat d'un Follow (succès idempotent compris).
type FollowResult struct {
	Envelope
	FollowerID       string     `json:"follower_id,omitempty"`
	FollowingID      string     `json:"following_id,omitempty"`
	FollowType       FollowType `json:"follow_type,omitempty"`
	Source           string     `json:"source,omitempty"`
	FollowedAt       time.Time  `json:"followed_at,omitzero"`
	AlreadyFollowing bool       `json:"already_following,omitempty"`
}

type UnfollowResult struct {
	Envelope
	FollowerID   string `json:"follower_id,omitempty"`
	FollowingID  string `json:"following_id,omitempty"`
	WasFollowing bool   `json:"was_following"`
}

type BlockResult struct {
	Envelope
	BlockerID string `json:"blocker_id,omitempty"`
	BlockedID string `json:"blocked_id,omitempty"`
	// Follows supprimés dans les deux sens lors du block (précédence du blocage)
	RemovedFollows int `json:"removed_follows"`
}

type MuteResult struct {
	Envelope
	MuterID string `json:"muter_id,omitempty"`
	MutedID string `json:"muted_id,omitempty"`
}

// BulkEntry est le verdict individuel d'une cible d'un appel bulk.
// Un échec sur une cible ne rollback jamais les succès des autres.
type BulkEntry struct {
	TargetID string `json:"target_id"`
	Success  bool   `json:"success"`
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
}

type BulkResult struct {
	Envelope
	FollowerID string      `json:"follower_id,omitempty"`
	Requested  int         `json:"requested"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
	Results    []BulkEntry `json:"results,omitempty"`
}

// PagedResult enveloppe une page de followers/following.
type PagedResult struct {
	Envelope
	UserID     string   `json:"user_id"`
	UserIDs    []string `json:"user_ids"`
	Count      int      `json:"count"`
	NextCursor string   `json:"next_cursor,omitempty"`
}
