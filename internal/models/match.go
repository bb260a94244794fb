package models

import "time"

// MatchMinImages is the global floor of active pool images required
// before any match can start, regardless of board size.
const MatchMinImages = 16

type MatchStatus string

const (
	MatchStatusWaiting    MatchStatus = "waiting"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCancelled  MatchStatus = "cancelled"
)

type ParticipantResult string

const (
	ResultInProgress     ParticipantResult = "in_progress"
	ResultGuessedCorrect ParticipantResult = "guessed_correct"
	ResultGuessedWrong   ParticipantResult = "guessed_wrong"
	ResultTimeout        ParticipantResult = "timeout"
)

type ActionType string

const (
	ActionAsk       ActionType = "ask"
	ActionAnswer    ActionType = "answer"
	ActionEliminate ActionType = "eliminate"
	ActionGuess     ActionType = "guess"
	ActionSystem    ActionType = "system"
)

// Match is one game between exactly two members of a room.
//
// ActiveRoomKey holds the room id while the match is waiting or
// in_progress and is cleared on completion. The unique index over it
// makes "at most one active match per room" a storage-level guarantee:
// a losing concurrent insert fails with a duplicate-key error instead
// of producing a second active match.
type Match struct {
	ID                string      `gorm:"primaryKey;size:36" json:"id"`
	RoomID            string      `gorm:"size:36;not null;index" json:"roomId"`
	Status            MatchStatus `gorm:"size:20;not null;index" json:"status"`
	BoardSize         int         `gorm:"not null" json:"boardSize"`
	SelectedImageIDs  StringList  `gorm:"not null" json:"selectedImageIds"`
	StartedByMemberID string      `gorm:"size:36;not null" json:"startedByMemberId"`
	TurnMemberID      *string     `gorm:"size:36" json:"turnMemberId,omitempty"`
	WinnerMemberID    *string     `gorm:"size:36" json:"winnerMemberId,omitempty"`
	SeedHash          string      `gorm:"size:64;not null" json:"randomizationSeedHash"`
	ActiveRoomKey     *string     `gorm:"size:36;uniqueIndex" json:"-"`
	StartedAt         time.Time   `json:"startedAt"`
	EndedAt           *time.Time  `json:"endedAt,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// MatchParticipant holds one member's per-match state. BoardImageOrder
// and SecretTargetImageID are private to the owning member; the view
// layer is the single place that decides whether they are exposed.
type MatchParticipant struct {
	ID                  string            `gorm:"primaryKey;size:36" json:"id"`
	MatchID             string            `gorm:"size:36;not null;index;uniqueIndex:uniq_match_member" json:"matchId"`
	RoomMemberID        string            `gorm:"size:36;not null;uniqueIndex:uniq_match_member" json:"roomMemberId"`
	BoardImageOrder     StringList        `gorm:"not null" json:"boardImageOrder"`
	SecretTargetImageID string            `gorm:"size:36;not null" json:"secretTargetImageId"`
	EliminatedImageIDs  StringList        `gorm:"not null" json:"eliminatedImageIds"`
	Result              ParticipantResult `gorm:"size:20;not null" json:"result"`
	ReadyAt             time.Time         `json:"readyAt"`
	LastActionAt        time.Time         `json:"lastActionAt"`
}

// MatchAction is one append-only audit log entry. Actions are never
// mutated or deleted; ordered by CreatedAt they form the full replay.
type MatchAction struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	MatchID       string     `gorm:"size:36;not null;index" json:"matchId"`
	ActorMemberID *string    `gorm:"size:36" json:"actorMemberId,omitempty"`
	ActionType    ActionType `gorm:"size:20;not null" json:"actionType"`
	Payload       JSONMap    `gorm:"not null" json:"payload"`
	CreatedAt     time.Time  `gorm:"index" json:"createdAt"`
}
