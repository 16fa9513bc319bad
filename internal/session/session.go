// Package session holds per-user conversational state for the quiz flow.
// State lives only for the duration of an active session; nothing here
// survives a process restart.
package session

import (
	"time"

	"github.com/m3rciful/wordbot/internal/quiz"
)

// Phase is one state of the conversation state machine.
type Phase string

const (
	// PhaseChoosingAction shows the top-level action menu.
	PhaseChoosingAction Phase = "choosing_action"
	// PhaseChoosingCollection shows the paginated collection menu.
	PhaseChoosingCollection Phase = "choosing_collection"
	// PhasePlayingQuiz serves quiz items one at a time.
	PhasePlayingQuiz Phase = "playing_quiz"
	// PhaseEnded is absorbing; the session is about to be discarded.
	PhaseEnded Phase = "ended"
)

// Slot is a logical display role. The status and interactive slots may
// coexist during quiz play; each holds at most one live message.
type Slot string

const (
	// SlotStatus carries menus, statistics, and summaries.
	SlotStatus Slot = "status"
	// SlotInteractive carries the quiz item awaiting an answer.
	SlotInteractive Slot = "interactive"
)

// Session is the per-user conversational state, keyed by Telegram user ID.
type Session struct {
	UserID int64
	ChatID int64
	// Token is the per-user word service token, acquired once at session start.
	Token string
	Phase Phase

	// Surfaces maps each slot to the message ID currently live for it.
	Surfaces map[Slot]int
	// PendingDeletions are message IDs queued for best-effort removal on
	// the next phase transition.
	PendingDeletions []int

	// Page is the collection menu page currently shown (1-indexed).
	Page int
	// Titles caches id to title for collections shown this session, so a
	// selection callback does not need a second listing request.
	Titles map[int64]string
	// CollectionID and CollectionTitle identify the collection being played.
	CollectionID    int64
	CollectionTitle string

	Queue   *quiz.Queue
	Current *quiz.Item
	Stats   quiz.Snapshot

	LastSeen time.Time
}

// New creates a session in the initial phase. The caller must already hold
// a valid user token.
func New(userID, chatID int64, token string) *Session {
	return &Session{
		UserID:   userID,
		ChatID:   chatID,
		Token:    token,
		Phase:    PhaseChoosingAction,
		Surfaces: make(map[Slot]int),
		Titles:   make(map[int64]string),
		Page:     1,
	}
}

// ResetRound discards in-flight quiz state, keeping surfaces and token.
func (s *Session) ResetRound() {
	s.Queue = nil
	s.Current = nil
	s.Stats = quiz.Snapshot{}
	s.CollectionID = 0
	s.CollectionTitle = ""
}
