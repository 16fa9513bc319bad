package flow

// EventKind classifies an inbound update after router normalization.
type EventKind string

const (
	// EventStart begins or restarts a session (/start).
	EventStart EventKind = "start"
	// EventCancel ends the session (/cancel).
	EventCancel EventKind = "cancel"
	// EventChoice is an inline button press, identified by Menu and Args.
	EventChoice EventKind = "choice"
)

// Menu identifiers carried as the callback unique on the wire.
const (
	MenuMain     = "main"
	MenuWordsets = "wordsets"
	MenuQuiz     = "quiz"
)

// Main menu action values.
const (
	ActionWords    = "words"
	ActionStats    = "stats"
	ActionSettings = "settings"
)

// Wordsets menu argument heads.
const (
	WordsetsPage = "page"
	WordsetsSet  = "set"
)

// Quiz menu argument heads.
const (
	QuizAnswer = "ans"
	QuizBack   = "back"
)

// Event is one normalized inbound update. The router parses callback data
// exactly once; handlers only ever see Menu plus decoded Args.
type Event struct {
	Kind EventKind
	Menu string
	Args []string
	// MessageID is the inbound command message, scheduled for cleanup.
	MessageID int
}
