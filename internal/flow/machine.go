// Package flow is the conversation state machine of the quiz bot. It turns
// normalized events into session transitions and surface updates; all
// per-user work is serialized by the session store.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"log/slog"

	"github.com/m3rciful/wordbot/core/logger"
	"github.com/m3rciful/wordbot/internal/history"
	"github.com/m3rciful/wordbot/internal/quiz"
	"github.com/m3rciful/wordbot/internal/session"
	"github.com/m3rciful/wordbot/internal/surface"
	"github.com/m3rciful/wordbot/internal/wordservice"
)

// ErrNoSession is returned for events that require a live session.
// Callers answer with a hint to send /start.
var ErrNoSession = errors.New("flow: no active session")

// ErrTokenUnavailable wraps a failed user token acquisition at session
// start. No session is created; callers surface a retry hint to the user.
var ErrTokenUnavailable = errors.New("flow: user token unavailable")

// ErrBackendUnavailable wraps a failed backend fetch mid-session. The
// session and its surfaces are left intact; callers notify the user so a
// tap never goes dark.
var ErrBackendUnavailable = errors.New("flow: backend unavailable")

// Backend lists the word service calls the flow depends on.
type Backend interface {
	Collections(ctx context.Context, token string, page, size int) (*wordservice.CollectionPage, error)
	CollectionQuiz(ctx context.Context, token string, id int64) ([]wordservice.Word, error)
}

// Tokens resolves per-user word service tokens.
type Tokens interface {
	UserToken(ctx context.Context, userID int64) (string, error)
}

// History records finished rounds and aggregates past ones.
type History interface {
	SaveRound(ctx context.Context, round history.Round) error
	UserSummary(ctx context.Context, userID int64) (history.Summary, error)
}

// Options wire the machine's collaborators.
type Options struct {
	Sessions *session.Store
	Surfaces *surface.Manager
	Backend  Backend
	Tokens   Tokens
	History  History
	// PageSize is the collections-per-page count of the wordsets menu.
	PageSize int
}

// Machine drives the per-user conversation.
type Machine struct {
	sessions *session.Store
	surfaces *surface.Manager
	backend  Backend
	tokens   Tokens
	history  History
	pageSize int
}

// NewMachine builds the state machine.
func NewMachine(opts Options) *Machine {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 6
	}
	return &Machine{
		sessions: opts.Sessions,
		surfaces: opts.Surfaces,
		backend:  opts.Backend,
		tokens:   opts.Tokens,
		history:  opts.History,
		pageSize: pageSize,
	}
}

// Sessions exposes the underlying store for lifecycle jobs and diagnostics.
func (m *Machine) Sessions() *session.Store {
	return m.sessions
}

// OnEvent applies one event to the user's session. Events that do not fit
// the current phase are recoverable no-ops.
func (m *Machine) OnEvent(ctx context.Context, userID, chatID int64, ev Event) error {
	switch ev.Kind {
	case EventStart:
		return m.handleStart(ctx, userID, chatID, ev)
	case EventCancel:
		return m.handleCancel(ctx, userID, ev)
	case EventChoice:
		return m.handleChoice(ctx, userID, ev)
	default:
		logger.FLOW.Debug("unknown event kind",
			slog.String("event", "flow.skip"),
			slog.Int64("user_id", userID),
			slog.String("kind", string(ev.Kind)),
		)
		return nil
	}
}

func (m *Machine) handleStart(ctx context.Context, userID, chatID int64, ev Event) error {
	return m.sessions.Update(userID, func(sess *session.Session) (*session.Session, error) {
		if sess == nil {
			token, err := m.tokens.UserToken(ctx, userID)
			if err != nil {
				logger.FLOW.Warn("session start rejected",
					slog.String("event", "flow.start"),
					slog.Int64("user_id", userID),
					slog.String("err", err.Error()),
				)
				return nil, fmt.Errorf("%w: %w", ErrTokenUnavailable, err)
			}
			sess = session.New(userID, chatID, token)
		} else {
			// Repeated /start rewinds to the action menu without touching
			// the token or the lifetime history.
			sess.ResetRound()
			m.surfaces.DropSlot(sess, session.SlotInteractive)
		}

		m.surfaces.ScheduleDeletion(sess, ev.MessageID)
		sess.Phase = session.PhaseChoosingAction
		m.surfaces.ClearPending(ctx, sess)

		if err := m.renderMain(ctx, sess, mainGreeting); err != nil {
			return sess, err
		}
		logger.FLOW.Debug("session started",
			slog.String("event", "flow.start"),
			slog.Int64("user_id", userID),
			slog.String("phase", string(sess.Phase)),
		)
		return sess, nil
	})
}

func (m *Machine) handleCancel(ctx context.Context, userID int64, ev Event) error {
	return m.sessions.Update(userID, func(sess *session.Session) (*session.Session, error) {
		if sess == nil {
			return nil, ErrNoSession
		}

		sess.Phase = session.PhaseEnded
		m.surfaces.DropAll(sess)
		m.surfaces.ScheduleDeletion(sess, ev.MessageID)
		m.surfaces.ClearPending(ctx, sess)

		// The farewell intentionally outlives the session; the surfaces
		// map is discarded with it.
		err := m.surfaces.ShowOrUpdate(ctx, sess, session.SlotStatus, farewellText, nil)
		logger.FLOW.Info("session ended",
			slog.String("event", "flow.cancel"),
			slog.Int64("user_id", userID),
		)
		return nil, err
	})
}

func (m *Machine) handleChoice(ctx context.Context, userID int64, ev Event) error {
	return m.sessions.Update(userID, func(sess *session.Session) (*session.Session, error) {
		if sess == nil {
			return nil, ErrNoSession
		}

		switch {
		case sess.Phase == session.PhaseChoosingAction && ev.Menu == MenuMain:
			return sess, m.onMainChoice(ctx, sess, ev.Args)
		case sess.Phase == session.PhaseChoosingCollection && ev.Menu == MenuWordsets:
			return sess, m.onWordsetsChoice(ctx, sess, ev.Args)
		case sess.Phase == session.PhasePlayingQuiz && ev.Menu == MenuQuiz:
			return sess, m.onQuizChoice(ctx, sess, ev.Args)
		default:
			// A press on a stale keyboard from a previous phase. Ignore it;
			// the live surfaces already show the current phase.
			logger.FLOW.Debug("choice out of phase",
				slog.String("event", "flow.skip"),
				slog.Int64("user_id", userID),
				slog.String("phase", string(sess.Phase)),
				slog.String("menu", ev.Menu),
			)
			return sess, nil
		}
	})
}

func (m *Machine) onMainChoice(ctx context.Context, sess *session.Session, args []string) error {
	action := ""
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case ActionWords:
		return m.enterCollections(ctx, sess, 1, collectionsPrompt)
	case ActionStats:
		summary, err := m.history.UserSummary(ctx, sess.UserID)
		if err != nil {
			return m.backendFailure(sess, "summary", err)
		}
		m.surfaces.ClearPending(ctx, sess)
		return m.renderMain(ctx, sess, statsText(summary))
	case ActionSettings:
		m.surfaces.ClearPending(ctx, sess)
		return m.renderMain(ctx, sess, settingsText)
	default:
		logger.FLOW.Debug("unknown main action",
			slog.String("event", "flow.skip"),
			slog.Int64("user_id", sess.UserID),
			slog.String("action", action),
		)
		return nil
	}
}

func (m *Machine) onWordsetsChoice(ctx context.Context, sess *session.Session, args []string) error {
	head := ""
	if len(args) > 0 {
		head = args[0]
	}

	switch head {
	case WordsetsPage:
		page := 1
		if len(args) > 1 {
			if n, err := strconv.Atoi(args[1]); err == nil {
				page = n
			}
		}
		return m.enterCollections(ctx, sess, page, collectionsPrompt)
	case WordsetsSet:
		if len(args) < 2 {
			return nil
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return nil
		}
		return m.startRound(ctx, sess, id)
	default:
		logger.FLOW.Debug("unknown wordsets action",
			slog.String("event", "flow.skip"),
			slog.Int64("user_id", sess.UserID),
			slog.String("action", head),
		)
		return nil
	}
}

// enterCollections fetches one listing page, clamps the page number, and
// renders the collection menu into the status slot.
func (m *Machine) enterCollections(ctx context.Context, sess *session.Session, page int, headline string) error {
	if page < 1 {
		page = 1
	}
	listing, err := m.backend.Collections(ctx, sess.Token, page, m.pageSize)
	if err != nil {
		return m.backendFailure(sess, "collections", err)
	}
	if listing.Pages > 0 && page > listing.Pages {
		page = listing.Pages
		listing, err = m.backend.Collections(ctx, sess.Token, page, m.pageSize)
		if err != nil {
			return m.backendFailure(sess, "collections", err)
		}
	}

	for _, col := range listing.Items {
		sess.Titles[col.ID] = col.Title
	}
	sess.Phase = session.PhaseChoosingCollection
	sess.Page = page

	m.surfaces.ClearPending(ctx, sess)
	if len(listing.Items) == 0 && page == 1 {
		sess.Phase = session.PhaseChoosingAction
		return m.renderMain(ctx, sess, noCollectionsText)
	}
	text, markup := collectionsView(headline, listing)
	return m.surfaces.ShowOrUpdate(ctx, sess, session.SlotStatus, text, markup)
}

// startRound loads the collection's quiz payload, builds every item up
// front, and serves the first one. A pool too small for distractors keeps
// the user in the collection menu with a diagnostic.
func (m *Machine) startRound(ctx context.Context, sess *session.Session, collectionID int64) error {
	words, err := m.backend.CollectionQuiz(ctx, sess.Token, collectionID)
	if err != nil {
		return m.backendFailure(sess, "quiz", err)
	}

	if len(words) == 0 {
		return m.enterCollections(ctx, sess, sess.Page, emptyCollectionText)
	}

	pool := make([]string, 0, len(words))
	for _, w := range words {
		pool = append(pool, w.Translate)
	}

	items := make([]quiz.Item, 0, len(words))
	for _, w := range words {
		item, err := quiz.BuildItem(quiz.Word{ID: w.ID, Text: w.Word, Translation: w.Translate}, pool)
		if err != nil {
			var pe *quiz.InsufficientPoolError
			if errors.As(err, &pe) {
				logger.FLOW.Info("collection rejected",
					slog.String("event", "flow.round"),
					slog.Int64("user_id", sess.UserID),
					slog.Int64("collection_id", collectionID),
					slog.Int("have", pe.Have),
				)
				return m.enterCollections(ctx, sess, sess.Page, poolTooSmallText)
			}
			return err
		}
		items = append(items, item)
	}

	sess.ResetRound()
	sess.CollectionID = collectionID
	sess.CollectionTitle = sess.Titles[collectionID]
	sess.Queue = quiz.NewQueue(items)
	sess.Phase = session.PhasePlayingQuiz

	logger.FLOW.Info("round started",
		slog.String("event", "flow.round"),
		slog.Int64("user_id", sess.UserID),
		slog.Int64("collection_id", collectionID),
		slog.Int("queue_len", sess.Queue.Len()),
	)

	m.surfaces.ClearPending(ctx, sess)
	return m.serveNext(ctx, sess)
}

func (m *Machine) onQuizChoice(ctx context.Context, sess *session.Session, args []string) error {
	head := ""
	if len(args) > 0 {
		head = args[0]
	}

	switch head {
	case QuizAnswer:
		if len(args) < 3 || sess.Current == nil {
			return nil
		}
		wordID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || wordID != sess.Current.ID {
			// Stale press on an already-answered item.
			logger.FLOW.Debug("stale answer",
				slog.String("event", "flow.skip"),
				slog.Int64("user_id", sess.UserID),
				slog.Int64("word_id", wordID),
			)
			return nil
		}
		sess.Stats = quiz.Record(sess.Stats, quiz.Evaluate(*sess.Current, args[2]))
		sess.Current = nil
		return m.serveNext(ctx, sess)
	case QuizBack:
		logger.FLOW.Debug("round abandoned",
			slog.String("event", "flow.round"),
			slog.Int64("user_id", sess.UserID),
			slog.Int64("collection_id", sess.CollectionID),
			slog.Int("total", sess.Stats.Total),
		)
		sess.ResetRound()
		return m.leaveQuiz(ctx, sess, collectionsPrompt)
	default:
		return nil
	}
}

// serveNext shows the next pending item, or finishes the round when the
// queue is exhausted.
func (m *Machine) serveNext(ctx context.Context, sess *session.Session) error {
	item, ok := sess.Queue.Next()
	if !ok {
		return m.finishRound(ctx, sess)
	}
	sess.Current = &item

	text, markup := quizItemView(item)
	if err := m.surfaces.ShowOrUpdate(ctx, sess, session.SlotInteractive, text, markup); err != nil {
		return err
	}
	return m.surfaces.ShowOrUpdate(ctx, sess, session.SlotStatus, quizStatusText(sess), nil)
}

func (m *Machine) finishRound(ctx context.Context, sess *session.Session) error {
	round := history.Round{
		UserID:          sess.UserID,
		CollectionID:    sess.CollectionID,
		CollectionTitle: sess.CollectionTitle,
		Total:           sess.Stats.Total,
		Correct:         sess.Stats.Correct,
		Incorrect:       sess.Stats.Incorrect,
	}
	if err := m.history.SaveRound(ctx, round); err != nil {
		// The user still gets the summary; only the lifetime totals miss
		// this round.
		logger.FLOW.Warn("round not persisted",
			slog.String("event", "flow.round"),
			slog.Int64("user_id", sess.UserID),
			slog.String("err", err.Error()),
		)
	}

	logger.FLOW.Info("round finished",
		slog.String("event", "flow.round"),
		slog.Int64("user_id", sess.UserID),
		slog.Int64("collection_id", sess.CollectionID),
		slog.Int("total", sess.Stats.Total),
		slog.Int("correct", sess.Stats.Correct),
		slog.Int("incorrect", sess.Stats.Incorrect),
	)

	headline := roundSummaryText(sess)
	sess.ResetRound()
	return m.leaveQuiz(ctx, sess, headline)
}

// leaveQuiz drops the interactive surface and returns to the collection
// menu at the page the user left off.
func (m *Machine) leaveQuiz(ctx context.Context, sess *session.Session, headline string) error {
	m.surfaces.DropSlot(sess, session.SlotInteractive)
	return m.enterCollections(ctx, sess, sess.Page, headline)
}

// backendFailure wraps a failed fetch so callers can show a notice. The
// session keeps its phase and surfaces; the next tap retries naturally.
func (m *Machine) backendFailure(sess *session.Session, op string, err error) error {
	logger.FLOW.Warn("backend fetch failed",
		slog.String("event", "flow.fetch"),
		slog.Int64("user_id", sess.UserID),
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
	return fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, op, err)
}

func (m *Machine) renderMain(ctx context.Context, sess *session.Session, headline string) error {
	text, markup := mainView(headline)
	return m.surfaces.ShowOrUpdate(ctx, sess, session.SlotStatus, text, markup)
}
