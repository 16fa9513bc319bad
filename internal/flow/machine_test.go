package flow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/wordbot/core/config"
	"github.com/m3rciful/wordbot/core/logger"
	"github.com/m3rciful/wordbot/internal/history"
	"github.com/m3rciful/wordbot/internal/quiz"
	"github.com/m3rciful/wordbot/internal/session"
	"github.com/m3rciful/wordbot/internal/surface"
	"github.com/m3rciful/wordbot/internal/wordservice"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger(&coreconfig.Config{})
	os.Exit(m.Run())
}

type fakeTransport struct {
	nextID  int
	live    map[int]string
	deleted []int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{live: make(map[int]string)}
}

func (t *fakeTransport) Send(_ context.Context, _ int64, text string, _ *tele.ReplyMarkup) (int, error) {
	t.nextID++
	t.live[t.nextID] = text
	return t.nextID, nil
}

func (t *fakeTransport) Edit(_ context.Context, _ int64, messageID int, text string, _ *tele.ReplyMarkup) error {
	if _, ok := t.live[messageID]; !ok {
		return errors.New("message to edit not found")
	}
	t.live[messageID] = text
	return nil
}

func (t *fakeTransport) Delete(_ context.Context, _ int64, messageID int) error {
	if _, ok := t.live[messageID]; !ok {
		return errors.New("message to delete not found")
	}
	delete(t.live, messageID)
	t.deleted = append(t.deleted, messageID)
	return nil
}

type fakeBackend struct {
	pages   map[int]*wordservice.CollectionPage
	quizzes map[int64][]wordservice.Word
	listErr error
	quizErr error
}

func (b *fakeBackend) Collections(_ context.Context, _ string, page, _ int) (*wordservice.CollectionPage, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	if p, ok := b.pages[page]; ok {
		return p, nil
	}
	return &wordservice.CollectionPage{Page: page, Pages: len(b.pages)}, nil
}

func (b *fakeBackend) CollectionQuiz(_ context.Context, _ string, id int64) ([]wordservice.Word, error) {
	if b.quizErr != nil {
		return nil, b.quizErr
	}
	return b.quizzes[id], nil
}

type fakeTokens struct {
	err error
}

func (f *fakeTokens) UserToken(context.Context, int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "user-token", nil
}

type fakeHistory struct {
	saved   []history.Round
	summary history.Summary
}

func (f *fakeHistory) SaveRound(_ context.Context, r history.Round) error {
	f.saved = append(f.saved, r)
	return nil
}

func (f *fakeHistory) UserSummary(context.Context, int64) (history.Summary, error) {
	return f.summary, nil
}

func testWords(n int) []wordservice.Word {
	words := make([]wordservice.Word, 0, n)
	for i := 1; i <= n; i++ {
		words = append(words, wordservice.Word{
			ID:        int64(i),
			Word:      fmt.Sprintf("word-%d", i),
			Translate: fmt.Sprintf("translation-%d", i),
		})
	}
	return words
}

type fixture struct {
	machine   *Machine
	store     *session.Store
	transport *fakeTransport
	backend   *fakeBackend
	hist      *fakeHistory
}

func newFixture(tokens Tokens) *fixture {
	transport := newFakeTransport()
	store := session.NewStore()
	backend := &fakeBackend{
		pages: map[int]*wordservice.CollectionPage{
			1: {
				Items: []wordservice.Collection{{ID: 7, Title: "Basics"}, {ID: 99, Title: "Tiny"}},
				Page:  1,
				Pages: 1,
			},
		},
		quizzes: map[int64][]wordservice.Word{
			7:  testWords(5),
			99: testWords(3),
		},
	}
	hist := &fakeHistory{}
	machine := NewMachine(Options{
		Sessions: store,
		Surfaces: surface.NewManager(transport),
		Backend:  backend,
		Tokens:   tokens,
		History:  hist,
		PageSize: 6,
	})
	return &fixture{machine: machine, store: store, transport: transport, backend: backend, hist: hist}
}

const (
	testUser int64 = 42
	testChat int64 = 42
)

func (f *fixture) start(t *testing.T) {
	t.Helper()
	err := f.machine.OnEvent(context.Background(), testUser, testChat, Event{Kind: EventStart})
	require.NoError(t, err)
}

func (f *fixture) choose(t *testing.T, menuID string, args ...string) {
	t.Helper()
	err := f.machine.OnEvent(context.Background(), testUser, testChat, Event{
		Kind: EventChoice,
		Menu: menuID,
		Args: args,
	})
	require.NoError(t, err)
}

func TestStartRendersActionMenu(t *testing.T) {
	f := newFixture(&fakeTokens{})
	f.start(t)

	sess, ok := f.store.Peek(testUser)
	require.True(t, ok)
	require.Equal(t, session.PhaseChoosingAction, sess.Phase)
	require.Contains(t, sess.Surfaces, session.SlotStatus)
	require.Len(t, f.transport.live, 1)
}

func TestStartTokenFailureLeavesNoSession(t *testing.T) {
	f := newFixture(&fakeTokens{err: errors.New("service down")})

	err := f.machine.OnEvent(context.Background(), testUser, testChat, Event{Kind: EventStart})
	require.ErrorIs(t, err, ErrTokenUnavailable)

	_, ok := f.store.Peek(testUser)
	require.False(t, ok)
	require.Empty(t, f.transport.live)
}

func TestFullRoundReturnsToCollections(t *testing.T) {
	f := newFixture(&fakeTokens{})
	f.start(t)
	f.choose(t, MenuMain, ActionWords)

	sess, ok := f.store.Peek(testUser)
	require.True(t, ok)
	require.Equal(t, session.PhaseChoosingCollection, sess.Phase)

	f.choose(t, MenuWordsets, WordsetsSet, "7")

	for i := 0; i < 5; i++ {
		sess, ok = f.store.Peek(testUser)
		require.True(t, ok)
		require.Equal(t, session.PhasePlayingQuiz, sess.Phase)
		require.NotNil(t, sess.Current)
		f.choose(t, MenuQuiz, QuizAnswer, fmt.Sprintf("%d", sess.Current.ID), quiz.CorrectValue)
	}

	sess, ok = f.store.Peek(testUser)
	require.True(t, ok)
	require.Equal(t, session.PhaseChoosingCollection, sess.Phase)
	require.Nil(t, sess.Current)

	require.Len(t, f.hist.saved, 1)
	round := f.hist.saved[0]
	require.Equal(t, testUser, round.UserID)
	require.Equal(t, int64(7), round.CollectionID)
	require.Equal(t, "Basics", round.CollectionTitle)
	require.Equal(t, 5, round.Total)
	require.Equal(t, 5, round.Correct)
	require.Zero(t, round.Incorrect)

	// Only the status surface should survive the round.
	require.NotContains(t, sess.Surfaces, session.SlotInteractive)
}

func TestStaleAnswerIsIgnored(t *testing.T) {
	f := newFixture(&fakeTokens{})
	f.start(t)
	f.choose(t, MenuMain, ActionWords)
	f.choose(t, MenuWordsets, WordsetsSet, "7")

	sess, _ := f.store.Peek(testUser)
	staleID := sess.Current.ID + 1000
	f.choose(t, MenuQuiz, QuizAnswer, fmt.Sprintf("%d", staleID), quiz.CorrectValue)

	after, _ := f.store.Peek(testUser)
	require.Zero(t, after.Stats.Total)
	require.Equal(t, sess.Current.ID, after.Current.ID)
}

func TestBackAbandonsRoundWithoutSaving(t *testing.T) {
	f := newFixture(&fakeTokens{})
	f.start(t)
	f.choose(t, MenuMain, ActionWords)
	f.choose(t, MenuWordsets, WordsetsSet, "7")

	f.choose(t, MenuQuiz, QuizBack)

	sess, ok := f.store.Peek(testUser)
	require.True(t, ok)
	require.Equal(t, session.PhaseChoosingCollection, sess.Phase)
	require.Empty(t, f.hist.saved)
	require.NotContains(t, sess.Surfaces, session.SlotInteractive)
}

func TestPoolTooSmallStaysInCollections(t *testing.T) {
	f := newFixture(&fakeTokens{})
	f.start(t)
	f.choose(t, MenuMain, ActionWords)
	f.choose(t, MenuWordsets, WordsetsSet, "99")

	sess, ok := f.store.Peek(testUser)
	require.True(t, ok)
	require.Equal(t, session.PhaseChoosingCollection, sess.Phase)
	require.Empty(t, f.hist.saved)

	text := f.transport.live[sess.Surfaces[session.SlotStatus]]
	require.Contains(t, text, "too small")
}

func TestOutOfPhaseChoiceIsNoop(t *testing.T) {
	f := newFixture(&fakeTokens{})
	f.start(t)

	f.choose(t, MenuQuiz, QuizBack)

	sess, ok := f.store.Peek(testUser)
	require.True(t, ok)
	require.Equal(t, session.PhaseChoosingAction, sess.Phase)
}

func TestChoiceWithoutSession(t *testing.T) {
	f := newFixture(&fakeTokens{})

	err := f.machine.OnEvent(context.Background(), testUser, testChat, Event{
		Kind: EventChoice,
		Menu: MenuMain,
		Args: []string{ActionWords},
	})
	require.ErrorIs(t, err, ErrNoSession)
}

func TestCancelRemovesSessionAndSurfaces(t *testing.T) {
	f := newFixture(&fakeTokens{})
	f.start(t)
	f.choose(t, MenuMain, ActionWords)

	err := f.machine.OnEvent(context.Background(), testUser, testChat, Event{Kind: EventCancel})
	require.NoError(t, err)

	_, ok := f.store.Peek(testUser)
	require.False(t, ok)

	// Only the farewell is left in the chat.
	require.Len(t, f.transport.live, 1)
	for _, text := range f.transport.live {
		require.Contains(t, text, "/start")
	}
}

func TestStatsRendersLifetimeTotals(t *testing.T) {
	f := newFixture(&fakeTokens{})
	f.hist.summary = history.Summary{Rounds: 3, Total: 30, Correct: 21, Incorrect: 9}
	f.start(t)

	f.choose(t, MenuMain, ActionStats)

	sess, _ := f.store.Peek(testUser)
	require.Equal(t, session.PhaseChoosingAction, sess.Phase)
	text := f.transport.live[sess.Surfaces[session.SlotStatus]]
	require.Contains(t, text, "Rounds: 3")
	require.Contains(t, text, "Correct: 21")
}

func TestListingFetchFailureKeepsSession(t *testing.T) {
	f := newFixture(&fakeTokens{})
	f.start(t)
	f.backend.listErr = errors.New("backend down")

	surfacesBefore := len(f.transport.live)
	err := f.machine.OnEvent(context.Background(), testUser, testChat, Event{
		Kind: EventChoice,
		Menu: MenuMain,
		Args: []string{ActionWords},
	})
	require.ErrorIs(t, err, ErrBackendUnavailable)

	// The session and its surfaces are untouched; the caller owns the
	// user-facing notice.
	sess, ok := f.store.Peek(testUser)
	require.True(t, ok)
	require.Equal(t, session.PhaseChoosingAction, sess.Phase)
	require.Len(t, f.transport.live, surfacesBefore)
}

func TestQuizFetchFailureKeepsCollectionMenu(t *testing.T) {
	f := newFixture(&fakeTokens{})
	f.start(t)
	f.choose(t, MenuMain, ActionWords)
	f.backend.quizErr = errors.New("backend down")

	err := f.machine.OnEvent(context.Background(), testUser, testChat, Event{
		Kind: EventChoice,
		Menu: MenuWordsets,
		Args: []string{WordsetsSet, "7"},
	})
	require.ErrorIs(t, err, ErrBackendUnavailable)

	sess, ok := f.store.Peek(testUser)
	require.True(t, ok)
	require.Equal(t, session.PhaseChoosingCollection, sess.Phase)
	require.Nil(t, sess.Queue)
	require.Empty(t, f.hist.saved)
}

func TestPageNavigationClampsToBounds(t *testing.T) {
	f := newFixture(&fakeTokens{})
	f.backend.pages = map[int]*wordservice.CollectionPage{
		1: {Items: []wordservice.Collection{{ID: 1, Title: "A"}}, Page: 1, Pages: 2},
		2: {Items: []wordservice.Collection{{ID: 2, Title: "B"}}, Page: 2, Pages: 2},
	}
	f.start(t)
	f.choose(t, MenuMain, ActionWords)

	f.choose(t, MenuWordsets, WordsetsPage, "9")

	sess, _ := f.store.Peek(testUser)
	require.Equal(t, 2, sess.Page)

	f.choose(t, MenuWordsets, WordsetsPage, "0")
	sess, _ = f.store.Peek(testUser)
	require.Equal(t, 1, sess.Page)
}
