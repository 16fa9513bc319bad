package flow

import (
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/wordbot/core/telegram/callbacks"
	"github.com/m3rciful/wordbot/core/telegram/format"
	"github.com/m3rciful/wordbot/core/telegram/keyboard"
	"github.com/m3rciful/wordbot/internal/history"
	"github.com/m3rciful/wordbot/internal/menu"
	"github.com/m3rciful/wordbot/internal/quiz"
	"github.com/m3rciful/wordbot/internal/session"
	"github.com/m3rciful/wordbot/internal/wordservice"
)

const (
	mainGreeting        = "Hi! What would you like to do?"
	collectionsPrompt   = "Choose a word collection:"
	settingsText        = "Settings are not available yet."
	farewellText        = "See you! Send /start to practice again."
	noCollectionsText   = "No word collections are available yet. Check back later."
	emptyCollectionText = "That collection is empty. Pick another one."
	poolTooSmallText    = "That collection is too small for a quiz. Pick another one."
)

const (
	collectionColumns = 3
	optionColumns     = 2
)

// mainView renders the top-level action menu under the given headline.
func mainView(headline string) (string, *tele.ReplyMarkup) {
	markup := keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🧠 Learn words", Unique: MenuMain, Data: ActionWords},
		{Text: "📊 Statistics", Unique: MenuMain, Data: ActionStats},
		{Text: "⚙️ Settings", Unique: MenuMain, Data: ActionSettings},
	})
	return headline, markup
}

// collectionsView renders one listing page as a choice grid with
// navigation controls.
func collectionsView(headline string, listing *wordservice.CollectionPage) (string, *tele.ReplyMarkup) {
	choices := make([]menu.ChoiceItem, 0, len(listing.Items))
	for _, col := range listing.Items {
		choices = append(choices, menu.ChoiceItem{
			Label: col.Title,
			Value: callbacks.JoinArgs(WordsetsSet, strconv.FormatInt(col.ID, 10)),
		})
	}

	rows := menu.Paginate(choices, collectionColumns)
	rows = menu.WithNavigation(rows, listing.Page, listing.Pages,
		callbacks.JoinArgs(WordsetsPage, strconv.Itoa(listing.Page-1)),
		callbacks.JoinArgs(WordsetsPage, strconv.Itoa(listing.Page+1)),
	)

	text := headline
	if listing.Pages > 1 {
		text = fmt.Sprintf("%s\nPage %d of %d", headline, listing.Page, listing.Pages)
	}
	return text, toMarkup(rows, MenuWordsets)
}

// quizItemView renders one item: the prompt plus its shuffled options and
// a way back to the collection menu.
func quizItemView(item quiz.Item) (string, *tele.ReplyMarkup) {
	buttons := make([]keyboard.InlineBtn, 0, len(item.Options))
	id := strconv.FormatInt(item.ID, 10)
	for _, opt := range item.Options {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   opt.Label,
			Unique: MenuQuiz,
			Data:   callbacks.JoinArgs(QuizAnswer, id, opt.Value),
		})
	}

	markup := keyboard.InlineButtonsNPerRow(buttons, optionColumns)
	markup.InlineKeyboard = append(markup.InlineKeyboard,
		[]tele.InlineButton{*markup.Data("⬅️ Back to collections", MenuQuiz, QuizBack).Inline()},
	)

	return fmt.Sprintf("Translate: *%s*", md(item.Prompt)), markup
}

// quizStatusText is the running banner shown next to the active item.
func quizStatusText(sess *session.Session) string {
	title := sess.CollectionTitle
	if title == "" {
		title = "Quiz"
	}
	return fmt.Sprintf("*%s*\n%s\nLeft: %d", md(title), quiz.Summarize(sess.Stats), sess.Queue.Len())
}

// roundSummaryText is the final report of a finished round.
func roundSummaryText(sess *session.Session) string {
	title := sess.CollectionTitle
	if title == "" {
		title = "Round"
	}
	return fmt.Sprintf("*%s* finished!\n%s\n\n%s", md(title), quiz.Summarize(sess.Stats), collectionsPrompt)
}

// statsText renders lifetime totals over all finished rounds.
func statsText(s history.Summary) string {
	if s.Rounds == 0 {
		return "No finished rounds yet. Start learning!"
	}
	return fmt.Sprintf("Your totals:\nRounds: %d\nWords: %d\nCorrect: %d\nIncorrect: %d",
		s.Rounds, s.Total, s.Correct, s.Incorrect)
}

// md escapes service-provided text for Markdown rendering.
func md(s string) string {
	escaped, err := format.EscapeMarkdown(s, format.MarkdownV1, "")
	if err != nil {
		return s
	}
	return escaped
}

// toMarkup converts transport-agnostic menu rows into an inline keyboard
// bound to one menu identifier.
func toMarkup(rows []menu.Row, unique string) *tele.ReplyMarkup {
	btnRows := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, it := range row {
			btns = append(btns, keyboard.InlineBtn{Text: it.Label, Unique: unique, Data: it.Value})
		}
		btnRows = append(btnRows, btns)
	}
	return keyboard.InlineButtonsRows(btnRows...)
}
