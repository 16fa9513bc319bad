// Package quiz builds multiple-choice quiz items and tracks round scores.
package quiz

import (
	"fmt"
	"math/rand"
)

// DistractorCount is the number of wrong options shown next to the correct one.
const DistractorCount = 3

const (
	// CorrectValue marks the correct-answer option. Correctness is only
	// ever derived from this sentinel, never from option text.
	CorrectValue = "1"
	// WrongValue marks a distractor option.
	WrongValue = "0"
)

// Word is one entry of a collection quiz payload.
type Word struct {
	ID          int64
	Text        string
	Translation string
}

// Option is a single selectable answer.
type Option struct {
	Label string
	Value string
}

// Item is one multiple-choice quiz prompt with its shuffled options.
type Item struct {
	ID      int64
	Prompt  string
	Options []Option
}

// InsufficientPoolError reports a distractor pool too small to build an item.
// Callers are expected to skip the collection rather than degrade silently.
type InsufficientPoolError struct {
	Need int
	Have int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("quiz: insufficient distractor pool: need %d, have %d", e.Need, e.Have)
}

// BuildItem constructs a quiz item for w. The pool holds translations of
// sibling words in the same collection; exactly DistractorCount distinct
// values are sampled uniformly without replacement, excluding the correct
// translation, then the options are shuffled with a uniform permutation.
func BuildItem(w Word, pool []string) (Item, error) {
	seen := make(map[string]struct{}, len(pool))
	alts := make([]string, 0, len(pool))
	for _, tr := range pool {
		if tr == "" || tr == w.Translation {
			continue
		}
		if _, dup := seen[tr]; dup {
			continue
		}
		seen[tr] = struct{}{}
		alts = append(alts, tr)
	}
	if len(alts) < DistractorCount {
		return Item{}, &InsufficientPoolError{Need: DistractorCount, Have: len(alts)}
	}

	rand.Shuffle(len(alts), func(i, j int) {
		alts[i], alts[j] = alts[j], alts[i]
	})

	options := make([]Option, 0, DistractorCount+1)
	options = append(options, Option{Label: w.Translation, Value: CorrectValue})
	for _, alt := range alts[:DistractorCount] {
		options = append(options, Option{Label: alt, Value: WrongValue})
	}
	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return Item{ID: w.ID, Prompt: w.Text, Options: options}, nil
}

// Evaluate reports whether the chosen opaque value marks the correct option.
func Evaluate(_ Item, chosenValue string) bool {
	return chosenValue == CorrectValue
}
