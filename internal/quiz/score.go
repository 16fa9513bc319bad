package quiz

import "fmt"

// Snapshot holds the counters of one quiz round.
type Snapshot struct {
	Total     int
	Correct   int
	Incorrect int
}

// Record returns a snapshot with one more resolved item counted.
func Record(s Snapshot, wasCorrect bool) Snapshot {
	s.Total++
	if wasCorrect {
		s.Correct++
	} else {
		s.Incorrect++
	}
	return s
}

// Summarize renders the fixed three-line score report. The three
// quantities and their order are contractual; the wording is not.
func Summarize(s Snapshot) string {
	return fmt.Sprintf("Words: %d\nCorrect: %d\nIncorrect: %d", s.Total, s.Correct, s.Incorrect)
}
