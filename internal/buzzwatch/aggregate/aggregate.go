package aggregate

import (
	"sync"

	"github.com/buzzwatch/buzzwatch/internal/buzzwatch/model"
)

// SentimentWindowSize bounds the sentiment window; once full, appending
// evicts the oldest entry.
const SentimentWindowSize = 20

// State holds the live dashboard statistics.  A single mutex guards all four
// substructures so that each record's updates land atomically with respect to
// snapshot reads: a snapshot sees either all of a record's effects or none.
type State struct {
	mu              sync.Mutex
	authorCounts    map[string]int
	categoryCounts  map[string]int
	sentimentWindow []model.SentimentPoint
	messageLengths  []int
}

func NewState() *State {
	return &State{
		authorCounts:    map[string]int{},
		categoryCounts:  map[string]int{},
		sentimentWindow: make([]model.SentimentPoint, 0, SentimentWindowSize),
		messageLengths:  []int{},
	}
}

// Apply folds one record into the state.  Records without a timestamp still
// count towards everything except the sentiment window.
func (s *State) Apply(record *model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authorCounts[record.Author]++
	s.categoryCounts[record.Category]++
	if record.Timestamp != nil {
		if len(s.sentimentWindow) == SentimentWindowSize {
			copy(s.sentimentWindow, s.sentimentWindow[1:])
			s.sentimentWindow = s.sentimentWindow[:SentimentWindowSize-1]
		}
		s.sentimentWindow = append(s.sentimentWindow, model.SentimentPoint{
			Timestamp: *record.Timestamp,
			Sentiment: record.Sentiment,
		})
	}
	s.messageLengths = append(s.messageLengths, record.MessageLength)
}

// Snapshot returns a deep copy of the state.  The copy shares nothing with
// the live state, so later Apply calls cannot corrupt a snapshot already
// handed to a sink.  An empty state yields a well-formed empty snapshot.
func (s *State) Snapshot() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	authorCounts := make(map[string]int, len(s.authorCounts))
	for author, count := range s.authorCounts {
		authorCounts[author] = count
	}
	categoryCounts := make(map[string]int, len(s.categoryCounts))
	for category, count := range s.categoryCounts {
		categoryCounts[category] = count
	}
	sentimentWindow := make([]model.SentimentPoint, len(s.sentimentWindow))
	copy(sentimentWindow, s.sentimentWindow)
	messageLengths := make([]int, len(s.messageLengths))
	copy(messageLengths, s.messageLengths)

	return &model.Snapshot{
		AuthorCounts:    authorCounts,
		CategoryCounts:  categoryCounts,
		SentimentWindow: sentimentWindow,
		MessageLengths:  messageLengths,
	}
}
