package model

import (
	"time"
)

// Record is one parsed and validated buzz message.  Timestamp is nil when the
// incoming record carried no resolvable timestamp; such records still count
// towards everything except the sentiment window.
type Record struct {
	Author        string
	Category      string
	Timestamp     *time.Time
	Sentiment     float64
	MessageLength int
}

// SentimentPoint is one entry of the bounded sentiment window.
type SentimentPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Sentiment float64   `json:"sentiment"`
}

// Snapshot is a point-in-time copy of the dashboard state.  It never aliases
// the live aggregate, so sinks may hold on to it for as long as they like.
type Snapshot struct {
	AuthorCounts    map[string]int   `json:"author_counts"`
	CategoryCounts  map[string]int   `json:"category_counts"`
	SentimentWindow []SentimentPoint `json:"sentiment_window"`
	MessageLengths  []int            `json:"message_lengths"`
}

// AcceptedRecords returns the number of records reflected in the snapshot.
func (s *Snapshot) AcceptedRecords() int {
	return len(s.MessageLengths)
}
