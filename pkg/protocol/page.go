package protocol

import "time"

// Query selects one page of a chat's history.
//
// A zero Before means "from the newest message". Otherwise only messages
// created strictly before Before are returned, unless BeforeID is set: then
// messages created exactly at Before with an id lower than BeforeID are
// included as well, which lets a client page past a run of messages sharing
// one timestamp.
type Query struct {
	Limit    int       `json:"limit"`
	Before   time.Time `json:"before,omitempty"`
	BeforeID string    `json:"beforeId,omitempty"`
}

// Admits reports whether m falls inside the query's cursor bound.
func (q Query) Admits(m Message) bool {
	if q.Before.IsZero() {
		return true
	}
	if m.CreatedAt.Before(q.Before) {
		return true
	}
	return q.BeforeID != "" && m.CreatedAt.Equal(q.Before) && m.ID < q.BeforeID
}

// Normalize clamps the limit into [1, max] and truncates the cursor to the
// precision stores persist.
func (q Query) Normalize(max int) Query {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if max > 0 && q.Limit > max {
		q.Limit = max
	}
	q.Before = Timestamp(q.Before)
	return q
}

// Page is one slice of history, newest first.
type Page struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"hasMore"`
}

// NewPage trims an over-fetched, newest-first result of limit+1 rows.
func NewPage(rows []Message, limit int) Page {
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []Message{}
	}
	return Page{Messages: rows, HasMore: hasMore}
}
