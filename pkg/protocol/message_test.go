package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(sec int) time.Time {
	return time.Date(2024, 5, 1, 12, 0, sec, 0, time.UTC)
}

func TestNewMessage_TruncatesToMillis(t *testing.T) {
	m := NewMessage("chat-1", "alice", "Alice", "hi", false)

	require.NotEmpty(t, m.ID)
	assert.Equal(t, "chat-1", m.ChatID)
	assert.Equal(t, time.UTC, m.CreatedAt.Location())
	assert.Equal(t, m.CreatedAt, m.CreatedAt.Truncate(time.Millisecond))
	assert.Equal(t, m.CreatedAt, m.UpdatedAt)
}

func TestOrdering_TieBreaksOnID(t *testing.T) {
	msgs := []Message{
		{ID: "a", CreatedAt: at(1)},
		{ID: "c", CreatedAt: at(2)},
		{ID: "b", CreatedAt: at(2)},
		{ID: "d", CreatedAt: at(0)},
	}

	SortNewestFirst(msgs)
	assert.Equal(t, []string{"c", "b", "a", "d"}, ids(msgs))

	SortChronological(msgs)
	assert.Equal(t, []string{"d", "a", "b", "c"}, ids(msgs))
}

func TestQuery_Admits(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		msg   Message
		want  bool
	}{
		{"no cursor", Query{}, Message{ID: "x", CreatedAt: at(9)}, true},
		{"strictly older", Query{Before: at(5)}, Message{ID: "x", CreatedAt: at(4)}, true},
		{"equal excluded", Query{Before: at(5)}, Message{ID: "x", CreatedAt: at(5)}, false},
		{"newer excluded", Query{Before: at(5)}, Message{ID: "x", CreatedAt: at(6)}, false},
		{"equal lower id", Query{Before: at(5), BeforeID: "m"}, Message{ID: "a", CreatedAt: at(5)}, true},
		{"equal same id", Query{Before: at(5), BeforeID: "m"}, Message{ID: "m", CreatedAt: at(5)}, false},
		{"equal higher id", Query{Before: at(5), BeforeID: "m"}, Message{ID: "z", CreatedAt: at(5)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Admits(tt.msg))
		})
	}
}

func TestQuery_Normalize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Query{}.Normalize(100).Limit)
	assert.Equal(t, DefaultPageSize, Query{Limit: -3}.Normalize(100).Limit)
	assert.Equal(t, 100, Query{Limit: 500}.Normalize(100).Limit)
	assert.Equal(t, 7, Query{Limit: 7}.Normalize(100).Limit)

	q := Query{Before: time.Date(2024, 1, 1, 0, 0, 0, 1_234_567, time.UTC)}.Normalize(0)
	assert.Equal(t, 1_000_000, q.Before.Nanosecond())
}

func TestNewPage(t *testing.T) {
	rows := []Message{{ID: "3"}, {ID: "2"}, {ID: "1"}}

	page := NewPage(rows, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, []string{"3", "2"}, ids(page.Messages))

	page = NewPage(rows, 3)
	assert.False(t, page.HasMore)
	assert.Len(t, page.Messages, 3)

	page = NewPage(nil, 5)
	assert.NotNil(t, page.Messages)
	assert.False(t, page.HasMore)
}

func ids(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}
