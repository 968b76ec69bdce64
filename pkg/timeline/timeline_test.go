package timeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/roomsync/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	messages []protocol.Message
	queries  []protocol.Query
	err      error
}

func (f *fakeSource) FetchMessages(_ context.Context, chatID string, q protocol.Query) (protocol.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return protocol.Page{}, f.err
	}

	var rows []protocol.Message
	for _, m := range f.messages {
		if m.ChatID == chatID && q.Admits(m) {
			rows = append(rows, m)
		}
	}
	protocol.SortNewestFirst(rows)
	if len(rows) > q.Limit+1 {
		rows = rows[:q.Limit+1]
	}
	return protocol.NewPage(rows, q.Limit), nil
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(id string, sec int) protocol.Message {
	ts := base.Add(time.Duration(sec) * time.Second)
	return protocol.Message{ID: id, ChatID: "chat-1", SenderID: "u1", Content: id, CreatedAt: ts, UpdatedAt: ts}
}

func seeded(n int) *fakeSource {
	src := &fakeSource{}
	for i := 0; i < n; i++ {
		src.messages = append(src.messages, msg(fmt.Sprintf("m%02d", i), i))
	}
	return src
}

func ids(msgs []protocol.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestTimeline_PaginationBoundary(t *testing.T) {
	tl := New("chat-1", seeded(16))
	ctx := context.Background()

	added, err := tl.LoadInitial(ctx, 15)
	require.NoError(t, err)
	assert.Len(t, added, 15)
	assert.True(t, tl.HasMore())

	got := tl.Messages()
	assert.Equal(t, "m01", got[0].ID)
	assert.Equal(t, "m15", got[14].ID)

	oldest, ok := tl.Oldest()
	require.True(t, ok)
	added, err = tl.LoadOlder(ctx, oldest.CreatedAt, 15)
	require.NoError(t, err)
	assert.Equal(t, []string{"m00"}, ids(added))
	assert.False(t, tl.HasMore())
	assert.Equal(t, 16, tl.Len())
	assert.Equal(t, "m00", tl.Messages()[0].ID)
}

func TestTimeline_LoadMoreStepsThroughTies(t *testing.T) {
	src := &fakeSource{}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		src.messages = append(src.messages, msg(id, 0))
	}
	tl := New("chat-1", src)
	ctx := context.Background()

	_, err := tl.LoadMore(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e"}, ids(tl.Messages()))

	_, err = tl.LoadMore(ctx, 2)
	require.NoError(t, err)
	_, err = tl.LoadMore(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(tl.Messages()))
	assert.False(t, tl.HasMore())

	last := src.queries[len(src.queries)-1]
	assert.Equal(t, "b", last.BeforeID)
	assert.True(t, last.Before.Equal(base))
}

func TestTimeline_AppendLiveDeduplicates(t *testing.T) {
	tl := New("chat-1", &fakeSource{})

	m := msg("m1", 1)
	assert.True(t, tl.AppendLive(m))
	assert.False(t, tl.AppendLive(m))
	assert.Equal(t, 1, tl.Len())

	other := msg("x", 2)
	other.ChatID = "chat-2"
	assert.False(t, tl.AppendLive(other))
	assert.False(t, tl.AppendLive(protocol.Message{}))
}

func TestTimeline_AppendLiveKeepsCanonicalOrder(t *testing.T) {
	tl := New("chat-1", &fakeSource{})

	tl.AppendLive(msg("m3", 3))
	tl.AppendLive(msg("m1", 1))
	tl.AppendLive(msg("m2", 2))
	tl.AppendLive(msg("m4", 4))

	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, ids(tl.Messages()))
}

func TestTimeline_HistoryMergesWithLive(t *testing.T) {
	src := seeded(3)
	tl := New("chat-1", src)

	// the optimistic copy of m02 arrives before history is loaded
	require.True(t, tl.AppendLive(msg("m02", 2)))
	require.True(t, tl.AppendLive(msg("live", 10)))

	added, err := tl.LoadInitial(context.Background(), 15)
	require.NoError(t, err)
	assert.Equal(t, []string{"m00", "m01"}, ids(added))
	assert.Equal(t, []string{"m00", "m01", "m02", "live"}, ids(tl.Messages()))
	assert.False(t, tl.HasMore())
}

func TestTimeline_StoreFailureLeavesStateUnchanged(t *testing.T) {
	src := seeded(20)
	tl := New("chat-1", src)
	ctx := context.Background()

	_, err := tl.LoadInitial(ctx, 15)
	require.NoError(t, err)
	before := tl.Messages()

	boom := errors.New("store down")
	src.err = boom
	_, err = tl.LoadMore(ctx, 15)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, before, tl.Messages())
	assert.True(t, tl.HasMore())
}

func TestTimeline_LoadOlderRequiresCursor(t *testing.T) {
	tl := New("chat-1", &fakeSource{})
	_, err := tl.LoadOlder(context.Background(), time.Time{}, 15)
	assert.Error(t, err)
}

func TestTimeline_ConcurrentLiveAppends(t *testing.T) {
	tl := New("chat-1", seeded(5))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tl.AppendLive(msg(fmt.Sprintf("live-%02d", i%25), 100+i%25))
		}(i)
	}
	_, err := tl.LoadInitial(context.Background(), 15)
	require.NoError(t, err)
	wg.Wait()

	assert.Equal(t, 30, tl.Len())
	got := tl.Messages()
	for i := 1; i < len(got); i++ {
		assert.True(t, protocol.Newer(got[i], got[i-1]))
	}
}
