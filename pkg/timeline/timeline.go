// Package timeline keeps a client's view of one chat: a chronological run of
// messages merged from paginated history and live deliveries.
package timeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hilthontt/roomsync/pkg/protocol"
)

// Source serves history pages, newest first.
type Source interface {
	FetchMessages(ctx context.Context, chatID string, q protocol.Query) (protocol.Page, error)
}

// Timeline is safe for concurrent use. Live messages usually arrive on a
// connection's read goroutine while history loads run on the caller's.
type Timeline struct {
	chatID string
	source Source

	mu       sync.RWMutex
	messages []protocol.Message // oldest first
	seen     mapset.Set[string]
	hasMore  bool
	loaded   bool
}

func New(chatID string, source Source) *Timeline {
	return &Timeline{
		chatID: chatID,
		source: source,
		seen:   mapset.NewThreadUnsafeSet[string](),
	}
}

func (t *Timeline) ChatID() string { return t.chatID }

// LoadInitial fetches the newest page. Messages that arrived live before
// the load are kept and merged in.
func (t *Timeline) LoadInitial(ctx context.Context, pageSize int) ([]protocol.Message, error) {
	return t.load(ctx, protocol.Query{Limit: pageSize}, true)
}

// LoadOlder fetches the page of messages created strictly before before and
// merges it in front of what is loaded.
func (t *Timeline) LoadOlder(ctx context.Context, before time.Time, pageSize int) ([]protocol.Message, error) {
	if before.IsZero() {
		return nil, fmt.Errorf("timeline: load older: zero cursor")
	}
	return t.load(ctx, protocol.Query{Limit: pageSize, Before: before}, false)
}

// LoadMore pages backwards from the oldest loaded message, using its id to
// step past other messages sharing its timestamp. With nothing loaded it
// behaves like LoadInitial.
func (t *Timeline) LoadMore(ctx context.Context, pageSize int) ([]protocol.Message, error) {
	oldest, ok := t.Oldest()
	if !ok {
		return t.LoadInitial(ctx, pageSize)
	}
	return t.load(ctx, protocol.Query{Limit: pageSize, Before: oldest.CreatedAt, BeforeID: oldest.ID}, false)
}

// load returns the messages the page added, oldest first. On error the
// timeline is unchanged.
func (t *Timeline) load(ctx context.Context, q protocol.Query, initial bool) ([]protocol.Message, error) {
	page, err := t.source.FetchMessages(ctx, t.chatID, q)
	if err != nil {
		return nil, fmt.Errorf("timeline: fetch %s: %w", t.chatID, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	added := make([]protocol.Message, 0, len(page.Messages))
	for _, m := range page.Messages {
		if t.seen.Contains(m.ID) {
			continue
		}
		t.seen.Add(m.ID)
		added = append(added, m)
	}
	protocol.SortChronological(added)

	t.messages = append(t.messages, added...)
	protocol.SortChronological(t.messages)

	// a repeated initial load refreshes the newest end only; the cursor
	// belongs to the older pages
	if !initial || !t.loaded {
		t.hasMore = page.HasMore
	}
	t.loaded = true

	return added, nil
}

// AppendLive inserts a delivered or locally sent message. It reports false
// when the message belongs to another chat or is already present.
func (t *Timeline) AppendLive(msg protocol.Message) bool {
	if msg.ID == "" || (msg.ChatID != "" && msg.ChatID != t.chatID) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen.Contains(msg.ID) {
		return false
	}
	t.seen.Add(msg.ID)

	n := len(t.messages)
	if n == 0 || !protocol.Newer(t.messages[n-1], msg) {
		t.messages = append(t.messages, msg)
		return true
	}

	// arrived out of order; keep canonical order
	i := sort.Search(n, func(i int) bool { return protocol.Newer(t.messages[i], msg) })
	t.messages = append(t.messages, protocol.Message{})
	copy(t.messages[i+1:], t.messages[i:])
	t.messages[i] = msg
	return true
}

// Messages returns a copy, oldest first.
func (t *Timeline) Messages() []protocol.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]protocol.Message(nil), t.messages...)
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// HasMore reports whether older history remains to be loaded.
func (t *Timeline) HasMore() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hasMore
}

func (t *Timeline) Oldest() (protocol.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return protocol.Message{}, false
	}
	return t.messages[0], true
}
