package repository

import (
	"github.com/hilthontt/roomsync/internal/domain"
	"github.com/hilthontt/roomsync/pkg/protocol"
)

const DefaultMaxPageSize = 100

// paginate applies q to an unordered slice. The input is not modified.
func paginate(messages []domain.Message, q protocol.Query) protocol.Page {
	rows := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if q.Admits(m) {
			rows = append(rows, m)
		}
	}

	protocol.SortNewestFirst(rows)
	if len(rows) > q.Limit+1 {
		rows = rows[:q.Limit+1]
	}

	return protocol.NewPage(rows, q.Limit)
}

func normalizeQuery(chatID string, q protocol.Query, maxPageSize int) (protocol.Query, error) {
	if chatID == "" {
		return q, domain.ErrInvalidInput
	}
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	return q.Normalize(maxPageSize), nil
}
