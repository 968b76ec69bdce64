package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/roomsync/internal/domain"
	"github.com/hilthontt/roomsync/pkg/protocol"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type messageRecord struct {
	ChatID     string    `gorm:"primaryKey;size:128;index:idx_messages_chat_created,priority:1"`
	ID         string    `gorm:"primaryKey;size:64"`
	SenderID   string    `gorm:"size:128"`
	SenderName string    `gorm:"size:256"`
	IsAI       bool      `gorm:"not null;default:false"`
	Content    string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null;index:idx_messages_chat_created,priority:2"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (messageRecord) TableName() string {
	return "messages"
}

func newMessageRecord(m domain.Message) messageRecord {
	return messageRecord{
		ChatID:     m.ChatID,
		ID:         m.ID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		IsAI:       m.IsAI,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func (r messageRecord) toDomain() domain.Message {
	return domain.Message{
		ID:         r.ID,
		ChatID:     r.ChatID,
		SenderID:   r.SenderID,
		SenderName: r.SenderName,
		IsAI:       r.IsAI,
		Content:    r.Content,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

// gormStore is the normalized shape on a relational database.
type gormStore struct {
	db          *gorm.DB
	maxPageSize int
}

func NewGormStore(db *gorm.DB, maxPageSize int) domain.MessageStore {
	return &gormStore{
		db:          db,
		maxPageSize: maxPageSize,
	}
}

// MigrateMessages creates or updates the messages table.
func MigrateMessages(db *gorm.DB) error {
	return db.AutoMigrate(&messageRecord{})
}

func (s *gormStore) AppendMessage(ctx context.Context, chatID string, msg domain.Message) (domain.Message, error) {
	msg, err := domain.PrepareMessage(chatID, msg)
	if err != nil {
		return domain.Message{}, err
	}

	record := newMessageRecord(msg)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record)
	if res.Error != nil {
		return domain.Message{}, fmt.Errorf("failed to insert message: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return msg, nil
	}

	var existing messageRecord
	err = s.db.WithContext(ctx).
		Where("chat_id = ? AND id = ?", chatID, msg.ID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Message{}, fmt.Errorf("message %s conflicted but was not found", msg.ID)
	}
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to load existing message: %w", err)
	}

	return existing.toDomain(), nil
}

func (s *gormStore) FetchMessages(ctx context.Context, chatID string, q protocol.Query) (protocol.Page, error) {
	q, err := normalizeQuery(chatID, q, s.maxPageSize)
	if err != nil {
		return protocol.Page{}, err
	}

	query := s.db.WithContext(ctx).Where("chat_id = ?", chatID)
	if !q.Before.IsZero() {
		if q.BeforeID == "" {
			query = query.Where("created_at < ?", q.Before)
		} else {
			query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", q.Before, q.Before, q.BeforeID)
		}
	}

	var records []messageRecord
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(q.Limit + 1).
		Find(&records).Error
	if err != nil {
		return protocol.Page{}, fmt.Errorf("failed to query messages: %w", err)
	}

	rows := make([]domain.Message, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.toDomain())
	}

	return protocol.NewPage(rows, q.Limit), nil
}
