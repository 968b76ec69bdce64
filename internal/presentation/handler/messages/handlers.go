package messages

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/roomsync/internal/domain"
	"github.com/hilthontt/roomsync/internal/infrastructure/json"
	"github.com/hilthontt/roomsync/internal/infrastructure/logging"
	"github.com/hilthontt/roomsync/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	store  domain.MessageStore
	logger logging.Logger
}

func NewHandler(store domain.MessageStore, logger logging.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// GetMessagesHandler godoc
// @Summary      List chat history
// @Description  Returns one page of a chat's messages, newest first. Pass the oldest message of the previous page as before/beforeId to page backwards.
// @Tags         messages
// @Produce      json
// @Param        chatId   path  string true  "Chat ID"
// @Param        limit    query int    false "Page size (0 or absent means 15)"
// @Param        before   query string false "Only messages created before this RFC3339 timestamp"
// @Param        beforeId query string false "With before: also include messages at exactly before whose id sorts lower"
// @Success      200 {object} pageResponse "One page of messages"
// @Failure      400 {object} json.ErrorResponse "Invalid query"
// @Failure      500 {object} json.ErrorResponse "Internal server error"
// @Router       /chats/{chatId}/messages [get]
func (h *Handler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if strings.TrimSpace(chatID) == "" {
		json.WriteBadRequestError(w, "chat ID is missing")
		return
	}

	q, err := parseQuery(r)
	if err != nil {
		json.WriteBadRequestError(w, err.Error())
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("chat.id", chatID),
		attribute.Int("page.limit", q.Limit),
	)

	page, err := h.store.FetchMessages(r.Context(), chatID, q)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			json.WriteBadRequestError(w, err.Error())
			return
		}
		h.logError(logging.Fetch, chatID, err)
		json.WriteInternalError(w)
		return
	}

	json.Write(w, http.StatusOK, page)
}

// CreateMessageHandler godoc
// @Summary      Store a message
// @Description  Persists a message in the chat history and returns the stored copy. Resending a message id already stored for the chat returns the stored copy. Clients relay the stored message to the room over the websocket afterwards.
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        chatId  path string               true "Chat ID"
// @Param        request body createMessageRequest true "Message"
// @Success      201 {object} messageResponse "Stored message"
// @Failure      400 {object} json.ErrorResponse "Validation error"
// @Failure      409 {object} json.ErrorResponse "Message id belongs to another chat"
// @Failure      500 {object} json.ErrorResponse "Internal server error"
// @Router       /chats/{chatId}/messages [post]
func (h *Handler) CreateMessageHandler(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if strings.TrimSpace(chatID) == "" {
		json.WriteBadRequestError(w, "chat ID is missing")
		return
	}

	var req createMessageRequest
	if err := json.ReadValid(w, r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}
	if req.ChatID != "" && req.ChatID != chatID {
		json.WriteBadRequestError(w, "chatId does not match the path")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		json.WriteBadRequestError(w, domain.ErrEmptyContent.Error())
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("chat.id", chatID))

	stored, err := h.store.AppendMessage(r.Context(), chatID, protocol.Message{
		ID:         req.ID,
		SenderID:   req.SenderID,
		SenderName: req.SenderName,
		IsAI:       req.IsAI,
		Content:    req.Content,
		CreatedAt:  req.CreatedAt,
		UpdatedAt:  req.UpdatedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrEmptyContent):
			json.WriteBadRequestError(w, err.Error())
		case errors.Is(err, domain.ErrMessageExists), errors.Is(err, domain.ErrOutsideRetention):
			json.WriteConflictError(w, err)
		default:
			h.logError(logging.Append, chatID, err)
			json.WriteInternalError(w)
		}
		return
	}

	json.Write(w, http.StatusCreated, stored)
}

func (h *Handler) logError(sub logging.SubCategory, chatID string, err error) {
	h.logger.Error(logging.Store, sub, "message store failed", map[logging.ExtraKey]any{
		logging.RoomID:       chatID,
		logging.ErrorMessage: err.Error(),
	})
}

func parseQuery(r *http.Request) (protocol.Query, error) {
	values := r.URL.Query()
	var q protocol.Query

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return q, errors.New("limit must be a non-negative number")
		}
		q.Limit = limit
	}

	if raw := values.Get("before"); raw != "" {
		before, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return q, errors.New("before must be an RFC3339 timestamp")
		}
		q.Before = before
	}

	q.BeforeID = values.Get("beforeId")
	if q.BeforeID != "" && q.Before.IsZero() {
		return q, errors.New("beforeId requires before")
	}

	return q, nil
}
