package repository

import (
	"context"
	"time"

	"github.com/hilthontt/roomsync/internal/domain"
	"github.com/hilthontt/roomsync/internal/infrastructure/metrics"
	"github.com/hilthontt/roomsync/internal/infrastructure/tracing"
	"github.com/hilthontt/roomsync/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "roomsync/repository"

// instrumentedStore records latency, failures and a span around every call.
type instrumentedStore struct {
	next   domain.MessageStore
	driver string
}

func NewInstrumentedStore(next domain.MessageStore, driver string) domain.MessageStore {
	return &instrumentedStore{next: next, driver: driver}
}

func (s *instrumentedStore) AppendMessage(ctx context.Context, chatID string, msg domain.Message) (domain.Message, error) {
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "MessageStore.AppendMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("store.driver", s.driver),
		attribute.String("chat.id", chatID),
	)

	start := time.Now()
	stored, err := s.next.AppendMessage(ctx, chatID, msg)
	s.observe("append", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stored, err
	}

	span.SetAttributes(attribute.String("message.id", stored.ID))
	return stored, nil
}

func (s *instrumentedStore) FetchMessages(ctx context.Context, chatID string, q protocol.Query) (protocol.Page, error) {
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "MessageStore.FetchMessages")
	defer span.End()
	span.SetAttributes(
		attribute.String("store.driver", s.driver),
		attribute.String("chat.id", chatID),
		attribute.Int("query.limit", q.Limit),
	)

	start := time.Now()
	page, err := s.next.FetchMessages(ctx, chatID, q)
	s.observe("fetch", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return page, err
	}

	span.SetAttributes(
		attribute.Int("page.size", len(page.Messages)),
		attribute.Bool("page.has_more", page.HasMore),
	)
	return page, nil
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	metrics.StoreLatency.WithLabelValues(s.driver, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues(s.driver, op).Inc()
	}
}
