package parserrequest

import (
	"context"
	"fmt"
	"time"

	"github.com/vk-parser/platform/pkg/common/logger"
	"github.com/vk-parser/platform/pkg/common/pagination"
	"github.com/vk-parser/platform/pkg/observability/metrics"
	"github.com/vk-parser/platform/pkg/queue"
)

// Store is the part of Repository the service depends on.
type Store interface {
	List(ctx context.Context, params pagination.Params) (pagination.Response[ParserRequest], error)
	AdminList(ctx context.Context, params pagination.Params) (pagination.Response[DetailParserRequest], error)
	GetDetail(ctx context.Context, id int64) (*DetailParserRequest, error)
	Create(ctx context.Context, input Input) *DetailParserRequest
	SaveError(ctx context.Context, id int64, finishedAt time.Time, errorMessage string) SinkResult
	Stat(ctx context.Context) ([]StatRow, error)
}

// Reader serves the read-only views. The admin API runs on a Reader alone.
type Reader struct {
	store Store
}

func NewReader(store Store) *Reader {
	return &Reader{store: store}
}

// Service adds the create path, which needs a queue to hand tasks to.
type Service struct {
	*Reader
	publisher queue.Publisher
	now       func() time.Time
}

func NewService(store Store, publisher queue.Publisher) *Service {
	return &Service{
		Reader:    NewReader(store),
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create validates raw, persists it and enqueues it for a worker. When the
// task cannot be enqueued the row is marked FAILED so it does not sit in
// PENDING forever.
func (s *Service) Create(ctx context.Context, raw []byte) (*DetailParserRequest, error) {
	input, err := DecodeInput(raw)
	if err != nil {
		return nil, err
	}

	created := s.store.Create(ctx, input)
	if created == nil {
		metrics.IncCreateFailed()
		return nil, ErrNotCreated
	}

	task := queue.Task{ParserRequestID: created.ID, ParserType: string(created.ParserType())}
	if err := s.publisher.Publish(ctx, task); err != nil {
		metrics.IncPublishFailed()
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"parser_request_id": created.ID,
			"parser_type":       task.ParserType,
		}).Error("Failed to enqueue parser request")
		s.store.SaveError(context.WithoutCancel(ctx), created.ID, s.now(), "failed to enqueue parser request")
		return nil, fmt.Errorf("enqueueing parser request %d: %w", created.ID, err)
	}

	metrics.IncCreated()
	logger.Log.WithFields(map[string]interface{}{
		"parser_request_id": created.ID,
		"parser_type":       task.ParserType,
	}).Info("Parser request created")
	return created, nil
}

func (s *Reader) List(ctx context.Context, params pagination.Params) (pagination.Response[ParserRequest], error) {
	return s.store.List(ctx, params)
}

func (s *Reader) AdminList(ctx context.Context, params pagination.Params) (pagination.Response[DetailParserRequest], error) {
	return s.store.AdminList(ctx, params)
}

// Detail returns ErrNotFound when the store has no such request.
func (s *Reader) Detail(ctx context.Context, id int64) (*DetailParserRequest, error) {
	detail, err := s.store.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return detail, nil
}

func (s *Reader) Stat(ctx context.Context) ([]StatRow, error) {
	return s.store.Stat(ctx)
}
