package parserrequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vk-parser/platform/pkg/common/pagination"
	"github.com/vk-parser/platform/pkg/observability/metrics"
)

// SinkResult reports what a best-effort terminal write did. Callers are not
// expected to act on it; the failure has already been logged.
type SinkResult int

const (
	SinkStored SinkResult = iota
	SinkNoMatch
	SinkFailed
)

func (r SinkResult) String() string {
	switch r {
	case SinkStored:
		return "stored"
	case SinkNoMatch:
		return "no_match"
	case SinkFailed:
		return "failed"
	}
	return "unknown"
}

// StatRow is one (parser type, status) bucket of Stat.
type StatRow struct {
	ParserType ParserType `json:"parser_type"`
	Status     Status     `json:"status"`
	Count      int64      `json:"count"`
}

const (
	adminOrder = "created_at DESC, id DESC"
	// Page windows only tile the table under a stable order.
	listOrder = "id"
)

// Repository is the only writer of parser_requests. Every call runs on its
// own pooled connection, released when the call returns.
type Repository struct {
	db      *gorm.DB
	timeout time.Duration
	now     func() time.Time
}

// NewRepository wraps db. A positive timeout bounds every call.
func NewRepository(db *gorm.DB, timeout time.Duration) *Repository {
	return &Repository{
		db:      db,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// AutoMigrate creates the table plus the expression index used by Stat.
func (r *Repository) AutoMigrate() error {
	if err := r.db.AutoMigrate(&Record{}); err != nil {
		return err
	}
	return r.db.Exec(
		`CREATE INDEX IF NOT EXISTS idx_parser_requests_type_status ` +
			`ON parser_requests ((input_data->>'parser_type'), status)`,
	).Error
}

// withSession acquires a dedicated connection for fn and always releases it.
func (r *Repository) withSession(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		return fn(conn.Session(&gorm.Session{NewDB: true}))
	})
}

func (r *Repository) List(ctx context.Context, params pagination.Params) (pagination.Response[ParserRequest], error) {
	var page pagination.Response[ParserRequest]
	err := r.withSession(ctx, func(tx *gorm.DB) error {
		var err error
		page, err = pagination.Paginate(tx, pagination.Query{Order: listOrder}, params, NewParserRequest)
		return err
	})
	if err != nil {
		return pagination.Response[ParserRequest]{}, fmt.Errorf("listing parser requests: %w", err)
	}
	return page, nil
}

// AdminList returns detail rows, most recent first.
func (r *Repository) AdminList(ctx context.Context, params pagination.Params) (pagination.Response[DetailParserRequest], error) {
	var page pagination.Response[DetailParserRequest]
	err := r.withSession(ctx, func(tx *gorm.DB) error {
		var err error
		page, err = pagination.Paginate(tx, pagination.Query{Order: adminOrder}, params, NewDetailParserRequest)
		return err
	})
	if err != nil {
		return pagination.Response[DetailParserRequest]{}, fmt.Errorf("listing parser requests for admin: %w", err)
	}
	return page, nil
}

// GetDetail returns nil, nil when no row has the id.
func (r *Repository) GetDetail(ctx context.Context, id int64) (*DetailParserRequest, error) {
	var rec Record
	err := r.withSession(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Take(&rec).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading parser request %d: %w", id, err)
	}

	detail, err := NewDetailParserRequest(&rec)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a PENDING row for input. It returns nil when the row could
// not be written; the cause is logged, not returned.
func (r *Repository) Create(ctx context.Context, input Input) *DetailParserRequest {
	payload, err := EncodeInput(input)
	if err != nil {
		storeFailure("create", 0, err).Warn("Error encoding parser request input")
		return nil
	}

	now := r.now()
	rec := Record{
		CreatedAt: now,
		UpdatedAt: now,
		Status:    StatusPending,
		InputData: datatypes.JSON(payload),
	}
	err = r.withSession(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.Returning{}).Create(&rec).Error
	})
	if err != nil {
		storeFailure("create", 0, err).
			WithField("input_data", string(payload)).
			Warn("Error creating parser request")
		return nil
	}

	detail, err := NewDetailParserRequest(&rec)
	if err != nil {
		storeFailure("create", rec.ID, err).Warn("Created parser request failed validation")
		return nil
	}
	return &detail
}

// UpdateStatus overwrites the status without checking the current one. It
// returns nil when no row matched or the write failed.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status) *DetailParserRequest {
	if !status.Valid() {
		storeFailure("update_status", id, fmt.Errorf("invalid status %q", status)).Warn("Error updating parser request status")
		return nil
	}

	var (
		rec      Record
		affected int64
	)
	err := r.withSession(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&rec).
			Clauses(clause.Returning{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     status,
				"updated_at": r.now(),
			})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		storeFailure("update_status", id, err).Warn("Error updating parser request status")
		return nil
	}
	if affected == 0 {
		return nil
	}

	detail, err := NewDetailParserRequest(&rec)
	if err != nil {
		storeFailure("update_status", id, err).Warn("Updated parser request failed validation")
		return nil
	}
	return &detail
}

// TransitionStatus moves a request to next only if it is currently in
// expected. It returns ErrStatusConflict when the row holds another status
// and nil, nil when there is no such row.
func (r *Repository) TransitionStatus(ctx context.Context, id int64, expected, next Status) (*DetailParserRequest, error) {
	if !expected.Valid() || !next.Valid() {
		return nil, fmt.Errorf("invalid status transition %q -> %q", expected, next)
	}

	var (
		rec     Record
		updated bool
		found   = true
	)
	err := r.withSession(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&rec).
			Clauses(clause.Returning{}).
			Where("id = ? AND status = ?", id, expected).
			Updates(map[string]interface{}{
				"status":     next,
				"updated_at": r.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			updated = true
			return nil
		}

		var current Record
		err := tx.Select("id", "status").Where("id = ?", id).Take(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: parser request %d is %s, expected %s", ErrStatusConflict, id, current.Status, expected)
	})
	if err != nil {
		return nil, err
	}
	if !found || !updated {
		return nil, nil
	}

	detail, err := NewDetailParserRequest(&rec)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// SaveError marks the request FAILED. Best effort: failures are logged and
// reported through the result only.
func (r *Repository) SaveError(ctx context.Context, id int64, finishedAt time.Time, errorMessage string) SinkResult {
	return r.sink(ctx, "save_error", id, map[string]interface{}{
		"status":        StatusFailed,
		"finished_at":   finishedAt,
		"error_message": errorMessage,
		"result_data":   nil,
		"updated_at":    r.now(),
	})
}

// SaveEmptyResult marks the request EMPTY with an empty user_stat.
func (r *Repository) SaveEmptyResult(ctx context.Context, id int64, finishedAt time.Time, message string) SinkResult {
	return r.saveResult(ctx, "save_empty_result", id, StatusEmpty, finishedAt, ResultData{Message: message})
}

// SaveSuccessfulResult marks the request SUCCESSFUL with result.
func (r *Repository) SaveSuccessfulResult(ctx context.Context, id int64, result ResultData, finishedAt time.Time) SinkResult {
	return r.saveResult(ctx, "save_successful_result", id, StatusSuccessful, finishedAt, result)
}

func (r *Repository) saveResult(ctx context.Context, operation string, id int64, status Status, finishedAt time.Time, result ResultData) SinkResult {
	payload, err := json.Marshal(result.normalized())
	if err != nil {
		storeFailure(operation, id, err).Warn("Error encoding parser request result")
		metrics.ObserveSink(operation, SinkFailed.String())
		return SinkFailed
	}
	return r.sink(ctx, operation, id, map[string]interface{}{
		"status":        status,
		"finished_at":   finishedAt,
		"result_data":   datatypes.JSON(payload),
		"error_message": nil,
		"updated_at":    r.now(),
	})
}

func (r *Repository) sink(ctx context.Context, operation string, id int64, values map[string]interface{}) SinkResult {
	var affected int64
	err := r.withSession(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&Record{}).Where("id = ?", id).Updates(values)
		affected = res.RowsAffected
		return res.Error
	})

	result := SinkStored
	switch {
	case err != nil:
		storeFailure(operation, id, err).Warn("Error saving parser request outcome")
		result = SinkFailed
	case affected == 0:
		storeFailure(operation, id, ErrNotFound).Warn("No parser request to save outcome to")
		result = SinkNoMatch
	}
	metrics.ObserveSink(operation, result.String())
	return result
}

type statusCount struct {
	Status Status
	Count  int64
}

// Stat counts rows per status for every parser type. One query per type
// runs concurrently; the first failure fails the call. Types keep the order
// of ParserTypes, statuses keep the order the database grouped them in.
func (r *Repository) Stat(ctx context.Context) ([]StatRow, error) {
	types := ParserTypes()
	perType := make([][]StatRow, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, parserType := range types {
		g.Go(func() error {
			rows, err := r.statByType(gctx, parserType)
			if err != nil {
				return err
			}
			perType[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]StatRow, 0)
	for _, rows := range perType {
		out = append(out, rows...)
	}
	return out, nil
}

func (r *Repository) statByType(ctx context.Context, parserType ParserType) ([]StatRow, error) {
	var counts []statusCount
	err := r.withSession(ctx, func(tx *gorm.DB) error {
		return tx.Model(&Record{}).
			Select("status, count(*) AS count").
			Where("input_data->>'parser_type' = ?", string(parserType)).
			Group("status").
			Scan(&counts).Error
	})
	if err != nil {
		return nil, fmt.Errorf("counting %s parser requests: %w", parserType, err)
	}

	rows := make([]StatRow, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, StatRow{ParserType: parserType, Status: c.Status, Count: c.Count})
	}
	return rows, nil
}
