// Package pagination slices gorm queries into page windows.
package pagination

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var ErrInvalidParams = errors.New("invalid pagination params")

var validate = validator.New()

type Params struct {
	Page     int `json:"page" validate:"min=1"`
	PageSize int `json:"page_size" validate:"min=1"`
}

// Limits bounds what FromQuery accepts.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

type Response[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}

// Query describes the rows to page over. Filter narrows both the count and
// the item query; Order applies to the item query only.
type Query struct {
	Filter func(*gorm.DB) *gorm.DB
	Order  string
}

// FromQuery parses page and page_size from a query string.
func FromQuery(values url.Values, limits Limits) (Params, error) {
	params := Params{Page: 1, PageSize: limits.DefaultPageSize}
	if params.PageSize < 1 {
		params.PageSize = 1
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: page must be an integer", ErrInvalidParams)
		}
		params.Page = page
	}
	if raw := values.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: page_size must be an integer", ErrInvalidParams)
		}
		params.PageSize = size
	}

	if err := validate.Struct(params); err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if limits.MaxPageSize > 0 {
		if err := validate.Var(params.PageSize, fmt.Sprintf("max=%d", limits.MaxPageSize)); err != nil {
			return Params{}, fmt.Errorf("%w: page_size exceeds %d", ErrInvalidParams, limits.MaxPageSize)
		}
	}
	if params.Page-1 > math.MaxInt/params.PageSize {
		return Params{}, fmt.Errorf("%w: page %d is out of range", ErrInvalidParams, params.Page)
	}
	return params, nil
}

func (p Params) normalized() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 1
	}
	return p
}

// Offset is never negative, even for params that skipped validation. A
// window past math.MaxInt saturates there.
func (p Params) Offset() int {
	n := p.normalized()
	if n.Page-1 > math.MaxInt/n.PageSize {
		return math.MaxInt
	}
	return (n.Page - 1) * n.PageSize
}

func (p Params) Limit() int {
	return p.normalized().PageSize
}

// Paginate counts the rows matching q and loads one window of them, mapping
// each row through mapRow. tx must be a fresh handle (db.WithContext or a
// NewDB session) so the count and item queries do not share conditions.
func Paginate[R any, T any](tx *gorm.DB, q Query, params Params, mapRow func(*R) (T, error)) (Response[T], error) {
	params = params.normalized()

	var total int64
	if err := q.scope(tx.Model(new(R))).Count(&total).Error; err != nil {
		return Response[T]{}, fmt.Errorf("counting rows: %w", err)
	}

	itemsQuery := q.scope(tx.Model(new(R)))
	if q.Order != "" {
		itemsQuery = itemsQuery.Order(q.Order)
	}

	var rows []R
	if err := itemsQuery.Offset(params.Offset()).Limit(params.Limit()).Find(&rows).Error; err != nil {
		return Response[T]{}, fmt.Errorf("loading page %d: %w", params.Page, err)
	}

	items := make([]T, 0, len(rows))
	for i := range rows {
		item, err := mapRow(&rows[i])
		if err != nil {
			return Response[T]{}, fmt.Errorf("mapping row %d: %w", i, err)
		}
		items = append(items, item)
	}

	return Response[T]{
		Items:      items,
		TotalCount: total,
		Page:       params.Page,
		PageSize:   params.PageSize,
	}, nil
}

func (q Query) scope(tx *gorm.DB) *gorm.DB {
	if q.Filter == nil {
		return tx
	}
	return tx.Scopes(q.Filter)
}
