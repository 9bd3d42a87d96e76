package pagination

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type widget struct {
	ID        int64
	Kind      string
	CreatedAt time.Time
}

func (widget) TableName() string { return "widgets" }

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		DriverName:           "postgres",
		Conn:                 db,
		PreferSimpleProtocol: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func kindOf(w *widget) (string, error) {
	return fmt.Sprintf("%d:%s", w.ID, w.Kind), nil
}

func TestPaginateCountsAndSlices(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "widgets"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(`SELECT \* FROM "widgets" ORDER BY created_at desc LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "created_at"}).
			AddRow(3, "a", now).
			AddRow(2, "b", now.Add(-time.Minute)))

	page, err := Paginate(db, Query{Order: "created_at desc"}, Params{Page: 2, PageSize: 2}, kindOf)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalCount)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, []string{"3:a", "2:b"}, page.Items)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestPaginateAppliesFilterToBothQueries(t *testing.T) {
	db, mock := newMockDB(t)
	onlyKind := func(tx *gorm.DB) *gorm.DB { return tx.Where("kind = ?", "a") }

	mock.ExpectQuery(`SELECT count\(\*\) FROM "widgets" WHERE kind = \$1`).
		WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "widgets" WHERE kind = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "created_at"}))

	page, err := Paginate(db, Query{Filter: onlyKind}, Params{Page: 1, PageSize: 10}, kindOf)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.TotalCount)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestPaginateCountError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "widgets"`).
		WillReturnError(errors.New("connection reset"))

	_, err := Paginate(db, Query{}, Params{Page: 1, PageSize: 10}, kindOf)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "counting rows")
}

func TestPaginateMapError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "widgets"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "widgets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "created_at"}).AddRow(1, "a", time.Now()))

	failing := func(*widget) (string, error) { return "", errors.New("bad row") }
	_, err := Paginate(db, Query{}, Params{Page: 1, PageSize: 10}, failing)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mapping row 0")
}

func TestOffsetNeverNegative(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		offset int
		limit  int
	}{
		{name: "first page", params: Params{Page: 1, PageSize: 10}, offset: 0, limit: 10},
		{name: "third page", params: Params{Page: 3, PageSize: 7}, offset: 14, limit: 7},
		{name: "zero values", params: Params{}, offset: 0, limit: 1},
		{name: "negative values", params: Params{Page: -4, PageSize: -1}, offset: 0, limit: 1},
		{name: "overflowing window", params: Params{Page: 1 << 62, PageSize: 100}, offset: math.MaxInt, limit: 100},
		{name: "last exact window", params: Params{Page: math.MaxInt/100 + 1, PageSize: 100}, offset: math.MaxInt / 100 * 100, limit: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.offset, tt.params.Offset())
			assert.Equal(t, tt.limit, tt.params.Limit())
		})
	}
}

func TestPagesCoverDatasetExactlyOnce(t *testing.T) {
	for _, n := range []int{0, 1, 7, 12} {
		for _, k := range []int{1, 3, 5} {
			t.Run(fmt.Sprintf("n=%d k=%d", n, k), func(t *testing.T) {
				db, mock := newMockDB(t)
				pages := (n + k - 1) / k

				for page := 1; page <= pages; page++ {
					p := Params{Page: page, PageSize: k}
					rows := sqlmock.NewRows([]string{"id", "kind", "created_at"})
					for i := p.Offset(); i < p.Offset()+p.Limit() && i < n; i++ {
						rows.AddRow(i+1, "a", time.Now())
					}
					mock.ExpectQuery(`SELECT count\(\*\) FROM "widgets"`).
						WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(n))
					mock.ExpectQuery(`SELECT \* FROM "widgets" ORDER BY id LIMIT`).
						WillReturnRows(rows)
				}

				seen := make(map[int64]int)
				for page := 1; page <= pages; page++ {
					resp, err := Paginate(db, Query{Order: "id"}, Params{Page: page, PageSize: k},
						func(w *widget) (int64, error) { return w.ID, nil })
					require.NoError(t, err)
					assert.Equal(t, int64(n), resp.TotalCount)
					assert.LessOrEqual(t, len(resp.Items), k)
					for _, id := range resp.Items {
						seen[id]++
					}
				}

				require.Len(t, seen, n)
				for id, count := range seen {
					assert.Equal(t, 1, count, "id %d seen %d times", id, count)
				}
				if err := mock.ExpectationsWereMet(); err != nil {
					t.Errorf("there were unfulfilled expectations: %s", err)
				}
			})
		}
	}
}

func TestFromQuery(t *testing.T) {
	limits := Limits{DefaultPageSize: 20, MaxPageSize: 100}

	tests := []struct {
		name    string
		query   string
		want    Params
		wantErr bool
	}{
		{name: "defaults", query: "", want: Params{Page: 1, PageSize: 20}},
		{name: "explicit", query: "page=3&page_size=50", want: Params{Page: 3, PageSize: 50}},
		{name: "zero page", query: "page=0", wantErr: true},
		{name: "zero page size", query: "page_size=0", wantErr: true},
		{name: "too large", query: "page_size=101", wantErr: true},
		{name: "not a number", query: "page=abc", wantErr: true},
		{name: "offset overflow", query: "page=4611686018427387904&page_size=100", wantErr: true},
		{name: "max int page", query: "page=9223372036854775807&page_size=2", wantErr: true},
		{name: "huge page of one", query: "page=9223372036854775807&page_size=1", want: Params{Page: math.MaxInt, PageSize: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := FromQuery(values, limits)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParams)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
