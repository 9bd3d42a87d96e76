package parserrequest

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/vk-parser/platform/pkg/common/logger"
)

var (
	ErrMalformedInput    = errors.New("malformed input payload")
	ErrMissingParserType = errors.New("parser_type is required")
	ErrUnknownParserType = errors.New("unknown parser_type")
	ErrStatusConflict    = errors.New("parser request status does not match expected status")
	ErrNotFound          = errors.New("parser request not found")
	ErrNotCreated        = errors.New("parser request could not be created")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field level detail about a rejected payload.
type ValidationError struct {
	Fields []FieldError
	reason error
}

func newValidationError(reason error, fields ...FieldError) ValidationError {
	return ValidationError{Fields: fields, reason: reason}
}

func (e ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	if len(parts) == 0 && e.reason != nil {
		return e.reason.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// AsValidationError extracts the field errors from err, if any.
func AsValidationError(err error) (ValidationError, bool) {
	var ve ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// classifyError buckets data-access failures for operators.
func classifyError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "unknown"
	}
	switch {
	case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
		return "constraint_violation"
	case pgerrcode.IsConnectionException(pgErr.Code):
		return "connection"
	case pgErr.Code == pgerrcode.QueryCanceled:
		return "timeout"
	case pgerrcode.IsDataException(pgErr.Code):
		return "data"
	}
	return "database"
}

func storeFailure(operation string, id int64, err error) *logrus.Entry {
	fields := logrus.Fields{
		"operation":   operation,
		"error_class": classifyError(err),
	}
	if id != 0 {
		fields["parser_request_id"] = id
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		fields["pg_code"] = pgErr.Code
	}
	return logger.Log.WithError(err).WithFields(fields)
}
