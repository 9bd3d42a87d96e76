package parserrequest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Input is one of the supported parser inputs, tagged by its parser type.
// SimpleDownloadInput and DownloadAndParsePostsInput are the only
// implementations; both marshal with the parser_type discriminator.
type Input interface {
	ParserType() ParserType
	json.Marshaler
}

type SimpleDownloadInput struct {
	GroupURL string
	MaxAge   int
}

func (SimpleDownloadInput) ParserType() ParserType { return ParserTypeSimpleDownload }

func (in SimpleDownloadInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ParserType ParserType `json:"parser_type"`
		GroupURL   string     `json:"group_url"`
		MaxAge     int        `json:"max_age"`
	}{in.ParserType(), in.GroupURL, in.MaxAge})
}

type DownloadAndParsePostsInput struct {
	GroupURL   string
	PostedUpTo time.Time
	MaxAge     int
}

func (DownloadAndParsePostsInput) ParserType() ParserType {
	return ParserTypeDownloadAndParsePosts
}

func (in DownloadAndParsePostsInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ParserType ParserType `json:"parser_type"`
		GroupURL   string     `json:"group_url"`
		PostedUpTo time.Time  `json:"posted_up_to"`
		MaxAge     int        `json:"max_age"`
	}{in.ParserType(), in.GroupURL, in.PostedUpTo, in.MaxAge})
}

// Wire shapes. Pointers let "required" tell a missing field from a zero one.
type simpleDownloadPayload struct {
	GroupURL *string `json:"group_url" validate:"required,group_url"`
	MaxAge   *int    `json:"max_age" validate:"required"`
}

type downloadAndParsePostsPayload struct {
	GroupURL   *string `json:"group_url" validate:"required,group_url"`
	PostedUpTo *string `json:"posted_up_to" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	MaxAge     *int    `json:"max_age" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("group_url", isGroupURL); err != nil {
		panic(err)
	}
	return v
}

// isGroupURL accepts absolute http(s) URLs with a host.
func isGroupURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DecodeInput reads the parser_type discriminator first and then validates
// the payload against the matching variant. Unknown or missing
// discriminators are rejected rather than defaulted.
func DecodeInput(data []byte) (Input, error) {
	var head struct {
		ParserType *string `json:"parser_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "parser_type" {
			return nil, newValidationError(ErrUnknownParserType,
				FieldError{Field: "parser_type", Message: "must be a string"})
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if head.ParserType == nil {
		return nil, newValidationError(ErrMissingParserType,
			FieldError{Field: "parser_type", Message: "field required"})
	}

	switch ParserType(*head.ParserType) {
	case ParserTypeSimpleDownload:
		var p simpleDownloadPayload
		if err := decodePayload(data, &p); err != nil {
			return nil, err
		}
		return SimpleDownloadInput{GroupURL: *p.GroupURL, MaxAge: *p.MaxAge}, nil

	case ParserTypeDownloadAndParsePosts:
		var p downloadAndParsePostsPayload
		if err := decodePayload(data, &p); err != nil {
			return nil, err
		}
		postedUpTo, err := time.Parse(time.RFC3339, *p.PostedUpTo)
		if err != nil {
			return nil, newValidationError(err,
				FieldError{Field: "posted_up_to", Message: "must be an RFC 3339 timestamp"})
		}
		return DownloadAndParsePostsInput{
			GroupURL:   *p.GroupURL,
			PostedUpTo: postedUpTo,
			MaxAge:     *p.MaxAge,
		}, nil
	}

	return nil, newValidationError(ErrUnknownParserType, FieldError{
		Field:   "parser_type",
		Message: fmt.Sprintf("unknown parser type %q", *head.ParserType),
	})
}

// EncodeInput renders in as the document stored in input_data.
func EncodeInput(in Input) ([]byte, error) {
	if in == nil {
		return nil, errors.New("input is nil")
	}
	return json.Marshal(in)
}

func decodePayload(data []byte, dst interface{}) error {
	if err := json.Unmarshal(data, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return newValidationError(err, FieldError{
				Field:   typeErr.Field,
				Message: fmt.Sprintf("must be of type %s", typeErr.Type),
			})
		}
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating payload: %w", err)
		}
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Message: describe(fe)})
		}
		return newValidationError(err, fields...)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "group_url":
		return "must be an absolute http(s) URL"
	case "datetime":
		return "must be an RFC 3339 timestamp"
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
