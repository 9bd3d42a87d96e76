package parserrequest

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Record is the persisted parser_requests row.
type Record struct {
	ID           int64          `gorm:"primaryKey;autoIncrement;column:id"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null;index:idx_parser_requests_created_at,sort:desc"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null"`
	Status       Status         `gorm:"column:status;type:varchar(32);not null;index"`
	InputData    datatypes.JSON `gorm:"column:input_data;type:jsonb;not null"`
	ResultData   datatypes.JSON `gorm:"column:result_data;type:jsonb"`
	FinishedAt   *time.Time     `gorm:"column:finished_at"`
	ErrorMessage *string        `gorm:"column:error_message;type:text"`
}

func (Record) TableName() string {
	return "parser_requests"
}

// ParserRequest is the summary projection used by list views.
type ParserRequest struct {
	ID           int64      `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Status       Status     `json:"status"`
	FinishedAt   *time.Time `json:"finished_at"`
	ErrorMessage *string    `json:"error_message"`
}

// DetailParserRequest additionally carries the typed input and result.
type DetailParserRequest struct {
	ID           int64       `json:"id"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Status       Status      `json:"status"`
	InputData    Input       `json:"input_data"`
	ResultData   *ResultData `json:"result_data"`
	FinishedAt   *time.Time  `json:"finished_at"`
	ErrorMessage *string     `json:"error_message"`
}

func (d DetailParserRequest) ParserType() ParserType {
	if d.InputData == nil {
		return ""
	}
	return d.InputData.ParserType()
}

func NewParserRequest(rec *Record) (ParserRequest, error) {
	if !rec.Status.Valid() {
		return ParserRequest{}, fmt.Errorf("parser request %d has unknown status %q", rec.ID, rec.Status)
	}
	return ParserRequest{
		ID:           rec.ID,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
		Status:       rec.Status,
		FinishedAt:   rec.FinishedAt,
		ErrorMessage: rec.ErrorMessage,
	}, nil
}

// NewDetailParserRequest decodes the stored documents back into their typed
// shapes, applying the same validation as the request boundary.
func NewDetailParserRequest(rec *Record) (DetailParserRequest, error) {
	summary, err := NewParserRequest(rec)
	if err != nil {
		return DetailParserRequest{}, err
	}

	input, err := DecodeInput(rec.InputData)
	if err != nil {
		return DetailParserRequest{}, fmt.Errorf("parser request %d input_data: %w", rec.ID, err)
	}

	var result *ResultData
	if len(rec.ResultData) > 0 && string(rec.ResultData) != "null" {
		var decoded ResultData
		if err := json.Unmarshal(rec.ResultData, &decoded); err != nil {
			return DetailParserRequest{}, fmt.Errorf("parser request %d result_data: %w", rec.ID, err)
		}
		decoded = decoded.normalized()
		result = &decoded
	}

	return DetailParserRequest{
		ID:           summary.ID,
		CreatedAt:    summary.CreatedAt,
		UpdatedAt:    summary.UpdatedAt,
		Status:       summary.Status,
		InputData:    input,
		ResultData:   result,
		FinishedAt:   summary.FinishedAt,
		ErrorMessage: summary.ErrorMessage,
	}, nil
}
