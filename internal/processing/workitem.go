// Package processing contains the asynchronous frame-extraction pipeline:
// work item parsing, the processing service and its handler result.
package processing

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// WorkItem identifies one processing request. Immutable once enqueued by the
// upload intake; consumed by the worker with at-least-once delivery.
type WorkItem struct {
	// OwnerID is the uploading user.
	OwnerID string `json:"owner_id" validate:"required"`
	// VideoID is the unique video identifier.
	VideoID string `json:"video_id" validate:"required"`
	// SourceBucket optionally overrides the configured input bucket.
	SourceBucket string `json:"source_bucket,omitempty"`
	// SourceKey is the object key of the uploaded video.
	SourceKey string `json:"source_key" validate:"required"`
}

// MalformedInputError reports a work item that could not be parsed or is
// missing required identifying fields. No ledger or notification action is
// possible for such an item.
type MalformedInputError struct {
	Err error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed work item: %v", e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// parseWorkItem decodes and validates a raw work item. It returns either a
// fully identified WorkItem or a MalformedInputError; callers never have to
// reason about partially bound fields.
func parseWorkItem(raw []byte, validate *validator.Validate) (*WorkItem, error) {
	var item WorkItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, &MalformedInputError{Err: err}
	}
	if err := validate.Struct(item); err != nil {
		return nil, &MalformedInputError{Err: err}
	}
	return &item, nil
}
