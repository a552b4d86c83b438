// Package intake provides the HTTP API for registering video uploads and
// querying their processing status. DTOs are kept separate from domain types.
package intake

import "time"

// CreateUploadRequest is the HTTP request body for registering an upload.
type CreateUploadRequest struct {
	// Filename is the original name of the video file.
	Filename string `json:"filename" validate:"required,max=255"`
}

// CreateUploadResponse is the HTTP response after registering an upload.
type CreateUploadResponse struct {
	// VideoID is the unique identifier assigned to the video.
	VideoID string `json:"video_id"`
	// UploadURL is a time-limited URL for uploading the video directly.
	UploadURL string `json:"upload_url"`
	// Key is the object key the video must be uploaded under.
	Key string `json:"key"`
	// Status is the initial processing status.
	Status string `json:"status"`
}

// UploadStatusResponse is the HTTP response for a status query.
type UploadStatusResponse struct {
	// VideoID is the unique identifier of the video.
	VideoID string `json:"video_id"`
	// Filename is the original name of the video file.
	Filename string `json:"filename,omitempty"`
	// Status is the current processing status.
	Status string `json:"status"`
	// OutputLocation is where the frame archive is stored, once completed.
	OutputLocation string `json:"output_location,omitempty"`
	// ErrorDetail contains the failure diagnostic, if processing failed.
	ErrorDetail string `json:"error_detail,omitempty"`
	// CreatedAt is when the upload was registered.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the record last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
