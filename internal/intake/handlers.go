package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/framesnap/framesnap/internal/blob"
	"github.com/framesnap/framesnap/internal/ledger"
	"github.com/framesnap/framesnap/internal/processing"
)

// ownerHeader carries the authenticated user identity, injected by the
// gateway in front of this service.
const ownerHeader = "X-Owner-ID"

// defaultUploadTTL is how long a presigned upload URL stays valid.
const defaultUploadTTL = 15 * time.Minute

// WorkQueue enqueues work item payloads for the processing workers.
type WorkQueue interface {
	Send(ctx context.Context, body []byte) error
}

// Handlers contains the HTTP handlers for the intake API.
type Handlers struct {
	ledger      ledger.Ledger
	presigner   blob.Presigner
	queue       WorkQueue
	validator   *validator.Validate
	logger      *slog.Logger
	inputBucket string
	uploadTTL   time.Duration
}

// HandlerOption configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithUploadTTL overrides the presigned upload URL lifetime.
func WithUploadTTL(ttl time.Duration) HandlerOption {
	return func(h *Handlers) {
		h.uploadTTL = ttl
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(led ledger.Ledger, presigner blob.Presigner, queue WorkQueue, inputBucket string, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		ledger:      led,
		presigner:   presigner,
		queue:       queue,
		validator:   validator.New(),
		logger:      logger,
		inputBucket: inputBucket,
		uploadTTL:   defaultUploadTTL,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateUpload handles POST /uploads requests. It assigns a video ID, issues
// a presigned upload URL, registers a PENDING ledger record and enqueues the
// work item for processing.
func (h *Handlers) CreateUpload(w http.ResponseWriter, r *http.Request) {
	ownerID := r.Header.Get(ownerHeader)
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "missing owner identity", "MISSING_OWNER")
		return
	}

	var req CreateUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	// Strip any path components from the client-supplied filename
	filename := path.Base(req.Filename)
	if filename == "." || filename == ".." || filename == "/" {
		writeError(w, http.StatusBadRequest, "invalid filename", "VALIDATION_ERROR")
		return
	}

	videoID := uuid.NewString()
	key := fmt.Sprintf("inputs/%s/%s/%s", ownerID, videoID, filename)

	uploadURL, err := h.presigner.PresignPut(r.Context(), h.inputBucket, key, h.uploadTTL)
	if err != nil {
		h.logger.Error("failed to presign upload URL",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create upload URL", "PRESIGN_FAILED")
		return
	}

	if err := h.ledger.Create(r.Context(), &ledger.Record{
		OwnerID:  ownerID,
		VideoID:  videoID,
		Filename: filename,
		Status:   ledger.StatusPending,
	}); err != nil {
		h.logger.Error("failed to register upload",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to register upload", "LEDGER_WRITE_FAILED")
		return
	}

	item := processing.WorkItem{
		OwnerID:      ownerID,
		VideoID:      videoID,
		SourceBucket: h.inputBucket,
		SourceKey:    key,
	}
	body, err := json.Marshal(item)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue work item", "ENQUEUE_FAILED")
		return
	}
	if err := h.queue.Send(r.Context(), body); err != nil {
		h.logger.Error("failed to enqueue work item",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to enqueue work item", "ENQUEUE_FAILED")
		return
	}

	h.logger.Info("upload registered",
		slog.String("owner_id", ownerID),
		slog.String("video_id", videoID),
		slog.String("key", key),
	)

	writeJSON(w, http.StatusCreated, CreateUploadResponse{
		VideoID:   videoID,
		UploadURL: uploadURL,
		Key:       key,
		Status:    string(ledger.StatusPending),
	})
}

// GetUpload handles GET /uploads/{id} requests.
func (h *Handlers) GetUpload(w http.ResponseWriter, r *http.Request) {
	ownerID := r.Header.Get(ownerHeader)
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "missing owner identity", "MISSING_OWNER")
		return
	}

	videoID := chi.URLParam(r, "id")
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "video ID is required", "MISSING_VIDEO_ID")
		return
	}

	rec, err := h.ledger.Get(r.Context(), ownerID, videoID)
	if err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "upload not found", "UPLOAD_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get upload",
			slog.String("video_id", videoID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get upload", "LEDGER_READ_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, UploadStatusResponse{
		VideoID:        rec.VideoID,
		Filename:       rec.Filename,
		Status:         string(rec.Status),
		OutputLocation: rec.OutputLocation,
		ErrorDetail:    rec.ErrorDetail,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
