package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/framesnap/framesnap/internal/archive"
	"github.com/framesnap/framesnap/internal/blob"
	"github.com/framesnap/framesnap/internal/frames"
	"github.com/framesnap/framesnap/internal/ledger"
	"github.com/framesnap/framesnap/internal/notify"
)

// archiveName is the fixed filename of the packaged artifact.
const archiveName = "frames.zip"

// Result is the structured outcome of handling one work item. The status
// code tells the transport whether the message may be acknowledged.
type Result struct {
	StatusCode int  `json:"status_code"`
	Body       Body `json:"body"`
}

// Body is the JSON-shaped payload of a Result.
type Body struct {
	Message        string `json:"message"`
	VideoID        string `json:"video_id,omitempty"`
	OutputLocation string `json:"output_location,omitempty"`
	FrameCount     int    `json:"frame_count,omitempty"`
	Error          string `json:"error,omitempty"`
}

// OutputKey returns the object key of the packaged artifact for a video.
func OutputKey(ownerID, videoID string) string {
	return fmt.Sprintf("outputs/%s/%s/%s", ownerID, videoID, archiveName)
}

// Config holds the processing service settings.
type Config struct {
	// InputBucket is the default bucket holding uploaded videos.
	InputBucket string
	// OutputBucket receives the packaged frame archives.
	OutputBucket string
	// FrameStride is the temporal sampling interval in decoded frames.
	FrameStride int
	// TempDir is the parent directory for per-attempt working directories.
	TempDir string
}

// Service drives the processing pipeline for one work item at a time:
// mark PROCESSING, fetch the source, sample frames, package, store, then
// mark COMPLETED or ERROR and notify. It depends only on the ports of its
// collaborators.
type Service struct {
	ledger   ledger.Ledger
	store    blob.Store
	sampler  frames.Sampler
	packager archive.Packager
	notifier notify.Notifier
	logger   *slog.Logger
	validate *validator.Validate
	cfg      Config
}

// NewService creates a new processing Service.
func NewService(
	led ledger.Ledger,
	store blob.Store,
	sampler frames.Sampler,
	packager archive.Packager,
	notifier notify.Notifier,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FrameStride < 1 {
		cfg.FrameStride = 1
	}
	if cfg.TempDir == "" {
		cfg.TempDir = filepath.Join(os.TempDir(), "framesnap")
	}
	return &Service{
		ledger:   led,
		store:    store,
		sampler:  sampler,
		packager: packager,
		notifier: notifier,
		logger:   logger,
		validate: validator.New(),
		cfg:      cfg,
	}
}

// HandleMessage processes one raw work item and returns a structured result.
// Stage failures are converted into an ERROR ledger transition plus a
// best-effort notification; they are never propagated as errors. The
// working directory is removed on every exit path.
func (s *Service) HandleMessage(ctx context.Context, raw []byte) Result {
	item, err := parseWorkItem(raw, s.validate)
	if err != nil {
		// Without identifying fields there is no record to transition
		// and no user to notify.
		s.logger.Warn("rejecting malformed work item",
			slog.String("error", err.Error()),
		)
		return Result{
			StatusCode: 400,
			Body:       Body{Message: "invalid work item", Error: err.Error()},
		}
	}

	log := s.logger.With(
		slog.String("owner_id", item.OwnerID),
		slog.String("video_id", item.VideoID),
	)
	log.Info("processing work item", slog.String("source_key", item.SourceKey))

	if err := s.ledger.UpdateStatus(ctx, item.OwnerID, item.VideoID, ledger.StatusProcessing, ledger.Update{}); err != nil {
		// Not fatal: the terminal transition is the one that matters
		log.Warn("failed to mark record PROCESSING",
			slog.String("error", err.Error()),
		)
	}

	if err := os.MkdirAll(s.cfg.TempDir, 0750); err != nil {
		return s.fail(ctx, log, item, fmt.Errorf("create temp directory: %w", err))
	}
	workDir, err := os.MkdirTemp(s.cfg.TempDir, "attempt_")
	if err != nil {
		return s.fail(ctx, log, item, fmt.Errorf("create working directory: %w", err))
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	videoPath := filepath.Join(workDir, "video.mp4")
	framesDir := filepath.Join(workDir, "frames")
	archivePath := filepath.Join(workDir, archiveName)

	sourceBucket := item.SourceBucket
	if sourceBucket == "" {
		sourceBucket = s.cfg.InputBucket
	}

	if err := s.store.Fetch(ctx, sourceBucket, item.SourceKey, videoPath); err != nil {
		return s.fail(ctx, log, item, err)
	}

	extracted, err := s.sampler.Extract(ctx, videoPath, framesDir, s.cfg.FrameStride)
	if err != nil {
		return s.fail(ctx, log, item, err)
	}

	if err := s.packager.Pack(ctx, framesDir, archivePath); err != nil {
		return s.fail(ctx, log, item, err)
	}

	outputKey := OutputKey(item.OwnerID, item.VideoID)
	if err := s.store.Put(ctx, archivePath, s.cfg.OutputBucket, outputKey); err != nil {
		return s.fail(ctx, log, item, err)
	}
	outputLocation := blob.Location(s.cfg.OutputBucket, outputKey)

	if err := s.ledger.UpdateStatus(ctx, item.OwnerID, item.VideoID, ledger.StatusCompleted, ledger.Update{
		OutputLocation: &outputLocation,
	}); err != nil {
		// The artifact is stored but the record is stale; report failure
		// so redelivery re-runs the (idempotent) pipeline.
		log.Error("failed to record COMPLETED",
			slog.String("error", err.Error()),
		)
		return Result{
			StatusCode: 500,
			Body:       Body{Message: "error processing video", VideoID: item.VideoID, Error: err.Error()},
		}
	}

	s.notifyOutcome(ctx, log, notify.Message{
		OwnerID:        item.OwnerID,
		VideoID:        item.VideoID,
		Status:         ledger.StatusCompleted,
		OutputLocation: outputLocation,
	})

	log.Info("processing completed",
		slog.Int("frame_count", extracted.FrameCount),
		slog.String("output_location", outputLocation),
	)

	return Result{
		StatusCode: 200,
		Body: Body{
			Message:        "processing completed successfully",
			VideoID:        item.VideoID,
			OutputLocation: outputLocation,
			FrameCount:     extracted.FrameCount,
		},
	}
}

// HandleQueueMessage adapts HandleMessage to the queue.Handler contract:
// only a 5xx result leaves the message for redelivery. A malformed item is
// acknowledged since redelivery can never fix an unparseable payload.
func (s *Service) HandleQueueMessage(ctx context.Context, body []byte) error {
	res := s.HandleMessage(ctx, body)
	if res.StatusCode >= 500 {
		return errors.New(res.Body.Error)
	}
	return nil
}

// fail performs the compensating transition for an identified work item:
// the ERROR ledger write and notification carry the deepest available
// diagnostic from the failed stage. Failures of the compensating actions
// themselves are logged and never mask the original error.
func (s *Service) fail(ctx context.Context, log *slog.Logger, item *WorkItem, stageErr error) Result {
	detail := stageErr.Error()
	log.Error("processing failed", slog.String("error", detail))

	if err := s.ledger.UpdateStatus(ctx, item.OwnerID, item.VideoID, ledger.StatusError, ledger.Update{
		ErrorDetail: &detail,
	}); err != nil {
		if errors.Is(err, ledger.ErrTerminalState) {
			log.Warn("record already COMPLETED, keeping terminal state")
		} else {
			log.Error("failed to record ERROR",
				slog.String("error", err.Error()),
			)
		}
	}

	s.notifyOutcome(ctx, log, notify.Message{
		OwnerID:     item.OwnerID,
		VideoID:     item.VideoID,
		Status:      ledger.StatusError,
		ErrorDetail: detail,
	})

	return Result{
		StatusCode: 500,
		Body:       Body{Message: "error processing video", VideoID: item.VideoID, Error: detail},
	}
}

// notifyOutcome dispatches a notification, logging any failure.
func (s *Service) notifyOutcome(ctx context.Context, log *slog.Logger, msg notify.Message) {
	if err := s.notifier.Notify(ctx, msg); err != nil {
		log.Error("failed to send notification",
			slog.String("status", string(msg.Status)),
			slog.String("error", err.Error()),
		)
	}
}
