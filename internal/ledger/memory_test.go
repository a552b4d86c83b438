package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

func TestMemoryLedger_Create(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	err := l.Create(ctx, &Record{
		OwnerID:  "u1",
		VideoID:  "v1",
		Filename: "video.mp4",
		Status:   StatusPending,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := l.Get(ctx, "u1", "v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != StatusPending {
		t.Errorf("expected status %s, got %s", StatusPending, rec.Status)
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestMemoryLedger_Get_NotFound(t *testing.T) {
	l := NewMemoryLedger()

	_, err := l.Get(context.Background(), "u1", "missing")
	if err != ErrRecordNotFound {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestMemoryLedger_Get_ReturnsClone(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	_ = l.Create(ctx, &Record{OwnerID: "u1", VideoID: "v1", Status: StatusPending})

	rec, _ := l.Get(ctx, "u1", "v1")
	rec.Status = StatusError
	rec.ErrorDetail = "mutated"

	original, _ := l.Get(ctx, "u1", "v1")
	if original.Status != StatusPending {
		t.Error("modifying returned record should not affect ledger")
	}
}

func TestMemoryLedger_UpdateStatus_PartialFields(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	_ = l.Create(ctx, &Record{OwnerID: "u1", VideoID: "v1", Filename: "video.mp4", Status: StatusPending})

	// COMPLETED with output location
	err := l.UpdateStatus(ctx, "u1", "v1", StatusCompleted, Update{
		OutputLocation: aws.String("s3://out/outputs/u1/v1/frames.zip"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := l.Get(ctx, "u1", "v1")
	if rec.Status != StatusCompleted {
		t.Errorf("expected status %s, got %s", StatusCompleted, rec.Status)
	}
	if rec.OutputLocation != "s3://out/outputs/u1/v1/frames.zip" {
		t.Errorf("unexpected output location: %s", rec.OutputLocation)
	}
	// Untouched fields survive the partial update
	if rec.Filename != "video.mp4" {
		t.Errorf("filename was clobbered: %q", rec.Filename)
	}
	if rec.ErrorDetail != "" {
		t.Errorf("error detail should be unset, got %q", rec.ErrorDetail)
	}
}

func TestMemoryLedger_UpdateStatus_ErrorDetail(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	_ = l.UpdateStatus(ctx, "u1", "v1", StatusProcessing, Update{})

	err := l.UpdateStatus(ctx, "u1", "v1", StatusError, Update{
		ErrorDetail: aws.String("fetch s3://in/inputs/u1/v1/video.mp4: NoSuchKey"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := l.Get(ctx, "u1", "v1")
	if rec.Status != StatusError {
		t.Errorf("expected status %s, got %s", StatusError, rec.Status)
	}
	if rec.ErrorDetail == "" {
		t.Error("expected error detail to be set")
	}
	if rec.OutputLocation != "" {
		t.Errorf("output location should be unset, got %q", rec.OutputLocation)
	}
}

func TestMemoryLedger_UpdateStatus_UpsertsMissingRecord(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	// The worker may see a message before the intake write is visible
	err := l.UpdateStatus(ctx, "u1", "v1", StatusProcessing, Update{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := l.Get(ctx, "u1", "v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != StatusProcessing {
		t.Errorf("expected status %s, got %s", StatusProcessing, rec.Status)
	}
}

func TestMemoryLedger_UpdateStatus_Idempotent(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	upd := Update{OutputLocation: aws.String("s3://out/outputs/u1/v1/frames.zip")}
	_ = l.UpdateStatus(ctx, "u1", "v1", StatusCompleted, upd)
	first, _ := l.Get(ctx, "u1", "v1")

	time.Sleep(time.Millisecond)
	if err := l.UpdateStatus(ctx, "u1", "v1", StatusCompleted, upd); err != nil {
		t.Fatalf("re-applying the same update failed: %v", err)
	}
	second, _ := l.Get(ctx, "u1", "v1")

	if second.Status != first.Status || second.OutputLocation != first.OutputLocation {
		t.Error("re-applying the same update changed the visible record")
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("expected updated_at to be refreshed")
	}
}

func TestMemoryLedger_UpdateStatus_ErrorNeverOverwritesCompleted(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	_ = l.UpdateStatus(ctx, "u1", "v1", StatusCompleted, Update{
		OutputLocation: aws.String("s3://out/outputs/u1/v1/frames.zip"),
	})

	err := l.UpdateStatus(ctx, "u1", "v1", StatusError, Update{
		ErrorDetail: aws.String("stale retry failure"),
	})
	if err != ErrTerminalState {
		t.Fatalf("expected ErrTerminalState, got %v", err)
	}

	rec, _ := l.Get(ctx, "u1", "v1")
	if rec.Status != StatusCompleted {
		t.Errorf("terminal state regressed to %s", rec.Status)
	}
}

func TestMemoryLedger_UpdateStatus_ProcessingMayFollowCompleted(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	_ = l.UpdateStatus(ctx, "u1", "v1", StatusCompleted, Update{})

	// Redelivery re-runs the pipeline; PROCESSING is the explicit
	// re-processing signal.
	if err := l.UpdateStatus(ctx, "u1", "v1", StatusProcessing, Update{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, _ := l.Get(ctx, "u1", "v1")
	if rec.Status != StatusProcessing {
		t.Errorf("expected status %s, got %s", StatusProcessing, rec.Status)
	}
}

func TestStatus_Terminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusProcessing, false},
		{StatusCompleted, true},
		{StatusError, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
