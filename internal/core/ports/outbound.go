package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
)

// ReportGenerator performs exactly one remote generation call and returns the raw text.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, payload domain.RequestPayload) (string, error)
}

// TextDecoder reads a text-like asset in full.
type TextDecoder interface {
	DecodeText(ctx context.Context, r io.Reader) (string, error)
}

// ScanEventPublisher announces terminal scan outcomes.
type ScanEventPublisher interface {
	PublishScanCompleted(ctx context.Context, event domain.ScanEvent) error
}

// ScanRecorder receives scan and attempt observations.
type ScanRecorder interface {
	StartScan(kind domain.AssetKind)
	FinishScan(status domain.StateKind, duration time.Duration)
	RecordAttempt(outcome string)
	RecordVerdict(verdict domain.Verdict, risk domain.RiskLevel)
}

// RetryDecision tells a RetryExecutor how to treat one failed attempt.
type RetryDecision struct {
	Retry bool
	// Record counts the failure against the upstream's health.
	Record bool
}

// RetryExecutor runs fn with bounded sequential retries, asking decide after each failure.
type RetryExecutor interface {
	Execute(ctx context.Context, operation string, fn func(context.Context) error, decide func(error) RetryDecision) error
}
