package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
	"github.com/kirillkom/forensic-scan/internal/core/ports"
)

const reportOperation = "report.generate"

// ReportRequester obtains a report with one remote call per attempt, retrying only
// rate-limited failures on the executor's backoff schedule.
type ReportRequester struct {
	generator ports.ReportGenerator
	executor  ports.RetryExecutor
	recorder  ports.ScanRecorder
}

func NewReportRequester(
	generator ports.ReportGenerator,
	executor ports.RetryExecutor,
	recorder ports.ScanRecorder,
) *ReportRequester {
	if executor == nil {
		executor = singleAttempt{}
	}
	return &ReportRequester{
		generator: generator,
		executor:  executor,
		recorder:  recorder,
	}
}

func (r *ReportRequester) Request(ctx context.Context, payload domain.RequestPayload) (*domain.ForensicReport, error) {
	var report *domain.ForensicReport
	attempt := 0

	err := r.executor.Execute(ctx, reportOperation, func(callCtx context.Context) error {
		attempt++
		text, err := r.generator.GenerateReport(callCtx, payload)
		if err != nil {
			r.recordAttempt(ClassifyFailure(err).String())
			return err
		}

		parsed, err := ParseReport(text)
		if err != nil {
			r.recordAttempt("malformed")
			return err
		}

		r.recordAttempt("success")
		report = parsed
		return nil
	}, classifyForRetry)
	if err != nil {
		return nil, wrapRequestError(err, attempt)
	}

	slog.Debug("report_received", "case_id", report.CaseID, "verdict", report.Verdict, "attempts", attempt)
	return report, nil
}

func (r *ReportRequester) recordAttempt(outcome string) {
	if r.recorder != nil {
		r.recorder.RecordAttempt(outcome)
	}
}

func wrapRequestError(err error, attempts int) error {
	switch {
	case domain.IsKind(err, domain.ErrMalformedReport),
		domain.IsKind(err, domain.ErrUnauthorized),
		domain.IsKind(err, domain.ErrInvalidInput):
		return err
	case ClassifyFailure(err) == FailureRateLimited:
		return domain.WrapError(domain.ErrRateLimited, "request report", fmt.Errorf("after %d attempts: %w", attempts, err))
	default:
		return domain.WrapError(domain.ErrUpstream, "request report", err)
	}
}

// singleAttempt runs the operation once without retrying.
type singleAttempt struct{}

func (singleAttempt) Execute(ctx context.Context, _ string, fn func(context.Context) error, _ func(error) ports.RetryDecision) error {
	return fn(ctx)
}
