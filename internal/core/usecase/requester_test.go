package usecase

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
	"github.com/kirillkom/forensic-scan/internal/core/ports"
)

const validReportJSON = `{
	"case_id": "CASE-2024-0042",
	"verdict": "LIKELY_PIRATED",
	"confidence_score": 87,
	"summary": "The asset matches a known release.",
	"evidence": ["Re-encoding artifacts", "Release group watermark"],
	"risk_level": "HIGH",
	"suspicious_urls": ["https://mirror.example/dl"],
	"engine_scores": [{"name": "Perceptual Hash", "score": 91}]
}`

type scriptedGenerator struct {
	mu        sync.Mutex
	responses []generatorResponse
	calls     int
}

type generatorResponse struct {
	text string
	err  error
}

func (g *scriptedGenerator) GenerateReport(context.Context, domain.RequestPayload) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.calls
	g.calls++
	if idx >= len(g.responses) {
		idx = len(g.responses) - 1
	}
	return g.responses[idx].text, g.responses[idx].err
}

type attemptRecorder struct {
	mu       sync.Mutex
	attempts []string
}

func (r *attemptRecorder) StartScan(domain.AssetKind)                     {}
func (r *attemptRecorder) FinishScan(domain.StateKind, time.Duration)     {}
func (r *attemptRecorder) RecordVerdict(domain.Verdict, domain.RiskLevel) {}
func (r *attemptRecorder) RecordAttempt(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, outcome)
}

// retryingExecutor retries while the requester's decision allows it, up to maxAttempts.
type retryingExecutor struct {
	maxAttempts int
	decisions   []ports.RetryDecision
}

func (e *retryingExecutor) Execute(ctx context.Context, _ string, fn func(context.Context) error, decide func(error) ports.RetryDecision) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		d := decide(err)
		e.decisions = append(e.decisions, d)
		if !d.Retry || attempt >= e.maxAttempts {
			return err
		}
	}
}

func newRequesterUnderTest(gen *scriptedGenerator, rec *attemptRecorder) (*ReportRequester, *retryingExecutor) {
	exec := &retryingExecutor{maxAttempts: 5}
	if rec == nil {
		return NewReportRequester(gen, exec, nil), exec
	}
	return NewReportRequester(gen, exec, rec), exec
}

func rateLimitErr() error {
	return &domain.UpstreamError{Operation: "gemini generateContent", Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "Resource has been exhausted"}
}

func textPayload() domain.RequestPayload {
	return domain.RequestPayload{Parts: []domain.Part{domain.TextPart("analyze")}}
}

func TestRequestRetriesRateLimitWithBackoffThenSucceeds(t *testing.T) {
	gen := &scriptedGenerator{responses: []generatorResponse{
		{err: rateLimitErr()},
		{err: rateLimitErr()},
		{err: rateLimitErr()},
		{err: rateLimitErr()},
		{text: validReportJSON},
	}}
	rec := &attemptRecorder{}
	requester, exec := newRequesterUnderTest(gen, rec)

	report, err := requester.Request(context.Background(), textPayload())
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if gen.calls != 5 {
		t.Fatalf("expected 5 attempts, got %d", gen.calls)
	}
	retry := ports.RetryDecision{Retry: true, Record: true}
	if want := []ports.RetryDecision{retry, retry, retry, retry}; !reflect.DeepEqual(exec.decisions, want) {
		t.Fatalf("unexpected retry decisions: %+v", exec.decisions)
	}
	if report.CaseID != "CASE-2024-0042" || report.Verdict != domain.VerdictLikelyPirated {
		t.Fatalf("unexpected report: %+v", report)
	}
	wantAttempts := []string{"rate_limited", "rate_limited", "rate_limited", "rate_limited", "success"}
	if !reflect.DeepEqual(rec.attempts, wantAttempts) {
		t.Fatalf("unexpected recorded attempts: %v", rec.attempts)
	}
}

func TestRequestFailsAfterFiveRateLimitedAttempts(t *testing.T) {
	gen := &scriptedGenerator{responses: []generatorResponse{{err: rateLimitErr()}}}
	requester, exec := newRequesterUnderTest(gen, nil)

	_, err := requester.Request(context.Background(), textPayload())
	if !domain.IsKind(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if gen.calls != 5 {
		t.Fatalf("expected 5 attempts, got %d", gen.calls)
	}
	if len(exec.decisions) != 5 {
		t.Fatalf("expected 5 retry decisions, got %+v", exec.decisions)
	}
}

func TestRequestDoesNotRetryFatalFailure(t *testing.T) {
	gen := &scriptedGenerator{responses: []generatorResponse{
		{err: &domain.UpstreamError{Operation: "gemini generateContent", Code: 400, Status: "INVALID_ARGUMENT", Message: "API key not valid"}},
		{text: validReportJSON},
	}}
	requester, exec := newRequesterUnderTest(gen, nil)

	_, err := requester.Request(context.Background(), textPayload())
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", gen.calls)
	}
	if want := []ports.RetryDecision{{Record: true}}; !reflect.DeepEqual(exec.decisions, want) {
		t.Fatalf("expected a single non-retryable decision, got %+v", exec.decisions)
	}
}

func TestRequestDoesNotRetryMalformedResponse(t *testing.T) {
	gen := &scriptedGenerator{responses: []generatorResponse{
		{text: "quota report: 429 pages"},
		{text: validReportJSON},
	}}
	requester, exec := newRequesterUnderTest(gen, nil)

	_, err := requester.Request(context.Background(), textPayload())
	if !domain.IsKind(err, domain.ErrMalformedReport) {
		t.Fatalf("expected ErrMalformedReport, got %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", gen.calls)
	}
	if len(exec.decisions) != 1 || exec.decisions[0] != (ports.RetryDecision{}) {
		t.Fatalf("malformed output must neither retry nor count against the upstream, got %+v", exec.decisions)
	}
}

func TestRequestDoesNotRetryEmptyResponse(t *testing.T) {
	gen := &scriptedGenerator{responses: []generatorResponse{{text: ""}}}
	requester, _ := newRequesterUnderTest(gen, nil)

	_, err := requester.Request(context.Background(), textPayload())
	if !domain.IsKind(err, domain.ErrMalformedReport) {
		t.Fatalf("expected ErrMalformedReport, got %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", gen.calls)
	}
}

func TestRequestRetriesOnQuotaMessage(t *testing.T) {
	gen := &scriptedGenerator{responses: []generatorResponse{
		{err: errors.New("You exceeded your current quota")},
		{text: validReportJSON},
	}}
	requester, exec := newRequesterUnderTest(gen, nil)

	if _, err := requester.Request(context.Background(), textPayload()); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if gen.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", gen.calls)
	}
	if len(exec.decisions) != 1 || !exec.decisions[0].Retry {
		t.Fatalf("expected one retryable decision, got %+v", exec.decisions)
	}
}

func TestRequestWithoutExecutorMakesOneAttempt(t *testing.T) {
	gen := &scriptedGenerator{responses: []generatorResponse{{err: rateLimitErr()}, {text: validReportJSON}}}
	requester := NewReportRequester(gen, nil, nil)

	_, err := requester.Request(context.Background(), textPayload())
	if !domain.IsKind(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", gen.calls)
	}
}
