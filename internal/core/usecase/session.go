package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
	"github.com/kirillkom/forensic-scan/internal/core/ports"
)

const (
	rateLimitedMessage = "The analysis service is receiving too many requests. Please wait a minute and try again."
	unreadableMessage  = "The selected file could not be read. Please choose another file."
)

type SessionOptions struct {
	// ScanTimeout bounds one submission, retries included.
	ScanTimeout time.Duration
	// MinDisplay, when positive, raises the display-elapsed signal itself after
	// this long; otherwise only AnimationComplete raises it.
	MinDisplay time.Duration
	Now        func() time.Time
}

// SessionController owns the single scan session: the selected asset, the state,
// the pending report and the failure message. Only its methods mutate them.
type SessionController struct {
	normalizer ports.AssetNormalizer
	reports    ports.ReportService
	events     ports.ScanEventPublisher
	recorder   ports.ScanRecorder
	opts       SessionOptions

	mu           sync.Mutex
	state        domain.State
	changed      chan struct{}
	generation   uint64
	pending      *domain.ForensicReport
	displayTimer *time.Timer
}

func NewSessionController(
	normalizer ports.AssetNormalizer,
	reports ports.ReportService,
	events ports.ScanEventPublisher,
	recorder ports.ScanRecorder,
	opts SessionOptions,
) *SessionController {
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionController{
		normalizer: normalizer,
		reports:    reports,
		events:     events,
		recorder:   recorder,
		opts:       opts,
		state:      domain.Idle{},
		changed:    make(chan struct{}),
	}
}

func (c *SessionController) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Changed returns a channel that is closed on the next state transition.
func (c *SessionController) Changed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

func (c *SessionController) SelectFile(asset domain.FileAsset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireIdleLocked("select file"); err != nil {
		return err
	}
	if asset.Size > domain.MaxFileSize {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"select file",
			fmt.Errorf("file %s is %d bytes, limit is %d", asset.Name, asset.Size, domain.MaxFileSize),
		)
	}
	c.transitionLocked(domain.Idle{Selection: asset})
	return nil
}

func (c *SessionController) SetURL(rawURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireIdleLocked("set url"); err != nil {
		return err
	}
	if strings.TrimSpace(rawURL) == "" {
		c.transitionLocked(domain.Idle{})
		return nil
	}
	c.transitionLocked(domain.Idle{Selection: domain.URLAsset{URL: strings.TrimSpace(rawURL)}})
	return nil
}

// Submit moves Idle to Scanning and starts the request in the background. The
// request is not bound to ctx cancellation; a Reset discards its outcome instead.
func (c *SessionController) Submit(ctx context.Context) (domain.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireIdleLocked("submit"); err != nil {
		return c.state, err
	}
	return c.startLocked(ctx, c.state.(domain.Idle).Selection)
}

// SubmitAsset selects asset and submits it under one lock, so concurrent callers
// never start a scan of each other's selection.
func (c *SessionController) SubmitAsset(ctx context.Context, asset domain.Asset) (domain.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireIdleLocked("submit"); err != nil {
		return c.state, err
	}
	if u, ok := asset.(domain.URLAsset); ok {
		asset = domain.URLAsset{URL: strings.TrimSpace(u.URL)}
	}
	return c.startLocked(ctx, asset)
}

func (c *SessionController) startLocked(ctx context.Context, selection domain.Asset) (domain.State, error) {
	if domain.IsEmptyAsset(selection) {
		return c.state, domain.WrapError(domain.ErrInvalidInput, "submit", errors.New("select a file or enter a url first"))
	}
	if file, ok := selection.(domain.FileAsset); ok && file.Size > domain.MaxFileSize {
		return c.state, domain.WrapError(domain.ErrInvalidInput, "submit", fmt.Errorf("file %s exceeds size limit", file.Name))
	}

	c.generation++
	generation := c.generation
	scanning := domain.Scanning{
		ScanID:    uuid.NewString(),
		Asset:     selection.Describe(),
		StartedAt: c.opts.Now().UTC(),
	}
	c.pending = nil
	c.transitionLocked(scanning)

	if c.recorder != nil {
		c.recorder.StartScan(selection.Kind())
	}
	if c.opts.MinDisplay > 0 {
		c.displayTimer = time.AfterFunc(c.opts.MinDisplay, func() {
			c.markDisplayElapsed(generation)
		})
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.ScanTimeout)
	go func() {
		defer cancel()
		c.run(runCtx, generation, selection)
	}()

	slog.Info("scan_started", "scan_id", scanning.ScanID, "asset_kind", scanning.Asset.Kind)
	return scanning, nil
}

// AnimationComplete raises the display-elapsed signal from the presentation side.
func (c *SessionController) AnimationComplete() domain.State {
	c.mu.Lock()
	state, event := c.displayElapsedLocked()
	c.mu.Unlock()

	c.publish(event)
	return state
}

// Reset returns to Idle from any state. A scan still in flight keeps running but
// its outcome is discarded.
func (c *SessionController) Reset() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idle, ok := c.state.(domain.Idle); ok && idle.Selection == nil {
		return c.state
	}
	if scanning, ok := c.state.(domain.Scanning); ok {
		slog.Info("scan_abandoned", "scan_id", scanning.ScanID)
		c.finishMetricsLocked(domain.StateIdle, scanning.StartedAt)
	}

	c.generation++
	c.pending = nil
	c.stopDisplayTimerLocked()
	c.transitionLocked(domain.Idle{})
	return c.state
}

func (c *SessionController) run(ctx context.Context, generation uint64, asset domain.Asset) {
	payload, err := c.normalizer.Normalize(ctx, asset)
	if err != nil {
		c.fail(generation, err)
		return
	}

	report, err := c.reports.Request(ctx, payload)
	if err != nil {
		c.fail(generation, err)
		return
	}
	c.resultReady(generation, report)
}

func (c *SessionController) resultReady(generation uint64, report *domain.ForensicReport) {
	c.mu.Lock()
	scanning, ok := c.state.(domain.Scanning)
	if !ok || generation != c.generation {
		c.mu.Unlock()
		slog.Info("scan_result_discarded", "case_id", report.CaseID)
		return
	}

	c.pending = report
	scanning.ResultReady = true
	var event *domain.ScanEvent
	if scanning.DisplayElapsed {
		event = c.completeLocked(scanning)
	} else {
		c.transitionLocked(scanning)
	}
	c.mu.Unlock()

	c.publish(event)
}

func (c *SessionController) markDisplayElapsed(generation uint64) {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return
	}
	_, event := c.displayElapsedLocked()
	c.mu.Unlock()

	c.publish(event)
}

func (c *SessionController) displayElapsedLocked() (domain.State, *domain.ScanEvent) {
	scanning, ok := c.state.(domain.Scanning)
	if !ok || scanning.DisplayElapsed {
		return c.state, nil
	}
	scanning.DisplayElapsed = true
	if scanning.ResultReady && c.pending != nil {
		event := c.completeLocked(scanning)
		return c.state, event
	}
	c.transitionLocked(scanning)
	return c.state, nil
}

func (c *SessionController) completeLocked(scanning domain.Scanning) *domain.ScanEvent {
	report := *c.pending
	c.pending = nil
	c.stopDisplayTimerLocked()
	c.transitionLocked(domain.ReportReady{ScanID: scanning.ScanID, Asset: scanning.Asset, Report: report})

	duration := c.finishMetricsLocked(domain.StateReportReady, scanning.StartedAt)
	if c.recorder != nil {
		c.recorder.RecordVerdict(report.Verdict, report.RiskLevel)
	}
	slog.Info("scan_completed",
		"scan_id", scanning.ScanID,
		"case_id", report.CaseID,
		"verdict", report.Verdict,
		"risk_level", report.RiskLevel,
		"duration_ms", duration.Milliseconds(),
	)
	return &domain.ScanEvent{
		ScanID:          scanning.ScanID,
		Status:          domain.StateReportReady,
		AssetKind:       scanning.Asset.Kind,
		CaseID:          report.CaseID,
		Verdict:         report.Verdict,
		RiskLevel:       report.RiskLevel,
		ConfidenceScore: report.ConfidenceScore,
		DurationMS:      duration.Milliseconds(),
		OccurredAt:      c.opts.Now().UTC(),
	}
}

func (c *SessionController) fail(generation uint64, cause error) {
	c.mu.Lock()
	scanning, ok := c.state.(domain.Scanning)
	if !ok || generation != c.generation {
		c.mu.Unlock()
		slog.Info("scan_failure_discarded", "error", cause)
		return
	}

	message := userMessage(cause)
	c.pending = nil
	c.stopDisplayTimerLocked()
	c.transitionLocked(domain.Errored{ScanID: scanning.ScanID, Message: message})
	duration := c.finishMetricsLocked(domain.StateError, scanning.StartedAt)
	c.mu.Unlock()

	slog.Error("scan_failed", "scan_id", scanning.ScanID, "asset_kind", scanning.Asset.Kind, "error", cause)
	c.publish(&domain.ScanEvent{
		ScanID:     scanning.ScanID,
		Status:     domain.StateError,
		AssetKind:  scanning.Asset.Kind,
		DurationMS: duration.Milliseconds(),
		Error:      message,
		OccurredAt: c.opts.Now().UTC(),
	})
}

func (c *SessionController) requireIdleLocked(operation string) error {
	switch c.state.(type) {
	case domain.Idle:
		return nil
	case domain.Scanning:
		return domain.WrapError(domain.ErrBusy, operation, errors.New("wait for the current scan or reset"))
	default:
		return domain.WrapError(domain.ErrInvalidState, operation, fmt.Errorf("session is %s, reset first", c.state.Kind()))
	}
}

func (c *SessionController) transitionLocked(next domain.State) {
	c.state = next
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *SessionController) stopDisplayTimerLocked() {
	if c.displayTimer != nil {
		c.displayTimer.Stop()
		c.displayTimer = nil
	}
}

func (c *SessionController) finishMetricsLocked(status domain.StateKind, startedAt time.Time) time.Duration {
	duration := c.opts.Now().UTC().Sub(startedAt)
	if c.recorder != nil {
		c.recorder.FinishScan(status, duration)
	}
	return duration
}

func (c *SessionController) publish(event *domain.ScanEvent) {
	if event == nil || c.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.events.PublishScanCompleted(ctx, *event); err != nil {
		slog.Warn("scan_event_publish_failed", "scan_id", event.ScanID, "error", err)
	}
}

func userMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrRateLimited):
		return rateLimitedMessage
	case domain.IsKind(err, domain.ErrIO):
		return unreadableMessage
	default:
		return domain.DefaultErrorMessage
	}
}
