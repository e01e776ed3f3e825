package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
	"github.com/kirillkom/forensic-scan/internal/infrastructure/extractor/plaintext"
)

type reportResult struct {
	report *domain.ForensicReport
	err    error
}

type blockingReports struct {
	calls   atomic.Int32
	release chan reportResult
}

func newBlockingReports() *blockingReports {
	return &blockingReports{release: make(chan reportResult, 1)}
}

func (b *blockingReports) Request(context.Context, domain.RequestPayload) (*domain.ForensicReport, error) {
	b.calls.Add(1)
	res := <-b.release
	return res.report, res.err
}

type eventsFake struct {
	mu     sync.Mutex
	events []domain.ScanEvent
}

func (f *eventsFake) PublishScanCompleted(_ context.Context, event domain.ScanEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *eventsFake) snapshot() []domain.ScanEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ScanEvent(nil), f.events...)
}

func newSessionUnderTest(reports *blockingReports, events *eventsFake, opts SessionOptions) *SessionController {
	normalizer := NewNormalizer(plaintext.NewDecoder(0))
	if events == nil {
		return NewSessionController(normalizer, reports, nil, nil, opts)
	}
	return NewSessionController(normalizer, reports, events, nil, opts)
}

func waitForEvents(t *testing.T, events *eventsFake, n int) []domain.ScanEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := events.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, got %+v", n, events.snapshot())
	return nil
}

func sampleReport() *domain.ForensicReport {
	return &domain.ForensicReport{
		CaseID:          "CASE-7",
		Verdict:         domain.VerdictLikelyPirated,
		ConfidenceScore: 82,
		Summary:         "Matches a known release.",
		Evidence:        []string{"watermark"},
		RiskLevel:       domain.RiskHigh,
	}
}

func waitFor(t *testing.T, c *SessionController, desc string, ok func(domain.State) bool) domain.State {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		changed := c.Changed()
		state := c.State()
		if ok(state) {
			return state
		}
		select {
		case <-changed:
		case <-deadline:
			t.Fatalf("timed out waiting for %s, state=%+v", desc, state)
		}
	}
}

func waitForKind(t *testing.T, c *SessionController, kind domain.StateKind) domain.State {
	t.Helper()
	return waitFor(t, c, string(kind), func(s domain.State) bool { return s.Kind() == kind })
}

func TestResetFromIdleIsNoop(t *testing.T) {
	c := newSessionUnderTest(newBlockingReports(), nil, SessionOptions{})
	changed := c.Changed()

	state := c.Reset()
	if state.Kind() != domain.StateIdle {
		t.Fatalf("expected idle, got %s", state.Kind())
	}
	select {
	case <-changed:
		t.Fatalf("expected no transition on idle reset")
	default:
	}
}

func TestSubmitWithoutAssetIsRejected(t *testing.T) {
	reports := newBlockingReports()
	c := newSessionUnderTest(reports, nil, SessionOptions{})

	if err := c.SetURL("   "); err != nil {
		t.Fatalf("SetURL() error = %v", err)
	}
	_, err := c.Submit(context.Background())
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if c.State().Kind() != domain.StateIdle {
		t.Fatalf("expected to stay idle")
	}
	if reports.calls.Load() != 0 {
		t.Fatalf("expected no request")
	}
}

func TestOversizedFileIsRejectedBeforeAnyRequest(t *testing.T) {
	reports := newBlockingReports()
	c := newSessionUnderTest(reports, nil, SessionOptions{})

	err := c.SelectFile(domain.FileAsset{
		Name:     "movie.mkv",
		MimeType: "video/x-matroska",
		Size:     domain.MaxFileSize + 1,
		Open: func() (io.ReadCloser, error) {
			t.Fatalf("oversized file must not be opened")
			return nil, nil
		},
	})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := c.Submit(context.Background()); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected submit without selection to fail, got %v", err)
	}
	if reports.calls.Load() != 0 {
		t.Fatalf("expected no request")
	}
}

func TestReportIsHeldUntilAnimationComplete(t *testing.T) {
	reports := newBlockingReports()
	events := &eventsFake{}
	c := newSessionUnderTest(reports, events, SessionOptions{})

	if err := c.SetURL("https://example.com/leak"); err != nil {
		t.Fatalf("SetURL() error = %v", err)
	}
	state, err := c.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if state.Kind() != domain.StateScanning {
		t.Fatalf("expected scanning, got %s", state.Kind())
	}

	want := sampleReport()
	reports.release <- reportResult{report: want}

	held := waitFor(t, c, "result ready", func(s domain.State) bool {
		scanning, ok := s.(domain.Scanning)
		return ok && scanning.ResultReady
	})
	if held.Kind() != domain.StateScanning {
		t.Fatalf("expected report to be held while scanning")
	}

	final := c.AnimationComplete()
	ready, ok := final.(domain.ReportReady)
	if !ok {
		t.Fatalf("expected report_ready, got %s", final.Kind())
	}
	if ready.Report.CaseID != want.CaseID || ready.Report.Verdict != want.Verdict || ready.Report.ConfidenceScore != want.ConfidenceScore {
		t.Fatalf("unexpected report: %+v", ready.Report)
	}
	if ready.Asset.URL != "https://example.com/leak" {
		t.Fatalf("unexpected asset summary: %+v", ready.Asset)
	}

	published := events.snapshot()
	if len(published) != 1 || published[0].Status != domain.StateReportReady || published[0].CaseID != "CASE-7" {
		t.Fatalf("unexpected events: %+v", published)
	}
}

func TestAnimationBeforeResultCompletesOnResult(t *testing.T) {
	reports := newBlockingReports()
	c := newSessionUnderTest(reports, nil, SessionOptions{})

	_ = c.SetURL("https://example.com/a")
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	state := c.AnimationComplete()
	if state.Kind() != domain.StateScanning {
		t.Fatalf("expected still scanning before result, got %s", state.Kind())
	}

	reports.release <- reportResult{report: sampleReport()}
	waitForKind(t, c, domain.StateReportReady)
}

func TestFailureMovesToErrorRegardlessOfAnimation(t *testing.T) {
	for _, animationFirst := range []bool{false, true} {
		reports := newBlockingReports()
		events := &eventsFake{}
		c := newSessionUnderTest(reports, events, SessionOptions{})

		_ = c.SetURL("https://example.com/a")
		if _, err := c.Submit(context.Background()); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		if animationFirst {
			c.AnimationComplete()
		}
		reports.release <- reportResult{err: domain.WrapError(domain.ErrUpstream, "request report", errors.New("API key not valid"))}

		state := waitForKind(t, c, domain.StateError)
		errored := state.(domain.Errored)
		if errored.Message != domain.DefaultErrorMessage {
			t.Fatalf("expected generic message, got %q", errored.Message)
		}
		published := waitForEvents(t, events, 1)
		if len(published) != 1 || published[0].Status != domain.StateError {
			t.Fatalf("unexpected events: %+v", published)
		}
	}
}

func TestRateLimitExhaustionShowsThrottleMessage(t *testing.T) {
	reports := newBlockingReports()
	c := newSessionUnderTest(reports, nil, SessionOptions{})

	_ = c.SetURL("https://example.com/a")
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	reports.release <- reportResult{err: domain.WrapError(domain.ErrRateLimited, "request report", errors.New("429"))}

	state := waitForKind(t, c, domain.StateError)
	if state.(domain.Errored).Message != rateLimitedMessage {
		t.Fatalf("unexpected message: %q", state.(domain.Errored).Message)
	}
}

func TestUnreadableFileMovesToError(t *testing.T) {
	reports := newBlockingReports()
	c := newSessionUnderTest(reports, nil, SessionOptions{})

	err := c.SelectFile(domain.FileAsset{
		Name:     "scan.pdf",
		MimeType: "application/pdf",
		Size:     100,
		Open: func() (io.ReadCloser, error) {
			return nil, errors.New("permission denied")
		},
	})
	if err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	state := waitForKind(t, c, domain.StateError)
	if state.(domain.Errored).Message != unreadableMessage {
		t.Fatalf("unexpected message: %q", state.(domain.Errored).Message)
	}
	if reports.calls.Load() != 0 {
		t.Fatalf("expected no report request after read failure")
	}
}

func TestSubmitWhileScanningIsBusy(t *testing.T) {
	reports := newBlockingReports()
	c := newSessionUnderTest(reports, nil, SessionOptions{})

	_ = c.SetURL("https://example.com/a")
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := c.Submit(context.Background()); !domain.IsKind(err, domain.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := c.SetURL("https://example.com/b"); !domain.IsKind(err, domain.ErrBusy) {
		t.Fatalf("expected ErrBusy on selection, got %v", err)
	}

	reports.release <- reportResult{report: sampleReport()}
	waitFor(t, c, "result ready", func(s domain.State) bool {
		scanning, ok := s.(domain.Scanning)
		return ok && scanning.ResultReady
	})
	if reports.calls.Load() != 1 {
		t.Fatalf("expected exactly one request, got %d", reports.calls.Load())
	}
}

func TestResetDuringScanDiscardsLateResult(t *testing.T) {
	reports := newBlockingReports()
	events := &eventsFake{}
	c := newSessionUnderTest(reports, events, SessionOptions{})

	_ = c.SetURL("https://example.com/a")
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	c.AnimationComplete()

	state := c.Reset()
	idle, ok := state.(domain.Idle)
	if !ok || idle.Selection != nil {
		t.Fatalf("expected cleared idle state, got %+v", state)
	}

	changed := c.Changed()
	reports.release <- reportResult{report: sampleReport()}

	select {
	case <-changed:
		t.Fatalf("late result must not change state, got %+v", c.State())
	case <-time.After(100 * time.Millisecond):
	}
	if c.State().Kind() != domain.StateIdle {
		t.Fatalf("expected idle, got %s", c.State().Kind())
	}
	if len(events.snapshot()) != 0 {
		t.Fatalf("expected no events for discarded scan")
	}
}

func TestResetFromTerminalStatesReturnsToIdle(t *testing.T) {
	reports := newBlockingReports()
	c := newSessionUnderTest(reports, nil, SessionOptions{})

	_ = c.SetURL("https://example.com/a")
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	reports.release <- reportResult{report: sampleReport()}
	c.AnimationComplete()
	waitForKind(t, c, domain.StateReportReady)

	if _, err := c.Submit(context.Background()); !domain.IsKind(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState from report_ready, got %v", err)
	}
	if state := c.Reset(); state.Kind() != domain.StateIdle {
		t.Fatalf("expected idle after reset, got %s", state.Kind())
	}
	if view := domain.ViewOf(c.State()); view.Report != nil || view.Error != "" || view.Asset != nil {
		t.Fatalf("expected cleared view, got %+v", view)
	}

	_ = c.SetURL("https://example.com/b")
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	reports.release <- reportResult{err: errors.New("boom")}
	waitForKind(t, c, domain.StateError)

	if state := c.Reset(); state.Kind() != domain.StateIdle {
		t.Fatalf("expected idle after reset, got %s", state.Kind())
	}
}

func TestMinDisplayTimerRaisesDisplaySignal(t *testing.T) {
	reports := newBlockingReports()
	c := newSessionUnderTest(reports, nil, SessionOptions{MinDisplay: 20 * time.Millisecond})

	_ = c.SetURL("https://example.com/a")
	if _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	reports.release <- reportResult{report: sampleReport()}

	waitForKind(t, c, domain.StateReportReady)
}

func TestSubmitAssetSelectsAndStartsAtomically(t *testing.T) {
	reports := newBlockingReports()
	c := newSessionUnderTest(reports, nil, SessionOptions{})

	urls := []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"}
	type outcome struct {
		url   string
		state domain.State
		err   error
	}
	out := make(chan outcome, len(urls))
	for _, u := range urls {
		go func() {
			state, err := c.SubmitAsset(context.Background(), domain.URLAsset{URL: " " + u + " "})
			out <- outcome{url: u, state: state, err: err}
		}()
	}

	started := 0
	for range urls {
		o := <-out
		if o.err != nil {
			if !domain.IsKind(o.err, domain.ErrBusy) {
				t.Fatalf("expected ErrBusy for the losing submit, got %v", o.err)
			}
			continue
		}
		started++
		scanning, ok := o.state.(domain.Scanning)
		if !ok || scanning.Asset.URL != o.url {
			t.Fatalf("submit of %s started %+v", o.url, o.state)
		}
	}
	if started != 1 {
		t.Fatalf("expected exactly one scan to start, got %d", started)
	}
	reports.release <- reportResult{report: sampleReport()}
	waitFor(t, c, "result ready", func(s domain.State) bool {
		sc, ok := s.(domain.Scanning)
		return ok && sc.ResultReady
	})
	if reports.calls.Load() != 1 {
		t.Fatalf("expected one report request, got %d", reports.calls.Load())
	}
}

func TestSubmitAssetRejectsEmptyURL(t *testing.T) {
	reports := newBlockingReports()
	c := newSessionUnderTest(reports, nil, SessionOptions{})

	_, err := c.SubmitAsset(context.Background(), domain.URLAsset{URL: "  "})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if c.State().Kind() != domain.StateIdle || reports.calls.Load() != 0 {
		t.Fatalf("expected idle with no request, got %+v", c.State())
	}
}
