package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
	"github.com/kirillkom/forensic-scan/internal/infrastructure/resilience"
)

type fakeOut struct {
	errs     []error
	subjects []string
	payloads [][]byte
}

func (f *fakeOut) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func noWait(context.Context, time.Duration) error { return nil }

func TestPublishScanCompletedEncodesEvent(t *testing.T) {
	out := &fakeOut{}
	p := &Publisher{out: out, subject: "scan.completed"}

	event := domain.ScanEvent{
		ScanID:          "scan-1",
		Status:          domain.StateReportReady,
		AssetKind:       domain.AssetKindURL,
		CaseID:          "CASE-7",
		Verdict:         domain.VerdictInconclusive,
		RiskLevel:       domain.RiskMedium,
		ConfidenceScore: 55,
		DurationMS:      1200,
	}
	if err := p.PublishScanCompleted(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(out.subjects) != 1 || out.subjects[0] != "scan.completed" {
		t.Fatalf("unexpected subjects: %v", out.subjects)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out.payloads[0], &decoded); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if decoded["scan_id"] != "scan-1" || decoded["status"] != "report_ready" || decoded["verdict"] != "INCONCLUSIVE" {
		t.Fatalf("unexpected payload: %s", out.payloads[0])
	}
	if _, ok := decoded["error"]; ok {
		t.Fatalf("error should be omitted for successful scans: %s", out.payloads[0])
	}
}

func TestPublishRetriesTransientBrokerErrors(t *testing.T) {
	out := &fakeOut{errs: []error{nats.ErrTimeout, nats.ErrDisconnected}}
	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	}, resilience.WithSleep(noWait))
	p := &Publisher{out: out, subject: "scan.completed", executor: exec}

	err := p.PublishScanCompleted(context.Background(), domain.ScanEvent{ScanID: "s", Status: domain.StateError})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(out.subjects) != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", len(out.subjects))
	}
}

func TestPublishFailureIsUpstreamKind(t *testing.T) {
	out := &fakeOut{errs: []error{nats.ErrBadSubject}}
	p := &Publisher{out: out, subject: ""}

	err := p.PublishScanCompleted(context.Background(), domain.ScanEvent{ScanID: "s", Status: domain.StateError})
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream kind, got %v", err)
	}
	if !errors.Is(err, nats.ErrBadSubject) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
}

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want resilience.ErrorClassification
	}{
		{"canceled", context.Canceled, resilience.ErrorClassification{}},
		{"timeout", nats.ErrTimeout, resilience.ErrorClassification{Retryable: true, RecordFailure: true}},
		{"no servers", nats.ErrNoServers, resilience.ErrorClassification{Retryable: true, RecordFailure: true}},
		{"bad subject", nats.ErrBadSubject, resilience.ErrorClassification{Retryable: false, RecordFailure: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyNATSError(tc.err); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestDecodeScanEventRejectsIncompleteMessages(t *testing.T) {
	if _, err := decodeScanEvent([]byte(`{"status":"error"}`)); err == nil {
		t.Fatal("expected error for missing scan_id")
	}
	if _, err := decodeScanEvent([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
	event, err := decodeScanEvent([]byte(`{"scan_id":"a","status":"error","error":"boom"}`))
	if err != nil || event.Error != "boom" {
		t.Fatalf("unexpected decode result: %+v %v", event, err)
	}
}
