package domain

import "time"

type StateKind string

const (
	StateIdle        StateKind = "idle"
	StateScanning    StateKind = "scanning"
	StateReportReady StateKind = "report_ready"
	StateError       StateKind = "error"
)

// DefaultErrorMessage is shown when a failed scan captured no better message.
const DefaultErrorMessage = "Forensic analysis failed. Please try again."

// State is the session state. Exactly one variant is active at a time and each
// variant carries only the data valid in it.
type State interface {
	Kind() StateKind
	isState()
}

// Idle accepts asset selection. Selection is nil until a file or URL is chosen.
type Idle struct {
	Selection Asset
}

func (Idle) Kind() StateKind { return StateIdle }
func (Idle) isState()        {}

// Scanning waits for both the report and the display-elapsed signal.
type Scanning struct {
	ScanID         string
	Asset          AssetSummary
	StartedAt      time.Time
	ResultReady    bool
	DisplayElapsed bool
}

func (Scanning) Kind() StateKind { return StateScanning }
func (Scanning) isState()        {}

type ReportReady struct {
	ScanID string
	Asset  AssetSummary
	Report ForensicReport
}

func (ReportReady) Kind() StateKind { return StateReportReady }
func (ReportReady) isState()        {}

type Errored struct {
	ScanID  string
	Message string
}

func (Errored) Kind() StateKind { return StateError }
func (Errored) isState()        {}

// StateView is the flattened JSON shape of a State.
type StateView struct {
	State          StateKind       `json:"state"`
	ScanID         string          `json:"scan_id,omitempty"`
	Asset          *AssetSummary   `json:"asset,omitempty"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	ResultReady    bool            `json:"result_ready,omitempty"`
	DisplayElapsed bool            `json:"display_elapsed,omitempty"`
	Report         *ForensicReport `json:"report,omitempty"`
	Error          string          `json:"error,omitempty"`
}

func ViewOf(s State) StateView {
	switch v := s.(type) {
	case Idle:
		view := StateView{State: StateIdle}
		if v.Selection != nil {
			summary := v.Selection.Describe()
			view.Asset = &summary
		}
		return view
	case Scanning:
		asset := v.Asset
		started := v.StartedAt
		return StateView{
			State:          StateScanning,
			ScanID:         v.ScanID,
			Asset:          &asset,
			StartedAt:      &started,
			ResultReady:    v.ResultReady,
			DisplayElapsed: v.DisplayElapsed,
		}
	case ReportReady:
		asset := v.Asset
		report := v.Report
		return StateView{State: StateReportReady, ScanID: v.ScanID, Asset: &asset, Report: &report}
	case Errored:
		msg := v.Message
		if msg == "" {
			msg = DefaultErrorMessage
		}
		return StateView{State: StateError, ScanID: v.ScanID, Error: msg}
	default:
		return StateView{State: StateIdle}
	}
}

// ScanEvent is published when a scan reaches a terminal state.
type ScanEvent struct {
	ScanID          string    `json:"scan_id"`
	Status          StateKind `json:"status"`
	AssetKind       AssetKind `json:"asset_kind"`
	CaseID          string    `json:"case_id,omitempty"`
	Verdict         Verdict   `json:"verdict,omitempty"`
	RiskLevel       RiskLevel `json:"risk_level,omitempty"`
	ConfidenceScore float64   `json:"confidence_score,omitempty"`
	DurationMS      int64     `json:"duration_ms"`
	Error           string    `json:"error,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
