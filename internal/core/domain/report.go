package domain

import "math"

type Verdict string

const (
	VerdictLikelyPirated  Verdict = "LIKELY_PIRATED"
	VerdictInconclusive   Verdict = "INCONCLUSIVE"
	VerdictLikelyOriginal Verdict = "LIKELY_ORIGINAL"
)

func (v Verdict) Valid() bool {
	switch v {
	case VerdictLikelyPirated, VerdictInconclusive, VerdictLikelyOriginal:
		return true
	default:
		return false
	}
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

type EngineScore struct {
	Name  string  `json:"name" yaml:"name"`
	Score float64 `json:"score" yaml:"score"`
}

type ForensicReport struct {
	CaseID             string        `json:"case_id" yaml:"case_id"`
	Verdict            Verdict       `json:"verdict" yaml:"verdict"`
	ConfidenceScore    float64       `json:"confidence_score" yaml:"confidence_score"`
	Summary            string        `json:"summary" yaml:"summary"`
	Evidence           []string      `json:"evidence" yaml:"evidence"`
	RiskLevel          RiskLevel     `json:"risk_level" yaml:"risk_level"`
	SuspiciousURLs     []string      `json:"suspicious_urls" yaml:"suspicious_urls"`
	ProbableSources    []string      `json:"probable_sources" yaml:"probable_sources"`
	DataGaps           []string      `json:"data_gaps" yaml:"data_gaps"`
	RecommendedActions []string      `json:"recommended_actions" yaml:"recommended_actions"`
	EngineScores       []EngineScore `json:"engine_scores,omitempty" yaml:"engine_scores,omitempty"`
}

var defaultEngines = []struct {
	name   string
	offset float64
}{
	{name: "Perceptual Hash", offset: 0},
	{name: "Reverse Search", offset: -6},
	{name: "Metadata Forensics", offset: 4},
	{name: "Content Fingerprint", offset: -11},
}

// EngineScoresOrDefault returns the model's engine scores, or four entries derived
// from the confidence score when the model supplied none.
func (r *ForensicReport) EngineScoresOrDefault() []EngineScore {
	if r == nil {
		return nil
	}
	if len(r.EngineScores) > 0 {
		out := make([]EngineScore, len(r.EngineScores))
		copy(out, r.EngineScores)
		return out
	}
	out := make([]EngineScore, 0, len(defaultEngines))
	for _, engine := range defaultEngines {
		out = append(out, EngineScore{
			Name:  engine.name,
			Score: ClampScore(r.ConfidenceScore + engine.offset),
		})
	}
	return out
}

// ClampScore bounds a score to [0, 100]; NaN becomes 0.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}
