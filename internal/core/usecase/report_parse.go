package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
)

type rawReport struct {
	CaseID             *string              `json:"case_id"`
	Verdict            *string              `json:"verdict"`
	ConfidenceScore    *float64             `json:"confidence_score"`
	Summary            *string              `json:"summary"`
	Evidence           []string             `json:"evidence"`
	RiskLevel          *string              `json:"risk_level"`
	SuspiciousURLs     []string             `json:"suspicious_urls"`
	ProbableSources    []string             `json:"probable_sources"`
	DataGaps           []string             `json:"data_gaps"`
	RecommendedActions []string             `json:"recommended_actions"`
	EngineScores       []domain.EngineScore `json:"engine_scores"`
}

// ParseReport decodes model output into a validated report. The text must be a
// single JSON object with all required fields; enums are upper-cased and checked,
// scores are clamped to [0, 100].
func ParseReport(text string) (*domain.ForensicReport, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, malformed(errors.New("empty response"))
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	var raw rawReport
	if err := dec.Decode(&raw); err != nil {
		return nil, malformed(fmt.Errorf("decode report json: %w", err))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed(errors.New("trailing data after report object"))
	}

	var missing []string
	if raw.CaseID == nil || strings.TrimSpace(*raw.CaseID) == "" {
		missing = append(missing, "case_id")
	}
	if raw.Verdict == nil {
		missing = append(missing, "verdict")
	}
	if raw.ConfidenceScore == nil {
		missing = append(missing, "confidence_score")
	}
	if raw.Summary == nil {
		missing = append(missing, "summary")
	}
	if raw.RiskLevel == nil {
		missing = append(missing, "risk_level")
	}
	if len(missing) > 0 {
		return nil, malformed(fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")))
	}

	verdict := domain.Verdict(strings.ToUpper(strings.TrimSpace(*raw.Verdict)))
	if !verdict.Valid() {
		return nil, malformed(fmt.Errorf("unknown verdict %q", *raw.Verdict))
	}
	risk := domain.RiskLevel(strings.ToUpper(strings.TrimSpace(*raw.RiskLevel)))
	if !risk.Valid() {
		return nil, malformed(fmt.Errorf("unknown risk level %q", *raw.RiskLevel))
	}

	var engines []domain.EngineScore
	for _, engine := range raw.EngineScores {
		name := strings.TrimSpace(engine.Name)
		if name == "" {
			continue
		}
		engines = append(engines, domain.EngineScore{Name: name, Score: domain.ClampScore(engine.Score)})
	}

	return &domain.ForensicReport{
		CaseID:             strings.TrimSpace(*raw.CaseID),
		Verdict:            verdict,
		ConfidenceScore:    domain.ClampScore(*raw.ConfidenceScore),
		Summary:            *raw.Summary,
		Evidence:           nonNil(raw.Evidence),
		RiskLevel:          risk,
		SuspiciousURLs:     nonNil(raw.SuspiciousURLs),
		ProbableSources:    nonNil(raw.ProbableSources),
		DataGaps:           nonNil(raw.DataGaps),
		RecommendedActions: nonNil(raw.RecommendedActions),
		EngineScores:       engines,
	}, nil
}

func malformed(err error) error {
	return domain.WrapError(domain.ErrMalformedReport, "parse report", err)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
