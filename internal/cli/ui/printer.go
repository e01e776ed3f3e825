package ui

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
)

// ProgressSteps is the scripted sequence shown while a scan runs.
var ProgressSteps = []string{
	"Extracting asset metadata",
	"Computing perceptual hashes",
	"Running reverse search",
	"Matching content fingerprints",
	"Correlating distribution sources",
	"Compiling forensic report",
}

// Progress is a spinner that stays silent when disabled so machine-readable
// output on stdout is not interleaved with it.
type Progress struct {
	spinner *pterm.SpinnerPrinter
}

func StartProgress(text string, enabled bool) *Progress {
	if !enabled {
		return &Progress{}
	}
	spinner, _ := pterm.DefaultSpinner.Start(text)
	return &Progress{spinner: spinner}
}

func (p *Progress) Update(text string) {
	if p.spinner != nil {
		p.spinner.UpdateText(text)
	}
}

func (p *Progress) Success(text string) {
	if p.spinner != nil {
		p.spinner.Success(text)
	}
}

func (p *Progress) Fail(text string) {
	if p.spinner != nil {
		p.spinner.Fail(text)
	}
}

func PrintReport(ready domain.ReportReady) {
	report := ready.Report

	pterm.DefaultSection.Println("Case " + report.CaseID)
	_ = pterm.DefaultTable.WithData([][]string{
		{"Verdict", verdictStyle(report.Verdict)},
		{"Risk", riskStyle(report.RiskLevel)},
		{"Confidence", fmt.Sprintf("%.0f%%", report.ConfidenceScore)},
		{"Asset", describeAsset(ready.Asset)},
	}).Render()
	pterm.Println()
	pterm.DefaultParagraph.Println(report.Summary)
	pterm.Println()

	bars := make([]pterm.Bar, 0, 4)
	for _, score := range report.EngineScoresOrDefault() {
		bars = append(bars, pterm.Bar{Label: score.Name, Value: int(domain.ClampScore(score.Score))})
	}
	pterm.DefaultSection.WithLevel(2).Println("Engine scores")
	_ = pterm.DefaultBarChart.WithHorizontal().WithShowValue().WithBars(bars).Render()

	printList("Evidence", report.Evidence)
	printList("Suspicious URLs", report.SuspiciousURLs)
	printList("Probable sources", report.ProbableSources)
	printList("Data gaps", report.DataGaps)
	printList("Recommended actions", report.RecommendedActions)
}

func PrintFailure(message string) {
	pterm.Error.Println(message)
}

func PrintEvent(event domain.ScanEvent) {
	prefix := pterm.Success
	if event.Status == domain.StateError {
		prefix = pterm.Error
	}
	line := fmt.Sprintf("%s %s %s", event.OccurredAt.Format("15:04:05"), event.ScanID, event.AssetKind)
	if event.CaseID != "" {
		line += fmt.Sprintf(" case=%s verdict=%s risk=%s confidence=%.0f", event.CaseID, event.Verdict, event.RiskLevel, event.ConfidenceScore)
	}
	if event.Error != "" {
		line += " error=" + event.Error
	}
	prefix.Println(line)
}

func printList(title string, items []string) {
	pterm.DefaultSection.WithLevel(2).Println(title)
	if len(items) == 0 {
		pterm.FgGray.Println("  (none)")
		return
	}
	list := make([]pterm.BulletListItem, 0, len(items))
	for _, item := range items {
		list = append(list, pterm.BulletListItem{Level: 0, Text: item})
	}
	_ = pterm.DefaultBulletList.WithItems(list).Render()
}

func verdictStyle(v domain.Verdict) string {
	label := strings.ReplaceAll(string(v), "_", " ")
	switch v {
	case domain.VerdictLikelyPirated:
		return pterm.FgRed.Sprint(label)
	case domain.VerdictLikelyOriginal:
		return pterm.FgGreen.Sprint(label)
	default:
		return pterm.FgYellow.Sprint(label)
	}
}

func riskStyle(r domain.RiskLevel) string {
	switch r {
	case domain.RiskHigh:
		return pterm.FgRed.Sprint("HIGH")
	case domain.RiskMedium:
		return pterm.FgYellow.Sprint("MEDIUM")
	default:
		return pterm.FgBlue.Sprint("LOW")
	}
}

func describeAsset(a domain.AssetSummary) string {
	if a.Kind == domain.AssetKindURL {
		return a.URL
	}
	return fmt.Sprintf("%s (%s, %d bytes)", a.Name, a.MimeType, a.Size)
}
