package pdf

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/kirillkom/forensic-scan/internal/core/domain"
)

const pageRight = 196.0

type Options struct {
	// FontPath points at a TrueType font with wide Unicode coverage. Without one the
	// core Helvetica font is used and non-ASCII text is replaced with '?'.
	FontPath string
	Now      func() time.Time
}

type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Renderer{opts: opts}
}

// Render writes a PDF of a finished report to w.
func (r *Renderer) Render(w io.Writer, ready domain.ReportReady) error {
	report := ready.Report
	if strings.TrimSpace(report.CaseID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "render report pdf", fmt.Errorf("case_id is empty"))
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetMargins(14, 14, 14)
	doc.SetAutoPageBreak(true, 14)
	doc.SetTitle("Forensic Piracy Report "+report.CaseID, true)
	doc.SetCreator("forensic-scan", true)

	font, utf8OK := r.initFont(doc)
	p := &page{doc: doc, font: font, utf8OK: utf8OK}

	doc.AddPage()
	doc.SetFont(font, "B", 16)
	doc.CellFormat(0, 9, "Forensic Piracy Report", "", 1, "L", false, 0, "")
	doc.SetFont(font, "", 10)
	doc.SetTextColor(60, 60, 60)
	doc.CellFormat(0, 6, "Generated at: "+r.opts.Now().UTC().Format("2006-01-02 15:04:05 MST"), "", 1, "L", false, 0, "")
	doc.Ln(2)

	p.section("1. Case")
	p.kv("Case ID", report.CaseID)
	p.kv("Scan ID", ready.ScanID)
	p.kv("Verdict", string(report.Verdict))
	p.kv("Risk Level", string(report.RiskLevel))
	p.kv("Confidence", fmt.Sprintf("%.0f%%", report.ConfidenceScore))
	p.kv("Asset", describeAsset(ready.Asset))
	doc.Ln(2)

	p.section("2. Summary")
	p.paragraph(report.Summary)
	doc.Ln(2)

	p.section("3. Engine Scores")
	for _, score := range report.EngineScoresOrDefault() {
		p.bar(score)
	}
	doc.Ln(2)

	p.list("4. Evidence", report.Evidence)
	p.list("5. Suspicious URLs", report.SuspiciousURLs)
	p.list("6. Probable Sources", report.ProbableSources)
	p.list("7. Data Gaps", report.DataGaps)
	p.list("8. Recommended Actions", report.RecommendedActions)

	if !utf8OK {
		doc.SetFont(font, "", 8)
		doc.SetTextColor(120, 80, 0)
		doc.MultiCell(0, 4, "Unicode font not available; non-ASCII text may be replaced with '?'.", "", "L", false)
	}

	if err := doc.Output(w); err != nil {
		return domain.WrapError(domain.ErrIO, "write report pdf", err)
	}
	return nil
}

func (r *Renderer) initFont(doc *gofpdf.Fpdf) (string, bool) {
	const family = "unicode"
	path := strings.TrimSpace(r.opts.FontPath)
	if path == "" {
		return "Helvetica", false
	}
	if _, err := os.Stat(path); err != nil {
		return "Helvetica", false
	}
	doc.AddUTF8Font(family, "", path)
	if doc.Err() {
		doc.ClearError()
		return "Helvetica", false
	}
	doc.AddUTF8Font(family, "B", path)
	if doc.Err() {
		doc.ClearError()
	}
	return family, true
}

type page struct {
	doc    *gofpdf.Fpdf
	font   string
	utf8OK bool
}

func (p *page) section(title string) {
	p.doc.SetFont(p.font, "B", 12)
	p.doc.SetTextColor(0, 0, 0)
	p.doc.CellFormat(0, 7, title, "", 1, "L", false, 0, "")
	p.doc.SetDrawColor(200, 200, 200)
	p.doc.Line(p.doc.GetX(), p.doc.GetY(), pageRight, p.doc.GetY())
	p.doc.Ln(2)
}

func (p *page) kv(key, value string) {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}
	p.doc.SetFont(p.font, "B", 10)
	p.doc.SetTextColor(30, 30, 30)
	p.doc.CellFormat(36, 5.2, key+":", "", 0, "L", false, 0, "")
	p.doc.SetFont(p.font, "", 10)
	p.doc.SetTextColor(20, 20, 20)
	p.doc.MultiCell(0, 5.2, safeText(value, p.utf8OK), "", "L", false)
}

func (p *page) paragraph(text string) {
	p.doc.SetFont(p.font, "", 10)
	p.doc.SetTextColor(30, 30, 30)
	p.doc.MultiCell(0, 5, safeText(text, p.utf8OK), "", "L", false)
}

func (p *page) list(title string, items []string) {
	p.section(title)
	p.doc.SetFont(p.font, "", 9)
	if len(items) == 0 {
		p.doc.SetTextColor(90, 90, 90)
		p.doc.MultiCell(0, 4.5, "(none)", "", "L", false)
	} else {
		p.doc.SetTextColor(30, 30, 30)
		for _, item := range items {
			p.doc.MultiCell(0, 4.5, "- "+safeText(item, p.utf8OK), "", "L", false)
		}
	}
	p.doc.Ln(2)
}

func (p *page) bar(score domain.EngineScore) {
	const (
		labelWidth = 50.0
		barWidth   = 110.0
		barHeight  = 4.0
	)
	value := domain.ClampScore(score.Score)

	p.doc.SetFont(p.font, "", 9)
	p.doc.SetTextColor(30, 30, 30)
	p.doc.CellFormat(labelWidth, 6, safeText(score.Name, p.utf8OK), "", 0, "L", false, 0, "")

	x, y := p.doc.GetX(), p.doc.GetY()+1
	p.doc.SetFillColor(230, 230, 230)
	p.doc.Rect(x, y, barWidth, barHeight, "F")
	red, green, blue := scoreColor(value)
	p.doc.SetFillColor(red, green, blue)
	p.doc.Rect(x, y, barWidth*value/100, barHeight, "F")

	p.doc.SetX(x + barWidth + 2)
	p.doc.CellFormat(0, 6, fmt.Sprintf("%.0f", value), "", 1, "L", false, 0, "")
}

func scoreColor(v float64) (int, int, int) {
	switch {
	case v >= 70:
		return 200, 50, 50
	case v >= 40:
		return 220, 150, 30
	default:
		return 60, 150, 80
	}
}

func describeAsset(a domain.AssetSummary) string {
	switch a.Kind {
	case domain.AssetKindURL:
		return a.URL
	case domain.AssetKindFile:
		return fmt.Sprintf("%s (%s, %d bytes)", a.Name, a.MimeType, a.Size)
	default:
		return ""
	}
}

func safeText(s string, utf8OK bool) string {
	s = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ").Replace(s)
	s = strings.TrimSpace(s)
	if utf8OK {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 && r <= 126 {
			b.WriteRune(r)
		} else {
			b.WriteRune('?')
		}
	}
	return b.String()
}
