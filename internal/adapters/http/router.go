package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/forensic-scan/internal/config"
	"github.com/kirillkom/forensic-scan/internal/core/domain"
	"github.com/kirillkom/forensic-scan/internal/core/ports"
	"github.com/kirillkom/forensic-scan/internal/observability/metrics"
)

const (
	multipartMemory   = 8 << 20
	multipartOverhead = 1 << 20
)

// ReportRenderer writes a printable document for a finished report.
type ReportRenderer interface {
	Render(w io.Writer, ready domain.ReportReady) error
}

type Router struct {
	cfg      config.Config
	session  ports.ScanSession
	renderer ReportRenderer
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	session ports.ScanSession,
	renderer ReportRenderer,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	if cfg.MaxUploadBytes <= 0 || cfg.MaxUploadBytes > domain.MaxFileSize {
		cfg.MaxUploadBytes = domain.MaxFileSize
	}
	return &Router{
		cfg:      cfg,
		session:  session,
		renderer: renderer,
		metrics:  httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /v1/session", rt.getSession)
	mux.HandleFunc("POST /v1/session/scan", rt.submitScan)
	mux.HandleFunc("POST /v1/session/animation-complete", rt.animationComplete)
	mux.HandleFunc("POST /v1/session/reset", rt.reset)
	mux.HandleFunc("GET /v1/session/report.pdf", rt.reportPDF)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("forensic-api", handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) getSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.ViewOf(rt.session.State()))
}

func (rt *Router) submitScan(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		asset domain.Asset
		err   error
	)
	switch mediaType {
	case "multipart/form-data":
		asset, err = rt.readUploadedFile(w, r)
	case "application/json", "":
		asset, err = rt.readURL(w, r)
	default:
		writeError(w, r, http.StatusUnsupportedMediaType, fmt.Errorf("unsupported content type %q", mediaType))
		return
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, r, mapErrorToHTTPStatus(err), err)
		return
	}

	state, err := rt.session.SubmitAsset(r.Context(), asset)
	if err != nil {
		writeError(w, r, mapErrorToHTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, domain.ViewOf(state))
}

func (rt *Router) readURL(w http.ResponseWriter, r *http.Request) (domain.Asset, error) {
	var req struct {
		URL string `json:"url"`
	}
	body := http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode scan request", err)
	}
	if strings.TrimSpace(req.URL) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit", errors.New("url is required"))
	}
	return domain.URLAsset{URL: req.URL}, nil
}

func (rt *Router) readUploadedFile(w http.ResponseWriter, r *http.Request) (domain.Asset, error) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse upload", err)
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse upload", errors.New("multipart field 'file' is required"))
	}
	defer file.Close()

	if header.Size > rt.cfg.MaxUploadBytes {
		return nil, &http.MaxBytesError{Limit: rt.cfg.MaxUploadBytes}
	}
	data, err := io.ReadAll(io.LimitReader(file, rt.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, domain.WrapError(domain.ErrIO, "read upload", err)
	}
	if int64(len(data)) > rt.cfg.MaxUploadBytes {
		return nil, &http.MaxBytesError{Limit: rt.cfg.MaxUploadBytes}
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return domain.FileAsset{
		Name:     header.Filename,
		MimeType: mimeType,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}, nil
}

func (rt *Router) animationComplete(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.ViewOf(rt.session.AnimationComplete()))
}

func (rt *Router) reset(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.ViewOf(rt.session.Reset()))
}

func (rt *Router) reportPDF(w http.ResponseWriter, r *http.Request) {
	ready, ok := rt.session.State().(domain.ReportReady)
	if !ok {
		writeError(w, r, http.StatusConflict, domain.WrapError(domain.ErrNotReady, "report pdf", errors.New("no report is ready")))
		return
	}
	if rt.renderer == nil {
		writeError(w, r, http.StatusNotImplemented, errors.New("pdf export is not configured"))
		return
	}

	var buf bytes.Buffer
	if err := rt.renderer.Render(&buf, ready); err != nil {
		writeError(w, r, mapErrorToHTTPStatus(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdfFilename(ready.Report.CaseID)))
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(buf.Bytes()))
}

func pdfFilename(caseID string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, caseID)
	return "forensic-report-" + clean + ".pdf"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed", "request_id", requestIDFromContext(r.Context()), "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": requestIDFromContext(r.Context()),
	})
}
