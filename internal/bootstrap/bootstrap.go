package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/forensic-scan/internal/config"
	"github.com/kirillkom/forensic-scan/internal/core/domain"
	"github.com/kirillkom/forensic-scan/internal/core/ports"
	"github.com/kirillkom/forensic-scan/internal/core/usecase"
	"github.com/kirillkom/forensic-scan/internal/infrastructure/events/nats"
	"github.com/kirillkom/forensic-scan/internal/infrastructure/export/pdf"
	"github.com/kirillkom/forensic-scan/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/forensic-scan/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/forensic-scan/internal/infrastructure/resilience"
	"github.com/kirillkom/forensic-scan/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Session  *usecase.SessionController
	Renderer *pdf.Renderer

	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPServerMetrics

	closeFn func()
}

type Option func(*options)

type options struct {
	service   string
	generator ports.ReportGenerator
	sleep     resilience.SleepFunc
}

// WithService sets the service label used for metrics.
func WithService(name string) Option {
	return func(o *options) { o.service = name }
}

// WithGenerator replaces the remote model client.
func WithGenerator(g ports.ReportGenerator) Option {
	return func(o *options) { o.generator = g }
}

// WithRetrySleep replaces the wait between report attempts.
func WithRetrySleep(sleep resilience.SleepFunc) Option {
	return func(o *options) { o.sleep = sleep }
}

func New(_ context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{service: "forensic-api"}
	for _, opt := range opts {
		opt(&o)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPServerMetrics(o.service, registry)
	scanMetrics := metrics.NewScanMetrics(o.service, registry)

	generator := o.generator
	if generator == nil {
		client := gemini.New(gemini.Options{
			BaseURL:     cfg.GeminiBaseURL,
			Model:       cfg.GeminiModel,
			APIKey:      cfg.GeminiAPIKey,
			Temperature: cfg.GeminiTemperature,
			Timeout:     cfg.GeminiTimeout,
		})
		slog.Info("report_generator_configured", "model", client.Model())
		generator = client
	}

	reportPolicy := resilience.DefaultConfig()
	reportPolicy.RetryMaxAttempts = cfg.ReportRetryMaxAttempts
	reportPolicy.RetryInitialBackoff = cfg.ReportRetryInitialBackoff
	reportPolicy.RetryMaxBackoff = cfg.ReportRetryMaxBackoff
	reportPolicy.BreakerEnabled = cfg.ReportBreakerEnabled
	var executorOpts []resilience.Option
	if o.sleep != nil {
		executorOpts = append(executorOpts, resilience.WithSleep(o.sleep))
	}
	reports := usecase.NewReportRequester(
		generator,
		newRetryExecutor(resilience.NewExecutor(reportPolicy, executorOpts...)),
		scanMetrics,
	)

	normalizer := usecase.NewNormalizer(plaintext.NewDecoder(domain.MaxFileSize))

	events, closeEvents, err := newEventPublisher(cfg)
	if err != nil {
		return nil, err
	}

	session := usecase.NewSessionController(normalizer, reports, events, scanMetrics, usecase.SessionOptions{
		ScanTimeout: cfg.ScanTimeout,
		MinDisplay:  cfg.ScanMinDisplay,
	})

	return &App{
		Config:      cfg,
		Session:     session,
		Renderer:    pdf.NewRenderer(pdf.Options{FontPath: cfg.PDFFontPath}),
		Registry:    registry,
		HTTPMetrics: httpMetrics,
		closeFn:     closeEvents,
	}, nil
}

func newEventPublisher(cfg config.Config) (ports.ScanEventPublisher, func(), error) {
	if strings.TrimSpace(cfg.NATSURL) == "" {
		return nats.Noop{}, func() {}, nil
	}

	publisher, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.Config{
			RetryMaxAttempts:    3,
			RetryInitialBackoff: 200 * time.Millisecond,
			RetryMaxBackoff:     1 * time.Second,
			RetryMultiplier:     2,
			BreakerEnabled:      true,
		}),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init event publisher: %w", err)
	}
	slog.Info("scan_events_enabled", "subject", cfg.NATSSubject)
	return publisher, publisher.Close, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
