package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/forensic-scan/internal/bootstrap"
	"github.com/kirillkom/forensic-scan/internal/cli/ui"
	"github.com/kirillkom/forensic-scan/internal/config"
	"github.com/kirillkom/forensic-scan/internal/core/domain"
	"github.com/kirillkom/forensic-scan/internal/core/ports"
	"github.com/kirillkom/forensic-scan/internal/infrastructure/storage/localfs"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Request a forensic report for a file or URL",
	Long:  `Submits one asset, shows the scan progress sequence and renders the report once both the report and the sequence are done.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rawURL, _ := cmd.Flags().GetString("url")
		filePath, _ := cmd.Flags().GetString("file")
		format, _ := cmd.Flags().GetString("format")
		pdfPath, _ := cmd.Flags().GetString("pdf")
		stepDelay, _ := cmd.Flags().GetDuration("step-delay")

		if (rawURL == "") == (filePath == "") {
			return errors.New("exactly one of --url or --file is required")
		}
		format = strings.ToLower(strings.TrimSpace(format))
		if format != "table" && format != "json" && format != "yaml" {
			return fmt.Errorf("unsupported format %q", format)
		}

		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := bootstrap.New(ctx, cfg, bootstrap.WithService("scanctl"))
		if err != nil {
			return err
		}
		defer app.Close()

		if filePath != "" {
			asset, err := localfs.New("", cfg.MaxUploadBytes).Select(filePath)
			if err != nil {
				return err
			}
			if err := app.Session.SelectFile(asset); err != nil {
				return err
			}
		} else if err := app.Session.SetURL(rawURL); err != nil {
			return err
		}

		if format == "table" {
			ui.PrintBanner(Version)
		}

		spinner := ui.StartProgress("Submitting asset", format == "table")
		final, err := driveScan(ctx, app.Session, ui.ProgressSteps, stepDelay, spinner.Update)
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}

		switch state := final.(type) {
		case domain.ReportReady:
			spinner.Success("Scan complete")
			if err := writeReport(cmd.OutOrStdout(), format, state); err != nil {
				return err
			}
			if pdfPath != "" {
				return writePDF(app, pdfPath, state)
			}
			return nil
		case domain.Errored:
			spinner.Fail("Scan failed")
			message := domain.ViewOf(state).Error
			if format == "table" {
				ui.PrintFailure(message)
			}
			return errors.New(message)
		default:
			return fmt.Errorf("scan ended in unexpected state %s", final.Kind())
		}
	},
}

// driveScan submits the selected asset, plays the progress steps, raises the
// animation-complete signal and waits for a terminal state.
func driveScan(
	ctx context.Context,
	session ports.ScanSession,
	steps []string,
	stepDelay time.Duration,
	onStep func(string),
) (domain.State, error) {
	if _, err := session.Submit(ctx); err != nil {
		return nil, err
	}

	for _, step := range steps {
		if isTerminal(session.State()) {
			break
		}
		if onStep != nil {
			onStep(step)
		}
		if err := sleepCtx(ctx, stepDelay); err != nil {
			return nil, err
		}
	}
	session.AnimationComplete()

	for {
		changed := session.Changed()
		state := session.State()
		if isTerminal(state) {
			return state, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func isTerminal(s domain.State) bool {
	switch s.(type) {
	case domain.ReportReady, domain.Errored:
		return true
	default:
		return false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writeReport(w io.Writer, format string, ready domain.ReportReady) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ready.Report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ready.Report); err != nil {
			return err
		}
		return enc.Close()
	default:
		ui.PrintReport(ready)
		return nil
	}
}

func writePDF(app *bootstrap.App, path string, ready domain.ReportReady) error {
	f, err := os.Create(path)
	if err != nil {
		return domain.WrapError(domain.ErrIO, "create pdf", err)
	}
	if err := app.Renderer.Render(f, ready); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return domain.WrapError(domain.ErrIO, "close pdf", err)
	}
	fmt.Fprintf(os.Stderr, "PDF report written to %s\n", path)
	return nil
}

func init() {
	scanCmd.Flags().StringP("url", "u", "", "URL of the asset to analyze")
	scanCmd.Flags().StringP("file", "f", "", "Path of a local file to analyze (max 50 MiB)")
	scanCmd.Flags().StringP("format", "o", "table", "Output format: table, json or yaml")
	scanCmd.Flags().String("pdf", "", "Also write the report as a PDF to this path")
	scanCmd.Flags().Duration("step-delay", 1500*time.Millisecond, "Duration of each progress step")
	rootCmd.AddCommand(scanCmd)
}
