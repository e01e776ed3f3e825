package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/kirillkom/forensic-scan/internal/cli/ui"
	"github.com/kirillkom/forensic-scan/internal/config"
	"github.com/kirillkom/forensic-scan/internal/core/domain"
	"github.com/kirillkom/forensic-scan/internal/infrastructure/events/nats"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print scan outcome events published on NATS",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if strings.TrimSpace(cfg.NATSURL) == "" {
			return errors.New("NATS_URL is not set")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		subscriber, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{})
		if err != nil {
			return err
		}
		defer subscriber.Close()

		pterm.Info.Printfln("Watching %s on %s", cfg.NATSSubject, cfg.NATSURL)
		return subscriber.SubscribeScanCompleted(ctx, func(_ context.Context, event domain.ScanEvent) error {
			ui.PrintEvent(event)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
