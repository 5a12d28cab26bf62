package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/contentplan/backend/pkg/config"
	"github.com/contentplan/backend/pkg/reconcile"
)

var reconcileWindow time.Duration

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation pass and print its summary",
	Long: `Scans billing records changed within the window ending now and sends
the pro_started and pro_cancelled notifications. Exits non-zero when the store
is unavailable or any dispatch failed.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		var cfg reconcile.Config
		if err := config.Load(&cfg); err != nil {
			return err
		}

		rec, err := a.reconciler(ctx, cfg, nil)
		if err != nil {
			return err
		}

		report, err := rec.Run(ctx, rec.Now(), reconcileWindow)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report.Summary()); err != nil {
			return err
		}

		if n := report.Failures(); n > 0 {
			return fmt.Errorf("%d of %d notifications failed", n, report.Processed())
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().DurationVar(&reconcileWindow, "window", 0, "lookback window, defaults to RECONCILE_WINDOW")
}
