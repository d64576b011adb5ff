package main

import (
	"context"
	"os"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/younsl/snapkeeper/internal/environ"
	"github.com/younsl/snapkeeper/pkg/formatter"
	"github.com/younsl/snapkeeper/pkg/snapshot"
)

var (
	scheduleInterval time.Duration
	runNow           bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create one snapshot of every volume matching the tag filter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runCreate(cmd.Context())
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Create snapshots on a recurring interval",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if scheduleInterval > 0 {
			cfg.Schedule.Interval = scheduleInterval
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"interval": cfg.Schedule.Interval,
			"region":   cfg.Region,
			"runNow":   runNow,
		}).Info("starting snapshot schedule")
		snapshot.Schedule(cmd.Context(), cfg.Schedule.Interval, runNow, runCreate, log.WithField("component", "scheduler"))
		log.Info("snapshot schedule stopped")
		return nil
	},
}

func init() {
	scheduleCmd.Flags().DurationVar(&scheduleInterval, "interval",
		environ.GetDuration("INTERVAL", 0),
		"Time between runs (default from config, 24h)",
	)
	scheduleCmd.Flags().BoolVar(&runNow, "run-now",
		environ.GetBool("RUN_NOW", false),
		"Run the first snapshot immediately instead of after one interval",
	)
}

func runCreate(ctx context.Context) error {
	client, err := newEBSClient(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	report, runErr := snapshot.NewCreator(client, cfg.TagFilter, log.WithField("region", client.Region())).Run(ctx)
	report.Region = client.Region()
	if err := render(report, func() {
		formatter.PrintCreateReport(os.Stdout, report, time.Since(start))
	}); err != nil {
		return errors.Combine(runErr, err)
	}
	return runErr
}
