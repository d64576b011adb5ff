package main

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/younsl/snapkeeper/internal/environ"
	"github.com/younsl/snapkeeper/pkg/formatter"
	"github.com/younsl/snapkeeper/pkg/snapshot"
)

var (
	keep   int
	dryRun bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest snapshots of every matching volume",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRetentionOverrides()
		if err := cfg.Validate(); err != nil {
			return err
		}

		client, err := newEBSClient(cmd.Context())
		if err != nil {
			return err
		}

		start := time.Now()
		pruner := snapshot.NewPruner(client, pruneOptions(), log.WithField("region", client.Region()))
		report, runErr := pruner.Run(cmd.Context())
		report.Region = client.Region()
		if err := render(report, func() {
			formatter.PrintPruneReport(os.Stdout, report, time.Now(), time.Since(start))
		}); err != nil {
			return err
		}
		return runErr
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List matching volumes, their snapshots and the retention outcome",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRetentionOverrides()
		if err := cfg.Validate(); err != nil {
			return err
		}

		client, err := newEBSClient(cmd.Context())
		if err != nil {
			return err
		}

		plans, err := snapshot.NewPruner(client, pruneOptions(), log.WithField("region", client.Region())).Plan(cmd.Context())
		if err != nil {
			return err
		}
		return render(plans, func() {
			formatter.PrintRetentionTable(os.Stdout, plans, time.Now())
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{pruneCmd, listCmd} {
		cmd.Flags().IntVarP(&keep, "keep", "k",
			environ.GetInt("KEEP", 0),
			"Number of newest snapshots to keep per volume (default from config, 2)",
		)
	}
	pruneCmd.Flags().BoolVar(&dryRun, "dry-run",
		environ.GetBool("DRY_RUN", false),
		"Show what would be deleted without deleting",
	)
}

func applyRetentionOverrides() {
	if keep > 0 {
		cfg.Retention.Keep = keep
	}
}

func pruneOptions() snapshot.PrunerOptions {
	return snapshot.PrunerOptions{
		Tags:   cfg.TagFilter,
		Owner:  cfg.Owner,
		Keep:   cfg.Retention.Keep,
		DryRun: dryRun,
	}
}
