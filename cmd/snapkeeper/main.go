package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/younsl/snapkeeper/internal/config"
	"github.com/younsl/snapkeeper/internal/environ"
	"github.com/younsl/snapkeeper/pkg/aws"
	"github.com/younsl/snapkeeper/pkg/formatter"
	"github.com/younsl/snapkeeper/pkg/utils"
)

var (
	cfg *config.Config

	configPath string
	region     string
	owner      string
	tagPairs   []string
	logLevel   string
	output     string
)

var rootCmd = &cobra.Command{
	Use:   "snapkeeper",
	Short: "CLI tool to manage EBS snapshot lifecycles",
	Long: `snapkeeper snapshots tagged EBS volumes, prunes old snapshots
keeping only the most recent ones, and restores an instance's volume from
its latest snapshot.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		log.SetLevel(lvl)

		if output != formatter.OutputTable && output != formatter.OutputJSON {
			return fmt.Errorf("invalid output %q, expected %s or %s", output, formatter.OutputTable, formatter.OutputJSON)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := applyGlobalOverrides(cfg); err != nil {
			return err
		}
		if utils.IsRegionCode(cfg.Region) && !utils.IsKnownRegion(cfg.Region) {
			log.WithField("region", cfg.Region).Warn("region is not in the known region list, continuing")
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c",
		environ.GetString("CONFIG", ""),
		"Path to a YAML config file",
	)
	flags.StringVarP(&region, "region", "r",
		environ.GetString("REGION", ""),
		fmt.Sprintf("AWS region (default from config, %s)", utils.GetDefaultRegion()),
	)
	flags.StringVar(&owner, "owner",
		environ.GetString("OWNER", ""),
		"Snapshot owner account id (default from config, self)",
	)
	flags.StringSliceVarP(&tagPairs, "tag", "t",
		environ.GetStringSlice("TAGS", nil),
		"Volume tag filter as Key=Value, repeatable (default from config, Name=prod)",
	)
	flags.StringVar(&logLevel, "log-level",
		environ.GetString("LOG_LEVEL", "info"),
		"Log level. One of debug, info, warn, error, fatal, panic.",
	)
	flags.StringVarP(&output, "output", "o",
		environ.GetString("OUTPUT", formatter.OutputTable),
		"Output format. One of table, json.",
	)

	rootCmd.AddCommand(createCmd, scheduleCmd, pruneCmd, listCmd, restoreCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		stop()
		os.Exit(1)
	}
}

// applyGlobalOverrides layers flag and environment values over the file config
func applyGlobalOverrides(c *config.Config) error {
	if region != "" {
		c.Region = region
	}
	if owner != "" {
		c.Owner = owner
	}
	if len(tagPairs) > 0 {
		tags, err := utils.ParseTags(tagPairs)
		if err != nil {
			return err
		}
		c.TagFilter = tags
	}
	return nil
}

// newEBSClient builds the EC2 backed service for the configured region
func newEBSClient(ctx context.Context) (*aws.EBSClient, error) {
	client, err := aws.NewEBSClient(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	client.SetSnapshotDescription(cfg.SnapshotDescription)
	return client, nil
}

// render prints v as JSON when requested, otherwise calls table
func render(v interface{}, table func()) error {
	if output == formatter.OutputJSON {
		return formatter.PrintJSON(os.Stdout, v)
	}
	table()
	return nil
}
