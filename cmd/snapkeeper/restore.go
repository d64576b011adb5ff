package main

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/younsl/snapkeeper/internal/config"
	"github.com/younsl/snapkeeper/internal/environ"
	"github.com/younsl/snapkeeper/internal/models"
	"github.com/younsl/snapkeeper/pkg/aws"
	"github.com/younsl/snapkeeper/pkg/formatter"
	"github.com/younsl/snapkeeper/pkg/snapshot"
	"github.com/younsl/snapkeeper/pkg/utils"
)

var (
	instanceID     string
	zone           string
	device         string
	restoreTags    []string
	restoreTimeout time.Duration
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore an instance's volume from its latest snapshot and attach it",
	Long: `restore finds the single volume attached to an instance, creates a new
volume from that volume's most recent snapshot, waits for it to become
available and attaches it to the instance. Without --instance-id the
instance running snapkeeper is used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyRestoreOverrides(); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx := cmd.Context()
		awsCfg, err := aws.LoadConfig(ctx, cfg.Region)
		if err != nil {
			return err
		}
		if cfg.Restore.InstanceID == "" {
			identity, err := aws.GetInstanceIdentity(ctx, awsCfg)
			if err != nil {
				return fmt.Errorf("no instance id given: %w", err)
			}
			if err := applyIdentity(cfg, identity); err != nil {
				return err
			}
			log.WithFields(log.Fields{
				"instance": identity.InstanceID,
				"zone":     cfg.Restore.AvailabilityZone,
			}).Info("using local instance")
		}

		client := aws.NewEBSClientFromConfig(awsCfg)

		s := spinner.New(spinner.CharSets[9], 200*time.Millisecond)
		s.Suffix = fmt.Sprintf(" Restoring volume of %s ...", cfg.Restore.InstanceID)
		if output == formatter.OutputTable {
			s.Start()
		}

		restorer := snapshot.NewRestorer(client, snapshot.RestorerOptions{
			InstanceID: cfg.Restore.InstanceID,
			Zone:       cfg.Restore.AvailabilityZone,
			Device:     cfg.Restore.Device,
			Owner:      cfg.Owner,
			Tags:       cfg.RestoreTags(),
			Timeout:    cfg.Restore.Timeout,
			Backoff: wait.Backoff{
				Duration: cfg.Restore.PollInterval,
				Factor:   cfg.Restore.PollFactor,
				Jitter:   0.1,
				Steps:    cfg.Restore.PollSteps,
				Cap:      snapshot.DefaultPollCap,
			},
			OnPoll: func(volumeID string, state models.VolumeState) {
				s.Suffix = fmt.Sprintf(" Waiting for %s to become available (%s) ...", volumeID, state)
			},
		}, log.WithField("region", client.Region()))

		report, runErr := restorer.Run(ctx)
		report.Region = client.Region()
		if runErr == nil {
			s.FinalMSG = fmt.Sprintf("✓ %s attached to %s at %s - Completed in %.2f seconds\n",
				report.NewVolume.VolumeID, report.InstanceID, report.Device, report.Elapsed.Seconds())
		}
		s.Stop()

		if err := render(report, func() {
			formatter.PrintRestoreReport(os.Stdout, report)
		}); err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	flags := restoreCmd.Flags()
	flags.StringVarP(&instanceID, "instance-id", "i",
		environ.GetString("INSTANCE_ID", ""),
		"Instance whose volume is restored (default: the local instance)",
	)
	flags.StringVarP(&zone, "availability-zone", "z",
		environ.GetString("AVAILABILITY_ZONE", ""),
		"Zone for the new volume (default: the source volume's zone, or the local instance's zone)",
	)
	flags.StringVarP(&device, "device", "d",
		environ.GetString("DEVICE", ""),
		"Device path the new volume is attached at (default from config, /dev/xvdb)",
	)
	flags.StringSliceVar(&restoreTags, "volume-tag",
		environ.GetStringSlice("VOLUME_TAGS", nil),
		"Tags for the new volume as Key=Value (default: the tag filter)",
	)
	flags.DurationVar(&restoreTimeout, "timeout",
		environ.GetDuration("RESTORE_TIMEOUT", 0),
		"Maximum time to wait for the new volume (default from config, 10m)",
	)
}

// applyIdentity targets the local instance. Its zone becomes the restore zone
// unless one is configured.
func applyIdentity(c *config.Config, identity aws.InstanceIdentity) error {
	if identity.Region != "" && identity.Region != c.Region {
		return fmt.Errorf("local instance %s runs in %s, not in the configured region %s",
			identity.InstanceID, identity.Region, c.Region)
	}
	c.Restore.InstanceID = identity.InstanceID
	if c.Restore.AvailabilityZone == "" {
		c.Restore.AvailabilityZone = identity.AvailabilityZone
	}
	return nil
}

func applyRestoreOverrides() error {
	if instanceID != "" {
		cfg.Restore.InstanceID = instanceID
	}
	if zone != "" {
		cfg.Restore.AvailabilityZone = zone
	}
	if device != "" {
		cfg.Restore.Device = device
	}
	if restoreTimeout > 0 {
		cfg.Restore.Timeout = restoreTimeout
	}
	if len(restoreTags) > 0 {
		tags, err := utils.ParseTags(restoreTags)
		if err != nil {
			return err
		}
		cfg.Restore.Tags = tags
	}
	return nil
}
