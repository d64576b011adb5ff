package formatter

import (
	"fmt"
	"io"
	"time"

	"github.com/younsl/snapkeeper/internal/models"
)

// PrintCreateReport prints the snapshots started by a creator run
func PrintCreateReport(w io.Writer, report *models.CreateReport, duration time.Duration) {
	if len(report.Created) == 0 {
		fmt.Fprintln(w, "No matching volumes found, no snapshots created.")
		return
	}

	volumes := make(map[string]models.Volume, len(report.Volumes))
	for _, volume := range report.Volumes {
		volumes[volume.VolumeID] = volume
	}

	tw := newTabWriter(w)
	fmt.Fprintln(tw, "NAME\tVOLUME ID\tSNAPSHOT ID\tSIZE\tSTATE\tTAGS")
	for _, snap := range report.Created {
		volume := volumes[snap.VolumeID]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			displayName(volume.Name),
			snap.VolumeID,
			snap.SnapshotID,
			formatSize(snap.Size),
			snap.State,
			formatTags(volume.Tags),
		)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d snapshot(s) created for %d volume(s)\n", len(report.Created), len(report.Volumes))
	printTimestamp(w, report.Region, report.StartedAt, duration)
}

// PrintPruneReport prints the per-snapshot outcome of a pruner run
func PrintPruneReport(w io.Writer, report *models.PruneReport, now time.Time, duration time.Duration) {
	if len(report.Volumes) == 0 {
		fmt.Fprintln(w, "No matching volumes found.")
		return
	}

	deleteAction := "DELETED"
	if report.DryRun {
		deleteAction = "WOULD DELETE"
	}

	tw := newTabWriter(w)
	fmt.Fprintln(tw, "NAME\tVOLUME ID\tSNAPSHOT ID\tSTARTED\tACTION")
	failedCount := 0
	for _, volume := range report.Volumes {
		name := displayName(volume.Volume.Name)
		for _, snap := range volume.Kept {
			printSnapshotRow(tw, name, snap, now, "KEEP")
		}
		for _, snap := range volume.Deleted {
			printSnapshotRow(tw, name, snap, now, deleteAction)
		}
		for _, failure := range volume.Failed {
			printSnapshotRow(tw, name, failure.Snapshot, now, "FAILED: "+failure.Error)
		}
		failedCount += len(volume.Failed)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nRetention keeps %d newest per volume: %d %s, %d failed across %d volume(s)\n",
		report.Keep, report.DeletedCount(), pluralAction(report.DryRun), failedCount, len(report.Volumes))
	printTimestamp(w, report.Region, report.StartedAt, duration)
}

// PrintRetentionTable prints every matching volume's snapshots with the
// action the retention policy would take
func PrintRetentionTable(w io.Writer, plans []models.VolumePrune, now time.Time) {
	if len(plans) == 0 {
		fmt.Fprintln(w, "No matching volumes found.")
		return
	}

	tw := newTabWriter(w)
	fmt.Fprintln(tw, "NAME\tVOLUME ID\tSNAPSHOT ID\tSTARTED\tRETENTION\tTAGS")
	for _, plan := range plans {
		name := displayName(plan.Volume.Name)
		tags := formatTags(plan.Volume.Tags)
		if len(plan.Kept)+len(plan.Deleted) == 0 {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", name, plan.Volume.VolumeID, "-", "-", "NO SNAPSHOTS", tags)
			continue
		}
		for _, snap := range plan.Kept {
			printSnapshotRow(tw, name, snap, now, "KEEP\t"+tags)
		}
		for _, snap := range plan.Deleted {
			printSnapshotRow(tw, name, snap, now, "EXPIRED\t"+tags)
		}
	}
	tw.Flush()
}

// PrintRestoreReport prints the outcome of a restore
func PrintRestoreReport(w io.Writer, report *models.RestoreReport) {
	tw := newTabWriter(w)
	if report.Region != "" {
		fmt.Fprintf(tw, "Region:\t%s\n", regionLabel(report.Region))
	}
	fmt.Fprintf(tw, "Instance:\t%s\n", report.InstanceID)
	fmt.Fprintf(tw, "Source volume:\t%s (%s)\n", report.SourceVolume.VolumeID, report.SourceVolume.AvailabilityZone)
	fmt.Fprintf(tw, "Snapshot:\t%s (started %s)\n", report.Snapshot.SnapshotID,
		report.Snapshot.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "New volume:\t%s (%s, %s)\n", report.NewVolume.VolumeID, report.NewVolume.AvailabilityZone, report.NewVolume.State)
	if report.Attached {
		fmt.Fprintf(tw, "Attached at:\t%s\n", report.Device)
	} else {
		fmt.Fprintf(tw, "Attached at:\tnot attached\n")
	}
	fmt.Fprintf(tw, "Polls:\t%d (%.2fs)\n", report.Polls, report.Elapsed.Seconds())
	tw.Flush()
}

func printSnapshotRow(w io.Writer, name string, snap models.Snapshot, now time.Time, action string) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		name,
		snap.VolumeID,
		snap.SnapshotID,
		formatAge(snap.StartTime, now),
		action,
	)
}

func pluralAction(dryRun bool) string {
	if dryRun {
		return "would be deleted"
	}
	return "deleted"
}
