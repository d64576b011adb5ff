package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/younsl/snapkeeper/pkg/utils"
)

// MAX_NAME_WIDTH defines the maximum width for Name column
const MAX_NAME_WIDTH = 20

// Output formats
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// newTabWriter returns a kubectl style table writer
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
}

// printTimestamp prints the run timestamp, region and duration
func printTimestamp(w io.Writer, region string, startTime time.Time, duration time.Duration) {
	timeStr := startTime.Format("2006-01-02 15:04:05")
	durationStr := fmt.Sprintf("%.2fs", duration.Seconds())

	if region == "" {
		fmt.Fprintf(w, "Run completed at %s (took %s)\n", timeStr, durationStr)
		return
	}
	fmt.Fprintf(w, "Run completed at %s in %s (took %s)\n", timeStr, regionLabel(region), durationStr)
}

// regionLabel renders a region as "US East (N. Virginia) [us-east-1]"
func regionLabel(region string) string {
	name := utils.GetRegionDescriptiveName(region)
	if name == region {
		return region
	}
	return fmt.Sprintf("%s [%s]", name, region)
}

// formatTags renders volume tags for a table cell
func formatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return "-"
	}
	return utils.FormatTags(tags)
}

// displayName truncates a volume name to MAX_NAME_WIDTH display columns
func displayName(name string) string {
	if name == "" {
		return "N/A"
	}
	if StringWidth(name) <= MAX_NAME_WIDTH {
		return name
	}

	var b strings.Builder
	currentWidth := 0
	for _, r := range name {
		charWidth := RuneWidth(r)
		if currentWidth+charWidth > MAX_NAME_WIDTH-2 { // -2 for ".."
			break
		}
		b.WriteRune(r)
		currentWidth += charWidth
	}
	return b.String() + ".."
}

// formatAge renders how long ago t was relative to now
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// formatSize renders a size in GiB
func formatSize(gib int) string {
	if gib <= 0 {
		return "N/A"
	}
	return humanize.IBytes(uint64(gib) << 30)
}
