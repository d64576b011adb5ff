package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/younsl/snapkeeper/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		return render(info, func() {
			fmt.Fprintln(os.Stdout, info.String())
		})
	},
}
