package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version returns the command that prints build information.
func Version() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Printf("dip-server %s (commit %s, built %s)\n",
				versionInfo.version, versionInfo.commit, versionInfo.date)
		},
	}
}
