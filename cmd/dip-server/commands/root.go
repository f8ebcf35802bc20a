package commands

import (
	"github.com/spf13/cobra"
)

var versionInfo = struct {
	version string
	commit  string
	date    string
}{"dev", "none", "unknown"}

// SetVersionInfo stores build-time version information.
func SetVersionInfo(version, commit, date string) {
	versionInfo.version = version
	versionInfo.commit = commit
	versionInfo.date = date
}

// Root returns the root command with all subcommands attached.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "dip-server",
		Short: "Data infrastructure control plane",
		Long: `dip-server provisions k3s clusters on cloud providers and installs
data-engineering applications on them.

Configuration comes from the environment; DIP_DATABASE_URL is required.`,
		SilenceUsage: true,
	}

	root.AddCommand(Serve())
	root.AddCommand(Migrate())
	root.AddCommand(Version())
	return root
}
