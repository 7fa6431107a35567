package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// NewRootCommand creates the drivesync command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "drivesync",
		Short: "Sync plan optimizer for a client/server drive",
		Long: `drivesync rewrites the raw action plans of a three-way comparison into
an equivalent, cheaper plan: renames instead of remove and re-upload, server-side
copies instead of uploads, and no transfers for empty content.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(NewOptimizeCommand())
	rootCmd.AddCommand(NewHistoryCommand())
	rootCmd.AddCommand(NewChecksumCommand())
	rootCmd.AddCommand(NewAuthCommand())

	return rootCmd
}
