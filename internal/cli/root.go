// Package cli implements the pinghud command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/pinghud/pinghud/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "pinghud",
	Short: "pinghud - effective game-server latency for your overlay",
	Long: `pinghud watches a game process (and optionally a network booster such
as ExitLag), infers effective game-server latency from its TCP connections
plus active connect probes, and publishes current/low/peak readings to local
consumers over websocket and Prometheus.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("pinghud version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
