package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/liveclaw/voicecore/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "voicecore",
	Short: "Voice response engine: tiered matching over an archived clip library",
	Long: `voicecore answers conversational turns from a library of pre-recorded
clips. Exact, fuzzy, and semantic matching tiers resolve known requests
instantly; misses race a fast acknowledgment track against a slow answer
track and feed the result back into the library.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "voicecore %s (commit %s, built %s)\n",
			version.Version, version.Commit, version.Date)
	},
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
