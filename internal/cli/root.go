// Package cli wires voicecore's process entry points as a cobra
// command tree, the same shape the teacher's watcher CLI uses
// (internal/cli/root.go) — a bare root command that does nothing on
// its own, with every real action living in a subcommand.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "voicecore",
	Short: "Audio ingestion, transcription, and daily-summary core",
	Long:  "voicecore decrypts uploaded audio, transcribes it, and emits per-user daily summaries on a schedule.",
}

// Execute runs the subcommand the caller selected; the subcommands are
// attached to rootCmd by this package's init functions.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// SetVersionInfo lets main inject build-time values baked in via
// -ldflags, the same way the pre-cobra entry point's package vars did.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("voicecore %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
	},
}
