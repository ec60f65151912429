// Aimon-server is a TCP broadcast server for debugging AI pipelines on
// embedded devices.
//
// Debugging clients connect over TCP, subscribe to the payload types they
// care about (audio legs, text results, events, device logs), and receive a
// live relay of the AI pipeline traffic. The server answers client pings and
// announces itself over mDNS so clients can find the device on the LAN.
//
// Usage:
//
//	aimon-server serve [flags]
//
// See 'aimon-server serve --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/aimon/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aimon-server",
	Short: "AI Monitor Broadcast Server",
	Long: `A TCP broadcast server that relays AI pipeline traffic to debugging clients.

Clients connect, pick the payload types they want with a filter event, and
receive a live feed of audio legs, text results, events and device logs.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("aimon-server %s (commit: %s)\n", version.Version, version.Commit)
	},
}
