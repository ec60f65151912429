package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/aimon/internal/config"
	"github.com/muurk/aimon/internal/logging"
	"github.com/muurk/aimon/internal/monitor"
)

// Serve command flags. Flags that the user set override the config file.
var (
	configPath string
	host       string
	port       int
	maxClients int
	logLevel   string
	noAnnounce bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the monitor server",
	Long: `Start the AI monitor server and relay pipeline traffic to clients.

Configuration is read from the YAML file given with --config; flags set on
the command line override file values. Without a config file the built-in
defaults apply (port 5055, up to 3 clients).`,
	Example: `  # Start with defaults
  aimon-server serve

  # Start on a custom port with debug logging
  aimon-server serve --port 6055 --log-level debug

  # Start from a config file, overriding the client limit
  aimon-server serve --config /etc/aimon.yaml --max-clients 1`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file (optional)")
	serveCmd.Flags().StringVar(&host, "host", "", "Local address to bind (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", config.DefaultPort, "TCP port to listen on")
	serveCmd.Flags().IntVar(&maxClients, "max-clients", config.DefaultMaxClients, "Maximum simultaneous clients (1-3)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&noAnnounce, "no-announce", false, "Disable mDNS announcement")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("host") {
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	if cmd.Flags().Changed("max-clients") {
		cfg.MaxClients = maxClients
	}
	if cmd.Flags().Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = logLevel
	}
	if noAnnounce {
		cfg.Announce = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	srv := monitor.New(cfg)
	if err := srv.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	for sig := range sigChan {
		if sig == syscall.SIGUSR1 {
			srv.DumpStatus()
			continue
		}
		break
	}

	srv.Stop()
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitPath string

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteDefault(configInitPath); err != nil {
			return err
		}
		fmt.Printf("Wrote default configuration to %s\n", configInitPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", "aimon.yaml", "Where to write the config file")
	configCmd.AddCommand(configInitCmd)
}
