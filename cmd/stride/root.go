// Package cli implements the stride command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stridelabs/stride/internal/config"
	"github.com/stridelabs/stride/internal/logging"
	"github.com/stridelabs/stride/internal/server"
)

// Shared CLI flags (used across multiple command files)
var (
	cfgFile string
	verbose bool
)

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stride",
		Short: "Stride - accountability coach context engine",
		Long: `Stride assembles coaching context (profile, tasks, challenges,
check-ins), matches skills and prompt templates against user messages,
and orchestrates MCP tool servers for the accountability coach.

Just type 'stride' to start the HTTP API server.`,
		Run: func(cmd *cobra.Command, args []string) {
			runServe(0)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <data_dir>/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(ChatCmd())
	rootCmd.AddCommand(ContextCmd())
	rootCmd.AddCommand(SkillsCmd())
	rootCmd.AddCommand(PromptsCmd())
	rootCmd.AddCommand(MCPCmd())

	return rootCmd
}

// loadConfig loads the configuration, honoring the --config flag.
func loadConfig() *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if verbose {
		logging.SetLevel(logging.LevelDebug)
	}
	return cfg
}

// ServeCmd creates the serve command.
func ServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Run: func(cmd *cobra.Command, args []string) {
			runServe(port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override the configured port")
	return cmd
}

// runServe starts the server and blocks until interrupted.
func runServe(port int) {
	cfg := loadConfig()
	if port > 0 {
		cfg.Port = port
	}

	s, err := server.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := s.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
