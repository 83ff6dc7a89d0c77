package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stridelabs/stride/internal/config"
	"github.com/stridelabs/stride/internal/mcp"
)

// MCPCmd creates the MCP server management command
func MCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Inspect configured MCP tool servers",
		Long: `MCP (Model Context Protocol) servers provide external tools to the
coach. Servers are configured in <data_dir>/mcp-config.json and may use
stdio, http, or streamable transports.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Connect to enabled servers and report their state",
		Run: func(cmd *cobra.Command, args []string) {
			withManager(loadConfig(), func(m *mcp.Manager) {
				for _, st := range m.Status() {
					mark := "\033[32m✓\033[0m"
					if st.State != mcp.StateConnected {
						mark = "\033[31m✗\033[0m"
					}
					fmt.Printf("  %s %s (%s, %s): %d tools\n", mark, st.ID, st.Transport, st.State, st.ToolCount)
					if st.LastError != "" {
						fmt.Printf("      %s\n", st.LastError)
					}
				}
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "tools",
		Short: "List tools exposed by connected servers",
		Run: func(cmd *cobra.Command, args []string) {
			withManager(loadConfig(), func(m *mcp.Manager) {
				tools := m.Tools()
				if len(tools) == 0 {
					fmt.Println("No tools available.")
					return
				}
				for _, t := range tools {
					fmt.Printf("  %s\n", t.Name)
					if t.Description != "" {
						fmt.Printf("      %s\n", t.Description)
					}
				}
			})
		},
	})

	return cmd
}

// withManager connects to all enabled servers, runs fn, and disconnects.
func withManager(cfg *config.Config, fn func(*mcp.Manager)) {
	mcpCfg, err := mcp.LoadConfig(cfg.MCPConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading MCP config: %v\n", err)
		os.Exit(1)
	}

	m := mcp.NewManager(mcpCfg)
	if !m.Enabled() {
		fmt.Println("MCP is disabled. Enable it in mcp-config.json.")
		return
	}

	m.ConnectAll(context.Background())
	defer m.DisconnectAll()
	fn(m)
}
