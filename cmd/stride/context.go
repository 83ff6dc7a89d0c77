package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stridelabs/stride/internal/coach/userctx"
	"github.com/stridelabs/stride/internal/store"
)

// ContextCmd creates the context inspection command.
func ContextCmd() *cobra.Command {
	var asPrompt bool
	var agentID string

	cmd := &cobra.Command{
		Use:   "context [profile]",
		Short: "Assemble and print a profile's coaching context",
		Long: `Assemble the full coaching context for a profile from its state
files (profile.md, todos.md, challenges/, checkins/, schedule) and print
it as JSON, or as the rendered system prompt with --prompt.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			builder := userctx.NewBuilder(store.NewLocal(cfg.DataDir))
			uc := builder.Build(args[0])

			if asPrompt {
				fmt.Println(userctx.BuildSystemPrompt(uc, agentID, nil))
				return
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(uc); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().BoolVar(&asPrompt, "prompt", false, "print the rendered system prompt instead of JSON")
	cmd.Flags().StringVar(&agentID, "agent", "unified", "agent id for the prompt intro")
	return cmd
}
