package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stridelabs/stride/internal/coach/prompts"
)

// PromptsCmd creates the prompt template command
func PromptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Inspect and match prompt templates",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List indexed prompt templates",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			ix := prompts.NewIndexer(cfg.PromptsDir(), cfg.Cache.PromptTTL)
			for _, p := range ix.List() {
				fmt.Printf("  %s [%s, priority %d]\n", p.ID, p.Category, p.Priority)
				fmt.Printf("      %s\n", p.Description)
			}
		},
	})

	var maxResults int
	match := &cobra.Command{
		Use:   "match [query...]",
		Short: "Rank prompt templates against a query",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			ix := prompts.NewIndexer(cfg.PromptsDir(), cfg.Cache.PromptTTL)
			res := ix.Match(strings.Join(args, " "), maxResults)

			if res.Primary == nil {
				fmt.Println("No matching prompt.")
				return
			}
			fmt.Printf("Primary: %s\n", res.Primary.ID)
			for _, p := range res.Secondary {
				fmt.Printf("Secondary: %s\n", p.ID)
			}
			if len(res.Categories) > 0 {
				fmt.Printf("Categories: %s\n", strings.Join(res.Categories, ", "))
			}
			if len(res.ContextRequirements) > 0 {
				fmt.Printf("Context needed: %s\n", strings.Join(res.ContextRequirements, ", "))
			}
		},
	}
	match.Flags().IntVar(&maxResults, "max", 3, "maximum number of results")
	cmd.AddCommand(match)

	return cmd
}
