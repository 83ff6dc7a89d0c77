package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stridelabs/stride/internal/ai"
	"github.com/stridelabs/stride/internal/coach/capabilities"
	"github.com/stridelabs/stride/internal/coach/loader"
	"github.com/stridelabs/stride/internal/coach/prompts"
	"github.com/stridelabs/stride/internal/coach/skills"
	"github.com/stridelabs/stride/internal/coach/userctx"
	"github.com/stridelabs/stride/internal/config"
	"github.com/stridelabs/stride/internal/mcp"
	"github.com/stridelabs/stride/internal/store"
)

// ChatCmd creates the chat command
func ChatCmd() *cobra.Command {
	var profileID string
	var agentID string
	var interactive bool

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the accountability coach",
		Long: `Send a message to the coach. The full coaching context (profile,
tasks, challenges, check-ins) is assembled and any matched skill is
activated before the message is sent to the configured LLM provider.
Connected MCP tools are available to the model.

Examples:
  stride chat "what should I focus on today?"
  stride chat --profile jess "I broke my streak"
  stride chat --interactive`,
		Run: func(cmd *cobra.Command, args []string) {
			runChat(loadConfig(), profileID, agentID, args, interactive)
		},
	}

	cmd.Flags().StringVarP(&profileID, "profile", "P", "default", "profile whose context to load")
	cmd.Flags().StringVar(&agentID, "agent", "unified", "coach agent id")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "start an interactive session")

	return cmd
}

// chatSession holds everything one conversation needs.
type chatSession struct {
	cfg      *config.Config
	provider ai.Provider
	svc      *loader.Service
	manager  *mcp.Manager
	agentID  string
	history  []ai.Message
}

func runChat(cfg *config.Config, profileID, agentID string, args []string, interactive bool) {
	provider, err := ai.NewFromConfig(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "No providers configured. Set OPENAI_API_KEY or ANTHROPIC_API_KEY, or configure providers in config.yaml.")
		os.Exit(1)
	}

	mcpCfg, err := mcp.LoadConfig(cfg.MCPConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading MCP config: %v\n", err)
		os.Exit(1)
	}
	manager := mcp.NewManager(mcpCfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n\033[33mInterrupted\033[0m")
		cancel()
	}()

	if manager.Enabled() {
		manager.ConnectAll(ctx)
		defer manager.DisconnectAll()
	}

	builder := userctx.NewBuilder(store.NewLocal(cfg.DataDir))
	sess := &chatSession{
		cfg:      cfg,
		provider: provider,
		manager:  manager,
		agentID:  agentID,
		svc: &loader.Service{
			Builder: builder,
			Skills:  skills.NewLoader(cfg.SkillsDir(), cfg.CommandsDir(), cfg.Cache.SkillTTL),
			Prompts: prompts.NewIndexer(cfg.PromptsDir(), cfg.Cache.PromptTTL),
			Caps:    capabilities.NewResolver(cfg.CapabilitiesPath(), cfg.Cache.CapabilityTTL),
			MCP:     manager,
		},
	}

	if interactive || len(args) == 0 {
		sess.runInteractive(ctx, profileID)
	} else {
		sess.turn(ctx, profileID, strings.Join(args, " "))
	}
}

// turn runs one full message turn: assemble context, send, print.
func (s *chatSession) turn(ctx context.Context, profileID, message string) {
	res := s.svc.LoadContextParallel(ctx, loader.Options{
		ProfileID: profileID,
		AgentIDs:  []string{s.agentID},
		Message:   message,
	})

	if verbose && res.Skill != nil {
		fmt.Printf("\033[33m[skill: %s]\033[0m\n", res.Skill.ID)
	}

	req := &ai.ChatRequest{
		System:   userctx.BuildSystemPrompt(res.Context, s.agentID, res.Skill),
		Messages: append(s.history, ai.Message{Role: "user", Content: message}),
		Tools:    toolDefinitions(res.MCPTools),
	}

	result, err := mcp.ProcessWithTools(ctx, s.provider, req, s.manager)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError: %v\033[0m\n", err)
		return
	}
	s.history = result.Messages

	if verbose {
		for _, msg := range result.Messages {
			for _, tc := range msg.ToolCalls {
				fmt.Printf("\033[33m[tool: %s]\033[0m\n", tc.Name)
			}
		}
	}
	fmt.Println(result.FinalText)
	if result.Truncated {
		fmt.Println("\033[33m(stopped at the tool iteration limit)\033[0m")
	}
}

// runInteractive runs an interactive chat session
func (s *chatSession) runInteractive(ctx context.Context, profileID string) {
	fmt.Println("\033[1mStride Interactive Mode\033[0m")
	fmt.Println("Type your message and press Enter. Use /quit to exit.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	for ctx.Err() == nil {
		fmt.Print("\033[36m> \033[0m")

		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}
		if line == "/clear" {
			s.history = nil
			fmt.Println("History cleared.")
			continue
		}

		fmt.Print("\033[32m")
		s.turn(ctx, profileID, line)
		fmt.Print("\033[0m\n")
	}
}

// toolDefinitions converts MCP tool listings into provider tool schemas.
func toolDefinitions(tools []mcp.Tool) []ai.ToolDefinition {
	defs := make([]ai.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, ai.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}
	return defs
}
