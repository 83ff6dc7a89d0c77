package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stridelabs/stride/internal/coach/skills"
	"github.com/stridelabs/stride/internal/config"
)

// SkillsCmd creates the skills management command
func SkillsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Manage skill and command definitions",
		Long: `Skills are SKILL.md files that extend the coach for a task type.
They use YAML frontmatter for metadata and a markdown body for instructions.

Skills live in the data directory's skills/ folder (one subdirectory per
skill); slash commands are single .md files under commands/.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all loaded skills and commands",
		Run: func(cmd *cobra.Command, args []string) {
			listSkills(loadConfig())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Show details of a skill or command",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			showSkill(loadConfig(), args[0])
		},
	})

	return cmd
}

func newSkillLoader(cfg *config.Config) *skills.Loader {
	return skills.NewLoader(cfg.SkillsDir(), cfg.CommandsDir(), cfg.Cache.SkillTTL)
}

// listSkills lists all loaded skills and commands
func listSkills(cfg *config.Config) {
	loader := newSkillLoader(cfg)

	skillList := loader.List()
	commands := loader.Commands()
	if len(skillList) == 0 && len(commands) == 0 {
		fmt.Println("No skills loaded.")
		fmt.Printf("\nSkills directory: %s\n", cfg.SkillsDir())
		fmt.Println("Create subdirectories with SKILL.md files to define skills.")
		return
	}

	if len(skillList) > 0 {
		fmt.Println("Skills:")
		for _, s := range skillList {
			fmt.Printf("  %s\n", s.ID)
			fmt.Printf("      %s\n", s.Description)
			if len(s.Triggers) > 0 {
				fmt.Printf("      Triggers: %s\n", strings.Join(s.Triggers, ", "))
			}
		}
	}
	if len(commands) > 0 {
		fmt.Println("Commands:")
		for _, c := range commands {
			fmt.Printf("  /%s: %s\n", c.ID, c.Description)
		}
	}
}

// showSkill shows details of a specific skill or command
func showSkill(cfg *config.Config, id string) {
	loader := newSkillLoader(cfg)

	skill, ok := loader.Get(id)
	if !ok {
		skill, ok = loader.Command(id)
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "Skill not found: %s\n", id)
		os.Exit(1)
	}

	fmt.Printf("Skill: %s\n", skill.Name)
	fmt.Printf("Type: %s\n", skill.Type)
	fmt.Printf("Description: %s\n", skill.Description)
	fmt.Printf("File: %s\n", skill.FilePath)
	fmt.Println()

	if len(skill.Triggers) > 0 {
		fmt.Println("Triggers:")
		for _, t := range skill.Triggers {
			fmt.Printf("  - %s\n", t)
		}
		fmt.Println()
	}

	if len(skill.Agents) > 0 {
		fmt.Println("Assigned agents:")
		for _, a := range skill.Agents {
			fmt.Printf("  - %s\n", a)
		}
		fmt.Println()
	}

	if skill.Body != "" {
		fmt.Println("Instructions (markdown body):")
		fmt.Println(skill.Body)
	}
}
