package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stocklens/stocklens/internal/ailink/prompt"
	"github.com/stocklens/stocklens/internal/output"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List the loaded review prompts",
	Long:  "List embedded prompt definitions, with any overrides from ailink.prompts_dir applied.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		registry, err := prompt.RegistryWithOverrides(cfg.AILink.PromptsDir)
		if err != nil {
			return err
		}
		rendered, err := output.FormatPrompts(format, registry.List())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return err
	},
}

func init() {
	rootCmd.AddCommand(promptsCmd)
	promptsCmd.Flags().StringP("output-format", "o", "table", "Output format: table, json, markdown")
	promptsCmd.Flags().Bool("json", false, "Shorthand for --output-format=json")
}
