package configcmder

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bookbinderco/stacks/pkg/cliui"
	"github.com/bookbinderco/stacks/pkg/config"
)

const initLongDesc string = `Write a fresh configuration from a preset.

Creates config.toml in the .stacks/ directory with sane defaults for the
named embedding provider preset. Without a preset argument, the ollama
preset is used. Refuses to overwrite an existing config unless --force
is given.

Presets:
  ollama    Local Ollama with nomic-embed-text (768 dimensions)
  openai    OpenAI text-embedding-3-small (1536 dimensions)

Examples:
  stacks config init
  stacks config init openai
  stacks config init ollama --force`

const initShortDesc string = "Write a fresh configuration from a preset"

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [preset]",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preset := "ollama"
			if len(args) == 1 {
				preset = args[0]
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			return runInit(preset, configDir, force)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func runInit(preset, configDir string, force bool) error {
	cfg, err := config.PresetConfig(preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	target := cfger.GetTarget()
	if !force {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", target)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking config file: %w", err)
		}
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("\n  %s Wrote %s preset to %s\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(strings.ToLower(preset)),
		cliui.DimStyle.Render(target),
	)
	return nil
}
