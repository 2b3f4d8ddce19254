// Package configcmder provides the config command for managing persistent
// stacks configuration stored in the .stacks/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent stacks configuration.

Configuration is stored as config.toml in the .stacks/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  api.listen, client.api_target,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  retrieval.top_k, retrieval.overfetch_factor, retrieval.score_floor,
  event_stream.enabled, event_stream.brokers, event_stream.topic

Use subcommands to initialize, get, set, or list configuration values:
  stacks config init [preset]       Write a fresh config from a preset
  stacks config set <key> <value>   Set a configuration value
  stacks config get <key>           Get a configuration value
  stacks config list                List all configuration values

Examples:
  stacks config init openai
  stacks config set embedding.model nomic-embed-text
  stacks config set retrieval.top_k 8
  stacks config get vector_store.provider
  stacks config list`

const configShortDesc string = "Manage persistent stacks configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
