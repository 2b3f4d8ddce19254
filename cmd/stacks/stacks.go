// Package stackscmder
package stackscmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/bookbinderco/stacks/cmd/stacks/config"
	ingestcmder "github.com/bookbinderco/stacks/cmd/stacks/ingest"
	querycmder "github.com/bookbinderco/stacks/cmd/stacks/query"
	servecmder "github.com/bookbinderco/stacks/cmd/stacks/serve"
)

const stacksLongDesc string = `Stacks is semantic passage retrieval for your documents.

Index passages from JSONL corpus files, then retrieve the most relevant
ones for a query with per-source diversity:
  stacks serve     Run the retrieval API server
  stacks ingest    Index passages from a JSONL corpus
  stacks query     Retrieve passages for a query
  stacks config    Manage persistent configuration`

const stacksShortDesc string = "Stacks - Semantic Passage Retrieval"

func NewStacksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stacks",
		Short: stacksShortDesc,
		Long:  stacksLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .stacks/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())

	return cmd
}
