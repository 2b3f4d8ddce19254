// Package querycmder provides the query command for retrieving passages via
// the Stacks API.
package querycmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiretrieve "github.com/bookbinderco/stacks/api/retrieve"
	"github.com/bookbinderco/stacks/pkg/config"
	"github.com/bookbinderco/stacks/pkg/logger"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type queryCommander struct {
	query      string
	topK       int
	scoreFloor float64
	quiet      bool

	apiTarget string

	debug  bool
	logger *zap.Logger
}

const queryLongDesc string = `Retrieve passages via the Stacks API.

Retrieves the most relevant indexed passages for the query text, with
per-source diversity so one document cannot crowd out every other source.
Requires a running Stacks API server.

Use --quiet to output only the formatted context string. This is useful for
piping directly into a prompt.

Example:
  stacks query "how to configure logging"
  stacks query "error handling patterns" --api-target http://localhost:8082
  stacks query "how to configure logging" --top 10 --score-floor 0.6
  stacks query "refund policy" --quiet`

const queryShortDesc string = "Retrieve passages for a query"

func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}

	cmd := &cobra.Command{
		Use:   "query <query>",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}
			if !cmd.Flags().Changed("top") {
				cmder.topK = cfg.Retrieval.TopK
			}
			if !cmd.Flags().Changed("score-floor") {
				cmder.scoreFloor = cfg.Retrieval.ScoreFloor
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	fs := config.DefaultFlagSet()
	config.AddIntFlag(cmd, fs, config.FlagTopK, &cmder.topK)
	config.AddFloat64Flag(cmd, fs, config.FlagScoreFloor, &cmder.scoreFloor)
	config.AddStringFlag(cmd, fs, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only the formatted context string (for piping)")

	return cmd
}

func (c *queryCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	output, err := RetrieveAPI(c.apiTarget, c.query, c.topK, c.scoreFloor)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Println(dimStyle.Render("No passages found."))
		}
		return nil
	}

	if c.quiet {
		fmt.Println(output.Context)
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Passages for:"),
		sourceStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, passage := range output.Passages {
		printPassage(i+1, passage)
	}

	return nil
}

func printPassage(rank int, passage apiretrieve.RetrievedPassage) {
	location := passage.Source
	if passage.Page != nil {
		location = fmt.Sprintf("%s (p. %d)", passage.Source, *passage.Page)
	}

	fmt.Printf("  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", passage.Similarity)),
		sourceStyle.Render(location),
	)

	preview := passage.Text
	if len(preview) > 200 {
		preview = preview[:197] + "..."
	}
	preview = strings.ReplaceAll(preview, "\n", " ")

	fmt.Printf("  %s\n\n", previewStyle.Render(preview))
}

// RetrieveAPI calls the stacks retrieval API and returns the parsed output.
func RetrieveAPI(apiTarget, query string, topK int, scoreFloor float64) (*apiretrieve.RetrieveOutput, error) {
	retrieveURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	retrieveURL.Path = "/v1/retrieve"
	q := retrieveURL.Query()
	q.Set("query", query)
	if topK > 0 {
		q.Set("top_k", strconv.Itoa(topK))
	}
	if scoreFloor > 0 {
		q.Set("score_floor", strconv.FormatFloat(scoreFloor, 'f', -1, 64))
	}
	retrieveURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, retrieveURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating retrieve request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Stacks API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retrieve request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output apiretrieve.RetrieveOutput
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse retrieve response: %w", err)
	}

	return &output, nil
}
