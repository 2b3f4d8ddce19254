// Package servecmder provides the serve command for running the retrieval
// API server.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bookbinderco/stacks/api"
	"github.com/bookbinderco/stacks/api/mcp"
	"github.com/bookbinderco/stacks/pkg/config"
	embeddingutils "github.com/bookbinderco/stacks/pkg/embeddings/utils"
	"github.com/bookbinderco/stacks/pkg/logger"
	"github.com/bookbinderco/stacks/pkg/retriever"
	vectorutils "github.com/bookbinderco/stacks/pkg/vector/utils"
)

type serveCommander struct {
	listen    string
	noMCP     bool
	debug     bool
	configDir string
	logger    *zap.Logger
}

const serveLongDesc string = `Run the Stacks retrieval API server.

The server exposes:
  GET /ping           Health check
  GET /v1/retrieve    Diversity-aware passage retrieval
  /mcp                MCP server with the retrieve tool

Embedding provider, vector index, and retrieval tuning come from the
.stacks/config.toml configuration; flags override the listen address.`

const serveShortDesc string = "Run the Stacks retrieval API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd)
		},
	}

	fs := config.DefaultFlagSet()
	config.AddStringFlag(cmd, fs, config.FlagAPIListen, &cmder.listen)
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Disable the MCP server surface")

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	listen := cfg.API.Listen
	if cmd.Flags().Changed("listen") {
		listen = c.listen
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       cfg.Embedding.APIKey,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	index, err := vectorutils.NewIndex(cmd.Context(), &vectorutils.NewIndexOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       cfg.VectorStore.Target,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector index: %w", err)
	}
	defer index.Close()

	fetcher := retriever.New(embedder, index, c.logger,
		retriever.WithOverfetchFactor(cfg.Retrieval.OverfetchFactor),
	)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Retriever: fetcher,
		Noop:      c.noMCP,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiConfig := api.Config{
		ListenAddr: listen,
		Retriever:  fetcher,
	}
	if !c.noMCP {
		apiConfig.MCPHandler = mcpServer.Handler()
	}

	server := api.NewServer(apiConfig, c.logger)

	c.logger.Info("starting retrieval server",
		zap.String("listen", listen),
		zap.String("vector_store", cfg.VectorStore.Provider),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}
