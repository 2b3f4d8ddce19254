// Package ingestcmder provides the ingest command for indexing passages
// from JSONL corpus files.
package ingestcmder

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bookbinderco/stacks/pkg/cliui"
	"github.com/bookbinderco/stacks/pkg/config"
	"github.com/bookbinderco/stacks/pkg/corpus"
	"github.com/bookbinderco/stacks/pkg/embeddings"
	embeddingutils "github.com/bookbinderco/stacks/pkg/embeddings/utils"
	"github.com/bookbinderco/stacks/pkg/eventstream"
	eventkafka "github.com/bookbinderco/stacks/pkg/eventstream/kafka"
	eventnop "github.com/bookbinderco/stacks/pkg/eventstream/nop"
	"github.com/bookbinderco/stacks/pkg/logger"
	"github.com/bookbinderco/stacks/pkg/vector"
	vectorutils "github.com/bookbinderco/stacks/pkg/vector/utils"
)

const defaultBatchSize = 64

type ingestCommander struct {
	path      string
	batchSize int
	noEvents  bool

	debug     bool
	configDir string
	logger    *zap.Logger
}

const ingestLongDesc string = `Index passages from a JSONL corpus.

Each corpus line is a JSON object with "source" and "text" fields, plus
optional "id" and "page" fields. Passages without an id are assigned one.
Passages whose id already exists in the index are updated in place.

The path may be a single .jsonl file or a directory, in which case all
.jsonl files under it are ingested.

Example:
  stacks ingest ./docs/corpus.jsonl
  stacks ingest ./corpus/ --batch-size 128`

const ingestShortDesc string = "Index passages from a JSONL corpus"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.path = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&cmder.batchSize, "batch-size", defaultBatchSize, "Number of documents written to the index per batch")
	cmd.Flags().BoolVar(&cmder.noEvents, "no-events", false, "Skip publishing passage indexing events")

	return cmd
}

func (c *ingestCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	files, err := c.resolveFiles()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .jsonl corpus files found at %s", c.path)
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

	index, err := vectorutils.NewIndex(ctx, &vectorutils.NewIndexOpts{
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

	publisher := c.newPublisher(cfg)
	defer publisher.Close()

	total := 0
	start := time.Now()

	for _, file := range files {
		count, err := c.ingestFile(ctx, file, cfg, embedder, index, publisher)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", file, err)
		}
		total += count
	}

	fmt.Printf("\n  %s Indexed %d passages from %d file(s) in %s\n",
		cliui.SuccessMark, total, len(files), cliui.FormatDuration(time.Since(start)))

	return nil
}

// resolveFiles expands the path argument into the list of corpus files.
func (c *ingestCommander) resolveFiles() ([]string, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus path: %w", err)
	}

	if info.IsDir() {
		return corpus.ScanCorpusDir(c.path)
	}
	return []string{c.path}, nil
}

func (c *ingestCommander) newPublisher(cfg *config.Config) eventstream.Publisher {
	if c.noEvents || !cfg.EventStream.Enabled {
		return eventnop.NewPublisher()
	}
	return eventkafka.NewPublisher(cfg.EventStream.Brokers, cfg.EventStream.Topic)
}

func (c *ingestCommander) ingestFile(
	ctx context.Context,
	file string,
	cfg *config.Config,
	embedder embeddings.Embedder,
	index vector.Index,
	publisher eventstream.Publisher,
) (int, error) {
	var records []corpus.Record

	err := cliui.Step(os.Stdout, fmt.Sprintf("Loading %s", file), func() error {
		var loadErr error
		records, loadErr = corpus.LoadFile(file)
		return loadErr
	})
	if err != nil {
		return 0, err
	}

	if len(records) == 0 {
		fmt.Printf("  %s %s is empty, skipping\n", cliui.DimStyle.Render("-"), file)
		return 0, nil
	}

	batch := make([]vector.Document, 0, c.batchSize)
	indexed := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := index.Add(ctx, batch); err != nil {
			return err
		}
		for i := range batch {
			if err := c.publishIndexed(ctx, publisher, cfg, &batch[i]); err != nil {
				return err
			}
		}
		indexed += len(batch)
		batch = batch[:0]
		return nil
	}

	err = cliui.Step(os.Stdout, fmt.Sprintf("Embedding and indexing %d passages", len(records)), func() error {
		for _, record := range records {
			embedding, err := embedder.Embed(ctx, record.Text)
			if err != nil {
				return fmt.Errorf("embedding passage from %s: %w", record.Source, err)
			}

			id := record.ID
			if id == "" {
				id = uuid.New().String()
			}

			batch = append(batch, vector.Document{
				Passage: vector.Passage{
					ID:     id,
					Source: record.Source,
					Text:   record.Text,
					Page:   record.Page,
				},
				Embedding: embedding,
			})

			if len(batch) >= c.batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})
	if err != nil {
		return indexed, err
	}

	c.logger.Debug("ingested corpus file",
		zap.String("file", file),
		zap.Int("passages", indexed),
	)

	return indexed, nil
}

func (c *ingestCommander) publishIndexed(
	ctx context.Context,
	publisher eventstream.Publisher,
	cfg *config.Config,
	doc *vector.Document,
) error {
	event := &eventstream.PassageIndexedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypePassageIndexed,
		EventID:       uuid.New().String(),
		EmittedAt:     time.Now().UTC(),
		Passage: eventstream.PassageMeta{
			ID:     doc.ID,
			Source: doc.Source,
			Page:   doc.Page,
			Chars:  len(doc.Text),
		},
		Embedding: eventstream.EmbeddingRef{
			Provider:   cfg.Embedding.Provider,
			Model:      cfg.Embedding.Model,
			Dimensions: int(cfg.Embedding.Dimensions),
		},
	}

	if err := publisher.PublishIndexed(ctx, event); err != nil {
		// Indexing succeeded; a failed event publish is logged, not fatal.
		c.logger.Warn("failed to publish passage event",
			zap.String("passage_id", doc.ID),
			zap.Error(err),
		)
	}

	return nil
}
