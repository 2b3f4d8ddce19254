package config

const (
	defaultAPIListen       = ":8082"
	defaultClientAPITarget = "http://localhost:8082"

	defaultVectorProvider   = "sqlitevec"
	defaultVectorTarget     = "stacks.db"
	defaultVectorCollection = "passages"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultTopK            = 5
	defaultOverfetchFactor = 10
	defaultScoreFloor      = 0.5

	defaultEventStreamBrokers = "localhost:9092"
	defaultEventStreamTopic   = "stacks.passages"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Target:     defaultVectorTarget,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Retrieval: RetrievalConfig{
			TopK:            defaultTopK,
			OverfetchFactor: defaultOverfetchFactor,
			ScoreFloor:      defaultScoreFloor,
		},
		EventStream: EventStreamConfig{
			Enabled: false,
			Brokers: defaultEventStreamBrokers,
			Topic:   defaultEventStreamTopic,
		},
	}
}
