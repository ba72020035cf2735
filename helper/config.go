package helper

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	IndexBackendMemory   = "memory"
	IndexBackendPgVector = "pgvector"
	IndexBackendQdrant   = "qdrant"

	GraphBackendMemory   = "memory"
	GraphBackendPostgres = "postgres"
	GraphBackendNeo4j    = "neo4j"
)

// Configuration is the complete runtime configuration read from the environment.
type Configuration struct {
	Database DatabaseConfiguration
	Neo4j    Neo4jConfiguration
	Qdrant   QdrantConfiguration
	Models   ModelConfiguration

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	IndexBackend string `env:"INDEX_BACKEND" envDefault:"memory"`
	GraphBackend string `env:"GRAPH_BACKEND" envDefault:"memory"`
	EmbeddingDim int    `env:"EMBEDDING_DIM" envDefault:"384"`

	DefaultMaxPapers   int `env:"DEFAULT_MAX_PAPERS" envDefault:"10"`
	DefaultMaxTrials   int `env:"DEFAULT_MAX_TRIALS" envDefault:"10"`
	DefaultSearchLimit int `env:"DEFAULT_SEARCH_LIMIT" envDefault:"5"`
	CandidateLimit     int `env:"CANDIDATE_LIMIT" envDefault:"50"`
	GraphMaxNodes      int `env:"GRAPH_MAX_NODES" envDefault:"100"`
	EvalTopK           int `env:"EVAL_TOP_K" envDefault:"10"`
}

type Neo4jConfiguration struct {
	URI         string        `env:"NEO4J_URI" envDefault:"bolt://localhost:7687"`
	User        string        `env:"NEO4J_USER" envDefault:"neo4j"`
	Password    string        `env:"NEO4J_PASSWORD"`
	Database    string        `env:"NEO4J_DATABASE" envDefault:"neo4j"`
	Timeout     time.Duration `env:"NEO4J_TIMEOUT" envDefault:"10s"`
	MaxPoolSize int           `env:"NEO4J_MAX_POOL_SIZE" envDefault:"50"`
}

type QdrantConfiguration struct {
	Host   string `env:"QDRANT_HOST" envDefault:"localhost"`
	Port   int    `env:"QDRANT_PORT" envDefault:"6334"`
	APIKey string `env:"QDRANT_API_KEY"`
	UseTLS bool   `env:"QDRANT_USE_TLS" envDefault:"false"`
}

type ModelConfiguration struct {
	Directory      string        `env:"MODEL_DIR" envDefault:"./models"`
	Embedding      string        `env:"EMBEDDING_MODEL" envDefault:"sentence-transformers/all-MiniLM-L6-v2"`
	EmbeddingOnnx  string        `env:"EMBEDDING_ONNX" envDefault:"onnx/model.onnx"`
	NER            string        `env:"NER_MODEL" envDefault:"d4data/biomedical-ner-all"`
	NEROnnx        string        `env:"NER_ONNX" envDefault:"onnx/model.onnx"`
	Classifier     string        `env:"CLASSIFIER_MODEL" envDefault:"KnightsAnalytics/deberta-v3-base-zeroshot-v1"`
	ClassifierOnnx string        `env:"CLASSIFIER_ONNX" envDefault:"model.onnx"`
	Timeout        time.Duration `env:"MODEL_TIMEOUT" envDefault:"30s"`
}

// NewConfiguration loads a .env file if present and parses the environment.
func NewConfiguration() (*Configuration, error) {
	_ = godotenv.Load()

	config := &Configuration{}
	if err := env.Parse(config); err != nil {
		return nil, NewError("parse configuration", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks backend names and numeric limits.
func (c *Configuration) Validate() error {
	switch c.IndexBackend {
	case IndexBackendMemory, IndexBackendPgVector, IndexBackendQdrant:
	default:
		return NewError("configuration validation", fmt.Errorf("unsupported index backend: %s", c.IndexBackend))
	}

	switch c.GraphBackend {
	case GraphBackendMemory, GraphBackendPostgres, GraphBackendNeo4j:
	default:
		return NewError("configuration validation", fmt.Errorf("unsupported graph backend: %s", c.GraphBackend))
	}

	if c.EmbeddingDim <= 0 {
		return NewError("configuration validation", fmt.Errorf("embedding dimension must be positive"))
	}
	if c.CandidateLimit <= 0 || c.EvalTopK <= 0 || c.GraphMaxNodes <= 0 {
		return NewError("configuration validation", fmt.Errorf("limits must be positive"))
	}

	return nil
}

// NeedsDatabase reports whether any configured backend needs Postgres.
func (c *Configuration) NeedsDatabase() bool {
	return c.IndexBackend == IndexBackendPgVector || c.GraphBackend == GraphBackendPostgres
}
