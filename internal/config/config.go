package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server        Server        `mapstructure:"server"`
	Database      Database      `mapstructure:"database"`
	VectorStore   VectorStore   `mapstructure:"vector_store"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Embeddings    Embeddings    `mapstructure:"embeddings"`
	LLM           LLM           `mapstructure:"llm"`
	Vertex        Vertex        `mapstructure:"vertex"`
	Storage       Storage       `mapstructure:"storage"`
	Chunker       Chunker       `mapstructure:"chunker"`
	Retrieval     Retrieval     `mapstructure:"retrieval"`
	Cache         Cache         `mapstructure:"cache"`
	Ingestion     Ingestion     `mapstructure:"ingestion"`
	Fetcher       Fetcher       `mapstructure:"fetcher"`
	MCP           MCP           `mapstructure:"mcp"`
	Sources       []Source      `mapstructure:"sources"`
}

// Server holds HTTP server configuration.
type Server struct {
	Addr           string `mapstructure:"addr"`
	Mode           string `mapstructure:"mode"` // gin mode
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// Database holds the SQLite registry location.
type Database struct {
	Path string `mapstructure:"path"`
}

// VectorStore selects the chunk index backend.
type VectorStore struct {
	Type string `mapstructure:"type"` // "elasticsearch" or "memory"
}

// Elasticsearch holds ES connection configuration.
type Elasticsearch struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// Embeddings holds embeddings generation configuration.
type Embeddings struct {
	SocketPath        string  `mapstructure:"socket_path"`
	BaseURL           string  `mapstructure:"base_url"`
	Model             string  `mapstructure:"model"`
	Dimensions        int     `mapstructure:"dimensions"` // 0 derives from the model
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LLM holds answer generation configuration.
type LLM struct {
	Provider     string `mapstructure:"provider"` // "dmr" or "vertex"
	SocketPath   string `mapstructure:"socket_path"`
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	MaxTokens    int    `mapstructure:"max_tokens"`
	SystemPrompt string `mapstructure:"system_prompt"` // sent by either provider
}

// Vertex holds Vertex AI generation configuration.
type Vertex struct {
	ProjectID       string  `mapstructure:"project_id"`
	Location        string  `mapstructure:"location"`
	Model           string  `mapstructure:"model"`
	CredentialsFile string  `mapstructure:"credentials_file"`
	Temperature     float32 `mapstructure:"temperature"`
}

// Storage holds S3/MinIO storage configuration for raw PDFs.
// An empty Endpoint disables raw PDF storage.
type Storage struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Chunker holds text chunking configuration.
type Chunker struct {
	MaxChars int `mapstructure:"max_chars"`
	Overlap  int `mapstructure:"overlap"`
}

// Retrieval holds question answering configuration.
type Retrieval struct {
	TopK int `mapstructure:"top_k"`
}

// Cache holds answer cache configuration.
type Cache struct {
	MaxEntries int `mapstructure:"max_entries"`
}

// Ingestion holds ingestion worker configuration.
type Ingestion struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Fetcher holds remote PDF crawling configuration.
type Fetcher struct {
	Delay       time.Duration `mapstructure:"delay"`
	MaxDepth    int           `mapstructure:"max_depth"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	MaxFileSize int           `mapstructure:"max_file_size"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Source is a site to fetch PDFs from when no URL is given.
type Source struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:           ":8000",
			Mode:           "release",
			MaxUploadBytes: 50 << 20,
		},
		Database: Database{
			Path: "./data/pdf-rag.db",
		},
		VectorStore: VectorStore{
			Type: "elasticsearch",
		},
		Elasticsearch: Elasticsearch{
			Addresses: []string{"http://localhost:9200"},
			Index:     "pdf-rag-chunks",
		},
		Embeddings: Embeddings{
			SocketPath: "", // User must provide their Docker socket path or a base URL
			Model:      "ai/embeddinggemma",
		},
		LLM: LLM{
			Provider:  "dmr",
			Model:     "ai/gemma3",
			MaxTokens: 1024,
		},
		Vertex: Vertex{
			Location:    "us-central1",
			Model:       "gemini-1.5-pro",
			Temperature: 0.2,
		},
		Storage: Storage{
			Endpoint:        "", // Raw PDF storage is off until an endpoint is set
			Bucket:          "pdf-rag",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		Chunker: Chunker{
			MaxChars: 1000,
			Overlap:  200,
		},
		Retrieval: Retrieval{
			TopK: 5,
		},
		Cache: Cache{
			MaxEntries: 1024,
		},
		Ingestion: Ingestion{
			Concurrency: 4,
			Timeout:     10 * time.Minute,
		},
		Fetcher: Fetcher{
			Delay:       500 * time.Millisecond,
			MaxDepth:    2,
			Timeout:     60 * time.Second,
			UserAgent:   "pdf-rag/1.0",
			MaxFileSize: 50 << 20,
		},
		MCP: MCP{
			Name:    "pdf-rag",
			Version: "1.0.0",
		},
	}
}

// Validate reports settings that would fail at startup.
func (c Config) Validate() error {
	switch c.VectorStore.Type {
	case "elasticsearch":
		if len(c.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("elasticsearch.addresses is required for the elasticsearch vector store")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown vector_store.type %q", c.VectorStore.Type)
	}

	switch c.LLM.Provider {
	case "dmr":
	case "vertex":
		if c.Vertex.ProjectID == "" {
			return fmt.Errorf("vertex.project_id is required for the vertex provider")
		}
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}

	if c.Chunker.MaxChars <= 0 {
		return fmt.Errorf("chunker.max_chars must be positive")
	}
	if c.Chunker.Overlap < 0 {
		return fmt.Errorf("chunker.overlap must not be negative")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}
