// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package capindex

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/capindex/ai"
)

// Vector search backend variants selectable through configuration.
const (
	BackendHNSW       = "hnsw"
	BackendBruteForce = "bruteforce"
)

// Config holds all configuration for the search engine.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

// StorageConfig holds document store configuration.
type StorageConfig struct {
	// Path is the on-disk database directory. Ignored when InMemory is set.
	Path string `yaml:"path"`

	// InMemory keeps the whole store in memory. Data is lost on close.
	InMemory bool `yaml:"in_memory"`
}

// IndexConfig selects and tunes the vector search backend.
type IndexConfig struct {
	// Backend is "hnsw" or "bruteforce".
	Backend string `yaml:"backend"`

	// M is the HNSW per-node link count.
	M int `yaml:"m"`

	// EfConstruction is the HNSW candidate list size during insertion.
	EfConstruction int `yaml:"ef_construction"`

	// EfSearch is the HNSW candidate list size during queries.
	EfSearch int `yaml:"ef_search"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	// Host is the base URL of an OpenAI-compatible embedding API.
	Host string `yaml:"host"`

	// Model is the embedding model identifier.
	Model string `yaml:"model"`

	// Dimension is the model's fixed output dimension.
	Dimension int `yaml:"dimension"`

	// TimeoutSeconds bounds each embedding call.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// MaxAttempts is the retry budget for transient embedding failures.
	MaxAttempts int `yaml:"max_attempts"`
}

// DefaultConfig returns the default engine configuration: an on-disk
// store under ./capindex.db, the HNSW backend with its standard build
// parameters, and a local OpenAI-compatible embedding endpoint.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: "./capindex.db",
		},
		Index: IndexConfig{
			Backend:        BackendHNSW,
			M:              16,
			EfConstruction: 128,
			EfSearch:       64,
		},
		Embedding: EmbeddingConfig{
			Host:           "http://localhost:11434",
			Model:          "embeddinggemma",
			Dimension:      768,
			TimeoutSeconds: 30,
			MaxAttempts:    3,
		},
	}
}

// LoadConfig reads a YAML configuration file, applying defaults for
// anything the file leaves unset.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case BackendHNSW, BackendBruteForce:
	default:
		return fmt.Errorf("index config: unknown backend %q", c.Index.Backend)
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage config: path is required for on-disk storage")
	}
	return c.aiConfig().Validate()
}

// aiConfig translates the embedding section into the ai package's form.
func (c *Config) aiConfig() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithHost(c.Embedding.Host),
		ai.WithModel(c.Embedding.Model),
		ai.WithDimension(c.Embedding.Dimension),
	)
	if c.Embedding.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(c.Embedding.TimeoutSeconds) * time.Second
	}
	if c.Embedding.MaxAttempts > 0 {
		cfg.MaxAttempts = c.Embedding.MaxAttempts
	}
	return cfg
}
