package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier used for change detection.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// EntityType identifies the kind of registry entity a document describes.
type EntityType string

const (
	// EntityTypeServer is a registered server exposing tools.
	EntityTypeServer EntityType = "server"
	// EntityTypeAgent is a registered autonomous agent.
	EntityTypeAgent EntityType = "agent"
	// EntityTypeTool is a result grouping only; tools are never indexed
	// as standalone documents.
	EntityTypeTool EntityType = "tool"
)

// Tool is an operation exposed by a server.
// InputSchema holds the raw JSON schema; it is retained for display but
// excluded from the embeddable text.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema string `json:"input_schema,omitempty"`
}

// Skill is a named capability of an agent.
type Skill struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Document is the indexed representation of a registry entity, keyed by Path.
// Path is the sole upsert/delete key and is unique within a collection.
type Document struct {
	Path        string     `json:"path"`
	Type        EntityType `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags,omitempty"`
	Enabled     bool       `json:"enabled"`

	// Server-only fields.
	Tools []Tool `json:"tools,omitempty"`

	// Agent-only fields.
	Capabilities []string `json:"capabilities,omitempty"`
	Skills       []Skill  `json:"skills,omitempty"`

	// Vector is the embedding of the document's embeddable text.
	// Its dimension must equal the collection's configured dimension.
	Vector []float32 `json:"-"`

	// ContentHash is the hash of the embeddable text at indexing time.
	// An unchanged hash lets the indexer skip re-embedding on upsert.
	ContentHash ID `json:"-"`

	Meta       map[string]string `json:"meta,omitempty"`
	InsertedAt time.Time         `json:"inserted_at,omitzero"`
	UpdatedAt  time.Time         `json:"updated_at,omitzero"`
}

// IsServer reports whether the document describes a server entity.
func (d *Document) IsServer() bool {
	return d.Type == EntityTypeServer
}

// IsAgent reports whether the document describes an agent entity.
func (d *Document) IsAgent() bool {
	return d.Type == EntityTypeAgent
}
