package core

import "encoding/json"

// DefaultMaxResultsPerType bounds each result group when the caller does not
// ask for a specific limit.
const DefaultMaxResultsPerType = 3

// SearchQuery is a parsed search request.
type SearchQuery struct {
	// Text is the natural-language query string.
	Text string

	// Types restricts which result groups are produced.
	// Empty means all of server, tool and agent.
	Types []EntityType

	// MaxResultsPerType truncates each result group.
	// Zero means DefaultMaxResultsPerType.
	MaxResultsPerType int
}

// WantsType reports whether the query asks for the given result group.
func (q *SearchQuery) WantsType(t EntityType) bool {
	if len(q.Types) == 0 {
		return true
	}
	for _, qt := range q.Types {
		if qt == t {
			return true
		}
	}
	return false
}

// Limit returns the effective per-type result limit.
func (q *SearchQuery) Limit() int {
	if q.MaxResultsPerType <= 0 {
		return DefaultMaxResultsPerType
	}
	return q.MaxResultsPerType
}

// MatchingTool is a lightweight view of a tool that matched the query,
// embedded in its server's hit. No schema is included.
type MatchingTool struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	RelevanceScore float32 `json:"relevance_score"`
}

// ServerHit is one matched server in a search response.
type ServerHit struct {
	Path           string         `json:"path"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Tags           []string       `json:"tags"`
	NumTools       int            `json:"num_tools"`
	Enabled        bool           `json:"enabled"`
	RelevanceScore float32        `json:"relevance_score"`
	MatchingTools  []MatchingTool `json:"matching_tools"`
}

// ToolHit is one matched tool in a search response, carrying the full tool
// record including its input schema.
type ToolHit struct {
	ServerPath     string          `json:"server_path"`
	ServerName     string          `json:"server_name"`
	ToolName       string          `json:"tool_name"`
	Description    string          `json:"description"`
	InputSchema    json.RawMessage `json:"input_schema,omitempty"`
	RelevanceScore float32         `json:"relevance_score"`
}

// AgentHit is one matched agent in a search response.
type AgentHit struct {
	Path           string   `json:"path"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Tags           []string `json:"tags"`
	Skills         []string `json:"skills"`
	Enabled        bool     `json:"enabled"`
	RelevanceScore float32  `json:"relevance_score"`
}

// SearchResponse is the grouped, ranked result of a search.
type SearchResponse struct {
	Query        string      `json:"query"`
	Servers      []ServerHit `json:"servers"`
	Tools        []ToolHit   `json:"tools"`
	Agents       []AgentHit  `json:"agents"`
	TotalServers int         `json:"total_servers"`
	TotalTools   int         `json:"total_tools"`
	TotalAgents  int         `json:"total_agents"`

	// Degraded is set when the embedding provider was unavailable and the
	// response was ranked by keyword matching only.
	Degraded bool `json:"degraded,omitempty"`
}
