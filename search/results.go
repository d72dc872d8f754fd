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


package search

import (
	"encoding/json"
	"slices"

	"github.com/poiesic/capindex/core"
)

// buildResponse groups merged hits by entity type, sorts each group by
// relevance descending with ties broken by ascending path, and truncates
// each group to the query's per-type limit. The same ordering decides
// which hit is dropped when equal scores meet the truncation boundary.
// Totals count all matches before truncation.
func buildResponse(query core.SearchQuery, hits []scoredHit, degraded bool) *core.SearchResponse {
	slices.SortFunc(hits, compareHits)

	var serverHits, agentHits []scoredHit
	for _, hit := range hits {
		switch hit.doc.Type {
		case core.EntityTypeServer:
			serverHits = append(serverHits, hit)
		case core.EntityTypeAgent:
			agentHits = append(agentHits, hit)
		}
	}

	limit := query.Limit()
	response := &core.SearchResponse{
		Query:    query.Text,
		Servers:  []core.ServerHit{},
		Tools:    []core.ToolHit{},
		Agents:   []core.AgentHit{},
		Degraded: degraded,
	}

	if query.WantsType(core.EntityTypeServer) {
		response.TotalServers = len(serverHits)
		for _, hit := range truncate(serverHits, limit) {
			response.Servers = append(response.Servers, makeServerHit(hit))
		}
	}

	if query.WantsType(core.EntityTypeTool) {
		tools := collectTools(serverHits)
		response.TotalTools = len(tools)
		response.Tools = truncate(tools, limit)
	}

	if query.WantsType(core.EntityTypeAgent) {
		response.TotalAgents = len(agentHits)
		for _, hit := range truncate(agentHits, limit) {
			response.Agents = append(response.Agents, makeAgentHit(hit))
		}
	}

	return response
}

func compareHits(a, b scoredHit) int {
	if a.relevance > b.relevance {
		return -1
	}
	if a.relevance < b.relevance {
		return 1
	}
	if a.doc.Path < b.doc.Path {
		return -1
	}
	if a.doc.Path > b.doc.Path {
		return 1
	}
	return 0
}

func truncate[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func makeServerHit(hit scoredHit) core.ServerHit {
	matching := make([]core.MatchingTool, 0, len(hit.matched))
	for _, name := range hit.matched {
		if tool := findTool(hit.doc, name); tool != nil {
			matching = append(matching, core.MatchingTool{
				Name:           tool.Name,
				Description:    tool.Description,
				RelevanceScore: hit.relevance,
			})
		}
	}

	return core.ServerHit{
		Path:           hit.doc.Path,
		Name:           hit.doc.Name,
		Description:    hit.doc.Description,
		Tags:           hit.doc.Tags,
		NumTools:       len(hit.doc.Tools),
		Enabled:        hit.doc.Enabled,
		RelevanceScore: hit.relevance,
		MatchingTools:  matching,
	}
}

func makeAgentHit(hit scoredHit) core.AgentHit {
	skills := make([]string, 0, len(hit.doc.Skills))
	for _, skill := range hit.doc.Skills {
		skills = append(skills, skill.Name)
	}

	return core.AgentHit{
		Path:           hit.doc.Path,
		Name:           hit.doc.Name,
		Description:    hit.doc.Description,
		Tags:           hit.doc.Tags,
		Skills:         skills,
		Enabled:        hit.doc.Enabled,
		RelevanceScore: hit.relevance,
	}
}

// collectTools flattens every matched tool across all matched servers
// into full tool records, deduplicated by (server path, tool name). A
// tool's relevance is its parent server's.
func collectTools(serverHits []scoredHit) []core.ToolHit {
	type toolKey struct {
		path string
		name string
	}
	seen := make(map[toolKey]bool)

	var tools []core.ToolHit
	for _, hit := range serverHits {
		for _, name := range hit.matched {
			key := toolKey{path: hit.doc.Path, name: name}
			if seen[key] {
				continue
			}
			seen[key] = true

			tool := findTool(hit.doc, name)
			if tool == nil {
				continue
			}
			toolHit := core.ToolHit{
				ServerPath:     hit.doc.Path,
				ServerName:     hit.doc.Name,
				ToolName:       tool.Name,
				Description:    tool.Description,
				RelevanceScore: hit.relevance,
			}
			if tool.InputSchema != "" {
				toolHit.InputSchema = json.RawMessage(tool.InputSchema)
			}
			tools = append(tools, toolHit)
		}
	}

	slices.SortFunc(tools, func(a, b core.ToolHit) int {
		if a.RelevanceScore > b.RelevanceScore {
			return -1
		}
		if a.RelevanceScore < b.RelevanceScore {
			return 1
		}
		if a.ServerPath != b.ServerPath {
			if a.ServerPath < b.ServerPath {
				return -1
			}
			return 1
		}
		if a.ToolName < b.ToolName {
			return -1
		}
		if a.ToolName > b.ToolName {
			return 1
		}
		return 0
	})

	return tools
}

func findTool(doc *core.Document, name string) *core.Tool {
	for i := range doc.Tools {
		if doc.Tools[i].Name == name {
			return &doc.Tools[i]
		}
	}
	return nil
}
