package search

import (
	"testing"

	"github.com/poiesic/capindex/core"
	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  []string
	}{
		{
			name: "lowercases and splits on non-word characters",
			text: "Weather-API forecast_data, please!",
			want: []string{"weather", "api", "forecast_data", "please"},
		},
		{
			name: "drops stop words",
			text: "the weather is from the coast",
			want: []string{"weather", "coast"},
		},
		{
			name: "drops tokens shorter than three characters",
			text: "go to io db query",
			want: []string{"query"},
		},
		{
			name: "only stop words and short tokens",
			text: "is a to it",
			want: []string{},
		},
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenize(tt.text))
		})
	}
}

func TestMatchDocumentBoosts(t *testing.T) {
	server := &core.Document{
		Path:        "com.context7/docs",
		Type:        core.EntityTypeServer,
		Name:        "context7",
		Description: "documentation search",
		Tags:        []string{"docs", "reference"},
		Tools: []core.Tool{
			{Name: "query-docs", Description: "search library documentation"},
			{Name: "resolve-library", Description: "resolve a library id"},
		},
	}

	t.Run("path and name match", func(t *testing.T) {
		m := matchDocument(tokenize("context7"), server)
		assert.InDelta(t, 5.0+3.0, m.boost, 1e-6)
		assert.Empty(t, m.matched)
	})

	t.Run("description tag and tools match", func(t *testing.T) {
		// "docs" hits path, tag, and the first tool; "documentation"
		// hits the description. Each location counts once.
		m := matchDocument(tokenize("documentation docs"), server)
		assert.InDelta(t, 5.0+2.0+1.5+1.0, m.boost, 1e-6)
		assert.Equal(t, []string{"query-docs"}, m.matched)
	})

	t.Run("each matched location counts once across tokens", func(t *testing.T) {
		m := matchDocument(tokenize("context7 context7 context7"), server)
		assert.InDelta(t, 5.0+3.0, m.boost, 1e-6)
	})

	t.Run("no match", func(t *testing.T) {
		m := matchDocument(tokenize("weather forecast"), server)
		assert.Zero(t, m.boost)
		assert.Empty(t, m.matched)
	})

	t.Run("no tokens", func(t *testing.T) {
		m := matchDocument(nil, server)
		assert.Zero(t, m.boost)
	})
}

func TestMatchDocumentAgentSkills(t *testing.T) {
	agent := &core.Document{
		Path:        "io.agents/researcher",
		Type:        core.EntityTypeAgent,
		Name:        "researcher",
		Description: "autonomous research assistant",
		Skills: []core.Skill{
			{Name: "web_search", Description: "search the web"},
			{Name: "summarize", Description: "summarize findings"},
		},
	}

	// "search" is a substring of "researcher", so path, name, and
	// description all hit, plus one skill
	m := matchDocument(tokenize("search"), agent)
	assert.InDelta(t, 5.0+3.0+2.0+1.0, m.boost, 1e-6)
	assert.Equal(t, []string{"web_search"}, m.matched)

	m = matchDocument(tokenize("summarize"), agent)
	assert.InDelta(t, 1.0, m.boost, 1e-6)
	assert.Equal(t, []string{"summarize"}, m.matched)
}
