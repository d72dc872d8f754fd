package search

import (
	"regexp"
	"strings"

	"github.com/poiesic/capindex/core"
)

// Boost weights, additive per matched location. A token matching a
// location counts that location once no matter how many tokens hit it;
// each tool or skill is its own location.
const (
	pathBoost        = 5.0
	nameBoost        = 3.0
	descriptionBoost = 2.0
	tagBoost         = 1.5
	toolSkillBoost   = 1.0
)

const minTokenLength = 3

// Stop words filtered out of query tokens
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

var nonWord = regexp.MustCompile(`\W+`)

// tokenize splits query text on non-word characters, lowercases, and
// drops stop words and tokens shorter than three characters.
func tokenize(text string) []string {
	words := nonWord.Split(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) < minTokenLength || stopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// textMatch is the keyword matcher's verdict for one document.
type textMatch struct {
	boost float32
	// matched holds the names of tools (servers) or skills (agents)
	// that contained a query token, in document order.
	matched []string
}

// matchDocument computes the additive keyword boost for a document.
// A document with no token hits gets a zero boost.
func matchDocument(tokens []string, doc *core.Document) textMatch {
	var m textMatch
	if len(tokens) == 0 {
		return m
	}

	if containsAny(doc.Path, tokens) {
		m.boost += pathBoost
	}
	if containsAny(doc.Name, tokens) {
		m.boost += nameBoost
	}
	if containsAny(doc.Description, tokens) {
		m.boost += descriptionBoost
	}
	for _, tag := range doc.Tags {
		if containsAny(tag, tokens) {
			m.boost += tagBoost
			break
		}
	}

	switch doc.Type {
	case core.EntityTypeServer:
		for _, tool := range doc.Tools {
			if containsAny(tool.Name, tokens) || containsAny(tool.Description, tokens) {
				m.boost += toolSkillBoost
				m.matched = append(m.matched, tool.Name)
			}
		}
	case core.EntityTypeAgent:
		for _, skill := range doc.Skills {
			if containsAny(skill.Name, tokens) || containsAny(skill.Description, tokens) {
				m.boost += toolSkillBoost
				m.matched = append(m.matched, skill.Name)
			}
		}
	}

	return m
}

// containsAny reports whether any token appears as a substring of the
// field, case-insensitively.
func containsAny(field string, tokens []string) bool {
	if field == "" {
		return false
	}
	lowered := strings.ToLower(field)
	for _, token := range tokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}
