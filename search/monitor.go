package search

import (
	"github.com/poiesic/capindex/core"
	"github.com/poiesic/capindex/index"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterVectorSearch(matches []index.Match)
	AfterKeywordScan(scanned int, matched int)
	DegradedToKeywordOnly(err error)
	Finish(response *core.SearchResponse)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                    {}
func (n *noopMonitor) AfterVectorSearch(_ []index.Match) {}
func (n *noopMonitor) AfterKeywordScan(_ int, _ int)     {}
func (n *noopMonitor) DegradedToKeywordOnly(_ error)     {}
func (n *noopMonitor) Finish(_ *core.SearchResponse)     {}
