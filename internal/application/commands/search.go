package commands

import (
	"context"

	"github.com/sahilm/fuzzy"

	"catalogtree/internal/application"
)

// SearchResult is a loaded node matching a query
type SearchResult struct {
	Node           *application.Node
	Score          int
	MatchedIndexes []int
}

// SearchCommand fuzzy matches the names of every loaded node. Nothing is
// fetched; unexplored parts of the tree are not searched.
type SearchCommand struct {
	model *application.LazyTreeModel
	Query string
}

// NewSearchCommand creates a new SearchCommand
func NewSearchCommand(model *application.LazyTreeModel, query string) *SearchCommand {
	return &SearchCommand{
		model: model,
		Query: query,
	}
}

// Execute returns matches, best first
func (c *SearchCommand) Execute(ctx context.Context) ([]SearchResult, error) {
	if c.Query == "" {
		return nil, nil
	}
	return FuzzyFilter(c.model.Root(), c.Query), nil
}

// nodeSource adapts loaded nodes to fuzzy.Source
type nodeSource []*application.Node

func (s nodeSource) String(i int) string { return s[i].Name }
func (s nodeSource) Len() int            { return len(s) }

// FuzzyFilter matches query against the names of the data nodes under root.
func FuzzyFilter(root *application.Node, query string) []SearchResult {
	var nodes nodeSource
	root.Walk(func(n *application.Node) bool {
		if n != root && !n.Sentinel {
			nodes = append(nodes, n)
		}
		return true
	})

	matches := fuzzy.FindFrom(query, nodes)
	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, SearchResult{
			Node:           nodes[m.Index],
			Score:          m.Score,
			MatchedIndexes: m.MatchedIndexes,
		})
	}
	return results
}
