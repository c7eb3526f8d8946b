package curriculum

import "github.com/artem13815/curricula/pkg/nlp"

// ResourceCatalog maps topic names to externally configured study-material
// suggestions for topics the index does not cover. Lookups are deterministic
// and cheap: no model call happens here.
type ResourceCatalog struct {
	entries map[string][]ExternalResource
}

func NewResourceCatalog(entries map[string][]ExternalResource) *ResourceCatalog {
	normalized := make(map[string][]ExternalResource, len(entries))
	for name, rs := range entries {
		normalized[nlp.NormalizeText(name)] = rs
	}
	return &ResourceCatalog{entries: normalized}
}

// Lookup returns the suggestions for a topic name, or nil when the catalog
// has no entry. Matching is done on the normalized name.
func (c *ResourceCatalog) Lookup(topicName string) []ExternalResource {
	return c.entries[nlp.NormalizeText(topicName)]
}

// DefaultResources is a small built-in table; extend as gaps show up in
// coverage reports.
func DefaultResources() *ResourceCatalog {
	return NewResourceCatalog(map[string][]ExternalResource{
		"statistical modeling": {
			{Type: "book", Name: "An Introduction to Statistical Learning", URL: "https://www.statlearning.com/"},
		},
		"backtesting": {
			{Type: "course", Name: "Quantitative Trading Strategies", URL: "https://www.coursera.org/learn/quantitative-trading"},
		},
		"kubernetes": {
			{Type: "docs", Name: "Kubernetes Documentation", URL: "https://kubernetes.io/docs/"},
		},
		"system design": {
			{Type: "book", Name: "Designing Data-Intensive Applications", URL: "https://dataintensive.net/"},
		},
		"sql": {
			{Type: "course", Name: "SQLBolt Interactive Lessons", URL: "https://sqlbolt.com/"},
		},
		"docker": {
			{Type: "docs", Name: "Docker Get Started Guide", URL: "https://docs.docker.com/get-started/"},
		},
	})
}
