package semindex

import "context"

// Namespaces of the content index. The index is partitioned into independent
// corpora that are queried separately and merged by the caller.
const (
	NamespaceDocuments = "documents" // curated source documents
	NamespaceWeb       = "web"       // crawled web pages
)

// Match is a single ranked passage returned by the index.
type Match struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"` // normalized to [0,1]
	Metadata map[string]string `json:"metadata"`
}

// Searcher is the read-only port to the semantic content index. The engine
// never writes to the index.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, namespace string) ([]Match, error)
}
