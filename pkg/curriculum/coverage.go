package curriculum

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/artem13815/curricula/pkg/logger"
	"github.com/artem13815/curricula/pkg/semindex"
)

const maxQueryKeywords = 3

// Checker classifies every topic as covered or not by querying both corpora
// of the content index and comparing the best similarity score against a
// fixed threshold. The threshold is the single source of truth for the
// covered/uncovered boundary.
type Checker struct {
	index       semindex.Searcher
	log         *logger.Logger
	resources   *ResourceCatalog
	threshold   float64
	topK        int
	concurrency int
}

func NewChecker(index semindex.Searcher, log *logger.Logger, resources *ResourceCatalog, threshold float64, topK, concurrency int) *Checker {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.75
	}
	if topK <= 0 {
		topK = 12
	}
	if concurrency <= 0 {
		concurrency = 6
	}
	if resources == nil {
		resources = DefaultResources()
	}
	return &Checker{
		index:       index,
		log:         log.With("component", "coverage"),
		resources:   resources,
		threshold:   threshold,
		topK:        topK,
		concurrency: concurrency,
	}
}

// namespaces in merge-preference order: on a score tie the curated corpus wins.
var namespaces = []string{semindex.NamespaceDocuments, semindex.NamespaceWeb}

// Check runs the coverage classification for one topic. It never fails: a
// query error degrades the topic to uncovered with zero confidence so one
// broken query cannot block the rest of the batch.
func (c *Checker) Check(ctx context.Context, topic TopicRequirement) CoverageResult {
	query := buildQuery(topic)

	var best *semindex.Match
	for _, ns := range namespaces {
		matches, err := c.index.Search(ctx, query, c.topK, ns)
		if err != nil {
			c.log.Warn("index query failed", "topic", topic.Name, "namespace", ns, "error", err)
			continue
		}
		for i := range matches {
			m := &matches[i]
			// strict greater-than keeps the earlier (curated) corpus on ties
			if best == nil || m.Score > best.Score {
				best = m
			}
		}
	}

	res := CoverageResult{Topic: topic}
	if best != nil {
		res.Confidence = best.Score
		res.Source = provenance(best.Metadata)
	}
	res.Covered = res.Confidence >= c.threshold
	if !res.Covered {
		res.ExternalResources = c.resources.Lookup(topic.Name)
	}
	return res
}

// CheckAll checks every topic of the hierarchy with bounded concurrency.
// Topics are independent reads; output order matches input order.
func (c *Checker) CheckAll(ctx context.Context, h TopicHierarchy) []CoverageResult {
	out := make([]CoverageResult, len(h.Topics))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, topic := range h.Topics {
		i, topic := i, topic
		g.Go(func() error {
			out[i] = c.Check(gctx, topic)
			return nil
		})
	}
	_ = g.Wait() // Check never returns an error

	covered := 0
	for _, r := range out {
		if r.Covered {
			covered++
		}
	}
	c.log.Info("coverage check finished", "topics", len(out), "covered", covered)
	return out
}

// buildQuery concatenates the topic name with a few keywords. The name leads
// so near-duplicate phrasings of the topic itself still dominate the match.
func buildQuery(topic TopicRequirement) string {
	parts := []string{topic.Name}
	for i, kw := range topic.Keywords {
		if i >= maxQueryKeywords {
			break
		}
		kw = strings.TrimSpace(kw)
		if kw == "" || strings.EqualFold(kw, topic.Name) {
			continue
		}
		parts = append(parts, kw)
	}
	return strings.Join(parts, " ")
}

// provenance builds the source label from match metadata; content indexed
// without source metadata surfaces as the literal "Unknown".
func provenance(meta map[string]string) string {
	src := strings.TrimSpace(meta["source"])
	if src == "" {
		return SourceUnknown
	}
	if ch := strings.TrimSpace(meta["chapter"]); ch != "" {
		return src + " / " + ch
	}
	return src
}
