package curriculum

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/curricula/pkg/logger"
	"github.com/artem13815/curricula/pkg/semindex"
)

// stubSearcher returns canned matches per (namespace, query-substring) pair.
type stubSearcher struct {
	docs    map[string][]semindex.Match // keyed by a substring of the query
	web     map[string][]semindex.Match
	failNS  string
	queries atomic.Int64
}

func (s *stubSearcher) Search(_ context.Context, query string, _ int, namespace string) ([]semindex.Match, error) {
	s.queries.Add(1)
	if namespace == s.failNS {
		return nil, errors.New("index timeout")
	}
	var table map[string][]semindex.Match
	switch namespace {
	case semindex.NamespaceDocuments:
		table = s.docs
	case semindex.NamespaceWeb:
		table = s.web
	}
	for sub, matches := range table {
		if strings.Contains(strings.ToLower(query), strings.ToLower(sub)) {
			return matches, nil
		}
	}
	return nil, nil
}

func newTestChecker(index semindex.Searcher) *Checker {
	return NewChecker(index, logger.NewNop(), DefaultResources(), 0.75, 12, 4)
}

func match(score float64, meta map[string]string) semindex.Match {
	return semindex.Match{ID: "m", Score: score, Metadata: meta}
}

func TestCheckQuantScenario(t *testing.T) {
	index := &stubSearcher{
		docs: map[string][]semindex.Match{
			"statistical modeling": {match(0.92, map[string]string{"source": "Statistics Handbook", "chapter": "Regression"})},
			"backtesting":          {match(0.3, map[string]string{"source": "Trading Notes"})},
		},
		web: map[string][]semindex.Match{},
	}
	c := newTestChecker(index)

	statRes := c.Check(context.Background(), TopicRequirement{Name: "statistical modeling", Tier: TierExplicit, Priority: PriorityHigh})
	require.True(t, statRes.Covered)
	assert.Equal(t, 0.92, statRes.Confidence)
	assert.Equal(t, "Statistics Handbook / Regression", statRes.Source)
	assert.Empty(t, statRes.ExternalResources)

	backRes := c.Check(context.Background(), TopicRequirement{Name: "backtesting", Tier: TierExplicit, Priority: PriorityHigh})
	require.False(t, backRes.Covered)
	assert.Equal(t, 0.3, backRes.Confidence)
	assert.NotEmpty(t, backRes.ExternalResources, "catalog has a backtesting entry")

	assert.Equal(t, 50, CoveragePercentage(1, 2))
}

func TestCheckPartitionLawAtThreshold(t *testing.T) {
	for score, wantCovered := range map[float64]bool{
		0.7499: false,
		0.75:   true, // exactly at threshold is covered
		0.7501: true,
	} {
		index := &stubSearcher{docs: map[string][]semindex.Match{
			"go": {match(score, map[string]string{"source": "s"})},
		}}
		res := newTestChecker(index).Check(context.Background(), TopicRequirement{Name: "go"})
		assert.Equal(t, wantCovered, res.Covered, "score %v", score)
		assert.Equal(t, res.Covered, res.Confidence >= 0.75, "partition law for %v", score)
	}
}

func TestCheckTieBreakPrefersCuratedCorpus(t *testing.T) {
	index := &stubSearcher{
		docs: map[string][]semindex.Match{"go": {match(0.8, map[string]string{"source": "Curated Book"})}},
		web:  map[string][]semindex.Match{"go": {match(0.8, map[string]string{"source": "Some Blog"})}},
	}
	res := newTestChecker(index).Check(context.Background(), TopicRequirement{Name: "go"})
	require.True(t, res.Covered)
	assert.Equal(t, "Curated Book", res.Source)
}

func TestCheckEmptyCorpora(t *testing.T) {
	index := &stubSearcher{}
	res := newTestChecker(index).Check(context.Background(), TopicRequirement{Name: "obscure topic"})
	assert.False(t, res.Covered)
	assert.Zero(t, res.Confidence)
	assert.Empty(t, res.Source)
}

func TestCheckMissingSourceMetadataIsUnknown(t *testing.T) {
	// Content indexed without source metadata surfaces as the literal
	// "Unknown"; this is expected output, not an error.
	index := &stubSearcher{docs: map[string][]semindex.Match{
		"go": {match(0.9, map[string]string{})},
	}}
	res := newTestChecker(index).Check(context.Background(), TopicRequirement{Name: "go"})
	require.True(t, res.Covered)
	assert.Equal(t, SourceUnknown, res.Source)
}

func TestCheckOneCorpusFailureDegrades(t *testing.T) {
	index := &stubSearcher{
		failNS: semindex.NamespaceDocuments,
		web:    map[string][]semindex.Match{"go": {match(0.85, map[string]string{"source": "web page"})}},
	}
	res := newTestChecker(index).Check(context.Background(), TopicRequirement{Name: "go"})
	require.True(t, res.Covered, "the surviving corpus still answers")
	assert.Equal(t, "web page", res.Source)
}

func TestCheckBothCorporaFailureDegradesTopic(t *testing.T) {
	res := newTestChecker(&totalFailureSearcher{}).Check(context.Background(), TopicRequirement{Name: "go"})
	assert.False(t, res.Covered)
	assert.Zero(t, res.Confidence)
}

type totalFailureSearcher struct{}

func (*totalFailureSearcher) Search(context.Context, string, int, string) ([]semindex.Match, error) {
	return nil, errors.New("index down")
}

func TestBuildQueryNameLeadsAndKeywordsCapped(t *testing.T) {
	q := buildQuery(TopicRequirement{
		Name:     "time-series forecasting",
		Keywords: []string{"ARIMA", "prophet", "seasonality", "trend", "lag"},
	})
	assert.True(t, strings.HasPrefix(q, "time-series forecasting"), "name must dominate the query")
	assert.Contains(t, q, "ARIMA")
	assert.Contains(t, q, "seasonality")
	assert.NotContains(t, q, "trend", "at most three keywords")
}

func TestCheckAllPreservesOrder(t *testing.T) {
	index := &stubSearcher{docs: map[string][]semindex.Match{
		"alpha": {match(0.9, map[string]string{"source": "a"})},
		"beta":  {match(0.1, nil)},
	}}
	c := newTestChecker(index)
	h := TopicHierarchy{Topics: []TopicRequirement{
		{Name: "alpha", Priority: PriorityHigh, Tier: TierExplicit},
		{Name: "beta", Priority: PriorityLow, Tier: TierExplicit},
		{Name: "gamma", Priority: PriorityLow, Tier: TierExplicit},
	}}

	out := c.CheckAll(context.Background(), h)
	require.Len(t, out, 3)
	assert.Equal(t, "alpha", out[0].Topic.Name)
	assert.True(t, out[0].Covered)
	assert.Equal(t, "beta", out[1].Topic.Name)
	assert.False(t, out[1].Covered)
	assert.Equal(t, "gamma", out[2].Topic.Name)
	assert.False(t, out[2].Covered)
	// two namespaces per topic
	assert.Equal(t, int64(6), index.queries.Load())
}
