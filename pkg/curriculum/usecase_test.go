package curriculum

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/curricula/pkg/cache"
	"github.com/artem13815/curricula/pkg/logger"
	"github.com/artem13815/curricula/pkg/semindex"
)

// routingChat dispatches scripted replies to the analyzer and the sequencer
// by their system prompts, counting calls per role.
type routingChat struct {
	mu              sync.Mutex
	analysisCalls   int
	sequenceCalls   int
	analysisReplies []string
	sequenceReplies []string
}

func (r *routingChat) Ask(_ context.Context, system, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if strings.Contains(system, "analyst") {
		i := r.analysisCalls
		r.analysisCalls++
		if i >= len(r.analysisReplies) {
			i = len(r.analysisReplies) - 1
		}
		return r.analysisReplies[i], nil
	}
	i := r.sequenceCalls
	r.sequenceCalls++
	if i >= len(r.sequenceReplies) {
		i = len(r.sequenceReplies) - 1
	}
	return r.sequenceReplies[i], nil
}

// memRepo is an in-memory Repository keeping one path per user.
type memRepo struct {
	mu      sync.Mutex
	paths   map[uuid.UUID]LearningPath
	upserts int
}

func newMemRepo() *memRepo { return &memRepo{paths: make(map[uuid.UUID]LearningPath)} }

func (r *memRepo) Upsert(_ context.Context, p LearningPath) (LearningPath, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	r.paths[p.UserID] = p
	return p, nil
}

func (r *memRepo) GetByUser(_ context.Context, userID uuid.UUID) (LearningPath, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.paths[userID]
	if !ok {
		return LearningPath{}, ErrNotFound
	}
	return p, nil
}

const quantAnalysisJSON = `{"roleLabel":"Quantitative Analyst","topics":[
	{"name":"statistical modeling","tier":"EXPLICIT","priority":"HIGH","keywords":["regression"]},
	{"name":"backtesting","tier":"EXPLICIT","priority":"HIGH","keywords":["strategy testing"]}
]}`

const quantSequenceJSON = `{"stages":[{"name":"Modeling Core","topics":[
	{"name":"statistical modeling","rationale":"the covered requirement"}]}]}`

func quantIndex() *stubSearcher {
	return &stubSearcher{
		docs: map[string][]semindex.Match{
			"statistical modeling": {match(0.92, map[string]string{"source": "Statistics Handbook"})},
			"backtesting":          {match(0.3, map[string]string{"source": "Trading Notes"})},
		},
	}
}

func newTestService(chat *routingChat, index semindex.Searcher, repo Repository) UseCase {
	nop := logger.NewNop()
	analyzer := NewAnalyzer(chat, nop, 5, 1)
	analyzer.backoffBase = time.Millisecond
	checker := NewChecker(index, nop, DefaultResources(), 0.75, 12, 4)
	sequencer := NewSequencer(chat, nop, 1)
	sequencer.backoffBase = time.Millisecond
	resultCache := cache.New(cache.NewMemoryStore(), nop)
	keys := cache.NewKeyBuilder("auto", cache.DefaultRoleTemplates())
	return NewService(analyzer, checker, sequencer, resultCache, keys, repo, nop)
}

func TestGenerateQuantScenario(t *testing.T) {
	chat := &routingChat{
		analysisReplies: []string{quantAnalysisJSON},
		sequenceReplies: []string{quantSequenceJSON},
	}
	repo := newMemRepo()
	svc := newTestService(chat, quantIndex(), repo)
	userID := uuid.New()

	path, err := svc.Generate(context.Background(), userID, "Seeking a quant with statistical modeling and backtesting skills")
	require.NoError(t, err)

	assert.Equal(t, StateComplete, path.State)
	assert.Equal(t, "Quantitative Analyst", path.RoleLabel)
	assert.Equal(t, 50, path.CoveragePercentage)
	assert.True(t, path.SequencedByModel)
	assert.NotEmpty(t, path.JobTextHash)

	require.Len(t, path.Coverage, 2)
	stat, back := path.Coverage[0], path.Coverage[1]
	assert.True(t, stat.Covered)
	assert.Equal(t, 0.92, stat.Confidence)
	assert.False(t, back.Covered)
	assert.Equal(t, 0.3, back.Confidence)
	assert.NotEmpty(t, back.ExternalResources)

	// only the covered topic is staged
	require.Len(t, path.Stages, 1)
	require.Len(t, path.Stages[0].Topics, 1)
	assert.Equal(t, "statistical modeling", path.Stages[0].Topics[0].Name)
	assert.Equal(t, 1, path.Stages[0].SequenceIndex)

	// persisted and retrievable
	stored, err := svc.GetForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, path.ID, stored.ID)
}

func TestGenerateEmptyJobText(t *testing.T) {
	chat := &routingChat{analysisReplies: []string{quantAnalysisJSON}, sequenceReplies: []string{quantSequenceJSON}}
	repo := newMemRepo()
	svc := newTestService(chat, quantIndex(), repo)

	_, err := svc.Generate(context.Background(), uuid.New(), "")
	require.ErrorIs(t, err, ErrInsufficientInput)
	assert.Zero(t, repo.upserts, "no path is persisted on invalid input")
	assert.Zero(t, chat.analysisCalls)
}

func TestGenerateCachesModelCalls(t *testing.T) {
	chat := &routingChat{
		analysisReplies: []string{quantAnalysisJSON},
		sequenceReplies: []string{quantSequenceJSON},
	}
	repo := newMemRepo()
	svc := newTestService(chat, quantIndex(), repo)
	jobText := "Seeking a quant with statistical modeling and backtesting skills"

	_, err := svc.Generate(context.Background(), uuid.New(), jobText)
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), uuid.New(), jobText)
	require.NoError(t, err)

	assert.Equal(t, 1, chat.analysisCalls, "hierarchy served from cache on the second request")
	assert.Equal(t, 1, chat.sequenceCalls, "stages served from cache on the second request")
	assert.Equal(t, 2, repo.upserts, "each user still gets their own path")
}

func TestGenerateSequencerFallback(t *testing.T) {
	// The sequencer keeps dropping the covered topic; the deterministic
	// fallback must still deliver a complete path.
	chat := &routingChat{
		analysisReplies: []string{quantAnalysisJSON},
		sequenceReplies: []string{`{"stages":[]}`},
	}
	repo := newMemRepo()
	svc := newTestService(chat, quantIndex(), repo)

	path, err := svc.Generate(context.Background(), uuid.New(), "Hiring a quantitative researcher for statistical modeling work")
	require.NoError(t, err)
	assert.Equal(t, StateComplete, path.State)
	assert.False(t, path.SequencedByModel)
	require.Len(t, path.Stages, 1)
	require.Len(t, path.Stages[0].Topics, 1)
	assert.Equal(t, "statistical modeling", path.Stages[0].Topics[0].Name)
}

func TestGenerateZeroCoverage(t *testing.T) {
	chat := &routingChat{
		analysisReplies: []string{quantAnalysisJSON},
		sequenceReplies: []string{quantSequenceJSON},
	}
	repo := newMemRepo()
	empty := &stubSearcher{} // both corpora return nothing
	svc := newTestService(chat, empty, repo)

	path, err := svc.Generate(context.Background(), uuid.New(), "Seeking a quant with statistical modeling and backtesting skills")
	require.NoError(t, err, "zero coverage still completes the pipeline")
	assert.Equal(t, StateComplete, path.State)
	assert.Equal(t, 0, path.CoveragePercentage)
	assert.Empty(t, path.Stages)
	assert.Zero(t, chat.sequenceCalls, "nothing to sequence")
}

func TestGenerateAnalysisFailureAborts(t *testing.T) {
	garbage := "I cannot produce JSON today"
	chat := &routingChat{
		analysisReplies: []string{garbage, garbage},
		sequenceReplies: []string{quantSequenceJSON},
	}
	repo := newMemRepo()
	svc := newTestService(chat, quantIndex(), repo)

	_, err := svc.Generate(context.Background(), uuid.New(), "Seeking a quant with statistical modeling and backtesting skills")
	require.ErrorIs(t, err, ErrAnalysisContract)
	assert.Zero(t, repo.upserts)
}

func TestCoveragePercentageArithmetic(t *testing.T) {
	assert.Equal(t, 0, CoveragePercentage(0, 0), "empty hierarchy is a defined 0%")
	assert.Equal(t, 0, CoveragePercentage(0, 4))
	assert.Equal(t, 50, CoveragePercentage(1, 2))
	assert.Equal(t, 33, CoveragePercentage(1, 3))
	assert.Equal(t, 67, CoveragePercentage(2, 3))
	assert.Equal(t, 100, CoveragePercentage(5, 5))
}
