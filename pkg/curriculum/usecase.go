package curriculum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artem13815/curricula/pkg/cache"
	"github.com/artem13815/curricula/pkg/logger"
	"github.com/artem13815/curricula/pkg/nlp"
)

// UseCase — generation and retrieval of personalized learning paths.
type UseCase interface {
	Generate(ctx context.Context, userID uuid.UUID, jobText string) (LearningPath, error)
	GetForUser(ctx context.Context, userID uuid.UUID) (LearningPath, error)
}

type service struct {
	analyzer  *Analyzer
	checker   *Checker
	sequencer *Sequencer
	cache     *cache.Cache
	keys      *cache.KeyBuilder
	repo      Repository
	log       *logger.Logger
}

func NewService(analyzer *Analyzer, checker *Checker, sequencer *Sequencer, resultCache *cache.Cache, keys *cache.KeyBuilder, repo Repository, log *logger.Logger) UseCase {
	return &service{
		analyzer:  analyzer,
		checker:   checker,
		sequencer: sequencer,
		cache:     resultCache,
		keys:      keys,
		repo:      repo,
		log:       log.With("component", "learning_path"),
	}
}

// sequencePayload is what the sequence cache stores: the stages plus whether
// the deterministic fallback produced them.
type sequencePayload struct {
	Stages       []LearningStage `json:"stages"`
	FallbackUsed bool            `json:"fallbackUsed"`
}

// Generate runs the full pipeline:
// PENDING → ANALYZING → CHECKING_COVERAGE → SEQUENCING → COMPLETE.
// The caller receives either a complete path (possibly with 0% coverage) or a
// typed error — never a partially populated record.
func (s *service) Generate(ctx context.Context, userID uuid.UUID, jobText string) (LearningPath, error) {
	trimmed := strings.TrimSpace(jobText)
	if len(trimmed) < minJobTextLen {
		return LearningPath{}, fmt.Errorf("%w: got %d characters", ErrInsufficientInput, len(trimmed))
	}

	log := s.log.With("user_id", userID.String())
	log.Info("state transition", "state", StateAnalyzing)

	hierarchy, err := s.analyzeCached(ctx, trimmed)
	if err != nil {
		// No meaningful path can be built without topics; abort.
		log.Warn("state transition", "state", StateFailed, "error", err)
		return LearningPath{}, err
	}

	log.Info("state transition", "state", StateCheckingCoverage, "topics", len(hierarchy.Topics))
	coverage := s.checker.CheckAll(ctx, hierarchy)

	covered := make([]CoverageResult, 0, len(coverage))
	for _, r := range coverage {
		if r.Covered {
			covered = append(covered, r)
		}
	}

	log.Info("state transition", "state", StateSequencing, "covered", len(covered))
	seq, err := s.sequenceCached(ctx, trimmed, covered)
	if err != nil {
		log.Warn("state transition", "state", StateFailed, "error", err)
		return LearningPath{}, err
	}
	if seq.FallbackUsed {
		// Recoverable condition: the user still gets a complete, correct path.
		log.Warn("sequencing fallback used", "covered", len(covered))
	}

	path := LearningPath{
		ID:                 uuid.New(),
		UserID:             userID,
		JobTextHash:        hashJobText(trimmed),
		RoleLabel:          hierarchy.RoleLabel,
		State:              StateComplete,
		Stages:             seq.Stages,
		Coverage:           coverage,
		CoveragePercentage: CoveragePercentage(len(covered), len(coverage)),
		SequencedByModel:   !seq.FallbackUsed,
		CreatedAt:          time.Now().UTC(),
	}
	out, err := s.repo.Upsert(ctx, path)
	if err != nil {
		return LearningPath{}, fmt.Errorf("persist learning path: %w", err)
	}
	log.Info("state transition", "state", StateComplete, "coverage_pct", out.CoveragePercentage)
	return out, nil
}

func (s *service) GetForUser(ctx context.Context, userID uuid.UUID) (LearningPath, error) {
	return s.repo.GetByUser(ctx, userID)
}

// analyzeCached wraps the analyzer call with the result cache so repeated
// requests for the same job profile don't re-invoke the model.
func (s *service) analyzeCached(ctx context.Context, jobText string) (TopicHierarchy, error) {
	key := s.keys.Key(cache.KindAnalysis, jobText)
	payload, err := s.cache.GetOrCompute(ctx, key, cache.KindAnalysis, func(ctx context.Context) ([]byte, error) {
		h, err := s.analyzer.Analyze(ctx, jobText)
		if err != nil {
			return nil, err
		}
		return json.Marshal(h)
	})
	if err != nil {
		return TopicHierarchy{}, err
	}
	var h TopicHierarchy
	if err := json.Unmarshal(payload, &h); err != nil {
		return TopicHierarchy{}, fmt.Errorf("decode cached hierarchy: %w", err)
	}
	return h, nil
}

// sequenceCached caches the stage list under its own key space, independent
// of the hierarchy cache.
func (s *service) sequenceCached(ctx context.Context, jobText string, covered []CoverageResult) (sequencePayload, error) {
	key := s.keys.Key(cache.KindSequence, jobText)
	payload, err := s.cache.GetOrCompute(ctx, key, cache.KindSequence, func(ctx context.Context) ([]byte, error) {
		stages, fallbackUsed, err := s.sequencer.Sequence(ctx, covered)
		if err != nil {
			return nil, err
		}
		return json.Marshal(sequencePayload{Stages: stages, FallbackUsed: fallbackUsed})
	})
	if err != nil {
		return sequencePayload{}, err
	}
	var sp sequencePayload
	if err := json.Unmarshal(payload, &sp); err != nil {
		return sequencePayload{}, fmt.Errorf("decode cached stages: %w", err)
	}
	if sp.Stages == nil {
		sp.Stages = []LearningStage{}
	}
	return sp, nil
}

// CoveragePercentage rounds 100*covered/total to the nearest integer; an
// empty hierarchy is a defined 0%, not a division error.
func CoveragePercentage(covered, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(covered) / float64(total)))
}

func hashJobText(jobText string) string {
	sum := sha256.Sum256([]byte(nlp.NormalizeText(jobText)))
	return hex.EncodeToString(sum[:])
}
