package curriculum

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tier tells whether a topic was named in the job text or inferred for the role.
type Tier string

const (
	TierExplicit Tier = "EXPLICIT"
	TierImplicit Tier = "IMPLICIT"
)

// Priority of a topic within the hierarchy.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// ValidPriority reports whether p belongs to the closed enum.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// TopicRequirement is one row of the hierarchy produced by the analyzer.
// Keywords only broaden retrieval; identity is the case-insensitive name.
type TopicRequirement struct {
	Name          string   `json:"name"`
	Tier          Tier     `json:"tier"`
	Priority      Priority `json:"priority"`
	Keywords      []string `json:"keywords"`
	Justification string   `json:"justification"`
}

// TopicHierarchy is the validated analyzer output for one job posting.
type TopicHierarchy struct {
	RoleLabel string             `json:"roleLabel"`
	Topics    []TopicRequirement `json:"topics"`
}

// ExternalResource is a deterministic study suggestion for an uncovered topic.
type ExternalResource struct {
	Type string `json:"type"` // book, course, docs
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SourceUnknown is surfaced when the best-scoring passage carries no source
// metadata. The index contains such content; we report it as-is instead of
// inventing provenance.
const SourceUnknown = "Unknown"

// CoverageResult is a topic after the coverage check.
// Invariant: Covered == (Confidence >= threshold), and Covered implies a
// non-empty Source (possibly SourceUnknown).
type CoverageResult struct {
	Topic             TopicRequirement   `json:"topic"`
	Covered           bool               `json:"covered"`
	Confidence        float64            `json:"confidence"`
	Source            string             `json:"source"`
	ExternalResources []ExternalResource `json:"externalResources,omitempty"`
}

// StageTopic is one covered topic placed into a stage, with the model's
// rationale for putting it there.
type StageTopic struct {
	Name      string `json:"name"`
	Rationale string `json:"rationale"`
}

// LearningStage is an ordered grouping of covered topics.
type LearningStage struct {
	Name             string       `json:"name"`
	SequenceIndex    int          `json:"sequenceIndex"` // 1-based, contiguous
	DurationEstimate string       `json:"durationEstimate,omitempty"`
	Topics           []StageTopic `json:"topics"`
}

// PathState is the lifecycle of one generation request.
type PathState string

const (
	StatePending          PathState = "PENDING"
	StateAnalyzing        PathState = "ANALYZING"
	StateCheckingCoverage PathState = "CHECKING_COVERAGE"
	StateSequencing       PathState = "SEQUENCING"
	StateComplete         PathState = "COMPLETE"
	StateFailed           PathState = "FAILED"
)

// LearningPath is the persisted aggregate: one active path per user.
type LearningPath struct {
	ID                 uuid.UUID        `json:"id"`
	UserID             uuid.UUID        `json:"userId"`
	JobTextHash        string           `json:"jobTextHash"`
	RoleLabel          string           `json:"roleLabel"`
	State              PathState        `json:"state"`
	Stages             []LearningStage  `json:"stages"`
	Coverage           []CoverageResult `json:"coverage"`
	CoveragePercentage int              `json:"coveragePercentage"`
	SequencedByModel   bool             `json:"sequencedByModel"` // false when the deterministic fallback grouped the stages
	CreatedAt          time.Time        `json:"createdAt"`
}

// Repository is the persistence port for learning paths.
type Repository interface {
	Upsert(ctx context.Context, p LearningPath) (LearningPath, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (LearningPath, error)
}
