package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/artem13815/curricula/pkg/nlp"
)

// Kind separates the two independently cached computation results. A hit on
// the hierarchy does not imply a hit on sequencing and vice versa.
type Kind string

const (
	KindAnalysis Kind = "analysis"
	KindSequence Kind = "sequence"
)

// RoleTemplate is a pre-defined job-description pattern used to maximize
// cache reuse across users targeting the same common role.
type RoleTemplate struct {
	ID   string
	Text string
}

// DefaultRoleTemplates covers the roles we see most often. The texts are
// matched against normalized job text, so phrasing/punctuation don't matter.
func DefaultRoleTemplates() []RoleTemplate {
	return []RoleTemplate{
		{ID: "backend-go", Text: "Backend engineer with Go, PostgreSQL and REST API experience"},
		{ID: "data-science", Text: "Data scientist with Python, machine learning and statistics"},
		{ID: "quant", Text: "Quantitative analyst with statistical modeling and backtesting skills"},
		{ID: "frontend-react", Text: "Frontend developer with React, TypeScript and CSS"},
	}
}

// KeyBuilder derives deterministic cache keys from job text.
//
// Rule (documented here because the choice only affects hit rate, not
// correctness): with the "auto" strategy the normalized job text is compared
// against the role templates first by exact match, then by whole-template
// containment; the first template in list order wins. Anything else — and
// everything under the "hash" strategy — keys on sha256 of the normalized
// text.
type KeyBuilder struct {
	strategy  string
	templates []norm
}

type norm struct {
	id   string
	text string // normalized template text
}

func NewKeyBuilder(strategy string, templates []RoleTemplate) *KeyBuilder {
	normed := make([]norm, 0, len(templates))
	for _, t := range templates {
		if nt := nlp.NormalizeText(t.Text); nt != "" {
			normed = append(normed, norm{id: t.ID, text: nt})
		}
	}
	return &KeyBuilder{strategy: strategy, templates: normed}
}

// Key returns the cache key for one computation kind over the given job text.
func (b *KeyBuilder) Key(kind Kind, jobText string) string {
	normalized := nlp.NormalizeText(jobText)
	if b.strategy != "hash" {
		for _, t := range b.templates {
			if normalized == t.text {
				return string(kind) + ":tpl:" + t.id
			}
		}
		for _, t := range b.templates {
			if nlp.ContainsPhrase(normalized, t.text) {
				return string(kind) + ":tpl:" + t.id
			}
		}
	}
	sum := sha256.Sum256([]byte(normalized))
	return string(kind) + ":sha:" + hex.EncodeToString(sum[:])
}
