package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTemplates() []RoleTemplate {
	return []RoleTemplate{
		{ID: "backend-go", Text: "Backend engineer with Go, PostgreSQL and REST API experience"},
		{ID: "quant", Text: "Quantitative analyst with statistical modeling and backtesting skills"},
	}
}

func TestKeyExactTemplateMatch(t *testing.T) {
	b := NewKeyBuilder("auto", testTemplates())

	// Same text, different casing and punctuation.
	key := b.Key(KindAnalysis, "BACKEND ENGINEER, with go... PostgreSQL and REST-API experience!")
	assert.Equal(t, "analysis:tpl:backend-go", key)
}

func TestKeyTemplateContainment(t *testing.T) {
	b := NewKeyBuilder("auto", testTemplates())

	jobText := "Our fintech team is hiring! Quantitative analyst with statistical modeling and backtesting skills, remote friendly."
	key := b.Key(KindAnalysis, jobText)
	assert.Equal(t, "analysis:tpl:quant", key)
}

func TestKeyHashFallback(t *testing.T) {
	b := NewKeyBuilder("auto", testTemplates())

	key := b.Key(KindAnalysis, "Looking for a COBOL archaeologist")
	require.True(t, strings.HasPrefix(key, "analysis:sha:"), "key %q", key)

	// Whitespace/case variations hash to the same key.
	same := b.Key(KindAnalysis, "  looking FOR a (cobol) archaeologist  ")
	assert.Equal(t, key, same)

	other := b.Key(KindAnalysis, "Looking for a Fortran archaeologist")
	assert.NotEqual(t, key, other)
}

func TestKeyKindsAreIndependent(t *testing.T) {
	b := NewKeyBuilder("auto", testTemplates())

	jobText := "Looking for a COBOL archaeologist"
	analysisKey := b.Key(KindAnalysis, jobText)
	sequenceKey := b.Key(KindSequence, jobText)
	assert.NotEqual(t, analysisKey, sequenceKey)
	assert.True(t, strings.HasPrefix(sequenceKey, "sequence:"))
}

func TestKeyHashStrategyIgnoresTemplates(t *testing.T) {
	b := NewKeyBuilder("hash", testTemplates())

	key := b.Key(KindAnalysis, testTemplates()[0].Text)
	assert.True(t, strings.HasPrefix(key, "analysis:sha:"), "key %q", key)
}
