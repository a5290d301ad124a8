package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaykit/orchestrate/internal/model"
)

func TestClassify_ReturnsEmptyOnNoMatch(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Classify("totally unrelated query text"))
}

func TestClassify_RanksByMatchCountThenSpecificity(t *testing.T) {
	r := NewRegistry()
	matches := r.Classify("kubernetes deploy pipeline terraform ci docker")
	assert.Equal(t, []string{"devops", "data"}, matches)
}

func TestClassifyOne_AmbiguousFallsBackToCommon(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, model.CommonDomain, r.ClassifyOne("pipeline"))
}

func TestClassifyOne_UnambiguousReturnsTheMatch(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, "finance", r.ClassifyOne("invoice reconciliation"))
}

func TestClassifyOne_NoMatchFallsBackToCommon(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, model.CommonDomain, r.ClassifyOne("totally unrelated query text"))
}

func TestDomains_MirrorsPrimaryAndCommon(t *testing.T) {
	assert.Equal(t, []string{model.CommonDomain}, Domains(model.CommonDomain))
	assert.Equal(t, []string{"devops", model.CommonDomain}, Domains("devops"))
}
