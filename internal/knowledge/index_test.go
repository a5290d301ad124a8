package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaykit/orchestrate/internal/domain"
	"github.com/relaykit/orchestrate/internal/model"
)

func TestIndex_MetadataBlobExcludesBody(t *testing.T) {
	doc := &model.KnowledgeDocument{
		Title:   "deploy pipeline",
		Summary: "how to deploy",
		Body:    "this body text should never be embedded",
	}
	blob := doc.MetadataBlob(0)
	assert.NotContains(t, blob, "should never be embedded")
}

func TestIndex_SearchRanksExactMatchHigher(t *testing.T) {
	registry := domain.NewRegistry()
	idx := New(NewHashingEmbedder(64), registry)

	idx.Index(&model.KnowledgeDocument{ID: "doc-1", Title: "kubernetes deploy pipeline", Domain: "devops", Summary: "deploy steps"})
	idx.Index(&model.KnowledgeDocument{ID: "doc-2", Title: "unrelated billing invoice", Domain: "finance", Summary: "invoice reconciliation"})

	hits := idx.Search("kubernetes deploy", model.CommonDomain, 5, 0)
	assert.NotEmpty(t, hits)
	assert.Equal(t, "doc-1", hits[0].DocumentID)
}

func TestIndex_DocumentMirroredIntoCommonCollection(t *testing.T) {
	registry := domain.NewRegistry()
	idx := New(NewHashingEmbedder(64), registry)
	idx.Index(&model.KnowledgeDocument{ID: "doc-1", Title: "deploy pipeline", Domain: "devops"})

	hits := idx.Search("deploy", model.CommonDomain, 5, 0)
	assert.Len(t, hits, 1)

	hits = idx.Search("deploy", "devops", 5, 0)
	assert.Len(t, hits, 1)
}

func TestIndex_ExplicitDomainRoutesToDomainAndCommon(t *testing.T) {
	registry := domain.NewRegistry()
	idx := New(NewHashingEmbedder(64), registry)
	idx.Index(&model.KnowledgeDocument{ID: "doc-devops", Title: "deploy pipeline", Domain: "devops"})
	idx.Index(&model.KnowledgeDocument{ID: "doc-finance", Title: "invoice ledger", Domain: "finance"})

	hits := idx.Search("deploy", "devops", 5, 0)
	ids := hitIDs(hits)
	assert.Contains(t, ids, "doc-devops")
	// doc-finance is mirrored into common and so is reachable, but only
	// through common: the finance collection itself is never searched.
	for _, h := range hits {
		assert.NotEqual(t, "finance", h.Collection)
	}
}

func TestIndex_DetectedDomainSearchesDomainAndCommon(t *testing.T) {
	registry := domain.NewRegistry()
	registry.Register("naver", []string{"naver", "news crawler"})
	idx := New(NewHashingEmbedder(64), registry)

	docA := &model.KnowledgeDocument{ID: "doc-a", Title: "naver news crawler", Domain: "naver", Summary: "crawls naver news"}
	docB := &model.KnowledgeDocument{ID: "doc-b", Title: "shared glossary", Domain: model.CommonDomain, Summary: "generic terms"}
	idx.Index(docA)
	idx.Index(docB)

	hits := idx.Search("naver news crawler", "", 5, 0)
	ids := hitIDs(hits)
	assert.Contains(t, ids, "doc-a")
	assert.Contains(t, ids, "doc-b")
	assert.Equal(t, "doc-a", hits[0].DocumentID)
}

func TestIndex_NoDetectionFallsBackToEveryCollection(t *testing.T) {
	registry := domain.NewRegistry()
	idx := New(NewHashingEmbedder(64), registry)
	idx.Index(&model.KnowledgeDocument{ID: "doc-1", Title: "gibberish xyzzy plugh", Domain: "devops"})

	hits := idx.Search("totally unrelated query text", "", 5, 0)
	assert.NotEmpty(t, hits)
}

func TestDomains_CommonDoesNotDuplicate(t *testing.T) {
	assert.Equal(t, []string{model.CommonDomain}, domain.Domains(model.CommonDomain))
	assert.Equal(t, []string{"devops", model.CommonDomain}, domain.Domains("devops"))
}

func hitIDs(hits []model.ScoredHit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.DocumentID
	}
	return ids
}
