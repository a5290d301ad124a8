// Package knowledge implements the Knowledge Index (C8): metadata-only
// embedding, domain-partitioned vector collections plus a shared
// "common" collection, and hybrid retrieval. The retrieval formula is
// the direct linear blend spec.md §4.8 names explicitly
// (semantic_weight*S + (1-semantic_weight)*L); the pack's only hybrid
// retrieval grounding (nevindra-oasis's retriever.go) uses Reciprocal
// Rank Fusion instead, but this implements the spec's own formula rather
// than substitute RRF, using that file only for interface shape.
package knowledge

import (
	"sort"
	"strings"
	"time"

	"github.com/relaykit/orchestrate/internal/domain"
	"github.com/relaykit/orchestrate/internal/model"
)

// DefaultSemanticWeight is the blend weight used when a search doesn't
// specify one (spec.md §4.8).
const DefaultSemanticWeight = 0.7

// MetadataByteLimit bounds the text handed to the embedder, keeping
// embedding cost proportional to metadata size regardless of document
// body length.
const MetadataByteLimit = 2000

// Index is an in-memory knowledge store: the document's full record plus
// per-collection vector entries. A production deployment backs this
// with the relational store (internal/store) for documents and keeps
// only the vectors here; Index itself holds both for simplicity and is
// safe for a single engine process.
type Index struct {
	embedder  Embedder
	registry  *domain.Registry
	documents map[string]*model.KnowledgeDocument
	vectors   map[string][]model.VectorEntry // collection -> entries
}

// New builds an Index using embedder for metadata embedding and registry
// for domain classification.
func New(embedder Embedder, registry *domain.Registry) *Index {
	return &Index{
		embedder:  embedder,
		registry:  registry,
		documents: make(map[string]*model.KnowledgeDocument),
		vectors:   make(map[string][]model.VectorEntry),
	}
}

// Index adds or replaces doc, embedding its metadata blob (never its
// body) and filing the resulting vector under its domain's collection
// and the shared common collection (spec.md §4.8).
func (idx *Index) Index(doc *model.KnowledgeDocument) {
	if doc.Domain == "" {
		doc.Domain = idx.registry.ClassifyOne(doc.Title + " " + doc.Summary)
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	idx.documents[doc.ID] = doc

	blob := doc.MetadataBlob(MetadataByteLimit)
	embedding := idx.embedder.Embed(blob)

	for _, collection := range domain.Domains(doc.Domain) {
		idx.removeVector(collection, doc.ID)
		idx.vectors[collection] = append(idx.vectors[collection], model.VectorEntry{
			DocumentID: doc.ID,
			Collection: collection,
			Embedding:  embedding,
			Metadata: map[string]any{
				"title":    doc.Title,
				"category": doc.Category,
			},
		})
	}
}

func (idx *Index) removeVector(collection, documentID string) {
	entries := idx.vectors[collection]
	for i, e := range entries {
		if e.DocumentID == documentID {
			idx.vectors[collection] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Search runs hybrid retrieval across every collection spec.md §4.8
// "Routing" names: an explicit domainHint searches {domainHint} ∪
// common; an empty domainHint consults C9 against query and searches
// each detected domain ∪ common; if C9 detects nothing, every known
// collection is searched. Hits that land in more than one collection
// (a document is always mirrored into common) are deduplicated, keeping
// the highest-scoring instance. semanticWeight selects the blend point
// between cosine similarity and lexical overlap; pass <= 0 to use
// DefaultSemanticWeight.
func (idx *Index) Search(query, domainHint string, k int, semanticWeight float64) []model.ScoredHit {
	if semanticWeight <= 0 {
		semanticWeight = DefaultSemanticWeight
	}
	collections := idx.route(query, domainHint)

	queryVec := idx.embedder.Embed(query)
	queryTerms := tokenize(query)

	best := make(map[string]model.ScoredHit, len(idx.documents))
	for _, collection := range collections {
		for _, e := range idx.vectors[collection] {
			doc, ok := idx.documents[e.DocumentID]
			if !ok {
				continue
			}
			semantic := cosineSimilarity(queryVec, e.Embedding)
			lexical := lexicalScore(queryTerms, doc)
			final := semanticWeight*semantic + (1-semanticWeight)*lexical

			hit := model.ScoredHit{
				DocumentID:    doc.ID,
				Collection:    collection,
				SemanticScore: semantic,
				LexicalScore:  lexical,
				FinalScore:    final,
				Document:      doc,
			}
			if prior, ok := best[doc.ID]; !ok || hit.FinalScore > prior.FinalScore {
				best[doc.ID] = hit
			}
		}
	}

	hits := make([]model.ScoredHit, 0, len(best))
	for _, hit := range best {
		hits = append(hits, hit)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].FinalScore > hits[j].FinalScore })

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// route implements spec.md §4.8's routing rule set.
func (idx *Index) route(query, domainHint string) []string {
	if domainHint != "" {
		return dedupeStrings([]string{domainHint, model.CommonDomain})
	}
	detected := idx.registry.Classify(query)
	if len(detected) > 0 {
		collections := append(append([]string{}, detected...), model.CommonDomain)
		return dedupeStrings(collections)
	}
	return idx.allCollections()
}

func (idx *Index) allCollections() []string {
	names := make([]string, 0, len(idx.vectors))
	for name := range idx.vectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// lexicalScore is the fraction of query terms that appear in the
// document's metadata blob (title/keywords/tags/summary), never its
// body, keeping lexical and semantic scoring grounded on the same
// metadata-only surface.
func lexicalScore(queryTerms []string, doc *model.KnowledgeDocument) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	blob := strings.ToLower(doc.MetadataBlob(0))
	matches := 0
	for _, term := range queryTerms {
		if strings.Contains(blob, term) {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTerms))
}

// Get returns a document by ID, without rehydrating its body from a
// backing store (Index keeps the full record in memory).
func (idx *Index) Get(id string) (*model.KnowledgeDocument, bool) {
	doc, ok := idx.documents[id]
	return doc, ok
}
