package model

import "time"

// DocumentCategory is the closed set of KnowledgeDocument categories
// (spec.md §3).
type DocumentCategory string

const (
	CategoryWorkflowPatterns   DocumentCategory = "workflow_patterns"
	CategoryErrorSolutions     DocumentCategory = "error_solutions"
	CategoryCodeTemplates      DocumentCategory = "code_templates"
	CategoryIntegrationExample DocumentCategory = "integration_examples"
	CategoryBestPractices      DocumentCategory = "best_practices"
)

// CommonDomain is the collection every document is always mirrored into,
// in addition to its detected domain (spec.md §4.8).
const CommonDomain = "common"

// KnowledgeDocument is the canonical record, full body kept in the
// relational store only — never embedded.
type KnowledgeDocument struct {
	ID            string           `json:"id"`
	KnowledgeBase string           `json:"knowledge_base"`
	Title         string           `json:"title"`
	Domain        string           `json:"domain"`
	Category      DocumentCategory `json:"category"`
	Keywords      []string         `json:"keywords"`
	Tags          []string         `json:"tags"`
	Summary       string           `json:"summary"`
	Body          string           `json:"body"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// MetadataBlob builds the text that gets embedded: title + keywords + tags
// + summary. The body is deliberately excluded (spec.md §4.8, §8 invariant
// "embedding body is never stored in the vector index").
func (d *KnowledgeDocument) MetadataBlob(limit int) string {
	blob := d.Title + " "
	for _, k := range d.Keywords {
		blob += k + " "
	}
	for _, t := range d.Tags {
		blob += t + " "
	}
	blob += d.Summary
	if limit > 0 && len(blob) > limit {
		blob = blob[:limit]
	}
	return blob
}

// VectorEntry is the vector-index mirror of a KnowledgeDocument: one entry
// per document per collection it's filed under.
type VectorEntry struct {
	DocumentID string         `json:"document_id"`
	Collection string         `json:"collection"`
	Embedding  []float32      `json:"embedding"`
	Metadata   map[string]any `json:"metadata"`
}

// ScoredHit is one result from a knowledge search, before body rehydration.
type ScoredHit struct {
	DocumentID      string  `json:"document_id"`
	Collection      string  `json:"collection"`
	SemanticScore   float64 `json:"semantic_score"`
	LexicalScore    float64 `json:"lexical_score"`
	FinalScore      float64 `json:"final_score"`
	Document        *KnowledgeDocument `json:"document,omitempty"`
}
