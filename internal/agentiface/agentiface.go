// Package agentiface exposes a narrow façade over the validator,
// knowledge index, and domain classifier for authoring-side callers
// (spec.md C10 Agent Interface). It deliberately does not expose the
// dispatcher, engine, or runner: authoring agents propose and inspect
// workflows, they do not drive execution.
package agentiface

import (
	"github.com/relaykit/orchestrate/internal/domain"
	"github.com/relaykit/orchestrate/internal/knowledge"
	"github.com/relaykit/orchestrate/internal/model"
	"github.com/relaykit/orchestrate/internal/validator"
)

// Interface is the capability surface handed to an authoring agent.
type Interface struct {
	Index    *knowledge.Index
	Registry *domain.Registry
}

// New builds an Interface over the given knowledge index and domain
// registry.
func New(index *knowledge.Index, registry *domain.Registry) *Interface {
	return &Interface{Index: index, Registry: registry}
}

// ValidateWorkflow runs the static validator and returns every issue
// found; an authoring agent uses this to iterate on a draft workflow
// before submitting it for execution.
func (a *Interface) ValidateWorkflow(wf *model.Workflow) []validator.Issue {
	return validator.ValidateWorkflow(wf)
}

// SearchKnowledge runs hybrid retrieval, routed per spec.md §4.8:
// domainName scopes the search to {domainName} ∪ common, or leave it
// empty to let C9 detect the domain(s) from query (falling back to
// every collection when nothing is detected). Returns up to k ranked
// hits.
func (a *Interface) SearchKnowledge(query, domainName string, k int) []model.ScoredHit {
	return a.Index.Search(query, domainName, k, knowledge.DefaultSemanticWeight)
}

// ClassifyDomain scores text against the domain registry, returning the
// (possibly empty) ordered set of matching domains (spec.md §4.9).
func (a *Interface) ClassifyDomain(text string) []string {
	return a.Registry.Classify(text)
}
