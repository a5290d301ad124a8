package model

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// NewID generates a sortable, time-ordered identifier for a Workflow or
// Step. Execution identifiers use google/uuid instead, and a
// StepExecution's ID is its execution ID and step ID joined by ":"
// (spec.md's data model treats run identity and definition identity as
// distinct concerns); ULIDs are used here so a workflow/step listing
// sorts by creation order without a separate created_at column on Step.
func NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
