package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortSteps_OrdersByOrderThenID(t *testing.T) {
	steps := []Step{
		{ID: "b", Order: 1},
		{ID: "a", Order: 1},
		{ID: "c", Order: 0},
	}
	sorted := SortSteps(steps)
	ids := []string{sorted[0].ID, sorted[1].ID, sorted[2].ID}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}
