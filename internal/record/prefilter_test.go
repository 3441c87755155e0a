package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func storeForPrefilterTests() *Store {
	return NewStore([]Record{
		{Medicines: []int{1, 4, 5}, SideEffects: []int{2}},
		{Medicines: []int{2}, SideEffects: []int{3}},
		{Medicines: []int{1}, SideEffects: []int{2, 3}},
		{Medicines: []int{6}, SideEffects: []int{7}},
	})
}

func TestPrefilterIntersection(t *testing.T) {
	s := storeForPrefilterTests()
	got := Prefilter(s, FilterQuery{Medicines: []int{1}, SideEffects: []int{2}})
	assert.ElementsMatch(t, []int{0, 2}, got)
}

func TestPrefilterNoOverlapReturnsEmpty(t *testing.T) {
	s := storeForPrefilterTests()
	got := Prefilter(s, FilterQuery{Medicines: []int{99}, SideEffects: []int{2}})
	assert.Empty(t, got)
}

func TestPrefilterRequiresBothDimensions(t *testing.T) {
	s := storeForPrefilterTests()
	// Row 1 matches side_effects (3) but not medicines (1), so it must be excluded.
	got := Prefilter(s, FilterQuery{Medicines: []int{1}, SideEffects: []int{3}})
	assert.ElementsMatch(t, []int{2}, got)
}

func TestPrefilterPreservesStoreOrder(t *testing.T) {
	s := storeForPrefilterTests()
	got := Prefilter(s, FilterQuery{Medicines: []int{1, 2, 6}, SideEffects: []int{2, 3, 7}})
	assert.Equal(t, []int{0, 1, 2, 3}, got)
}
