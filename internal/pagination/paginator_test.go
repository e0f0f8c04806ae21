package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		requested int
		wantNum   int
		wantPages int
		wantLen   int
	}{
		{"first page full", 14, 1, 1, 2, 10},
		{"second page remainder", 14, 2, 2, 2, 4},
		{"past the end clamps to last", 14, 9, 2, 2, 4},
		{"zero clamps to first", 14, 0, 1, 2, 10},
		{"negative clamps to first", 14, -3, 1, 2, 10},
		{"empty set has one empty page", 0, 1, 1, 1, 0},
		{"empty set ignores requested page", 0, 5, 1, 1, 0},
		{"exact multiple", 20, 2, 2, 2, 10},
		{"single item", 1, 1, 1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.total, 10, tt.requested)
			assert.Equal(t, tt.wantNum, p.Number)
			assert.Equal(t, tt.wantPages, p.NumPages)
			assert.Equal(t, tt.wantLen, p.Len())
		})
	}
}

func TestParsePage(t *testing.T) {
	assert.Equal(t, 1, ParsePage(""))
	assert.Equal(t, 1, ParsePage("abc"))
	assert.Equal(t, 1, ParsePage("0"))
	assert.Equal(t, 1, ParsePage("-2"))
	assert.Equal(t, 3, ParsePage("3"))
	assert.Equal(t, 3, ParsePage(" 3 "))
}

func TestNavigation(t *testing.T) {
	p := New(25, 10, 2)
	assert.True(t, p.HasPrevious())
	assert.True(t, p.HasNext())
	assert.True(t, p.HasOtherPages())
	assert.Equal(t, 1, p.PreviousPage())
	assert.Equal(t, 3, p.NextPage())
	assert.Equal(t, 10, p.Offset())
	assert.Equal(t, []int{1, 2, 3}, p.Range())

	last := New(25, 10, 3)
	assert.False(t, last.HasNext())
	assert.Equal(t, 3, last.NextPage())

	only := New(3, 10, 1)
	assert.False(t, only.HasOtherPages())
	assert.False(t, only.HasPrevious())
}

func TestSlice(t *testing.T) {
	items := make([]int, 19)
	for i := range items {
		items[i] = i
	}

	first, p := Slice(items, 15, 1)
	assert.Len(t, first, 15)
	assert.Equal(t, 2, p.NumPages)

	second, _ := Slice(items, 15, 2)
	assert.Equal(t, []int{15, 16, 17, 18}, second)

	clamped, p := Slice(items, 15, 7)
	assert.Equal(t, second, clamped)
	assert.Equal(t, 2, p.Number)

	empty, p := Slice([]int{}, 10, 1)
	assert.Empty(t, empty)
	assert.Equal(t, 1, p.NumPages)
}
