package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationPageCount(t *testing.T) {
	cases := []struct {
		total, perPage, pages int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 2, 13},
	}
	for _, tc := range cases {
		p := NewPagination(1, tc.perPage, tc.total)
		assert.Equal(t, tc.pages, p.TotalPages, "total=%d perPage=%d", tc.total, tc.perPage)
		assert.Len(t, p.Pages(), tc.pages)
	}
}

func TestPaginationBounds(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}
	p := NewPagination(3, 10, len(items))
	start, end := p.Bounds()
	assert.Equal(t, 20, start)
	assert.Equal(t, 23, end)
	assert.Equal(t, []int{20, 21, 22}, Paginate(items, p))
	assert.True(t, p.HasPrev())
	assert.False(t, p.HasNext())

	p = NewPagination(2, 10, len(items))
	assert.Equal(t, items[10:20], Paginate(items, p))
}

func TestPaginationClampsOutOfRange(t *testing.T) {
	assert.Equal(t, 3, NewPagination(99, 10, 23).Page)
	assert.Equal(t, 1, NewPagination(-4, 10, 23).Page)
	assert.Equal(t, DefaultPageSize, NewPagination(1, 0, 5).PerPage)

	empty := NewPagination(5, 10, 0)
	assert.Empty(t, Paginate([]string{}, empty))
}
