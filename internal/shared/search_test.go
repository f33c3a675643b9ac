package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type agentRow struct {
	Name  string
	Email string
}

func TestFilterReturnsMatchingRows(t *testing.T) {
	rows := []agentRow{
		{"Wanjiru Kamau", "wanjiru@greenlife.co.ke"},
		{"Otieno Ouma", "otieno@greenlife.co.ke"},
		{"Achieng Kamau", "achieng@example.com"},
		{"Mutua", "mutua@example.com"},
	}
	fields := func(r agentRow) []string { return []string{r.Name, r.Email} }

	assert.Len(t, Filter(rows, "kamau", fields), 2)
	assert.Len(t, Filter(rows, "GREENLIFE", fields), 2)
	assert.Len(t, Filter(rows, "  ", fields), 4)
	assert.Empty(t, Filter(rows, "nairobi", fields))
}
