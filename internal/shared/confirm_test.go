package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfirmedRequiresExactWord(t *testing.T) {
	assert.True(t, Confirmed("yes"))
	for _, input := range []string{"", "Yes", "YES", " yes", "yes ", "y", "yess"} {
		assert.False(t, Confirmed(input), "input %q", input)
	}
}
