package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	_ "github.com/greenlife/greenlife-admin/internal/testing/guard"
)

func TestInTestModeFollowsEnv(t *testing.T) {
	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(TestModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())

	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
}
