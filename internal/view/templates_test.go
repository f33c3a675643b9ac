package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/greenlife/greenlife-admin/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderBindsCan(t *testing.T) {
	engine, err := NewEngine()
	if !assert.NoError(t, err) {
		return
	}
	p := &shared.Principal{User: "amina", Permissions: map[string]bool{"readAgent": true}}
	data := TemplateData{Title: "t", Principal: p}
	assert.True(t, data.Can("readAgent"))
	assert.False(t, data.Can("deleteAgent"))

	out, err := engine.RenderString("pages/denied.html", TemplateData{Title: "Access denied", Principal: p, Data: map[string]string{"Required": "deleteAgent"}})
	assert.NoError(t, err)
	assert.Contains(t, out, "Access denied")
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "KES 1,234.50", FormatMoney(1234.5))
	assert.Equal(t, "05 Mar 2024 00:00", formatDate("2024-03-05"))
	assert.Equal(t, "not a date", formatDate("not a date"))

	m, err := dict("a", 1, "b", "x")
	assert.NoError(t, err)
	assert.Equal(t, 1, m["a"])
	_, err = dict("a")
	assert.Error(t, err)
}
