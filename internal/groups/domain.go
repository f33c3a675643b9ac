package groups

import (
	"sort"
	"strings"

	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/rbac"
)

// Group is a named set of permission flags.
type Group struct {
	ID          string
	Name        string
	Permissions map[string]bool
}

// Granted lists the flags set on the group, sorted.
func (g Group) Granted() []string {
	out := make([]string, 0, len(g.Permissions))
	for flag, on := range g.Permissions {
		if on {
			out = append(out, flag)
		}
	}
	sort.Strings(out)
	return out
}

// Has reports whether flag is granted.
func (g Group) Has(flag string) bool {
	return g.Permissions[flag]
}

// FromRecord reads a group from a backend record. Permissions are either a
// nested object or flags on the record itself.
func FromRecord(rec greenlife.Record) Group {
	g := Group{ID: rec.ID(), Name: rec.String("groupName"), Permissions: map[string]bool{}}
	if g.Name == "" {
		g.Name = rec.String("name")
	}
	source := rec.Nested("permissions")
	if source == nil {
		source = rec
	}
	for _, flag := range rbac.Catalog() {
		if source.Bool(flag) {
			g.Permissions[flag] = true
		}
	}
	return g
}

// Input is the submitted group form.
type Input struct {
	Name        string `form:"groupName" validate:"required"`
	Permissions map[string]bool
}

// ParseInput reads the name and the checked flags from a form. Only flags in
// the catalog are accepted.
func ParseInput(name string, checked []string) Input {
	in := Input{Name: strings.TrimSpace(name), Permissions: make(map[string]bool)}
	known := make(map[string]bool)
	for _, flag := range rbac.Catalog() {
		known[flag] = true
		in.Permissions[flag] = false
	}
	for _, flag := range checked {
		if known[flag] {
			in.Permissions[flag] = true
		}
	}
	return in
}

// Body is the JSON object sent to the backend.
func (in Input) Body() map[string]any {
	return map[string]any{
		"groupName":   in.Name,
		"permissions": in.Permissions,
	}
}
