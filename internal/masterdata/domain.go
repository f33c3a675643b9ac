package masterdata

import (
	"strconv"
	"strings"

	"github.com/greenlife/greenlife-admin/internal/lookup"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/rbac"
	"github.com/greenlife/greenlife-admin/internal/view"
)

// ColumnKind selects how a table cell is formatted.
type ColumnKind int

const (
	Text ColumnKind = iota
	Money
	Percent
	Status
)

// Column is one table column.
type Column struct {
	Key   string
	Label string
	Kind  ColumnKind
	// Compute derives the cell from the whole record instead of Key.
	Compute func(greenlife.Record) float64
}

// Value formats the cell of rec.
func (c Column) Value(rec greenlife.Record) string {
	var n float64
	switch {
	case c.Compute != nil:
		n = c.Compute(rec)
	case c.Kind == Money || c.Kind == Percent:
		n = rec.Float(c.Key)
	}
	switch c.Kind {
	case Money:
		return view.FormatMoney(n)
	case Percent:
		return strconv.FormatFloat(n, 'f', -1, 64) + "%"
	case Status:
		if rec.Bool(c.Key) {
			return "Active"
		}
		return "Inactive"
	}
	if c.Compute != nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return rec.String(c.Key)
}

// FieldKind selects the form control and the JSON type sent upstream.
type FieldKind int

const (
	TextInput FieldKind = iota
	EmailInput
	NumberInput
	PasswordInput
	LookupInput
)

// Field is one form input. Name is both the form field and the JSON key.
type Field struct {
	Name  string
	Label string
	Kind  FieldKind
	Rules string
	// Source reads the current value from a record when it differs from Name,
	// e.g. a nested {"region": {"id": 3}} feeding "regionId".
	Source string
	Lookup lookup.Kind
	// CreateOnly fields are shown and required only on the create form.
	CreateOnly bool
}

// InputType is the HTML input type of the field.
func (f Field) InputType() string {
	switch f.Kind {
	case EmailInput:
		return "email"
	case NumberInput:
		return "number"
	case PasswordInput:
		return "password"
	}
	return "text"
}

// Required reports whether the field carries the required rule.
func (f Field) Required() bool {
	for _, rule := range strings.Split(f.Rules, ",") {
		if rule == "required" {
			return true
		}
	}
	return false
}

// ValueFrom reads the field's current value from rec.
func (f Field) ValueFrom(rec greenlife.Record) string {
	if f.Kind == PasswordInput {
		return ""
	}
	if f.Source == "" {
		return rec.String(f.Name)
	}
	if nested := rec.Nested(f.Source); nested != nil {
		return nested.ID()
	}
	return rec.String(f.Source)
}

// Resource declares one CRUD screen over a backend collection.
type Resource struct {
	Slug     string
	Title    string
	Singular string
	Entity   string
	Base     string
	Columns  []Column
	Search   []string
	Fields   []Field
	// Toggle enables the active/inactive switch.
	Toggle bool
	// Prepare adjusts the request body before it is sent.
	Prepare func(body map[string]any)
}

// Backend paths for a resource base /x.
func (r Resource) ListPath() string   { return r.Base + "/all" }
func (r Resource) CreatePath() string { return r.Base }
func (r Resource) UpdatePath() string { return r.Base + "/update" }
func (r Resource) StatusPath() string { return r.Base + "/status" }
func (r Resource) DeletePath() string { return r.Base + "/delete" }

// Perm returns the flag guarding action on this resource.
func (r Resource) Perm(action string) string {
	return rbac.Flag(action, r.Entity)
}

// SearchFields returns the searchable text of rec.
func (r Resource) SearchFields(rec greenlife.Record) []string {
	out := make([]string, 0, len(r.Search))
	for _, key := range r.Search {
		out = append(out, rec.String(key))
	}
	return out
}

// FormFields returns the fields shown on the create or edit form.
func (r Resource) FormFields(creating bool) []Field {
	out := make([]Field, 0, len(r.Fields))
	for _, f := range r.Fields {
		if f.CreateOnly && !creating {
			continue
		}
		out = append(out, f)
	}
	return out
}
