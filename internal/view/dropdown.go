package view

import "strings"

// Option is one choice in a searchable dropdown.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Dropdown feeds the shared "partials/dropdown.html" partial: a text input
// bound to a datalist, with the chosen id carried in a hidden field.
type Dropdown struct {
	Name     string
	Label    string
	Value    string
	Display  string
	Required bool
	Error    string
	Options  []Option
}

// NewDropdown builds a dropdown with value preselected.
func NewDropdown(name, label, value string, options []Option) Dropdown {
	d := Dropdown{Name: name, Label: label, Value: value, Options: options}
	for _, opt := range options {
		if opt.Value == value {
			d.Display = opt.Label
			break
		}
	}
	return d
}

// ListID is the datalist element id.
func (d Dropdown) ListID() string {
	return "dl-" + strings.ReplaceAll(d.Name, ".", "-")
}

// FilterOptions keeps the options whose label contains term, ignoring case.
func FilterOptions(options []Option, term string) []Option {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return options
	}
	out := make([]Option, 0, len(options))
	for _, opt := range options {
		if strings.Contains(strings.ToLower(opt.Label), term) {
			out = append(out, opt)
		}
	}
	return out
}
