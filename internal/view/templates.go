package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	Principal   *shared.Principal
	Data        any
}

// Can reports whether the signed-in operator holds flag.
func (d TemplateData) Can(flag string) bool {
	return d.Principal != nil && d.Principal.Can(flag)
}

var printer = message.NewPrinter(language.English)

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(baseFuncs()).ParseFS(web.Templates,
		"templates/layouts/*.html",
		"templates/partials/*.html",
		"templates/pages/*.html",
	)
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes the named template. The "can" function is bound to the
// principal carried by data.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.execute(w, name, data)
}

// RenderString executes the named template into a string, for documents that
// are post-processed (PDF statements).
func (e *Engine) RenderString(name string, data TemplateData) (string, error) {
	if e == nil {
		return "", fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.execute(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (e *Engine) execute(w io.Writer, name string, data TemplateData) error {
	tpl, err := e.templates.Clone()
	if err != nil {
		return err
	}
	tpl.Funcs(template.FuncMap{"can": data.Can})
	return tpl.ExecuteTemplate(w, name, data)
}

func baseFuncs() template.FuncMap {
	return template.FuncMap{
		"can":         func(string) bool { return false },
		"formatDate":  formatDate,
		"formatMoney": FormatMoney,
		"formatCount": func(v float64) string { return printer.Sprintf("%.0f", v) },
		"field": func(rec greenlife.Record, key string) string {
			return rec.String(key)
		},
		"flag": func(rec greenlife.Record, key string) bool {
			return rec.Bool(key)
		},
		"add":       func(a, b int) int { return a + b },
		"sub":       func(a, b int) int { return a - b },
		"hasPrefix": strings.HasPrefix,
		"dict":      dict,
		"upper":     strings.ToUpper,
	}
}

// FormatMoney renders an amount in Kenyan shillings with digit grouping.
func FormatMoney(v float64) string {
	return printer.Sprintf("KES %.2f", v)
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006 15:04")
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.Format("02 Jan 2006 15:04")
			}
		}
		return t
	}
	return ""
}

// dict builds a map from alternating keys and values, for passing several
// arguments to a partial.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		out[key] = pairs[i+1]
	}
	return out, nil
}
