// Package chart draws the dashboard's inline SVG charts.
package chart

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Default viewport.
const (
	Width  = 720
	Height = 240
	Ticks  = 5
)

// ErrEmpty is returned for a chart without points.
var ErrEmpty = errors.New("chart: no points")

// Point is one labelled value on the x axis.
type Point struct {
	Label string
	Value float64
}

// Options controls titles and colours. Zero values fall back to the palette.
type Options struct {
	Title   string
	Summary string
	Color   string
	Fill    string
	Dots    bool
}

const (
	axisColor = "#475569"
	gridColor = "#d7dee8"
	green     = "#15803d"
	greenFill = "rgba(21,128,61,0.12)"
)

// frame maps values into the plot area of a width x height viewport.
type frame struct {
	width, height int
	pad           float64
	lo, hi        float64
}

func newFrame(points []Point) (frame, error) {
	if len(points) == 0 {
		return frame{}, ErrEmpty
	}
	f := frame{width: Width, height: Height, pad: 32}
	for _, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return frame{}, fmt.Errorf("chart: %q is not a finite value", p.Label)
		}
		f.lo = math.Min(f.lo, p.Value)
		f.hi = math.Max(f.hi, p.Value)
	}
	if f.hi-f.lo < 1e-9 {
		f.hi = f.lo + 1
	}
	return f, nil
}

func (f frame) plotW() float64 { return float64(f.width) - 2*f.pad }
func (f frame) plotH() float64 { return float64(f.height) - 2*f.pad }
func (f frame) bottom() float64 { return f.pad + f.plotH() }

func (f frame) y(v float64) float64 {
	return f.bottom() - (v-f.lo)/(f.hi-f.lo)*f.plotH()
}

func (f frame) open(b *strings.Builder, kind string, opts Options) {
	id := slug(opts.Title) + "-" + kind
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" class="chart chart-%s" viewBox="0 0 %d %d" role="img" aria-labelledby="%s-t %s-d">`, kind, f.width, f.height, id, id)
	fmt.Fprintf(b, `<title id="%s-t">%s</title>`, id, template.HTMLEscapeString(orDefault(opts.Title, "Chart")))
	fmt.Fprintf(b, `<desc id="%s-d">%s</desc>`, id, template.HTMLEscapeString(opts.Summary))
	for i := 0; i <= Ticks; i++ {
		v := f.lo + (f.hi-f.lo)*float64(i)/Ticks
		y := f.y(v)
		fmt.Fprintf(b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-dasharray="3,4" stroke-width="0.6"/>`, f.pad, y, f.pad+f.plotW(), y, gridColor)
		fmt.Fprintf(b, `<text x="%.1f" y="%.1f" fill="%s" font-size="10" text-anchor="end">%s</text>`, f.pad-4, y+3, axisColor, Compact(v))
	}
	fmt.Fprintf(b, `<path d="M%.1f %.1f V%.1f H%.1f" stroke="%s" fill="none"/>`, f.pad, f.pad, f.y(0), f.pad+f.plotW(), axisColor)
}

func (f frame) label(b *strings.Builder, x float64, text string) {
	fmt.Fprintf(b, `<text x="%.1f" y="%.1f" fill="%s" font-size="10" text-anchor="middle">%s</text>`, x, f.bottom()+14, axisColor, template.HTMLEscapeString(text))
}

// Line draws points joined by a line with a shaded area beneath.
func Line(points []Point, opts Options) (template.HTML, error) {
	f, err := newFrame(points)
	if err != nil {
		return "", err
	}
	stroke := orDefault(opts.Color, green)
	fill := orDefault(opts.Fill, greenFill)

	xs := make([]float64, len(points))
	for i := range points {
		if len(points) == 1 {
			xs[i] = f.pad + f.plotW()/2
			continue
		}
		xs[i] = f.pad + float64(i)*f.plotW()/float64(len(points)-1)
	}

	var d strings.Builder
	for i, p := range points {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&d, "%s%.1f %.1f ", cmd, xs[i], f.y(p.Value))
	}
	line := strings.TrimSpace(d.String())

	var b strings.Builder
	f.open(&b, "line", opts)
	fmt.Fprintf(&b, `<path d="%s L%.1f %.1f L%.1f %.1f Z" fill="%s" stroke="none"/>`, line, xs[len(xs)-1], f.y(0), xs[0], f.y(0), fill)
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round"/>`, line, stroke)
	every := labelStride(len(points))
	for i, p := range points {
		if opts.Dots {
			fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="3" fill="%s"><title>%s: %s</title></circle>`, xs[i], f.y(p.Value), stroke, template.HTMLEscapeString(p.Label), Compact(p.Value))
		}
		if i%every == 0 {
			f.label(&b, xs[i], p.Label)
		}
	}
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

// Bars draws one bar per point.
func Bars(points []Point, opts Options) (template.HTML, error) {
	f, err := newFrame(points)
	if err != nil {
		return "", err
	}
	color := orDefault(opts.Color, green)
	slot := f.plotW() / float64(len(points))
	width := slot * 0.6
	zero := f.y(0)

	var b strings.Builder
	f.open(&b, "bar", opts)
	every := labelStride(len(points))
	for i, p := range points {
		x := f.pad + float64(i)*slot + (slot-width)/2
		top, h := f.y(p.Value), zero-f.y(p.Value)
		if h < 0 {
			top, h = zero, -h
		}
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"><title>%s: %s</title></rect>`, x, top, width, h, color, template.HTMLEscapeString(p.Label), Compact(p.Value))
		if i%every == 0 {
			f.label(&b, x+width/2, p.Label)
		}
	}
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

// Compact formats an axis value, 1500 as "1.5k".
func Compact(v float64) string {
	a := math.Abs(v)
	switch {
	case a >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case a >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case a >= 1e3:
		return fmt.Sprintf("%.1fk", v/1e3)
	case v == math.Trunc(v):
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// labelStride thins x labels so at most twelve are drawn.
func labelStride(n int) int {
	if n <= 12 {
		return 1
	}
	return (n + 11) / 12
}

func slug(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + 'a' - 'A'
		}
		return '-'
	}, strings.TrimSpace(s))
	s = strings.Trim(s, "-")
	if s == "" {
		return "chart"
	}
	return s
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
