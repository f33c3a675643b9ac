// Package dashboard renders the landing page aggregates.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/greenlife/greenlife-admin/internal/dashboard/chart"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
)

// Upstream is the read side of the backend client.
type Upstream interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Metric names one aggregate endpoint and where its labels and values live.
type Metric struct {
	Key    string
	Title  string
	Path   string
	Labels []string
	Values []string
}

// Metrics fetched for every dashboard view.
var (
	Daily        = Metric{Key: "daily", Title: "Daily sales", Path: "/sales/daily", Labels: []string{"day", "date", "label"}, Values: []string{"total", "amount", "sales", "value"}}
	Monthly      = Metric{Key: "monthly", Title: "This year by month", Path: "/sales/monthly", Labels: []string{"month", "label"}, Values: []string{"total", "amount", "sales", "value"}}
	Annual       = Metric{Key: "annual", Title: "Annual sales", Path: "/sales/annual", Labels: []string{"year", "label"}, Values: []string{"total", "amount", "sales", "value"}}
	AllMonthly   = Metric{Key: "all-monthly", Title: "All months", Path: "/sales/all-monthly", Labels: []string{"month", "period", "label"}, Values: []string{"total", "amount", "sales", "value"}}
	BySubRegion  = Metric{Key: "subregion", Title: "Top sub-regions", Path: "/sales/subregion", Labels: []string{"subRegionName", "subregion", "name"}, Values: []string{"total", "amount", "sales"}}
	ByAgent      = Metric{Key: "agent", Title: "Top agents", Path: "/sales/agent", Labels: []string{"agentName", "agent", "name"}, Values: []string{"total", "amount", "sales"}}
	SoldProducts = Metric{Key: "sold-products", Title: "Products sold", Path: "/sales/sold-products", Labels: []string{"description", "product", "name"}, Values: []string{"quantity", "total", "count"}}
)

// Metrics lists every aggregate in fetch order.
var Metrics = []Metric{Daily, Monthly, Annual, AllMonthly, BySubRegion, ByAgent, SoldProducts}

// Panel is one fetched aggregate. Err is set when the endpoint failed.
type Panel struct {
	Metric Metric
	Points []chart.Point
	Err    error
}

// Total sums the panel's values.
func (p Panel) Total() float64 {
	var sum float64
	for _, pt := range p.Points {
		sum += pt.Value
	}
	return sum
}

// Top returns the n largest points, largest first.
func (p Panel) Top(n int) []chart.Point {
	out := append([]chart.Point(nil), p.Points...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Service loads dashboard aggregates.
type Service struct {
	upstream Upstream
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(upstream Upstream, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{upstream: upstream, logger: logger}
}

// Load fetches every metric concurrently. A failing endpoint marks its own
// panel; only an expired session aborts the whole load.
func (s *Service) Load(ctx context.Context) (map[string]Panel, error) {
	panels := make([]Panel, len(Metrics))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range Metrics {
		g.Go(func() error {
			points, err := s.fetch(gctx, m)
			if greenlife.IsUnauthorized(err) {
				return err
			}
			if err != nil {
				s.logger.Warn("dashboard metric", slog.String("metric", m.Key), slog.Any("error", err))
			}
			panels[i] = Panel{Metric: m, Points: points, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	out := make(map[string]Panel, len(panels))
	for _, p := range panels {
		out[p.Metric.Key] = p
	}
	return out, nil
}

func (s *Service) fetch(ctx context.Context, m Metric) ([]chart.Point, error) {
	var raw any
	if err := s.upstream.Get(ctx, m.Path, nil, &raw); err != nil {
		return nil, err
	}
	return Points(raw, m), nil
}

// Points reads a series from either a list of records or a flat label to
// value object.
func Points(raw any, m Metric) []chart.Point {
	switch v := raw.(type) {
	case []any:
		out := make([]chart.Point, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			rec := greenlife.Record(obj)
			out = append(out, chart.Point{Label: pick(rec, m.Labels), Value: pickFloat(rec, m.Values)})
		}
		return out
	case map[string]any:
		for _, key := range []string{"data", "content", "result"} {
			if inner, ok := v[key]; ok {
				return Points(inner, m)
			}
		}
		rec := greenlife.Record(v)
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]chart.Point, 0, len(keys))
		for _, k := range keys {
			out = append(out, chart.Point{Label: k, Value: rec.Float(k)})
		}
		return out
	}
	return nil
}

func pick(rec greenlife.Record, keys []string) string {
	for _, k := range keys {
		if v := rec.String(k); v != "" {
			return v
		}
	}
	return ""
}

func pickFloat(rec greenlife.Record, keys []string) float64 {
	for _, k := range keys {
		if _, ok := rec[k]; ok {
			return rec.Float(k)
		}
	}
	return 0
}
