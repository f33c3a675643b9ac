package sales

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/greenlife/greenlife-admin/internal/live"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/shared"
)

// Upstream is the part of the backend client used by the sales screens.
type Upstream interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, query url.Values, body, out any) error
	Put(ctx context.Context, path string, query url.Values, body, out any) error
	Open(ctx context.Context, path string, query url.Values) (*greenlife.Stream, error)
}

// ApprovalLog stores the transitions fired from the dashboard.
type ApprovalLog interface {
	Record(ctx context.Context, entry ApprovalEntry) error
	History(ctx context.Context, batchRef string, saleIDs []string) ([]ApprovalEntry, error)
}

// Publisher announces queue changes.
type Publisher interface {
	Publish(ctx context.Context, ev live.Event) error
}

// Service drives the sales queues and the approval pipeline.
type Service struct {
	upstream  Upstream
	log       ApprovalLog
	publisher Publisher
	logger    *slog.Logger
}

// NewService constructs a Service. log and publisher may be nil.
func NewService(upstream Upstream, log ApprovalLog, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{upstream: upstream, log: log, publisher: publisher, logger: logger}
}

// Sales fetches a sale queue.
func (s *Service) Sales(ctx context.Context, tab Tab) ([]Sale, error) {
	var recs []greenlife.Record
	if err := s.upstream.Get(ctx, tab.Path, nil, &recs); err != nil {
		return nil, fmt.Errorf("sales: fetch %s: %w", tab.Key, err)
	}
	out := make([]Sale, 0, len(recs))
	for _, rec := range recs {
		out = append(out, SaleFromRecord(rec, tab.Status))
	}
	return out, nil
}

// Batches fetches a batch queue.
func (s *Service) Batches(ctx context.Context, tab Tab) ([]Batch, error) {
	var recs []greenlife.Record
	if err := s.upstream.Get(ctx, tab.Path, nil, &recs); err != nil {
		return nil, fmt.Errorf("sales: fetch %s: %w", tab.Key, err)
	}
	out := make([]Batch, 0, len(recs))
	for _, rec := range recs {
		out = append(out, BatchFromRecord(rec, tab.Status))
	}
	return out, nil
}

// OpenBatch fetches the batch currently collecting approved sales.
func (s *Service) OpenBatch(ctx context.Context) (Batch, error) {
	tab, _ := TabByKey("open")
	var raw any
	if err := s.upstream.Get(ctx, tab.Path, nil, &raw); err != nil {
		return Batch{}, fmt.Errorf("sales: fetch open batch: %w", err)
	}
	return batchFromAny(raw, "", Open), nil
}

// Batch fetches one batch with its sales.
func (s *Service) Batch(ctx context.Context, ref string) (Batch, error) {
	var raw any
	if err := s.upstream.Get(ctx, BatchDetailPath, url.Values{"ref": {ref}}, &raw); err != nil {
		return Batch{}, fmt.Errorf("sales: fetch batch %s: %w", ref, err)
	}
	return batchFromAny(raw, ref, ""), nil
}

// batchFromAny accepts a batch object, a bare list of sales, or either one
// inside a data envelope.
func batchFromAny(raw any, ref string, fallback Status) Batch {
	switch v := raw.(type) {
	case []any:
		b := Batch{Ref: ref, Status: fallback}
		for _, rec := range records(v) {
			b.Sales = append(b.Sales, SaleFromRecord(rec, Approved))
			b.TotalAmount += rec.Float("amount")
			b.TotalCommission += rec.Float("commission")
		}
		b.SaleCount = len(b.Sales)
		if b.Status == "" && len(b.Sales) > 0 {
			b.Status = Closed
		}
		return b
	case map[string]any:
		for _, key := range []string{"data", "content", "result"} {
			if inner, ok := v[key]; ok {
				return batchFromAny(inner, ref, fallback)
			}
		}
		b := BatchFromRecord(greenlife.Record(v), fallback)
		if b.Ref == "" {
			b.Ref = ref
		}
		return b
	}
	return Batch{Ref: ref, Status: fallback}
}

// Apply fires t against target. A transition that does not apply to the
// displayed status is refused without a request. Successful transitions are
// logged and announced.
func (s *Service) Apply(ctx context.Context, actor string, t Transition, target Target) error {
	if !t.Allows(target.Current) {
		return ErrInvalidTransition
	}
	if t.Batch && t.Name == Pay.Name && target.BatchRef == "" {
		return fmt.Errorf("sales: %s needs a batch reference", t.Name)
	}
	if !t.Batch && target.SaleID == "" {
		return fmt.Errorf("sales: %s needs a sale id", t.Name)
	}

	query := t.Query(target)
	var err error
	switch t.Method {
	case http.MethodPut:
		err = s.upstream.Put(ctx, t.Path, query, nil, nil)
	default:
		err = s.upstream.Post(ctx, t.Path, query, nil, nil)
	}
	if err != nil {
		return fmt.Errorf("sales: %s: %w", t.Name, err)
	}

	entry := ApprovalEntry{
		Actor:      actor,
		Transition: t.Name,
		SaleID:     target.SaleID,
		BatchRef:   target.BatchRef,
		From:       target.Current,
		To:         t.To,
		CreatedAt:  time.Now().UTC(),
	}
	if s.log != nil {
		if err := s.log.Record(ctx, entry); err != nil {
			s.logger.Error("record approval", slog.String("transition", t.Name), slog.Any("error", err))
		}
	}
	if s.publisher != nil {
		ev := live.Event{
			Type:       live.TypeTransition,
			Transition: t.Name,
			SaleID:     target.SaleID,
			BatchRef:   target.BatchRef,
			Actor:      actor,
			At:         entry.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn("publish transition", slog.Any("error", err))
		}
	}
	return nil
}

// History returns the logged transitions touching a batch or its sales.
func (s *Service) History(ctx context.Context, b Batch) ([]ApprovalEntry, error) {
	if s.log == nil {
		return nil, nil
	}
	ids := make([]string, 0, len(b.Sales))
	for _, sale := range b.Sales {
		if sale.ID != "" {
			ids = append(ids, sale.ID)
		}
	}
	return s.log.History(ctx, b.Ref, ids)
}

// CSV opens the CSV export of a batch.
func (s *Service) CSV(ctx context.Context, ref string) (*greenlife.Stream, error) {
	return s.upstream.Open(ctx, CSVPath, url.Values{"ref": {ref}})
}

// Receipt opens a receipt image. The path is relative to the image store and
// may not climb out of it.
func (s *Service) Receipt(ctx context.Context, raw string) (*greenlife.Stream, error) {
	clean, ok := receiptPath(raw)
	if !ok {
		return nil, fmt.Errorf("sales: receipt %q: %w", raw, shared.ErrNotFound)
	}
	return s.upstream.Open(ctx, ReceiptPath+clean, nil)
}

// receiptPath decodes p, refuses any parent segment in either form and
// re-escapes the segments for the backend URL.
func receiptPath(p string) (string, bool) {
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return "", false
	}
	decoded = strings.TrimLeft(decoded, "/")
	if decoded == "" {
		return "", false
	}
	for _, seg := range strings.Split(decoded, "/") {
		if seg == ".." {
			return "", false
		}
	}
	clean := path.Clean(decoded)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	segs := strings.Split(clean, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/"), true
}
