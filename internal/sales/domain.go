package sales

import (
	"time"

	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
)

// Sale is one agent sale as shown in the queues.
type Sale struct {
	ID           string
	Reference    string
	Status       Status
	Amount       float64
	Commission   float64
	Agent        string
	Distributor  string
	Region       string
	SubRegion    string
	Product      string
	Quantity     float64
	ReceiptImage string
	BatchRef     string
	CreatedAt    string
	Actions      []Transition
}

// SaleFromRecord reads a sale. fallback is used when the record carries no
// status, which is the case for queues filtered by status upstream.
func SaleFromRecord(rec greenlife.Record, fallback Status) Sale {
	s := Sale{
		ID:           rec.ID(),
		Reference:    first(rec, "referenceNumber", "refNo", "reference"),
		Amount:       rec.Float("amount"),
		Commission:   rec.Float("commission"),
		Agent:        first(rec, "agent", "agentName"),
		Distributor:  first(rec, "distributor", "distributorName"),
		Region:       first(rec, "region", "regionName"),
		SubRegion:    first(rec, "subRegion", "subRegionName"),
		Product:      first(rec, "product", "productName"),
		Quantity:     rec.Float("quantity"),
		ReceiptImage: first(rec, "receiptImage", "recieptImage", "image"),
		BatchRef:     first(rec, "batchRef", "batchReference", "ref"),
		CreatedAt:    first(rec, "createdAt", "date", "created"),
	}
	s.Status = ParseStatus(rec.String("status"))
	if s.Status == "" {
		s.Status = fallback
	}
	return s
}

// Batch is a group of approved sales paid together.
type Batch struct {
	Ref             string
	Status          Status
	SaleCount       int
	TotalAmount     float64
	TotalCommission float64
	ClosedAt        string
	PaidAt          string
	Sales           []Sale
	Actions         []Transition
}

// BatchFromRecord reads a batch and any sales embedded in it.
func BatchFromRecord(rec greenlife.Record, fallback Status) Batch {
	b := Batch{
		Ref:             first(rec, "referenceNumber", "ref", "batchRef", "reference"),
		TotalAmount:     firstFloat(rec, "totalAmount", "amount"),
		TotalCommission: firstFloat(rec, "totalCommission", "commission"),
		ClosedAt:        first(rec, "closedAt", "dateClosed"),
		PaidAt:          first(rec, "paidAt", "datePaid"),
	}
	b.Status = ParseStatus(rec.String("status"))
	if b.Status == "" {
		b.Status = fallback
	}
	for _, item := range records(rec["sales"]) {
		b.Sales = append(b.Sales, SaleFromRecord(item, Approved))
	}
	b.SaleCount = int(firstFloat(rec, "saleCount", "count", "numberOfSales"))
	if b.SaleCount == 0 {
		b.SaleCount = len(b.Sales)
	}
	if b.TotalAmount == 0 {
		for _, s := range b.Sales {
			b.TotalAmount += s.Amount
			b.TotalCommission += s.Commission
		}
	}
	return b
}

// ApprovalEntry is one transition fired from the dashboard.
type ApprovalEntry struct {
	ID         int64
	Actor      string
	Transition string
	SaleID     string
	BatchRef   string
	From       Status
	To         Status
	CreatedAt  time.Time
}

func first(rec greenlife.Record, keys ...string) string {
	for _, k := range keys {
		if v := rec.String(k); v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(rec greenlife.Record, keys ...string) float64 {
	for _, k := range keys {
		if v := rec.Float(k); v != 0 {
			return v
		}
	}
	return 0
}

func records(v any) []greenlife.Record {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]greenlife.Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, greenlife.Record(m))
		}
	}
	return out
}
