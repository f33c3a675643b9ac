package sales

import "github.com/greenlife/greenlife-admin/internal/rbac"

// TabKind selects how a queue is fetched and drawn.
type TabKind int

const (
	SaleQueue TabKind = iota
	BatchQueue
	SingleBatch
)

// Tab is one queue of the sales screen.
type Tab struct {
	Key    string
	Label  string
	Path   string
	Kind   TabKind
	Status Status
	Perms  []string
}

// Visible reports whether any of the tab's flags passes can.
func (t Tab) Visible(can func(string) bool) bool {
	for _, p := range t.Perms {
		if can(p) {
			return true
		}
	}
	return false
}

// Tabs in display order.
var Tabs = []Tab{
	{Key: "pending", Label: "Pending", Path: "/sales/fetch", Status: Pending, Perms: []string{rbac.Approve1}},
	{Key: "confirmed", Label: "Confirmed", Path: "/sales/fetched", Status: Confirmed, Perms: []string{rbac.Approve1, rbac.Approve2}},
	{Key: "approved", Label: "Approved", Path: "/sales/approved", Status: Approved, Perms: []string{rbac.Approve2, rbac.CloseBatch}},
	{Key: "rejected", Label: "Rejected", Path: "/sales/rejected", Status: Rejected, Perms: []string{rbac.Approve1, rbac.Approve2}},
	{Key: "region", Label: "Region queue", Path: "/sales/region", Status: Pending, Perms: []string{rbac.Approve1}},
	{Key: "region-accepted", Label: "Region accepted", Path: "/sales/region-accepted", Status: Confirmed, Perms: []string{rbac.Approve1}},
	{Key: "region-rejected", Label: "Region rejected", Path: "/sales/region-rejected", Status: Rejected, Perms: []string{rbac.Approve1}},
	{Key: "open", Label: "Open batch", Path: "/sales/v1/batch", Kind: SingleBatch, Status: Open, Perms: []string{rbac.CloseBatch, rbac.Pay}},
	{Key: "closed", Label: "Closed batches", Path: "/sales/closed-batches", Kind: BatchQueue, Status: Closed, Perms: []string{rbac.CloseBatch, rbac.Pay}},
	{Key: "paid", Label: "Paid batches", Path: "/sales/paid-batches", Kind: BatchQueue, Status: Paid, Perms: []string{rbac.Pay, rbac.CloseBatch}},
}

// TabByKey finds a tab.
func TabByKey(key string) (Tab, bool) {
	for _, t := range Tabs {
		if t.Key == key {
			return t, true
		}
	}
	return Tab{}, false
}

// BatchDetailPath fetches one batch by reference.
const BatchDetailPath = "/sales/get-batch"

// CSVPath exports one batch as CSV.
const CSVPath = "/sales/generate-csv"

// ReceiptPath prefixes receipt image paths.
const ReceiptPath = "/serve/getImage/"
