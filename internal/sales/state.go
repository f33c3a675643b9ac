package sales

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/greenlife/greenlife-admin/internal/rbac"
)

// Status is the state of a sale or a batch as displayed.
type Status string

const (
	Pending   Status = "pending"
	Confirmed Status = "confirmed"
	Approved  Status = "approved"
	Rejected  Status = "rejected"
	Open      Status = "open"
	Closed    Status = "closed"
	Paid      Status = "paid"
)

// ParseStatus normalises the backend's status text. Unknown text yields "".
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "new", "submitted":
		return Pending
	case "confirmed", "accepted":
		return Confirmed
	case "approved":
		return Approved
	case "rejected":
		return Rejected
	case "open":
		return Open
	case "closed":
		return Closed
	case "paid":
		return Paid
	}
	return ""
}

// ErrInvalidTransition is returned when a transition does not apply to the
// displayed state. No request is sent.
var ErrInvalidTransition = errors.New("sales: transition not allowed from current status")

// Target names what a transition applies to.
type Target struct {
	SaleID   string
	BatchRef string
	Current  Status
}

// Transition is a named move of the approval pipeline.
type Transition struct {
	Name   string
	Label  string
	From   []Status
	To     Status
	Perm   string
	Method string
	Path   string
	// Batch transitions act on a batch reference rather than a sale id.
	Batch bool
	query func(Target) url.Values
}

// Allows reports whether the transition applies from s.
func (t Transition) Allows(s Status) bool {
	for _, from := range t.From {
		if from == s {
			return true
		}
	}
	return false
}

// Query returns the backend query parameters for target.
func (t Transition) Query(target Target) url.Values {
	if t.query == nil {
		return nil
	}
	return t.query(target)
}

func saleStatusQuery(newStatus string) func(Target) url.Values {
	return func(t Target) url.Values {
		return url.Values{"id": {t.SaleID}, "newStatus": {newStatus}}
	}
}

// Transitions of the pipeline.
var (
	Confirm = Transition{
		Name: "confirm", Label: "Confirm", From: []Status{Pending}, To: Confirmed,
		Perm: rbac.Approve1, Method: http.MethodPut, Path: "/sales/update",
		query: saleStatusQuery("Confirmed"),
	}
	Reject = Transition{
		Name: "reject", Label: "Reject", From: []Status{Pending, Confirmed}, To: Rejected,
		Perm: rbac.Approve1, Method: http.MethodPut, Path: "/sales/update",
		query: saleStatusQuery("Rejected"),
	}
	Approve = Transition{
		Name: "approve", Label: "Approve", From: []Status{Confirmed}, To: Approved,
		Perm: rbac.Approve2, Method: http.MethodPut, Path: "/sales/approve",
		query: func(t Target) url.Values { return url.Values{"id": {t.SaleID}} },
	}
	CloseBatch = Transition{
		Name: "close", Label: "Close batch", From: []Status{Open}, To: Closed,
		Perm: rbac.CloseBatch, Method: http.MethodPost, Path: "/sales/close", Batch: true,
	}
	Pay = Transition{
		Name: "pay", Label: "Mark paid", From: []Status{Closed}, To: Paid,
		Perm: rbac.Pay, Method: http.MethodPost, Path: "/sales/v1/confirmation", Batch: true,
		query: func(t Target) url.Values { return url.Values{"ref": {t.BatchRef}} },
	}
)

// Transitions lists every transition in pipeline order.
var Transitions = []Transition{Confirm, Reject, Approve, CloseBatch, Pay}

// TransitionByName finds a transition.
func TransitionByName(name string) (Transition, bool) {
	for _, t := range Transitions {
		if t.Name == name {
			return t, true
		}
	}
	return Transition{}, false
}

// Available returns the transitions that apply from s and pass can.
func Available(s Status, batch bool, can func(string) bool) []Transition {
	var out []Transition
	for _, t := range Transitions {
		if t.Batch == batch && t.Allows(s) && can(t.Perm) {
			out = append(out, t)
		}
	}
	return out
}
