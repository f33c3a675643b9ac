package sales

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/greenlife/greenlife-admin/internal/rbac"
)

func TestTransitionsFollowThePipeline(t *testing.T) {
	cases := []struct {
		transition Transition
		from       Status
		allowed    bool
	}{
		{Confirm, Pending, true},
		{Confirm, Confirmed, false},
		{Reject, Pending, true},
		{Reject, Confirmed, true},
		{Reject, Approved, false},
		{Approve, Confirmed, true},
		{Approve, Pending, false},
		{CloseBatch, Open, true},
		{CloseBatch, Closed, false},
		{Pay, Closed, true},
		{Pay, Open, false},
		{Pay, Paid, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.transition.Allows(tc.from), "%s from %s", tc.transition.Name, tc.from)
	}
}

func TestTransitionQueries(t *testing.T) {
	q := Confirm.Query(Target{SaleID: "9"})
	assert.Equal(t, "9", q.Get("id"))
	assert.Equal(t, "Confirmed", q.Get("newStatus"))
	assert.Equal(t, "Rejected", Reject.Query(Target{SaleID: "9"}).Get("newStatus"))
	assert.Equal(t, "B-7", Pay.Query(Target{BatchRef: "B-7"}).Get("ref"))
	assert.Nil(t, CloseBatch.Query(Target{}))
}

func TestAvailableRespectsPermissions(t *testing.T) {
	only := func(flags ...string) func(string) bool {
		return func(f string) bool {
			for _, x := range flags {
				if x == f {
					return true
				}
			}
			return false
		}
	}
	names := func(ts []Transition) []string {
		var out []string
		for _, t := range ts {
			out = append(out, t.Name)
		}
		return out
	}
	assert.Equal(t, []string{"confirm", "reject"}, names(Available(Pending, false, only(rbac.Approve1))))
	assert.Empty(t, Available(Pending, false, only(rbac.Approve2)))
	assert.Equal(t, []string{"reject", "approve"}, names(Available(Confirmed, false, only(rbac.Approve1, rbac.Approve2))))
	assert.Equal(t, []string{"pay"}, names(Available(Closed, true, only(rbac.Pay))))
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, Confirmed, ParseStatus(" CONFIRMED "))
	assert.Equal(t, Pending, ParseStatus("Pending"))
	assert.Equal(t, Status(""), ParseStatus("archived"))
}

func TestBatchFromAny(t *testing.T) {
	list := []any{
		map[string]any{"id": float64(1), "amount": float64(100), "commission": float64(5)},
		map[string]any{"id": float64(2), "amount": float64(50), "commission": float64(2.5)},
	}
	b := batchFromAny(list, "B-1", "")
	assert.Equal(t, "B-1", b.Ref)
	assert.Equal(t, 2, b.SaleCount)
	assert.Equal(t, 150.0, b.TotalAmount)
	assert.Equal(t, 7.5, b.TotalCommission)

	b = batchFromAny(map[string]any{"data": map[string]any{"referenceNumber": "B-2", "status": "PAID", "sales": list}}, "", "")
	assert.Equal(t, "B-2", b.Ref)
	assert.Equal(t, Paid, b.Status)
	assert.Len(t, b.Sales, 2)
}
