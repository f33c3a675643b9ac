package sales_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlife/greenlife-admin/internal/live"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/rbac"
	"github.com/greenlife/greenlife-admin/internal/sales"
	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/internal/view"
	_ "github.com/greenlife/greenlife-admin/testing"
)

type request struct {
	Method string
	Path   string
	Query  url.Values
}

type stubUpstream struct {
	lists    map[string]any
	err      error
	requests []request
	opened   []string
}

func (s *stubUpstream) Get(ctx context.Context, path string, query url.Values, out any) error {
	s.requests = append(s.requests, request{http.MethodGet, path, query})
	if s.err != nil {
		return s.err
	}
	switch dst := out.(type) {
	case *[]greenlife.Record:
		if v, ok := s.lists[path].([]greenlife.Record); ok {
			*dst = v
		}
	case *any:
		*dst = s.lists[path]
	}
	return nil
}

func (s *stubUpstream) Post(ctx context.Context, path string, query url.Values, body, out any) error {
	s.requests = append(s.requests, request{http.MethodPost, path, query})
	return s.err
}

func (s *stubUpstream) Put(ctx context.Context, path string, query url.Values, body, out any) error {
	s.requests = append(s.requests, request{http.MethodPut, path, query})
	return s.err
}

func (s *stubUpstream) Open(ctx context.Context, path string, query url.Values) (*greenlife.Stream, error) {
	s.opened = append(s.opened, path+"?"+query.Encode())
	if s.err != nil {
		return nil, s.err
	}
	return &greenlife.Stream{Body: io.NopCloser(strings.NewReader("payload")), ContentType: "image/jpeg", ContentLength: 7}, nil
}

func (s *stubUpstream) mutations() []request {
	var out []request
	for _, r := range s.requests {
		if r.Method != http.MethodGet {
			out = append(out, r)
		}
	}
	return out
}

type memoryLog struct {
	entries []sales.ApprovalEntry
}

func (m *memoryLog) Record(ctx context.Context, e sales.ApprovalEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryLog) History(ctx context.Context, ref string, ids []string) ([]sales.ApprovalEntry, error) {
	return m.entries, nil
}

type memoryPublisher struct {
	events []live.Event
}

func (m *memoryPublisher) Publish(ctx context.Context, ev live.Event) error {
	m.events = append(m.events, ev)
	return nil
}

type stubPDF struct{ html string }

func (s *stubPDF) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	s.html = html
	return []byte("%PDF-1.7"), nil
}

type stubExpirer struct{ n int }

func (s *stubExpirer) Expire(w http.ResponseWriter, r *http.Request) {
	s.n++
	rbac.Unauthenticated(w, r)
}

type fixture struct {
	router    chi.Router
	upstream  *stubUpstream
	log       *memoryLog
	publisher *memoryPublisher
	pdf       *stubPDF
	expirer   *stubExpirer
}

func newFixture(t *testing.T, perms map[string]bool) *fixture {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	csrf := shared.NewCSRFManager("csrf")
	f := &fixture{
		upstream:  &stubUpstream{lists: map[string]any{}},
		log:       &memoryLog{},
		publisher: &memoryPublisher{},
		pdf:       &stubPDF{},
		expirer:   &stubExpirer{},
	}
	svc := sales.NewService(f.upstream, f.log, f.publisher, nil)
	h := sales.NewHandler(nil, svc, templates, csrf, rbac.Middleware{Templates: templates, CSRF: csrf}, f.expirer, f.pdf, 10)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithSession(req.Context(), &shared.Session{ID: "s1"})
			ctx = shared.ContextWithPrincipal(ctx, shared.Principal{User: "amina", Permissions: perms})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/sales", h.MountRoutes)
	f.router = r
	return f
}

func (f *fixture) get(target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func (f *fixture) post(target string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestConfirmFiresRequestLogsAndPublishes(t *testing.T) {
	f := newFixture(t, map[string]bool{rbac.Approve1: true})
	rr := f.post("/sales/transitions/confirm", url.Values{"id": {"41"}, "status": {"pending"}, "return": {"/sales?tab=pending"}})

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/sales?tab=pending", rr.Header().Get("Location"))
	require.Len(t, f.upstream.mutations(), 1)
	req := f.upstream.mutations()[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/sales/update", req.Path)
	assert.Equal(t, "Confirmed", req.Query.Get("newStatus"))

	require.Len(t, f.log.entries, 1)
	assert.Equal(t, "amina", f.log.entries[0].Actor)
	assert.Equal(t, sales.Confirmed, f.log.entries[0].To)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "confirm", f.publisher.events[0].Transition)
}

func TestInvalidTransitionSendsNothing(t *testing.T) {
	f := newFixture(t, map[string]bool{rbac.Approve2: true})
	rr := f.post("/sales/transitions/approve", url.Values{"id": {"41"}, "status": {"pending"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Empty(t, f.upstream.mutations())
	assert.Empty(t, f.publisher.events)

	rr = f.post("/sales/transitions/approve", url.Values{"id": {"41"}, "status": {"pending"}}, "X-Requested-With", "XMLHttpRequest")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Empty(t, f.upstream.mutations())
}

func TestTransitionDeniedWithoutFlag(t *testing.T) {
	f := newFixture(t, map[string]bool{rbac.Approve1: true})
	rr := f.post("/sales/transitions/pay", url.Values{"ref": {"B-1"}, "status": {"closed"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "Access denied")
	assert.Empty(t, f.upstream.requests)
}

func TestPayUsesBatchReference(t *testing.T) {
	f := newFixture(t, map[string]bool{rbac.Pay: true})
	rr := f.post("/sales/transitions/pay", url.Values{"ref": {"B-9"}, "status": {"closed"}}, "Accept", "application/json")
	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, f.upstream.mutations(), 1)
	req := f.upstream.mutations()[0]
	assert.Equal(t, "/sales/v1/confirmation", req.Path)
	assert.Equal(t, "B-9", req.Query.Get("ref"))
}

func TestQueueShowsOnlyPermittedActions(t *testing.T) {
	f := newFixture(t, map[string]bool{rbac.Approve1: true})
	f.upstream.lists["/sales/fetch"] = []greenlife.Record{
		{"id": float64(1), "referenceNumber": "R-001", "agent": "Otieno", "amount": float64(1200)},
		{"id": float64(2), "referenceNumber": "R-002", "agent": "Wanjiru", "amount": float64(800)},
	}
	rr := f.get("/sales?tab=pending")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "R-001")
	assert.Contains(t, body, "/sales/transitions/confirm")
	assert.NotContains(t, body, "/sales/transitions/approve")
	assert.Contains(t, body, `data-transition="Confirm" data-target="sale 1"`)

	rr = f.get("/sales?tab=pending&search=wanjiru")
	assert.NotContains(t, rr.Body.String(), "R-001")
	assert.Contains(t, rr.Body.String(), "R-002")
}

func TestUpstream401ExpiresSession(t *testing.T) {
	f := newFixture(t, map[string]bool{rbac.Approve1: true})
	f.upstream.err = greenlife.ErrUnauthorized
	rr := f.post("/sales/transitions/confirm", url.Values{"id": {"1"}, "status": {"pending"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, rbac.LoginPath, rr.Header().Get("Location"))
	assert.Equal(t, 1, f.expirer.n)
}

func TestReceiptProxy(t *testing.T) {
	f := newFixture(t, map[string]bool{rbac.ViewReceiptImage: true})
	rr := f.get("/sales/receipts/2024/05/r-1.jpg")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/jpeg", rr.Header().Get("Content-Type"))
	assert.Equal(t, "payload", rr.Body.String())
	assert.Equal(t, []string{"/serve/getImage/2024/05/r-1.jpg?"}, f.upstream.opened)

	rr = f.get("/sales/receipts/../secret")
	assert.NotEqual(t, http.StatusOK, rr.Code)

	rr = f.get("/sales/receipts/%2e%2e/secret")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Len(t, f.upstream.opened, 1)

	denied := newFixture(t, map[string]bool{rbac.Approve1: true})
	rr = denied.get("/sales/receipts/r-1.jpg")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, denied.upstream.opened)
}

func TestBatchCSVAndStatement(t *testing.T) {
	f := newFixture(t, map[string]bool{rbac.Pay: true})
	f.upstream.lists["/sales/get-batch"] = map[string]any{
		"referenceNumber": "B-3", "status": "paid",
		"sales": []any{map[string]any{"id": float64(5), "referenceNumber": "R-005", "amount": float64(300)}},
	}

	rr := f.get("/sales/batches/B-3/csv")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "batch-B-3.csv")
	assert.Equal(t, []string{"/sales/generate-csv?ref=B-3"}, f.upstream.opened)

	rr = f.get("/sales/batches/B-3")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "R-005")
	assert.Contains(t, rr.Body.String(), "statement.pdf")

	rr = f.get("/sales/batches/B-3/statement.pdf")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, f.pdf.html, "R-005")
}

func TestStatementRefusedUntilBatchIsPaid(t *testing.T) {
	f := newFixture(t, map[string]bool{rbac.Pay: true})
	f.upstream.lists["/sales/get-batch"] = map[string]any{
		"referenceNumber": "B-4", "status": "closed",
		"sales": []any{map[string]any{"id": float64(6), "referenceNumber": "R-006", "amount": float64(120)}},
	}

	rr := f.get("/sales/batches/B-4")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "statement.pdf")

	rr = f.get("/sales/batches/B-4/statement.pdf")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/sales/batches/B-4", rr.Header().Get("Location"))
	assert.Empty(t, f.pdf.html)
}
