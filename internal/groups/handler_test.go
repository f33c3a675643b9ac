package groups_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlife/greenlife-admin/internal/groups"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/rbac"
	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/internal/view"
	_ "github.com/greenlife/greenlife-admin/testing"
)

type stubUpstream struct {
	records []greenlife.Record
	posted  []any
	put     []url.Values
	deleted []url.Values
}

func (s *stubUpstream) Get(ctx context.Context, path string, query url.Values, out any) error {
	*(out.(*[]greenlife.Record)) = s.records
	return nil
}

func (s *stubUpstream) Post(ctx context.Context, path string, query url.Values, body, out any) error {
	s.posted = append(s.posted, body)
	return nil
}

func (s *stubUpstream) Put(ctx context.Context, path string, query url.Values, body, out any) error {
	s.put = append(s.put, query)
	return nil
}

func (s *stubUpstream) Delete(ctx context.Context, path string, query url.Values, out any) error {
	s.deleted = append(s.deleted, query)
	return nil
}

type nopExpirer struct{}

func (nopExpirer) Expire(w http.ResponseWriter, r *http.Request) { rbac.Unauthenticated(w, r) }

func newRouter(t *testing.T, upstream *stubUpstream, perms map[string]bool) chi.Router {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	csrf := shared.NewCSRFManager("csrf")
	h := groups.NewHandler(nil, groups.NewService(upstream, nil), templates, csrf, rbac.Middleware{Templates: templates, CSRF: csrf}, nopExpirer{}, 10)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithSession(req.Context(), &shared.Session{ID: "s1"})
			ctx = shared.ContextWithPrincipal(ctx, shared.Principal{User: "amina", Permissions: perms})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/groups", h.MountRoutes)
	return r
}

func post(r http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

var groupPerms = map[string]bool{"readGroup": true, "createGroup": true, "updateGroup": true, "deleteGroup": true}

func TestCreateGroupSendsCheckedFlags(t *testing.T) {
	upstream := &stubUpstream{}
	r := newRouter(t, upstream, groupPerms)

	rr := post(r, "/groups", url.Values{"groupName": {"Field ops"}, "perm": {"readAgent", rbac.Approve1, "bogusFlag"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	require.Len(t, upstream.posted, 1)
	body := upstream.posted[0].(map[string]any)
	assert.Equal(t, "Field ops", body["groupName"])
	perms := body["permissions"].(map[string]bool)
	assert.True(t, perms["readAgent"])
	assert.True(t, perms[rbac.Approve1])
	assert.False(t, perms["deleteAgent"])
	_, ok := perms["bogusFlag"]
	assert.False(t, ok)
	assert.Len(t, perms, len(rbac.Catalog()))
}

func TestCreateGroupRequiresName(t *testing.T) {
	upstream := &stubUpstream{}
	r := newRouter(t, upstream, groupPerms)
	rr := post(r, "/groups", url.Values{"perm": {"readAgent"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Group name is required")
	assert.Empty(t, upstream.posted)
}

func TestEditFormChecksGrantedFlags(t *testing.T) {
	upstream := &stubUpstream{records: []greenlife.Record{{
		"id": float64(4), "groupName": "Finance",
		"permissions": map[string]any{"pay": true, "readAgent": false},
	}}}
	r := newRouter(t, upstream, groupPerms)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/groups/4/edit", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `value="pay" checked`)
	assert.NotContains(t, body, `value="readAgent" checked`)
}

func TestDeleteGroupNeedsConfirmation(t *testing.T) {
	upstream := &stubUpstream{}
	r := newRouter(t, upstream, groupPerms)
	post(r, "/groups/4/delete", url.Values{"confirm": {"no"}})
	assert.Empty(t, upstream.deleted)
	post(r, "/groups/4/delete", url.Values{"confirm": {"yes"}})
	require.Len(t, upstream.deleted, 1)
	assert.Equal(t, "4", upstream.deleted[0].Get("id"))
}

func TestGroupsDeniedWithoutFlag(t *testing.T) {
	upstream := &stubUpstream{}
	r := newRouter(t, upstream, map[string]bool{"readGroup": true})
	rr := post(r, "/groups", url.Values{"groupName": {"X"}})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, upstream.posted)
}

func TestFromRecordFlatPermissions(t *testing.T) {
	g := groups.FromRecord(greenlife.Record{"id": "g", "name": "Ops", "closeBatch": true, "unknown": true})
	assert.Equal(t, "Ops", g.Name)
	assert.Equal(t, []string{"closeBatch"}, g.Granted())
}
