package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlife/greenlife-admin/internal/rbac"
	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/internal/view"
	_ "github.com/greenlife/greenlife-admin/testing"
)

func newMiddleware(t *testing.T) rbac.Middleware {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	return rbac.Middleware{Templates: templates, CSRF: shared.NewCSRFManager("csrf")}
}

func requestAs(perms map[string]bool) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/masterdata/agents", nil)
	ctx := shared.ContextWithSession(req.Context(), &shared.Session{ID: "s1"})
	ctx = shared.ContextWithPrincipal(ctx, shared.Principal{User: "amina", Permissions: perms})
	return req.WithContext(ctx)
}

func TestRequireAllDeniesWithoutReachingHandler(t *testing.T) {
	m := newMiddleware(t)
	reached := false
	h := m.RequireAll(rbac.Flag(rbac.ActionDelete, "Agent"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, requestAs(map[string]bool{"readAgent": true, "deleteAgent": false}))

	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "Access denied")
}

func TestRequireAllGrants(t *testing.T) {
	m := newMiddleware(t)
	h := m.RequireAll("readAgent", "updateAgent")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, requestAs(map[string]bool{"readAgent": true, "updateAgent": true}))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRequireAnyNeedsOneFlag(t *testing.T) {
	m := newMiddleware(t)
	h := m.RequireAny(rbac.SalesFlags...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, requestAs(map[string]bool{rbac.Pay: true}))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, requestAs(nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUnauthenticatedRedirectsOrRejects(t *testing.T) {
	m := newMiddleware(t)
	h := m.RequireAny("readAgent")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/masterdata/agents", nil))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, rbac.LoginPath, rr.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/masterdata/agents", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCatalog(t *testing.T) {
	catalog := rbac.Catalog()
	assert.Len(t, catalog, len(rbac.Entities)*4+len(rbac.Workflow))
	assert.Contains(t, catalog, "createSubRegionManager")
	assert.Contains(t, catalog, "viewRecieptImage")
	assert.Equal(t, []string{"createGroup", "readGroup", "updateGroup", "deleteGroup"}, rbac.Matrix()[6].Flags)
}
