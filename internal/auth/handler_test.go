package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlife/greenlife-admin/internal/auth"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/internal/view"
	_ "github.com/greenlife/greenlife-admin/testing"
)

type stubUpstream struct {
	path   string
	creds  greenlife.Credentials
	result greenlife.LoginResult
	err    error
}

func (s *stubUpstream) Login(ctx context.Context, path string, creds greenlife.Credentials) (greenlife.LoginResult, error) {
	s.path = path
	s.creds = creds
	return s.result, s.err
}

type stubRepo struct {
	created []auth.LoginSession
	deleted []string
}

func (s *stubRepo) CreateSession(ctx context.Context, rec auth.LoginSession) error {
	s.created = append(s.created, rec)
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type fixture struct {
	router   chi.Router
	sessions *shared.SessionManager
	upstream *stubUpstream
	repo     *stubRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	f := &fixture{sessions: sessions, upstream: &stubUpstream{}, repo: &stubRepo{}}
	handler := auth.NewHandler(nil, auth.NewService(f.upstream, f.repo), templates, sessions, shared.NewCSRFManager("csrf"))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			cw := &commitOnWrite{ResponseWriter: w, commit: func() {
				require.NoError(t, sessions.Commit(context.Background(), w, req, sess))
			}}
			next.ServeHTTP(cw, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/auth", handler.MountRoutes)
	f.router = r
	return f
}

// commitOnWrite persists the session before the status line is sent.
type commitOnWrite struct {
	http.ResponseWriter
	commit func()
	done   bool
}

func (c *commitOnWrite) WriteHeader(status int) {
	if !c.done {
		c.done = true
		c.commit()
	}
	c.ResponseWriter.WriteHeader(status)
}

func (c *commitOnWrite) Write(b []byte) (int, error) {
	if !c.done {
		c.WriteHeader(http.StatusOK)
	}
	return c.ResponseWriter.Write(b)
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func postLogin(form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func sessionCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginPage(t *testing.T) {
	f := newFixture(t)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<form")
}

func TestLoginRequiresFields(t *testing.T) {
	f := newFixture(t)
	rr := f.do(postLogin(url.Values{"role": {"Admin"}}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Username is required")
	assert.Empty(t, f.upstream.path)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	f.upstream.err = greenlife.ErrUnauthorized

	rr := f.do(postLogin(url.Values{"username": {"amina"}, "password": {"wrong"}, "role": {"Admin"}}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid username or password")
	assert.Empty(t, f.repo.created)
}

func TestLoginShowsBackendMessage(t *testing.T) {
	f := newFixture(t)
	f.upstream.err = &greenlife.APIError{Status: http.StatusBadRequest, Message: "Account locked"}

	rr := f.do(postLogin(url.Values{"username": {"amina"}, "password": {"pw"}, "role": {"Manager"}}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Account locked")
	assert.Equal(t, greenlife.ManagerLoginPath, f.upstream.path)
}

func TestLoginStoresPrincipal(t *testing.T) {
	f := newFixture(t)
	f.upstream.result = greenlife.LoginResult{
		Token:       "tok-1",
		Name:        "Amina",
		GroupName:   "Finance",
		Permissions: map[string]bool{"readAgent": true},
	}

	rr := f.do(postLogin(url.Values{"username": {" amina "}, "password": {"pw"}, "role": {"Admin"}}))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.Equal(t, greenlife.AdminLoginPath, f.upstream.path)
	assert.Equal(t, "amina", f.upstream.creds.Username)

	cookie := sessionCookie(rr, f.sessions.CookieName())
	require.NotNil(t, cookie)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	principal, ok := f.sessions.Principal(sess)
	require.True(t, ok)
	assert.Equal(t, "Amina", principal.User)
	assert.Equal(t, "Finance", principal.Group)
	assert.Equal(t, "tok-1", principal.Token)
	assert.True(t, principal.Can("readAgent"))

	require.Len(t, f.repo.created, 1)
	assert.Equal(t, sess.ID, f.repo.created[0].ID)
}

func TestLogoutDestroysSession(t *testing.T) {
	f := newFixture(t)
	f.upstream.result = greenlife.LoginResult{Token: "tok-1", Name: "Amina"}
	rr := f.do(postLogin(url.Values{"username": {"amina"}, "password": {"pw"}, "role": {"Admin"}}))
	cookie := sessionCookie(rr, f.sessions.CookieName())
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	rr = f.do(req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/auth/login", rr.Header().Get("Location"))
	assert.Equal(t, []string{cookie.Value}, f.repo.deleted)
}

func TestLoginPageShowsExpiryNoticeOnce(t *testing.T) {
	f := newFixture(t)
	sess := &shared.Session{ID: "expired-session"}
	first, err := f.sessions.MarkExpired(context.Background(), sess)
	require.NoError(t, err)
	require.True(t, first)

	cookie := &http.Cookie{Name: f.sessions.CookieName(), Value: sess.ID}
	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.AddCookie(cookie)
	rr := f.do(req)
	assert.Contains(t, rr.Body.String(), auth.SessionExpiredMessage)

	req = httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.AddCookie(cookie)
	rr = f.do(req)
	assert.NotContains(t, rr.Body.String(), auth.SessionExpiredMessage)
}
