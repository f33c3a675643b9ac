package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlife/greenlife-admin/internal/live"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	_ "github.com/greenlife/greenlife-admin/testing"
)

type fakeBackend struct {
	logins  int
	tokens  []string
	pending []greenlife.Record
	expired map[string]bool
}

func (f *fakeBackend) Login(ctx context.Context, path string, creds greenlife.Credentials) (greenlife.LoginResult, error) {
	f.logins++
	return greenlife.LoginResult{Token: "tok-" + string(rune('0'+f.logins))}, nil
}

func (f *fakeBackend) Get(ctx context.Context, path string, query url.Values, out any) error {
	token := greenlife.TokenFromContext(ctx)
	f.tokens = append(f.tokens, token)
	if f.expired[token] {
		return greenlife.ErrUnauthorized
	}
	*(out.(*[]greenlife.Record)) = f.pending
	return nil
}

type capture struct {
	events []live.Event
	fail   int
}

func (c *capture) Publish(ctx context.Context, ev live.Event) error {
	if c.fail > 0 {
		c.fail--
		return errors.New("redis: connection refused")
	}
	c.events = append(c.events, ev)
	return nil
}

func newWatch(t *testing.T, backend *fakeBackend) (*SalesWatchJob, *capture, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	pub := &capture{}
	return &SalesWatchJob{Backend: backend, Redis: client, Publisher: pub, Creds: greenlife.Credentials{Username: "svc", Password: "pw"}}, pub, mr
}

func watchTask(t *testing.T, force bool) *asynq.Task {
	task, err := NewSalesWatchTask(SalesWatchPayload{Force: force})
	require.NoError(t, err)
	return task
}

func TestSalesWatchPublishesOnlyOnChange(t *testing.T) {
	backend := &fakeBackend{pending: []greenlife.Record{{"id": float64(1)}, {"id": float64(2)}}}
	job, pub, _ := newWatch(t, backend)
	ctx := context.Background()

	require.NoError(t, job.Handle(ctx, watchTask(t, false)))
	require.NoError(t, job.Handle(ctx, watchTask(t, false)))
	require.Len(t, pub.events, 1)
	assert.Equal(t, live.TypeQueue, pub.events[0].Type)
	assert.Equal(t, 2, pub.events[0].Pending)
	assert.Equal(t, 1, backend.logins)

	backend.pending = append(backend.pending, greenlife.Record{"id": float64(3)})
	require.NoError(t, job.Handle(ctx, watchTask(t, false)))
	require.Len(t, pub.events, 2)
	assert.Equal(t, 3, pub.events[1].Pending)

	require.NoError(t, job.Handle(ctx, watchTask(t, true)))
	assert.Len(t, pub.events, 3)
}

func TestSalesWatchRepublishesAfterFailedPublish(t *testing.T) {
	backend := &fakeBackend{pending: []greenlife.Record{{"id": float64(7)}}}
	job, pub, mr := newWatch(t, backend)
	pub.fail = 1
	ctx := context.Background()

	require.Error(t, job.Handle(ctx, watchTask(t, false)))
	assert.Empty(t, pub.events)
	assert.False(t, mr.Exists(digestKey))

	require.NoError(t, job.Handle(ctx, watchTask(t, false)))
	require.Len(t, pub.events, 1)
	assert.Equal(t, 1, pub.events[0].Pending)
	stored, err := mr.Get(digestKey)
	require.NoError(t, err)
	assert.Equal(t, Digest([]string{"7:"}), stored)
}

func TestSalesWatchRelogsAfterStaleToken(t *testing.T) {
	backend := &fakeBackend{expired: map[string]bool{"stale": true}}
	job, _, mr := newWatch(t, backend)
	require.NoError(t, mr.Set(tokenKey, "stale"))

	require.NoError(t, job.Handle(context.Background(), watchTask(t, false)))
	assert.Equal(t, []string{"stale", "tok-1"}, backend.tokens)
	cached, err := mr.Get(tokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", cached)
}

func TestSalesWatchRejectsBadPayload(t *testing.T) {
	job, _, _ := newWatch(t, &fakeBackend{})
	err := job.Handle(context.Background(), asynq.NewTask(TaskSalesWatch, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDigestIgnoresOrder(t *testing.T) {
	assert.Equal(t, Digest([]string{"a", "b"}), Digest([]string{"b", "a"}))
	assert.NotEqual(t, Digest([]string{"ab"}), Digest([]string{"a", "b"}))
}

type counter struct{ n int }

func (c *counter) Bump(ctx context.Context) error {
	c.n++
	return nil
}

func TestLookupRefresh(t *testing.T) {
	c := &counter{}
	job := &LookupRefreshJob{Cache: c}
	require.NoError(t, job.Handle(context.Background(), NewLookupRefreshTask()))
	assert.Equal(t, 1, c.n)
	assert.Error(t, (&LookupRefreshJob{}).Handle(context.Background(), nil))
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func health(h *Handler) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	return rr
}

func TestJobsHealth(t *testing.T) {
	rr := health(NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":3,"active":0,"retry":0,"failedToday":0,"paused":false,"connected":true}`, rr.Body.String())

	rr = health(NewHandler(fakeInspector{err: errors.New("dial tcp")}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = health(NewHandler(nil, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"connected":false`)
}
