package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/greenlife/greenlife-admin/internal/jobs"
	"github.com/greenlife/greenlife-admin/internal/live"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
)

const (
	pendingPath = "/sales/fetch"
	digestKey   = "jobs:sales-watch:digest"
	tokenKey    = "jobs:sales-watch:token"
	tokenTTL    = 30 * time.Minute
)

// Backend is the part of the GreenLife client the watcher needs.
type Backend interface {
	Login(ctx context.Context, path string, creds greenlife.Credentials) (greenlife.LoginResult, error)
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Publisher announces queue changes.
type Publisher interface {
	Publish(ctx context.Context, ev live.Event) error
}

// SalesWatchJob signs in with the service account, reads the pending sales
// and publishes a queue event when the set differs from the previous run.
type SalesWatchJob struct {
	Backend   Backend
	Redis     *redis.Client
	Publisher Publisher
	Creds     greenlife.Credentials
	LoginPath string
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handle processes TaskSalesWatch tasks.
func (j *SalesWatchJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Backend == nil || j.Redis == nil {
		return errors.New("sales watch: handler not configured")
	}
	var payload SalesWatchPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("sales watch: payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	tracker := j.Metrics.Track(TaskSalesWatch)
	defer func() { err = tracker.End(err) }()

	ids, err := j.pending(ctx)
	if greenlife.IsUnauthorized(err) {
		// The cached token went stale; retry once with a fresh login.
		j.Redis.Del(ctx, tokenKey)
		ids, err = j.pending(ctx)
	}
	if err != nil {
		return err
	}
	j.Metrics.Pending(len(ids))

	digest := Digest(ids)
	prev, err := j.Redis.Get(ctx, digestKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("sales watch: read digest: %w", err)
	}
	if prev == digest && !payload.Force {
		return nil
	}
	j.Metrics.QueueChanged(len(ids))
	j.logger().Info("pending sales changed", slog.Int("pending", len(ids)))
	if j.Publisher != nil {
		if err := j.Publisher.Publish(ctx, live.Event{Type: live.TypeQueue, Pending: len(ids), Actor: "worker"}); err != nil {
			return fmt.Errorf("sales watch: publish: %w", err)
		}
	}
	// Stored only once subscribers have seen the change, so a failed
	// publish is repeated on the next run.
	if err := j.Redis.Set(ctx, digestKey, digest, 0).Err(); err != nil {
		return fmt.Errorf("sales watch: store digest: %w", err)
	}
	return nil
}

func (j *SalesWatchJob) pending(ctx context.Context) ([]string, error) {
	token, err := j.token(ctx)
	if err != nil {
		return nil, err
	}
	var recs []greenlife.Record
	if err := j.Backend.Get(greenlife.WithToken(ctx, token), pendingPath, nil, &recs); err != nil {
		return nil, fmt.Errorf("sales watch: fetch pending: %w", err)
	}
	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID()+":"+rec.String("status"))
	}
	return ids, nil
}

func (j *SalesWatchJob) token(ctx context.Context) (string, error) {
	token, err := j.Redis.Get(ctx, tokenKey).Result()
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("sales watch: read token: %w", err)
	}
	path := j.LoginPath
	if path == "" {
		path = greenlife.AdminLoginPath
	}
	res, err := j.Backend.Login(ctx, path, j.Creds)
	if err != nil {
		return "", fmt.Errorf("sales watch: login: %w", err)
	}
	if err := j.Redis.Set(ctx, tokenKey, res.Token, tokenTTL).Err(); err != nil {
		j.logger().Warn("cache service token", slog.Any("error", err))
	}
	return res.Token, nil
}

func (j *SalesWatchJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}

// Digest fingerprints a set of sale keys independent of their order.
func Digest(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	h := sha256.New()
	for _, id := range sorted {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Invalidator drops cached lookup lists.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// LookupRefreshJob bumps the lookup cache version.
type LookupRefreshJob struct {
	Cache   Invalidator
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskLookupRefresh tasks.
func (j *LookupRefreshJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("lookup refresh: handler not configured")
	}
	return j.Metrics.Track(TaskLookupRefresh).End(j.Cache.Bump(ctx))
}
