// Package lookup caches the small reference lists behind the form dropdowns.
package lookup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/view"
)

const (
	versionKey  = "lookup:version"
	loadTimeout = 10 * time.Second
)

// Owner is the operator a list is fetched for. Backend lists can be scoped to
// the caller, so entries are never shared across operators.
type Owner struct {
	User string
	Role string
}

func (o Owner) key() string {
	sum := sha256.Sum256([]byte(strings.ToLower(o.Role) + "\x00" + o.User))
	return hex.EncodeToString(sum[:8])
}

// Fetcher is the part of the backend client the cache loads through.
type Fetcher interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Kind names one reference list and how its records become options.
type Kind struct {
	Name   string
	Path   string
	Labels []string
}

// Reference lists used by the forms.
var (
	Regions      = Kind{Name: "regions", Path: "/region/all", Labels: []string{"name", "regionName"}}
	SubRegions   = Kind{Name: "subregions", Path: "/subregion/all", Labels: []string{"name", "subRegionName"}}
	Distributors = Kind{Name: "distributors", Path: "/distributor/all", Labels: []string{"businessName", "name"}}
	Groups       = Kind{Name: "groups", Path: "/group/all", Labels: []string{"groupName", "name"}}
	Products     = Kind{Name: "products", Path: "/product/all", Labels: []string{"description", "name"}}
)

// Cache wraps Redis based caching with versioning controls.
type Cache struct {
	client  *redis.Client
	fetcher Fetcher
	ttl     time.Duration
	group   singleflight.Group
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, fetcher Fetcher, ttl time.Duration) *Cache {
	return &Cache{client: client, fetcher: fetcher, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, versionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Options returns the dropdown options of kind as seen by owner. Concurrent
// misses for the same owner share one backend fetch, which runs detached from
// the first caller's cancellation.
func (c *Cache) Options(ctx context.Context, owner Owner, kind Kind) ([]view.Option, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("lookup: version: %w", err)
	}
	key := fmt.Sprintf("lookup:%s:%s:%d", owner.key(), kind.Name, ver)

	if c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var opts []view.Option
			if err := json.Unmarshal(payload, &opts); err == nil {
				return opts, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("lookup: read %s: %w", kind.Name, err)
		}
	}

	led := false
	ch := c.group.DoChan(key, func() (any, error) {
		led = true
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return c.load(loadCtx, key, kind)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err == nil {
			return res.Val.([]view.Option), nil
		}
		// A 401 on a shared fetch belongs to the token that made it.
		if !led && greenlife.IsUnauthorized(res.Err) {
			return c.load(ctx, key, kind)
		}
		return nil, res.Err
	}
}

func (c *Cache) load(ctx context.Context, key string, kind Kind) ([]view.Option, error) {
	var records []greenlife.Record
	if err := c.fetcher.Get(ctx, kind.Path, nil, &records); err != nil {
		return nil, err
	}
	opts := toOptions(records, kind.Labels)
	if c.client != nil {
		raw, err := json.Marshal(opts)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return nil, fmt.Errorf("lookup: store %s: %w", kind.Name, err)
		}
	}
	return opts, nil
}

// Bump invalidates every cached list by moving to a new version.
func (c *Cache) Bump(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey).Err()
}

func toOptions(records []greenlife.Record, labels []string) []view.Option {
	opts := make([]view.Option, 0, len(records))
	for _, rec := range records {
		id := rec.ID()
		if id == "" {
			continue
		}
		label := ""
		for _, key := range labels {
			if label = rec.String(key); label != "" {
				break
			}
		}
		if label == "" {
			label = id
		}
		opts = append(opts, view.Option{Value: id, Label: label})
	}
	sort.SliceStable(opts, func(i, j int) bool {
		return strings.ToLower(opts[i].Label) < strings.ToLower(opts[j].Label)
	})
	return opts
}
