package groups

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/shared"
)

// Backend paths.
const (
	ListPath   = "/group/all"
	CreatePath = "/group"
	UpdatePath = "/group/update"
	DeletePath = "/group/delete"
)

// Upstream is the part of the backend client used for groups.
type Upstream interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, query url.Values, body, out any) error
	Put(ctx context.Context, path string, query url.Values, body, out any) error
	Delete(ctx context.Context, path string, query url.Values, out any) error
}

// Invalidator drops cached reference lists after a mutation.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service wraps group CRUD calls.
type Service struct {
	upstream Upstream
	cache    Invalidator
}

// NewService constructs a new Service. cache may be nil.
func NewService(upstream Upstream, cache Invalidator) *Service {
	return &Service{upstream: upstream, cache: cache}
}

// List fetches every group.
func (s *Service) List(ctx context.Context) ([]Group, error) {
	var records []greenlife.Record
	if err := s.upstream.Get(ctx, ListPath, nil, &records); err != nil {
		return nil, fmt.Errorf("groups: list: %w", err)
	}
	out := make([]Group, 0, len(records))
	for _, rec := range records {
		out = append(out, FromRecord(rec))
	}
	return out, nil
}

// Get finds one group by id.
func (s *Service) Get(ctx context.Context, id string) (Group, error) {
	groups, err := s.List(ctx)
	if err != nil {
		return Group{}, err
	}
	for _, g := range groups {
		if g.ID == id {
			return g, nil
		}
	}
	return Group{}, shared.ErrNotFound
}

// Create posts a new group.
func (s *Service) Create(ctx context.Context, in Input) error {
	if err := s.upstream.Post(ctx, CreatePath, nil, in.Body(), nil); err != nil {
		return fmt.Errorf("groups: create: %w", err)
	}
	s.bump(ctx)
	return nil
}

// Update replaces the group with id.
func (s *Service) Update(ctx context.Context, id string, in Input) error {
	body := in.Body()
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		body["id"] = n
	} else {
		body["id"] = id
	}
	if err := s.upstream.Put(ctx, UpdatePath, url.Values{"id": {id}}, body, nil); err != nil {
		return fmt.Errorf("groups: update %s: %w", id, err)
	}
	s.bump(ctx)
	return nil
}

// Delete removes the group with id once confirmed.
func (s *Service) Delete(ctx context.Context, id, confirmation string) error {
	if !shared.Confirmed(confirmation) {
		return shared.ErrNotConfirmed
	}
	if err := s.upstream.Delete(ctx, DeletePath, url.Values{"id": {id}}, nil); err != nil {
		return fmt.Errorf("groups: delete %s: %w", id, err)
	}
	s.bump(ctx)
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
}
