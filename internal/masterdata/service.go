package masterdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/shared"
)

// Upstream is the part of the backend client used for CRUD calls.
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

// Service performs CRUD calls for any Resource.
type Service struct {
	upstream  Upstream
	cache     Invalidator
	validator *validator.Validate
}

// NewService creates a new master data service. cache may be nil.
func NewService(upstream Upstream, cache Invalidator) *Service {
	return &Service{upstream: upstream, cache: cache, validator: shared.NewValidator()}
}

// List fetches every record of res.
func (s *Service) List(ctx context.Context, res Resource) ([]greenlife.Record, error) {
	var records []greenlife.Record
	if err := s.upstream.Get(ctx, res.ListPath(), nil, &records); err != nil {
		return nil, fmt.Errorf("masterdata: list %s: %w", res.Slug, err)
	}
	return records, nil
}

// Record finds one record of res by id in the list result.
func (s *Service) Record(ctx context.Context, res Resource, id string) (greenlife.Record, error) {
	records, err := s.List(ctx, res)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ID() == id {
			return rec, nil
		}
	}
	return nil, shared.ErrNotFound
}

// Validate checks the submitted values against the form's rules. The result
// maps field names to messages and is empty when the form is valid.
func (s *Service) Validate(res Resource, values url.Values, creating bool) map[string]string {
	fields := res.FormFields(creating)
	checks := make([]shared.FieldCheck, 0, len(fields))
	for _, f := range fields {
		checks = append(checks, shared.FieldCheck{Key: f.Name, Label: f.Label, Value: values.Get(f.Name), Rules: f.Rules})
	}
	return shared.CheckFields(s.validator, checks)
}

// Create posts a new record.
func (s *Service) Create(ctx context.Context, res Resource, values url.Values) error {
	if err := s.upstream.Post(ctx, res.CreatePath(), nil, Body(res, values, true), nil); err != nil {
		return fmt.Errorf("masterdata: create %s: %w", res.Slug, err)
	}
	s.bump(ctx)
	return nil
}

// Update replaces the record with id.
func (s *Service) Update(ctx context.Context, res Resource, id string, values url.Values) error {
	body := Body(res, values, false)
	body["id"] = idValue(id)
	if err := s.upstream.Put(ctx, res.UpdatePath(), url.Values{"id": {id}}, body, nil); err != nil {
		return fmt.Errorf("masterdata: update %s %s: %w", res.Slug, id, err)
	}
	s.bump(ctx)
	return nil
}

// SetActive switches the active flag of the record with id.
func (s *Service) SetActive(ctx context.Context, res Resource, id string, active bool) error {
	if !res.Toggle {
		return shared.ErrNotFound
	}
	query := url.Values{"id": {id}, "active": {strconv.FormatBool(active)}}
	if err := s.upstream.Put(ctx, res.StatusPath(), query, nil, nil); err != nil {
		return fmt.Errorf("masterdata: status %s %s: %w", res.Slug, id, err)
	}
	s.bump(ctx)
	return nil
}

// Delete removes the record with id. Nothing is sent unless confirmation is
// exactly the confirmation word.
func (s *Service) Delete(ctx context.Context, res Resource, id, confirmation string) error {
	if !shared.Confirmed(confirmation) {
		return shared.ErrNotConfirmed
	}
	if err := s.upstream.Delete(ctx, res.DeletePath(), url.Values{"id": {id}}, nil); err != nil {
		return fmt.Errorf("masterdata: delete %s %s: %w", res.Slug, id, err)
	}
	s.bump(ctx)
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
}

// Body converts submitted form values into the JSON object sent upstream.
// Numbers are sent as numbers and lookup ids as integers when they are numeric.
func Body(res Resource, values url.Values, creating bool) map[string]any {
	body := make(map[string]any, len(res.Fields))
	for _, f := range res.FormFields(creating) {
		raw := strings.TrimSpace(values.Get(f.Name))
		switch f.Kind {
		case NumberInput:
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			body[f.Name] = n
		case LookupInput:
			if raw == "" {
				continue
			}
			body[f.Name] = idValue(raw)
		case PasswordInput:
			if raw == "" {
				continue
			}
			body[f.Name] = values.Get(f.Name)
		default:
			body[f.Name] = raw
		}
	}
	if res.Prepare != nil {
		res.Prepare(body)
	}
	return body
}

func idValue(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
