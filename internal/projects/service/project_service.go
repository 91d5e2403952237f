package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/auth"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/metrics"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/domain"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/repository"
)

// ProjectService validates and submits mutations to the record store.
//
// It never touches a snapshot: the effect of a create or delete becomes
// visible only when the store's next notification reaches a Synchronizer.
type ProjectService struct {
	store    repository.RecordStore
	owners   auth.OwnerSource
	validate *validator.Validate
	now      func() time.Time
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a ProjectService.
type Option func(*ProjectService)

// WithClock replaces time.Now for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *ProjectService) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *ProjectService) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ProjectService) { s.metrics = m }
}

// NewProjectService creates a new project service
func NewProjectService(store repository.RecordStore, owners auth.OwnerSource, opts ...Option) *ProjectService {
	s := &ProjectService{
		store:    store,
		owners:   owners,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create submits a new project owned by the current owner and returns the id
// the store assigned. It returns once the store acknowledged the write.
func (s *ProjectService) Create(ctx context.Context, name, description string) (string, error) {
	if name == "" || description == "" {
		s.metrics.Mutation("create", "invalid")
		return "", fmt.Errorf("%w: name and description are required", domain.ErrValidation)
	}

	ownerID, ok := s.owners.CurrentOwnerID()
	if !ok {
		s.metrics.Mutation("create", "unauthenticated")
		return "", domain.ErrUnauthenticated
	}

	p := domain.Project{
		Name:        name,
		Description: description,
		CreatedAt:   domain.FormatCreatedAt(s.now()),
		OwnerID:     ownerID,
	}
	if err := s.validate.Struct(p); err != nil {
		s.metrics.Mutation("create", "invalid")
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	id, err := s.store.Create(ctx, p)
	if err != nil {
		s.metrics.Mutation("create", "failed")
		s.log.Error("create project failed", "owner_id", ownerID, "error", err)
		return "", &domain.StoreError{Op: "create", Err: err}
	}

	s.metrics.Mutation("create", "ok")
	s.log.Info("project created", "owner_id", ownerID, "project_id", id)
	return id, nil
}

// Delete removes the project with the given id. Existence is not checked
// locally; a store reporting the record as missing counts as success.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if id == "" {
		s.metrics.Mutation("delete", "invalid")
		return fmt.Errorf("%w: id is required", domain.ErrValidation)
	}

	ownerID, ok := s.owners.CurrentOwnerID()
	if !ok {
		s.metrics.Mutation("delete", "unauthenticated")
		return domain.ErrUnauthenticated
	}

	err := s.store.Delete(ctx, ownerID, id)
	switch {
	case err == nil:
		s.metrics.Mutation("delete", "ok")
		s.log.Info("project deleted", "owner_id", ownerID, "project_id", id)
		return nil
	case errors.Is(err, domain.ErrNotFound):
		s.metrics.Mutation("delete", "not_found")
		s.log.Debug("delete of missing project", "owner_id", ownerID, "project_id", id)
		return nil
	default:
		s.metrics.Mutation("delete", "failed")
		s.log.Error("delete project failed", "owner_id", ownerID, "project_id", id, "error", err)
		return &domain.StoreError{Op: "delete", Err: err}
	}
}
