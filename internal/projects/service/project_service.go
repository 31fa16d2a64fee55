package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ocean-authoring/ocean-backend/internal/document"
	"github.com/ocean-authoring/ocean-backend/internal/llm"
	"github.com/ocean-authoring/ocean-backend/internal/logging"
	"github.com/ocean-authoring/ocean-backend/internal/projects/domain"
)

// Repository is the storage the service needs. Every call is scoped to owner;
// a project owned by someone else is reported as domain.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, p *domain.Project) error
	Get(ctx context.Context, owner, id string) (*domain.Project, error)
	List(ctx context.Context, owner string) ([]domain.Project, error)
	ReplaceSections(ctx context.Context, owner, id string, sections []domain.Section, now time.Time) (*domain.Project, error)
	UpdateSection(ctx context.Context, owner, id string, index int, fn func(*domain.Section) error, now time.Time) (*domain.Project, error)
	Delete(ctx context.Context, owner, id string) error
}

// ProjectService handles project-related business logic
type ProjectService struct {
	repo     Repository
	gen      llm.Generator
	exporter *document.Exporter
	now      func() time.Time
}

// NewProjectService creates a new project service
func NewProjectService(repo Repository, gen llm.Generator) *ProjectService {
	return &ProjectService{
		repo:     repo,
		gen:      gen,
		exporter: document.NewExporter(),
		now:      time.Now,
	}
}

// WithClock replaces the time source for timestamps and export metadata.
func (s *ProjectService) WithClock(now func() time.Time) *ProjectService {
	s.now = now
	s.exporter.Now = now
	return s
}

// Create creates a new project
func (s *ProjectService) Create(ctx context.Context, req domain.CreateProjectRequest) (*domain.Project, error) {
	p, err := domain.NewProject(req.Owner, req.Topic, req.Type, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	logging.NewLogger(ctx).LogInfof("create_project", "created project %s type=%s", p.ID, p.Type)
	return p, nil
}

// List returns all projects for a user, newest first
func (s *ProjectService) List(ctx context.Context, owner string) ([]domain.Project, error) {
	return s.repo.List(ctx, owner)
}

// Get returns one project
func (s *ProjectService) Get(ctx context.Context, owner, id string) (*domain.Project, error) {
	return s.repo.Get(ctx, owner, id)
}

// Delete removes a project
func (s *ProjectService) Delete(ctx context.Context, owner, id string) error {
	return s.repo.Delete(ctx, owner, id)
}

// SetFeedback records like/dislike on a section, or clears it.
func (s *ProjectService) SetFeedback(ctx context.Context, owner, id string, index int, feedback string) (*domain.Section, error) {
	feedback = strings.ToLower(strings.TrimSpace(feedback))
	p, err := s.repo.UpdateSection(ctx, owner, id, index, func(sec *domain.Section) error {
		return sec.SetFeedback(feedback)
	}, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return &p.Sections[index], nil
}

// AddComment appends a comment to a section.
func (s *ProjectService) AddComment(ctx context.Context, owner, id string, index int, comment string) (*domain.Section, error) {
	p, err := s.repo.UpdateSection(ctx, owner, id, index, func(sec *domain.Section) error {
		return sec.AddComment(comment)
	}, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return &p.Sections[index], nil
}

// Export renders the project's current sections into its document format.
func (s *ProjectService) Export(ctx context.Context, owner, id string) (*document.File, error) {
	p, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	sections := make([]document.Section, len(p.Sections))
	for i, sec := range p.Sections {
		sections[i] = document.Section{Title: sec.Title, Content: sec.Content}
	}

	f, err := s.exporter.Export(string(p.Type), p.Topic, sections)
	if err != nil {
		return nil, fmt.Errorf("export project %s: %w", p.ID, err)
	}
	logging.NewLogger(ctx).LogInfof("export_project", "exported project %s as %s (%d bytes)", p.ID, f.Filename, len(f.Data))
	return f, nil
}
