package http

import (
	"context"

	"github.com/ocean-authoring/ocean-backend/internal/document"
	"github.com/ocean-authoring/ocean-backend/internal/projects/domain"
)

// ProjectService is what the handlers need from the service layer.
type ProjectService interface {
	Create(ctx context.Context, req domain.CreateProjectRequest) (*domain.Project, error)
	List(ctx context.Context, owner string) ([]domain.Project, error)
	Get(ctx context.Context, owner, id string) (*domain.Project, error)
	Delete(ctx context.Context, owner, id string) error
	BuildOutline(ctx context.Context, owner, id string) ([]domain.Section, error)
	GenerateSection(ctx context.Context, owner, id string, index int) (*domain.Section, error)
	RefineSection(ctx context.Context, owner, id string, index int, instruction string) (*domain.Section, error)
	SetFeedback(ctx context.Context, owner, id string, index int, feedback string) (*domain.Section, error)
	AddComment(ctx context.Context, owner, id string, index int, comment string) (*domain.Section, error)
	Export(ctx context.Context, owner, id string) (*document.File, error)
}

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	svc ProjectService
}

func New(svc ProjectService) *Handler {
	return &Handler{svc: svc}
}

type createReq struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
}

type generateReq struct {
	Index *int `json:"index"`
}

type refineReq struct {
	Index       *int   `json:"index"`
	Instruction string `json:"instruction"`
}

type feedbackReq struct {
	Feedback *string `json:"feedback"`
}

type commentReq struct {
	Comment string `json:"comment"`
}
