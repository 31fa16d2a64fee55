package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProjectType selects the document format and the generation policy.
type ProjectType string

const (
	TypeReport ProjectType = "report"
	TypeDeck   ProjectType = "deck"
)

// ParseProjectType accepts the canonical values plus the file-extension
// aliases older clients send.
func ParseProjectType(s string) (ProjectType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "report", "docx":
		return TypeReport, nil
	case "deck", "pptx":
		return TypeDeck, nil
	}
	return "", fmt.Errorf("%w: type must be report or deck", ErrValidation)
}

// Project is a user's document in progress. It is storage-agnostic and shared
// by the repository and HTTP layers.
type Project struct {
	ID             string      `json:"id" yaml:"id"`
	Owner          string      `json:"owner" yaml:"owner"`
	Topic          string      `json:"topic" yaml:"topic"`
	Type           ProjectType `json:"type" yaml:"type"`
	Sections       []Section   `json:"sections" yaml:"sections"`
	CreatedAt      time.Time   `json:"created_at" yaml:"created_at"`
	LastModifiedAt time.Time   `json:"last_modified_at" yaml:"last_modified_at"`
}

// NewProject validates the input and returns a project with no sections.
func NewProject(owner, topic, rawType string, now time.Time) (*Project, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrValidation)
	}
	t, err := ParseProjectType(rawType)
	if err != nil {
		return nil, err
	}
	return &Project{
		ID:             uuid.NewString(),
		Owner:          owner,
		Topic:          topic,
		Type:           t,
		Sections:       []Section{},
		CreatedAt:      now,
		LastModifiedAt: now,
	}, nil
}

// Section returns the section at index or ErrNotFound.
func (p *Project) Section(index int) (*Section, error) {
	if index < 0 || index >= len(p.Sections) {
		return nil, fmt.Errorf("%w: section %d", ErrNotFound, index)
	}
	return &p.Sections[index], nil
}

// Touch records a mutation of the sections.
func (p *Project) Touch(now time.Time) {
	p.LastModifiedAt = now
}

// CreateProjectRequest is the input for creating a project.
type CreateProjectRequest struct {
	Owner string
	Topic string
	Type  string
}
