package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ocean-authoring/ocean-backend/internal/logging"
	"github.com/ocean-authoring/ocean-backend/internal/projects/domain"
)

const (
	fenceOpen  = "```json"
	fenceClose = "```"

	minOutlineTitles = 5
	maxOutlineTitles = 8
)

var outlineSchema = gojsonschema.NewStringLoader(`{
	"type": "array",
	"items": {"type": "string"},
	"minItems": 1
}`)

// BuildOutline asks the generator for section titles and replaces the
// project's sections with fresh stubs. Existing content is discarded.
func (s *ProjectService) BuildOutline(ctx context.Context, owner, id string) ([]domain.Section, error) {
	logger := logging.NewLogger(ctx)

	p, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	raw, err := s.gen.Generate(ctx, outlinePrompt(p.Topic, p.Type))
	if err != nil {
		logger.LogError("build_outline", err)
		return nil, domain.NewGenerationError("generate outline", err)
	}

	titles, err := ParseOutline(raw)
	if err != nil {
		logger.LogWarnf("build_outline", "unusable outline response for project %s: %v", p.ID, err)
		return nil, err
	}
	if !OutlineSizeOK(len(titles)) {
		logger.LogWarnf("build_outline", "project %s outline has %d titles, asked for %d to %d",
			p.ID, len(titles), minOutlineTitles, maxOutlineTitles)
	}

	stubs := make([]domain.Section, len(titles))
	for i, t := range titles {
		stubs[i] = domain.NewSectionStub(t)
	}

	updated, err := s.repo.ReplaceSections(ctx, owner, id, stubs, s.now().UTC())
	if err != nil {
		return nil, err
	}
	logger.LogInfof("build_outline", "project %s outline has %d sections", p.ID, len(updated.Sections))
	return updated.Sections, nil
}

// ParseOutline strips an optional JSON code fence and decodes a flat array of
// titles. Blank titles are dropped. Anything else is a GenerationError.
func ParseOutline(raw string) ([]string, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, fenceOpen)
	text = strings.TrimSuffix(text, fenceClose)
	text = strings.TrimSpace(text)

	result, err := gojsonschema.Validate(outlineSchema, gojsonschema.NewStringLoader(text))
	if err != nil {
		return nil, domain.NewGenerationError("parse outline", fmt.Errorf("outline is not valid JSON: %w", err))
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, domain.NewGenerationError("parse outline", fmt.Errorf("outline must be an array of strings: %s", strings.Join(msgs, "; ")))
	}

	var items []string
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, domain.NewGenerationError("parse outline", err)
	}

	titles := make([]string, 0, len(items))
	for _, t := range items {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	if len(titles) == 0 {
		return nil, domain.NewGenerationError("parse outline", errors.New("outline has no titles"))
	}
	return titles, nil
}

// OutlineSizeOK reports whether n is within the title count the prompt asks
// for. Outlines outside it are still stored.
func OutlineSizeOK(n int) bool {
	return n >= minOutlineTitles && n <= maxOutlineTitles
}

// GenerateSection writes content for one section using the length policy of
// the project type. The section is unchanged if generation fails.
func (s *ProjectService) GenerateSection(ctx context.Context, owner, id string, index int) (*domain.Section, error) {
	logger := logging.NewLogger(ctx)

	p, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	sec, err := p.Section(index)
	if err != nil {
		return nil, err
	}

	snap := sec.Snapshot()

	content, err := s.gen.Generate(ctx, sectionPrompt(p.Topic, sec.Title, p.Type))
	if err != nil {
		logger.LogError("generate_section", err)
		return nil, domain.NewGenerationError("generate section", err)
	}
	content = strings.TrimSpace(content)

	updated, err := s.repo.UpdateSection(ctx, owner, id, index, func(sec *domain.Section) error {
		if err := sec.CheckUnchanged(snap); err != nil {
			return err
		}
		sec.ApplyGenerated(content)
		return nil
	}, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return &updated.Sections[index], nil
}

// RefineSection rewrites existing content following instruction.
func (s *ProjectService) RefineSection(ctx context.Context, owner, id string, index int, instruction string) (*domain.Section, error) {
	logger := logging.NewLogger(ctx)

	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, fmt.Errorf("%w: instruction is required", domain.ErrValidation)
	}

	p, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	sec, err := p.Section(index)
	if err != nil {
		return nil, err
	}
	if err := sec.CanRefine(); err != nil {
		return nil, err
	}

	snap := sec.Snapshot()

	content, err := s.gen.Generate(ctx, refinePrompt(sec.Content, instruction))
	if err != nil {
		logger.LogError("refine_section", err)
		return nil, domain.NewGenerationError("refine section", err)
	}
	content = strings.TrimSpace(content)

	updated, err := s.repo.UpdateSection(ctx, owner, id, index, func(sec *domain.Section) error {
		if err := sec.CheckUnchanged(snap); err != nil {
			return err
		}
		sec.ApplyRefined(content)
		return nil
	}, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return &updated.Sections[index], nil
}
