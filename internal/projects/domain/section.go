package domain

import (
	"fmt"
	"strings"
)

// SectionState is derived from a section's content and generated flag.
type SectionState string

const (
	StateEmpty     SectionState = "empty"
	StateGenerated SectionState = "generated"
	StateRefined   SectionState = "refined"
)

// Feedback values a user can leave on a section.
const (
	FeedbackLike    = "like"
	FeedbackDislike = "dislike"
)

// Section is one titled unit of a project: a report heading with its
// paragraph, or a deck slide.
type Section struct {
	Title     string   `json:"title" yaml:"title"`
	Content   string   `json:"content" yaml:"content"`
	Generated bool     `json:"generated" yaml:"generated"`
	Refined   bool     `json:"refined,omitempty" yaml:"refined,omitempty"`
	Feedback  *string  `json:"feedback" yaml:"feedback,omitempty"`
	Comments  []string `json:"comments" yaml:"comments,omitempty"`
}

// NewSectionStub is an outline entry with no content yet.
func NewSectionStub(title string) Section {
	return Section{Title: title, Comments: []string{}}
}

// State reports where the section is in its lifecycle.
func (s *Section) State() SectionState {
	switch {
	case !s.Generated:
		return StateEmpty
	case s.Refined:
		return StateRefined
	default:
		return StateGenerated
	}
}

// ApplyGenerated stores freshly generated content. Content is always replaced
// as a whole.
func (s *Section) ApplyGenerated(content string) {
	s.Content = content
	s.Generated = true
	s.Refined = false
}

// CanRefine checks there is content to rewrite.
func (s *Section) CanRefine() error {
	if strings.TrimSpace(s.Content) == "" {
		return fmt.Errorf("%w: section has no content to refine", ErrValidation)
	}
	return nil
}

// Snapshot records what a generate or refine call was based on.
type Snapshot struct {
	Title     string
	Generated bool
}

// Snapshot captures the section before a slow call.
func (s *Section) Snapshot() Snapshot {
	return Snapshot{Title: s.Title, Generated: s.Generated}
}

// CheckUnchanged returns ErrConflict when the section at this index is no
// longer the one snap was taken from. Title and generated flag both reset
// when the outline is rebuilt.
func (s *Section) CheckUnchanged(snap Snapshot) error {
	if s.Title != snap.Title || (snap.Generated && !s.Generated) {
		return fmt.Errorf("%w: section %q was replaced", ErrConflict, snap.Title)
	}
	return nil
}

// ApplyRefined replaces content with a rewrite. Generated is left as it is.
func (s *Section) ApplyRefined(content string) {
	s.Content = content
	s.Refined = true
}

// SetFeedback sets like/dislike, or clears it when feedback is empty.
func (s *Section) SetFeedback(feedback string) error {
	switch feedback {
	case "":
		s.Feedback = nil
	case FeedbackLike, FeedbackDislike:
		f := feedback
		s.Feedback = &f
	default:
		return fmt.Errorf("%w: feedback must be like, dislike or empty", ErrValidation)
	}
	return nil
}

// AddComment appends a non-blank comment.
func (s *Section) AddComment(comment string) error {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return fmt.Errorf("%w: comment is required", ErrValidation)
	}
	s.Comments = append(s.Comments, comment)
	return nil
}
