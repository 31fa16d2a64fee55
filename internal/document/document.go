// Package document assembles project sections into report and deck layouts and
// serializes them into Office Open XML containers.
package document

import "github.com/ocean-authoring/ocean-backend/internal/document/markup"

// Section is the exportable part of a project section.
type Section struct {
	Title   string
	Content string
}

// Paragraph is one block of formatted text.
type Paragraph struct {
	Runs []markup.Run
}

// ReportSection is a heading followed by a single body paragraph.
type ReportSection struct {
	Heading string
	Body    Paragraph
}

// Report is a flowing document: a title block then headed sections.
type Report struct {
	Title    string
	Sections []ReportSection
}

// Slide is a title plus top-level bullets. A title slide has no bullets.
type Slide struct {
	Title   string
	Bullets []Paragraph
}

// Deck is an ordered list of slides; the first one is the title slide.
type Deck struct {
	Slides []Slide
}

// BuildReport lays out the report. Section content becomes one paragraph
// as-is; newlines are not treated specially.
func BuildReport(topic string, sections []Section) Report {
	r := Report{
		Title:    topic,
		Sections: make([]ReportSection, 0, len(sections)),
	}
	for _, s := range sections {
		r.Sections = append(r.Sections, ReportSection{
			Heading: s.Title,
			Body:    Paragraph{Runs: markup.Compact(markup.Parse(s.Content))},
		})
	}
	return r
}

// BuildDeck lays out the deck: a title slide for the topic, then one content
// slide per section with one bullet per normalized line.
func BuildDeck(topic string, sections []Section) Deck {
	d := Deck{Slides: make([]Slide, 0, len(sections)+1)}
	d.Slides = append(d.Slides, Slide{Title: topic})

	for _, s := range sections {
		lines := markup.Normalize(s.Content)
		slide := Slide{
			Title:   s.Title,
			Bullets: make([]Paragraph, 0, len(lines)),
		}
		for _, line := range lines {
			slide.Bullets = append(slide.Bullets, Paragraph{Runs: markup.Compact(markup.Parse(line))})
		}
		d.Slides = append(d.Slides, slide)
	}
	return d
}
