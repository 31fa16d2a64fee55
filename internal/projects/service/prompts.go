package service

import (
	"fmt"

	"github.com/ocean-authoring/ocean-backend/internal/projects/domain"
)

func outlinePrompt(topic string, t domain.ProjectType) string {
	if t == domain.TypeDeck {
		return fmt.Sprintf("Create a presentation outline for: \"%s\". Generate 5 to 8 slide titles. Return ONLY raw JSON string array.", topic)
	}
	return fmt.Sprintf("Create a report outline for: \"%s\". Generate 5 to 8 section headers. Return ONLY raw JSON string array.", topic)
}

func sectionPrompt(topic, title string, t domain.ProjectType) string {
	if t == domain.TypeDeck {
		return fmt.Sprintf("Write content for a slide titled \"%s\" about \"%s\". Professional tone. "+
			"STRICT CONSTRAINT: Provide exactly 3 to 5 bullet points. Max 15 words per bullet. "+
			"No intro or outro text. Use **bold** for key terms.", title, topic)
	}
	return fmt.Sprintf("Write content for a document section titled \"%s\" about \"%s\". Professional tone. "+
		"Write 2-3 well-structured paragraphs. Use **bold** for emphasis.", title, topic)
}

func refinePrompt(content, instruction string) string {
	return fmt.Sprintf("Original: \"%s\"\nInstruction: %s\nRewrite it. Return ONLY the new content. "+
		"Keep strict length constraints if this is a slide.", content, instruction)
}
