package suggest

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Section selects the prompt used to rewrite a piece of CV text.
type Section string

const (
	SectionFreetext   Section = "freetext"
	SectionSummary    Section = "summary"
	SectionExperience Section = "experience"
	SectionProject    Section = "project"
	SectionSkills     Section = "skills"
)

// Sections lists every supported section in display order.
func Sections() []Section {
	return []Section{SectionFreetext, SectionSummary, SectionExperience, SectionProject, SectionSkills}
}

// ParseSection accepts a section name, case-insensitively. Empty means freetext.
func ParseSection(name string) (Section, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return SectionFreetext, nil
	}
	if name == "projects" {
		name = string(SectionProject)
	}
	for _, s := range Sections() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown section %q", name)
}

// The replacement is drawn in place of the original line, so every prompt
// asks for one line of roughly the same length.
const systemPrompt = `You are a professional CV writer editing an existing CV in place.
The new text replaces the original text on the same line of a fixed PDF layout.

Rules:
1. Return exactly one line of plain text.
2. Stay within {max_chars} characters.
3. Keep names, dates, numbers and technologies that appear in the original unless they are wrong.
4. Do not add quotes, bullets, markdown or any explanation.`

var sectionInstructions = map[Section]string{
	SectionFreetext: `Improve the wording of this CV text. Fix grammar and make it clear and professional.`,
	SectionSummary: `Rewrite this professional summary line. Highlight relevant experience and skills,
focus on the value proposition and use confident, action-oriented language.`,
	SectionExperience: `Rewrite this work experience line. Start with a strong action verb, emphasise impact
and quantifiable results, mention relevant technologies and use past tense for completed roles.`,
	SectionProject: `Rewrite this project description line. Lead with the contribution, name the technical
approach and technologies and emphasise outcomes or metrics.`,
	SectionSkills: `Rewrite this skills line as a comma-separated list. Be specific (for example "React.js"
rather than "Frontend") and put the most relevant, in-demand skills first.`,
}

const userPrompt = `{instruction}

Original text:
{text}`

// newTemplate builds the chat template for a section.
func newTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	)
}

// templateVars fills the template for one request.
func templateVars(section Section, text string) map[string]any {
	instruction, ok := sectionInstructions[section]
	if !ok {
		instruction = sectionInstructions[SectionFreetext]
	}
	return map[string]any{
		"instruction": instruction,
		"text":        text,
		"max_chars":   maxChars(text),
	}
}

// maxChars allows a little growth over the original; the replacer scales or
// truncates anything that still does not fit.
func maxChars(text string) int {
	n := len([]rune(text))
	limit := n + n/5
	if limit < 20 {
		limit = 20
	}
	return limit
}
