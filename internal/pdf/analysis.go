package pdf

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// scannedTextThreshold is the text length below which a PDF is treated as scanned.
const scannedTextThreshold = 100

// ExtractAllText joins the runs of each page with spaces and separates pages
// with a blank line.
func ExtractAllText(pdfBytes []byte) (string, error) {
	runs, err := ExtractRuns(pdfBytes)
	if err != nil {
		return "", err
	}
	return joinRuns(runs), nil
}

func joinRuns(runs []TextRun) string {
	var pages []string
	var current []string
	page := -1
	for _, run := range runs {
		if run.PageIndex != page {
			if page >= 0 {
				pages = append(pages, strings.Join(current, " "))
			}
			current = current[:0]
			page = run.PageIndex
		}
		current = append(current, run.Text)
	}
	if page >= 0 {
		pages = append(pages, strings.Join(current, " "))
	}
	return strings.Join(pages, "\n\n")
}

// IsScanned 判断 PDF 是否为扫描件（几乎没有可提取文本）
func IsScanned(pdfBytes []byte) (bool, error) {
	text, err := ExtractAllText(pdfBytes)
	if err != nil {
		return false, err
	}
	return utf8.RuneCountInString(strings.TrimSpace(text)) < scannedTextThreshold, nil
}

// CVSections holds the body text under common CV headings.
type CVSections struct {
	Summary    string `json:"summary,omitempty"`
	Experience string `json:"experience,omitempty"`
	Education  string `json:"education,omitempty"`
	Skills     string `json:"skills,omitempty"`
	Projects   string `json:"projects,omitempty"`
}

// sectionRule finds a heading and the words that end its body.
type sectionRule struct {
	heading *regexp.Regexp
	end     *regexp.Regexp
	set     func(*CVSections, string)
}

var sectionRules = []sectionRule{
	{
		heading: regexp.MustCompile(`(?i)(?:summary|profile|about|objective)[:\s]+`),
		end:     regexp.MustCompile(`(?i)\n\n|experience|education|skills`),
		set:     func(s *CVSections, v string) { s.Summary = v },
	},
	{
		heading: regexp.MustCompile(`(?i)(?:experience|work history|employment)[:\s]+`),
		end:     regexp.MustCompile(`(?i)\n\n|education|skills|projects`),
		set:     func(s *CVSections, v string) { s.Experience = v },
	},
	{
		heading: regexp.MustCompile(`(?i)(?:education|academic|qualifications)[:\s]+`),
		end:     regexp.MustCompile(`(?i)\n\n|skills|projects|experience`),
		set:     func(s *CVSections, v string) { s.Education = v },
	},
	{
		heading: regexp.MustCompile(`(?i)(?:skills|technical skills|competencies)[:\s]+`),
		end:     regexp.MustCompile(`(?i)\n\n|projects|education|experience`),
		set:     func(s *CVSections, v string) { s.Skills = v },
	},
	{
		heading: regexp.MustCompile(`(?i)(?:projects|portfolio)[:\s]+`),
		end:     regexp.MustCompile(`(?i)\n\n|skills|education|experience`),
		set:     func(s *CVSections, v string) { s.Projects = v },
	},
}

// DetectCVSections 识别简历中的常见章节
//
// Each section's body runs from its first heading to the nearest blank line or
// competing heading word. Sections with an empty body are left unset.
func DetectCVSections(text string) CVSections {
	var sections CVSections
	for _, rule := range sectionRules {
		loc := rule.heading.FindStringIndex(text)
		if loc == nil {
			continue
		}
		body := text[loc[1]:]
		if end := rule.end.FindStringIndex(body); end != nil {
			body = body[:end[0]]
		}
		if body = strings.TrimSpace(body); body != "" {
			rule.set(&sections, body)
		}
	}
	return sections
}

// Section returns the body of a named section: summary, experience,
// education, skills or projects.
func (s CVSections) Section(name string) string {
	switch strings.ToLower(name) {
	case "summary":
		return s.Summary
	case "experience":
		return s.Experience
	case "education":
		return s.Education
	case "skills":
		return s.Skills
	case "project", "projects":
		return s.Projects
	}
	return ""
}
