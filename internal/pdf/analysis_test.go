package pdf

import (
	"strings"
	"testing"

	"cv-editor/internal/pdf/pdftest"
)

func TestExtractAllText(t *testing.T) {
	fonts := map[string]string{"F1": "Helvetica"}
	data := pdftest.Build(pdftest.Options{},
		pdftest.Page{Content: pdftest.Text("F1", 10, 50, 700, "Jane Doe") + pdftest.Text("F1", 10, 50, 680, "Hanoi"), Fonts: fonts},
		pdftest.Page{Content: pdftest.Text("F1", 10, 50, 700, "Skills"), Fonts: fonts},
	)
	text, err := ExtractAllText(data)
	if err != nil {
		t.Fatalf("ExtractAllText() error = %v", err)
	}
	if want := "Jane Doe Hanoi\n\nSkills"; text != want {
		t.Errorf("ExtractAllText() = %q, want %q", text, want)
	}
}

func TestIsScanned(t *testing.T) {
	long := strings.Repeat("Experienced backend engineer. ", 5)
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"image only", pdftest.Image(), true},
		{"short text", hanoiPDF(), true},
		{"text layer", pdftest.Single(pdftest.Text("F1", 10, 50, 700, long)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsScanned(tt.data)
			if err != nil {
				t.Fatalf("IsScanned() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsScanned() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := IsScanned([]byte("nope")); !IsParseError(err) {
		t.Errorf("IsScanned(garbage) error = %v, want ParseError", err)
	}
}

func TestDetectCVSections(t *testing.T) {
	text := "Jane Doe\n\nSummary: Backend engineer with 8 years in payments.\n\n" +
		"Experience\nAcme Corp 2019 - 2023, led the billing team.\n\n" +
		"Education: BSc Computer Science, Hanoi University\n\n" +
		"Skills: Go, PostgreSQL, Kafka\n\n" +
		"Projects: open source PDF tooling"

	got := DetectCVSections(text)
	want := CVSections{
		Summary:    "Backend engineer with 8 years in payments.",
		Experience: "Acme Corp 2019 - 2023, led the billing team.",
		Education:  "BSc Computer Science, Hanoi University",
		Skills:     "Go, PostgreSQL, Kafka",
		Projects:   "open source PDF tooling",
	}
	if got != want {
		t.Errorf("DetectCVSections() =\n%+v\nwant\n%+v", got, want)
	}

	for name, body := range map[string]string{
		"summary": want.Summary, "Skills": want.Skills, "project": want.Projects, "unknown": "",
	} {
		if s := got.Section(name); s != body {
			t.Errorf("Section(%q) = %q, want %q", name, s, body)
		}
	}
}

func TestDetectCVSectionsStopsAtNextHeading(t *testing.T) {
	got := DetectCVSections("Profile: Go developer Skills: Go, Rust")
	if got.Summary != "Go developer" {
		t.Errorf("Summary = %q, want %q", got.Summary, "Go developer")
	}
	if got.Skills != "Go, Rust" {
		t.Errorf("Skills = %q, want %q", got.Skills, "Go, Rust")
	}
	if got.Experience != "" || got.Education != "" {
		t.Errorf("unexpected sections: %+v", got)
	}
}
