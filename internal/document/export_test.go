package document

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleBundle() *Bundle {
	return &Bundle{
		Brief: Brief{Title: "Smart Farm"},
		Outline: &Outline{Title: "Smart Farm Plan", Sections: []*OutlineNode{
			{Title: "Summary"},
			{Title: "Market", Children: []*OutlineNode{
				{Title: "Size"},
				{Title: "Trends"},
			}},
		}},
		Sections: []SectionResult{
			{SectionID: "1", Content: "Summary body."},
			{SectionID: "2.1", Content: "First para.\n\nSecond para.\n\nThird para."},
			{SectionID: "2.2", Content: "| a | b |\n|---|---|\n| 1 | 2 |"},
		},
		Images: []SectionImages{
			{SectionID: "1", Images: []ImageRecord{{Placement: PlacementTop, URL: "https://img/top.jpg", Caption: "Farm", Credit: "Jane"}}},
			{SectionID: "2.1", Images: []ImageRecord{
				{Placement: PlacementMiddle, URL: "data:image/svg+xml;base64,PHN2Zz48L3N2Zz4=", Keywords: []string{"size"}},
				{Placement: PlacementBottom, URL: "https://img/bottom.png"},
			}},
		},
		Research: &ResearchReport{Sources: []string{"https://a.example"}},
	}
}

func TestBundle_Markdown(t *testing.T) {
	md := sampleBundle().Markdown()

	order := []string{
		"# Smart Farm Plan",
		"## Summary",
		"![Farm](https://img/top.jpg)\n*Farm (Photo: Jane)*",
		"Summary body.",
		"## Market",
		"### Size",
		"First para.",
		"Second para.",
		"![size](data:image/svg+xml",
		"Third para.",
		"![](https://img/bottom.png)",
		"### Trends",
		"| a | b |",
		"## References",
		"- https://a.example",
	}
	pos := 0
	for _, want := range order {
		i := strings.Index(md[pos:], want)
		if i < 0 {
			t.Fatalf("missing or out of order: %q\n%s", want, md)
		}
		pos += i + len(want)
	}
}

func TestBundle_HTML(t *testing.T) {
	page, err := sampleBundle().HTML()
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	for _, want := range []string{"<title>Smart Farm</title>", "<h1>Smart Farm Plan</h1>", `src="data:image/svg+xml`, "<table>"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	files, err := WriteFiles(dir, sampleBundle(), true)
	if err != nil {
		t.Fatalf("WriteFiles() error = %v", err)
	}
	for _, p := range []string{files.Markdown, files.HTML, files.Bundle} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}

	data, err := os.ReadFile(files.Bundle)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Bundle
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("bundle is not valid JSON: %v", err)
	}
	if decoded.Outline.LeafCount() != 3 || len(decoded.Sections) != 3 {
		t.Errorf("decoded = %+v", decoded)
	}

	noHTML, err := WriteFiles(t.TempDir(), sampleBundle(), false)
	if err != nil || noHTML.HTML != "" {
		t.Errorf("HTML = %q, err = %v", noHTML.HTML, err)
	}
}
