package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Export file names inside the output directory.
const (
	MarkdownFile = "document.md"
	HTMLFile     = "document.html"
	BundleFile   = "bundle.json"
)

// Markdown assembles the document: outline headings in order, section bodies
// under their leaves, and images at their placement.
func (b *Bundle) Markdown() string {
	sections := make(map[string]SectionResult, len(b.Sections))
	for _, s := range b.Sections {
		sections[s.SectionID] = s
	}
	images := make(map[string][]ImageRecord, len(b.Images))
	for _, si := range b.Images {
		images[si.SectionID] = si.Images
	}

	var out strings.Builder
	title := b.Brief.Title
	if b.Outline != nil && b.Outline.Title != "" {
		title = b.Outline.Title
	}
	fmt.Fprintf(&out, "# %s\n\n", title)

	var walk func(nodes []*OutlineNode, prefix string, depth int)
	walk = func(nodes []*OutlineNode, prefix string, depth int) {
		for i, n := range nodes {
			id := strconv.Itoa(i + 1)
			if prefix != "" {
				id = prefix + "." + id
			}
			fmt.Fprintf(&out, "%s %s\n\n", strings.Repeat("#", min(depth+1, 6)), n.Title)
			if !n.IsLeaf() {
				walk(n.Children, id, depth+1)
				continue
			}
			if s, ok := sections[id]; ok {
				out.WriteString(placeImages(s.Content, images[id]))
				out.WriteString("\n\n")
			}
		}
	}
	if b.Outline != nil {
		walk(b.Outline.Sections, "", 1)
	}

	if b.Research != nil && len(b.Research.Sources) > 0 {
		out.WriteString("## References\n\n")
		for _, src := range b.Research.Sources {
			fmt.Fprintf(&out, "- %s\n", src)
		}
		out.WriteString("\n")
	}
	return strings.TrimRight(out.String(), "\n") + "\n"
}

// placeImages puts top images before the body, middle images after the
// middle paragraph and bottom images after the body.
func placeImages(content string, imgs []ImageRecord) string {
	var top, middle, bottom []string
	for _, img := range imgs {
		md := imageMarkdown(img)
		switch img.Placement {
		case PlacementTop:
			top = append(top, md)
		case PlacementMiddle:
			middle = append(middle, md)
		default:
			bottom = append(bottom, md)
		}
	}

	paragraphs := strings.Split(strings.TrimSpace(content), "\n\n")
	var parts []string
	parts = append(parts, top...)
	half := (len(paragraphs) + 1) / 2
	parts = append(parts, paragraphs[:half]...)
	parts = append(parts, middle...)
	parts = append(parts, paragraphs[half:]...)
	parts = append(parts, bottom...)
	return strings.Join(parts, "\n\n")
}

func imageMarkdown(img ImageRecord) string {
	alt := img.Caption
	if alt == "" {
		alt = strings.Join(img.Keywords, ", ")
	}
	md := fmt.Sprintf("![%s](%s)", alt, img.URL)
	if img.Caption != "" || img.Credit != "" {
		line := img.Caption
		if img.Credit != "" {
			line = strings.TrimSpace(line + " (Photo: " + img.Credit + ")")
		}
		md += "\n*" + line + "*"
	}
	return md
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	// Placeholder images are data URIs, which the default renderer drops.
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// HTML renders the assembled markdown as a standalone HTML page.
func (b *Bundle) HTML() (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(b.Markdown()), &body); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	var page strings.Builder
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", htmlEscaper.Replace(b.Brief.Title))
	page.WriteString("<style>body{max-width:860px;margin:2em auto;font-family:sans-serif;line-height:1.6}img{max-width:100%}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:4px 8px}</style>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.String(), nil
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// JSON returns the indented bundle.
func (b *Bundle) JSON() ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// Files lists the paths written by WriteFiles.
type Files struct {
	Markdown string
	HTML     string
	Bundle   string
}

// WriteFiles writes the markdown document, the JSON bundle and, when
// withHTML is set, the HTML page into dir.
func WriteFiles(dir string, b *Bundle, withHTML bool) (Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	files := Files{
		Markdown: filepath.Join(dir, MarkdownFile),
		Bundle:   filepath.Join(dir, BundleFile),
	}
	if err := os.WriteFile(files.Markdown, []byte(b.Markdown()), 0o644); err != nil {
		return Files{}, fmt.Errorf("failed to write markdown: %w", err)
	}

	data, err := b.JSON()
	if err != nil {
		return Files{}, fmt.Errorf("failed to encode bundle: %w", err)
	}
	if err := os.WriteFile(files.Bundle, data, 0o644); err != nil {
		return Files{}, fmt.Errorf("failed to write bundle: %w", err)
	}

	if withHTML {
		page, err := b.HTML()
		if err != nil {
			return Files{}, err
		}
		files.HTML = filepath.Join(dir, HTMLFile)
		if err := os.WriteFile(files.HTML, []byte(page), 0o644); err != nil {
			return Files{}, fmt.Errorf("failed to write html: %w", err)
		}
	}
	return files, nil
}
