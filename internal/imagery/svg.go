package imagery

import (
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/Iron-Ham/scribe/internal/document"
)

const (
	svgWidth  = 800
	svgHeight = 450
	dataURI   = "data:image/svg+xml;base64,"
)

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")

// palette is indexed by a hash of the labels so the same input always gets
// the same colors.
var palette = []string{"#2563eb", "#059669", "#d97706", "#7c3aed", "#dc2626", "#0891b2"}

// Placeholder renders a labeled stand-in for a photo that could not be found.
// Identical keywords produce byte-identical output.
func Placeholder(keywords []string) string {
	label := strings.Join(keywords, " · ")
	if label == "" {
		label = "image"
	}
	var b strings.Builder
	open(&b)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#f1f5f9"/>`, svgWidth, svgHeight)
	fmt.Fprintf(&b, `<rect x="20" y="20" width="%d" height="%d" fill="none" stroke="#cbd5e1" stroke-width="4" stroke-dasharray="12 8"/>`, svgWidth-40, svgHeight-40)
	fmt.Fprintf(&b, `<circle cx="%d" cy="170" r="48" fill="%s" opacity="0.25"/>`, svgWidth/2, colorFor(keywords, 0))
	text(&b, svgWidth/2, 280, 28, "#334155", label)
	return encode(&b)
}

// Diagram renders a labeled diagram for kind (architecture, flowchart, chart
// or workflow). Unknown kinds render as a flowchart.
func Diagram(kind string, labels []string) string {
	var b strings.Builder
	open(&b)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#ffffff"/>`, svgWidth, svgHeight)
	switch kind {
	case document.ImageArchitecture:
		architecture(&b, labels)
	case document.ImageChart:
		chart(&b, labels)
	case document.ImageWorkflow:
		workflow(&b, labels)
	default:
		flowchart(&b, labels)
	}
	return encode(&b)
}

// architecture stacks labels as layers, top to bottom.
func architecture(b *strings.Builder, labels []string) {
	n := max(len(labels), 1)
	h := (svgHeight - 40) / n
	for i, l := range labels {
		y := 20 + i*h
		fmt.Fprintf(b, `<rect x="80" y="%d" width="%d" height="%d" rx="10" fill="%s" opacity="0.85"/>`, y+4, svgWidth-160, h-8, colorFor(labels, i))
		text(b, svgWidth/2, y+h/2+6, 20, "#ffffff", l)
	}
}

// flowchart draws boxes left to right joined by arrows.
func flowchart(b *strings.Builder, labels []string) {
	n := max(len(labels), 1)
	w := (svgWidth - 40) / n
	defs(b)
	for i, l := range labels {
		x := 20 + i*w
		fmt.Fprintf(b, `<rect x="%d" y="185" width="%d" height="80" rx="8" fill="%s"/>`, x+8, w-32, colorFor(labels, i))
		text(b, x+w/2-8, 231, 14, "#ffffff", l)
		if i < len(labels)-1 {
			fmt.Fprintf(b, `<line x1="%d" y1="225" x2="%d" y2="225" stroke="#475569" stroke-width="2" marker-end="url(#arrow)"/>`, x+w-24, x+w+6)
		}
	}
}

// chart draws one bar per label with heights derived from the label text.
func chart(b *strings.Builder, labels []string) {
	n := max(len(labels), 1)
	w := (svgWidth - 120) / n
	base := svgHeight - 60
	fmt.Fprintf(b, `<line x1="60" y1="%d" x2="%d" y2="%d" stroke="#475569" stroke-width="2"/>`, base, svgWidth-40, base)
	fmt.Fprintf(b, `<line x1="60" y1="30" x2="60" y2="%d" stroke="#475569" stroke-width="2"/>`, base)
	for i, l := range labels {
		h := 80 + int(hash(l)%220)
		x := 80 + i*w
		fmt.Fprintf(b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`, x, base-h, w-30, h, colorFor(labels, i))
		text(b, x+(w-30)/2, base+24, 14, "#334155", l)
	}
}

// workflow draws numbered steps as circles along a line.
func workflow(b *strings.Builder, labels []string) {
	n := max(len(labels), 1)
	w := (svgWidth - 40) / n
	fmt.Fprintf(b, `<line x1="%d" y1="200" x2="%d" y2="200" stroke="#cbd5e1" stroke-width="6"/>`, 20+w/2, 20+w*n-w/2)
	for i, l := range labels {
		cx := 20 + i*w + w/2
		fmt.Fprintf(b, `<circle cx="%d" cy="200" r="34" fill="%s"/>`, cx, colorFor(labels, i))
		text(b, cx, 208, 22, "#ffffff", fmt.Sprint(i+1))
		text(b, cx, 270, 14, "#334155", l)
	}
}

func open(b *strings.Builder) {
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, svgWidth, svgHeight, svgWidth, svgHeight)
}

func defs(b *strings.Builder) {
	b.WriteString(`<defs><marker id="arrow" markerWidth="10" markerHeight="10" refX="8" refY="3" orient="auto"><path d="M0,0 L0,6 L9,3 z" fill="#475569"/></marker></defs>`)
}

func text(b *strings.Builder, x, y, size int, fill, s string) {
	fmt.Fprintf(b, `<text x="%d" y="%d" font-family="sans-serif" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
		x, y, size, fill, xmlEscaper.Replace(s))
}

func encode(b *strings.Builder) string {
	b.WriteString("</svg>")
	return dataURI + base64.StdEncoding.EncodeToString([]byte(b.String()))
}

func colorFor(labels []string, i int) string {
	return palette[(int(hash(strings.Join(labels, "|"))%uint32(len(palette)))+i)%len(palette)]
}

func hash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// DecodeSVG returns the SVG markup behind a data URI produced by this
// package.
func DecodeSVG(uri string) (string, bool) {
	if !strings.HasPrefix(uri, dataURI) {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, dataURI))
	if err != nil {
		return "", false
	}
	return string(raw), true
}
