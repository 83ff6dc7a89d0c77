// Package markdown handles the markdown conventions used by user state
// files: `**Key:** value` metadata lines, `- [ ]` checkboxes, dated
// `## Heading (YYYY-MM-DD)` sections, `### Name` subsections, and a
// minimal flat frontmatter. It also renders markdown to HTML for the
// preview endpoints.
package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var md goldmark.Markdown

func init() {
	md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM, // tables, strikethrough, task lists
			highlighting.NewHighlighting(
				highlighting.WithStyle("monokai"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
}

// Render converts markdown content to HTML for the preview endpoints.
// On conversion error it returns the empty string; the UI falls back to
// showing the raw markdown.
func Render(content string) string {
	if content == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return ""
	}
	return buf.String()
}

var (
	metaRe        = regexp.MustCompile(`^\s*(?:-\s+)?\*\*([^:*]+):\*\*\s*(.*)$`)
	checkboxRe    = regexp.MustCompile(`^\s*-\s*\[([ xX])\]\s*(.+)$`)
	dateHeadingRe = regexp.MustCompile(`^##\s+(.+?)\s*\((\d{4}-\d{2}-\d{2})\)\s*$`)
	subsectionRe  = regexp.MustCompile(`^###\s+(.+?)\s*$`)
)

// Checkbox is a single `- [ ]` / `- [x]` list item.
type Checkbox struct {
	Text string
	Done bool
}

// DateSection is a `## Heading (YYYY-MM-DD)` section and its body.
type DateSection struct {
	Heading string
	Date    string // YYYY-MM-DD
	Body    string
}

// Subsection is a `### Name` section and its body.
type Subsection struct {
	Name string
	Body string
}

// MetaPairs extracts `**Key:** value` and `- **Key:** value` lines.
// Later occurrences of a key win. Keys keep their original casing.
func MetaPairs(content string) map[string]string {
	pairs := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		if m := metaRe.FindStringSubmatch(line); m != nil {
			pairs[strings.TrimSpace(m[1])] = strings.TrimSpace(m[2])
		}
	}
	return pairs
}

// Meta returns the value for key from MetaPairs-style lines, matching
// case-insensitively. Returns "" when absent.
func Meta(content, key string) string {
	for k, v := range MetaPairs(content) {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// Checkboxes extracts all checkbox list items in order.
func Checkboxes(content string) []Checkbox {
	var boxes []Checkbox
	for _, line := range strings.Split(content, "\n") {
		if m := checkboxRe.FindStringSubmatch(line); m != nil {
			boxes = append(boxes, Checkbox{
				Text: strings.TrimSpace(m[2]),
				Done: m[1] == "x" || m[1] == "X",
			})
		}
	}
	return boxes
}

// DateSections splits content into `## Heading (YYYY-MM-DD)` sections.
// Content before the first dated heading is ignored.
func DateSections(content string) []DateSection {
	var sections []DateSection
	var cur *DateSection
	var body strings.Builder

	flush := func() {
		if cur != nil {
			cur.Body = body.String()
			sections = append(sections, *cur)
		}
		body.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if m := dateHeadingRe.FindStringSubmatch(line); m != nil {
			flush()
			cur = &DateSection{Heading: strings.TrimSpace(m[1]), Date: m[2]}
			continue
		}
		if cur != nil && strings.HasPrefix(line, "## ") {
			// Undated level-2 heading ends the current section
			flush()
			cur = nil
			continue
		}
		if cur != nil {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()
	return sections
}

// Subsections splits content into `### Name` sections.
func Subsections(content string) []Subsection {
	var sections []Subsection
	var cur *Subsection
	var body strings.Builder

	flush := func() {
		if cur != nil {
			cur.Body = body.String()
			sections = append(sections, *cur)
		}
		body.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if m := subsectionRe.FindStringSubmatch(line); m != nil {
			flush()
			cur = &Subsection{Name: strings.TrimSpace(m[1])}
			continue
		}
		if cur != nil && strings.HasPrefix(line, "## ") && !strings.HasPrefix(line, "###") {
			flush()
			cur = nil
			continue
		}
		if cur != nil {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()
	return sections
}

// Section returns the trimmed text under `## <heading>` (case-insensitive)
// up to the next level-2 heading, or "" when the heading is absent.
func Section(content, heading string) string {
	var body strings.Builder
	in := false
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "## ") && !strings.HasPrefix(line, "###") {
			if in {
				break
			}
			name := strings.TrimSpace(strings.TrimPrefix(line, "## "))
			// A dated heading like "Focus (2026-01-02)" still matches "Focus"
			if i := strings.LastIndex(name, " ("); i > 0 && strings.HasSuffix(name, ")") {
				name = name[:i]
			}
			in = strings.EqualFold(name, heading)
			continue
		}
		if in {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	return strings.TrimSpace(body.String())
}

// SplitFrontmatter splits a document into flat frontmatter pairs and the
// remaining body. The frontmatter must open with `---` on the first line
// and close with `---`; only flat `key: value` lines are understood.
// Nested structures, lists, and multiline values are not supported.
// Documents without frontmatter yield an empty map and the full content.
func SplitFrontmatter(content string) (map[string]string, string) {
	pairs := make(map[string]string)
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return pairs, content
	}
	for i := 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "---" {
			return pairs, strings.Join(lines[i+1:], "\n")
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		pairs[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	// Unterminated frontmatter: treat the whole document as body
	return map[string]string{}, content
}
