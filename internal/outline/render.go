package outline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
)

// Format is an export format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatHTML     Format = "html"
)

// Formats lists every export format.
var Formats = []Format{FormatText, FormatJSON, FormatMarkdown, FormatCSV, FormatHTML}

// MarkdownHeading opens every Markdown export.
const MarkdownHeading = "# Mind Map Export"

// ParseFormat accepts a format name or its usual file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "html", "htm":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unsupported format %q: use text, json, markdown, csv or html", s)
}

// Extension is the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatMarkdown:
		return "md"
	case FormatCSV:
		return "csv"
	case FormatHTML:
		return "html"
	}
	return "txt"
}

// FileName is the default download name for f.
func (f Format) FileName() string {
	return "mind-map." + f.Extension()
}

// Render renders doc in format f.
func Render(doc Document, f Format) (string, error) {
	switch f {
	case FormatText:
		return Text(doc), nil
	case FormatJSON:
		return JSON(doc)
	case FormatMarkdown:
		return Markdown(doc), nil
	case FormatCSV:
		return CSV(doc), nil
	case FormatHTML:
		return HTML(doc)
	}
	return "", fmt.Errorf("unsupported format %q", f)
}

// Text renders an indented outline: two spaces per level and a "- " bullet,
// one line per entry, without a trailing newline.
func Text(doc Document) string {
	lines := make([]string, len(doc))
	for i, e := range doc {
		lines[i] = strings.Repeat("  ", e.Depth) + "- " + e.Label
	}
	return strings.Join(lines, "\n")
}

// JSON renders the rebuilt hierarchy as an indented array of
// {id, text, depth, children} objects.
func JSON(doc Document) (string, error) {
	data, err := json.MarshalIndent(doc.Tree(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode outline: %w", err)
	}
	return string(data), nil
}

// Markdown renders a heading followed by a "* " bullet list indented two
// spaces per level.
func Markdown(doc Document) string {
	var b strings.Builder
	b.WriteString(MarkdownHeading)
	b.WriteString("\n\n")
	for _, e := range doc {
		b.WriteString(strings.Repeat("  ", e.Depth))
		b.WriteString("* ")
		b.WriteString(e.Label)
		b.WriteString("\n")
	}
	return b.String()
}

// CSV renders an id,text,depth table. The id and text columns are always
// quoted, with embedded quotes doubled.
func CSV(doc Document) string {
	var b strings.Builder
	b.WriteString("id,text,depth\n")
	for _, e := range doc {
		b.WriteString(quote(e.ID))
		b.WriteString(",")
		b.WriteString(quote(e.Label))
		b.WriteString(",")
		b.WriteString(strconv.Itoa(e.Depth))
		b.WriteString("\n")
	}
	return b.String()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// HTML renders the Markdown export as an HTML fragment.
func HTML(doc Document) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(doc)), &buf); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	return buf.String(), nil
}
