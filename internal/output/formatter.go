package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	toon "github.com/toon-format/toon-go"
)

// Format represents an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
)

// ParseFormat converts a string to Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	case "markdown", "md":
		return FormatMarkdown
	case "toon":
		return FormatTOON
	default:
		return FormatText
	}
}

// Renderable defines data that can render itself in multiple formats.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	// RenderData returns the underlying data for JSON and TOON serialization.
	RenderData() any
}

// nested is implemented by renderables that can sit under a parent heading.
// Level 0 is the document title.
type nested interface {
	renderTextAt(w io.Writer, colored bool, level int) error
	renderMarkdownAt(w io.Writer, level int) error
}

// Formatter writes renderables to stdout or a file.
type Formatter struct {
	format  Format
	writer  io.Writer
	file    *os.File
	colored bool
}

// NewFormatter creates a formatter. A non-empty output path is created or
// truncated, and disables color.
func NewFormatter(format Format, output string, colored bool) (*Formatter, error) {
	f := &Formatter{format: format, writer: os.Stdout, colored: colored}
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return nil, err
		}
		f.writer = file
		f.file = file
		f.colored = false
	}
	return f, nil
}

// Close closes the output file, if any.
func (f *Formatter) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

// Colored returns whether colored output is enabled.
func (f *Formatter) Colored() bool {
	return f.colored
}

// Output writes data in the configured format. Values that are not
// Renderable are serialized as they are; text output falls back to JSON.
func (f *Formatter) Output(data any) error {
	r, ok := data.(Renderable)

	switch f.format {
	case FormatJSON:
		if ok {
			data = r.RenderData()
		}
		return f.writeJSON(data)
	case FormatTOON:
		if ok {
			data = r.RenderData()
		}
		return f.writeTOON(data)
	case FormatMarkdown:
		if ok {
			return r.RenderMarkdown(f.writer)
		}
		fmt.Fprintln(f.writer, "```json")
		if err := f.writeJSON(data); err != nil {
			return err
		}
		_, err := fmt.Fprintln(f.writer, "```")
		return err
	default:
		if ok {
			return r.RenderText(f.writer, f.colored)
		}
		return f.writeJSON(data)
	}
}

func (f *Formatter) writeJSON(data any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (f *Formatter) writeTOON(data any) error {
	out, err := toon.Marshal(data, toon.WithIndent(2))
	if err != nil {
		return err
	}
	if _, err := f.writer.Write(out); err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.writer)
	return err
}

// heading writes a text heading. The document title is bold cyan with a
// double underline; deeper levels are bold with a single underline.
func heading(w io.Writer, title string, colored bool, level int) {
	if title == "" {
		return
	}
	switch {
	case colored && level == 0:
		color.New(color.Bold, color.FgCyan).Fprintln(w, title)
	case colored:
		color.New(color.Bold).Fprintln(w, title)
	default:
		fmt.Fprintln(w, title)
	}
	underline := "="
	if level > 0 {
		underline = "-"
	}
	fmt.Fprintln(w, strings.Repeat(underline, len([]rune(title))))
}

func markdownHeading(w io.Writer, title string, level int) {
	if title != "" {
		fmt.Fprintf(w, "%s %s\n\n", strings.Repeat("#", level+1), title)
	}
}

// Table is a Renderable table with headers, rows, and optional footer.
// Columns whose cells are all numeric are right-aligned.
type Table struct {
	Title   string     `json:"-"`
	Headers []string   `json:"-"`
	Rows    [][]string `json:"-"`
	Footer  []string   `json:"-"`
	Data    any        `json:"data,omitempty"`
}

// NewTable creates a table that wraps structured data for serialization.
func NewTable(title string, headers []string, rows [][]string, footer []string, data any) *Table {
	return &Table{
		Title:   title,
		Headers: headers,
		Rows:    rows,
		Footer:  footer,
		Data:    data,
	}
}

// RenderData returns Data, or the rows keyed by header when Data is nil.
func (t *Table) RenderData() any {
	if t.Data != nil {
		return t.Data
	}
	result := make([]map[string]string, len(t.Rows))
	for i, row := range t.Rows {
		m := make(map[string]string, len(t.Headers))
		for j, h := range t.Headers {
			if j < len(row) {
				m[h] = row[j]
			}
		}
		result[i] = m
	}
	return result
}

func (t *Table) RenderText(w io.Writer, colored bool) error {
	return t.renderTextAt(w, colored, 1)
}

func (t *Table) renderTextAt(w io.Writer, colored bool, level int) error {
	if t.Title != "" {
		heading(w, t.Title, colored, level)
		fmt.Fprintln(w)
	}

	aligns := make([]tw.Align, len(t.Headers))
	for i, numeric := range t.numericColumns() {
		aligns[i] = tw.AlignLeft
		if numeric {
			aligns[i] = tw.AlignRight
		}
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft, PerColumn: aligns},
			},
			Footer: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft, PerColumn: aligns},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off},
			Settings: tw.Settings{
				Separators: tw.Separators{BetweenColumns: tw.Off},
			},
		}),
	)

	table.Header(t.Headers)
	for _, row := range t.Rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if len(t.Footer) > 0 {
		footer := make([]any, len(t.Footer))
		for i, cell := range t.Footer {
			footer[i] = cell
		}
		table.Footer(footer...)
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func (t *Table) RenderMarkdown(w io.Writer) error {
	return t.renderMarkdownAt(w, 1)
}

func (t *Table) renderMarkdownAt(w io.Writer, level int) error {
	markdownHeading(w, t.Title, level)

	fmt.Fprintf(w, "| %s |\n", joinCells(t.Headers))

	seps := make([]string, len(t.Headers))
	for i, numeric := range t.numericColumns() {
		seps[i] = "---"
		if numeric {
			seps[i] = "---:"
		}
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, row := range t.Rows {
		fmt.Fprintf(w, "| %s |\n", joinCells(row))
	}
	if len(t.Footer) > 0 {
		fmt.Fprintf(w, "| %s |\n", joinCells(t.Footer))
	}

	_, err := fmt.Fprintln(w)
	return err
}

// numericColumns reports, per header, whether every non-empty row cell
// holds a number. Empty columns are not numeric.
func (t *Table) numericColumns() []bool {
	numeric := make([]bool, len(t.Headers))
	for i := range numeric {
		seen := false
		numeric[i] = true
		for _, row := range t.Rows {
			if i >= len(row) || row[i] == "" || row[i] == "-" {
				continue
			}
			seen = true
			if !isNumber(row[i]) {
				numeric[i] = false
				break
			}
		}
		numeric[i] = numeric[i] && seen
	}
	return numeric
}

// isNumber accepts the forms produced by Num, Score, Percent and Signed.
func isNumber(s string) bool {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "+"), "%")
	s = strings.ReplaceAll(s, ",", "")
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func joinCells(cells []string) string {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return strings.Join(escaped, " | ")
}

// Section is a Renderable titled section with content and subsections.
type Section struct {
	Title    string    `json:"title,omitempty"`
	Content  string    `json:"content,omitempty"`
	Sections []Section `json:"sections,omitempty"`
	Data     any       `json:"data,omitempty"`
}

// RenderData returns Data, or the section itself when Data is nil.
func (s *Section) RenderData() any {
	if s.Data != nil {
		return s.Data
	}
	return s
}

func (s *Section) RenderText(w io.Writer, colored bool) error {
	return s.renderTextAt(w, colored, 0)
}

func (s *Section) renderTextAt(w io.Writer, colored bool, level int) error {
	heading(w, s.Title, colored, level)
	if s.Content != "" {
		fmt.Fprintln(w, s.Content)
	}
	for i := range s.Sections {
		fmt.Fprintln(w)
		if err := s.Sections[i].renderTextAt(w, colored, level+1); err != nil {
			return err
		}
	}
	return nil
}

func (s *Section) RenderMarkdown(w io.Writer) error {
	return s.renderMarkdownAt(w, 1)
}

func (s *Section) renderMarkdownAt(w io.Writer, level int) error {
	markdownHeading(w, s.Title, level)
	if s.Content != "" {
		fmt.Fprintf(w, "%s\n\n", s.Content)
	}
	for i := range s.Sections {
		if err := s.Sections[i].renderMarkdownAt(w, level+1); err != nil {
			return err
		}
	}
	return nil
}

// Report is a compound Renderable. Reports may contain reports; nested
// titles render one heading level below their parent.
type Report struct {
	Title    string       `json:"title,omitempty"`
	Sections []Renderable `json:"-"`
	Data     any          `json:"data,omitempty"`
}

// RenderData returns Data, or the title and every section's data.
func (r *Report) RenderData() any {
	if r.Data != nil {
		return r.Data
	}
	parts := make([]any, len(r.Sections))
	for i, s := range r.Sections {
		parts[i] = s.RenderData()
	}
	return map[string]any{
		"title":    r.Title,
		"sections": parts,
	}
}

func (r *Report) RenderText(w io.Writer, colored bool) error {
	return r.renderTextAt(w, colored, 0)
}

func (r *Report) renderTextAt(w io.Writer, colored bool, level int) error {
	if r.Title != "" {
		heading(w, r.Title, colored, level)
		fmt.Fprintln(w)
	}
	child := level + 1
	if r.Title == "" {
		child = level
	}

	for i, s := range r.Sections {
		var err error
		if n, ok := s.(nested); ok {
			err = n.renderTextAt(w, colored, child)
		} else {
			err = s.RenderText(w, colored)
		}
		if err != nil {
			return err
		}
		if i < len(r.Sections)-1 {
			fmt.Fprintln(w)
		}
	}
	return nil
}

func (r *Report) RenderMarkdown(w io.Writer) error {
	return r.renderMarkdownAt(w, 0)
}

func (r *Report) renderMarkdownAt(w io.Writer, level int) error {
	markdownHeading(w, r.Title, level)
	child := level + 1
	if r.Title == "" {
		child = level
	}

	for _, s := range r.Sections {
		var err error
		if n, ok := s.(nested); ok {
			err = n.renderMarkdownAt(w, child)
		} else {
			err = s.RenderMarkdown(w)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// TrendColor colors text by the direction of a score change.
func TrendColor(direction, text string) string {
	switch strings.ToLower(direction) {
	case "declining", "needs-improvement", "below":
		return color.RedString(text)
	case "stable", "inconsistent", "within":
		return color.YellowString(text)
	case "improving", "high-performer", "efficient", "above":
		return color.GreenString(text)
	default:
		return text
	}
}
