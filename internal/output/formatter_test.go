package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"TEXT", FormatText},
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"toon", FormatTOON},
		{" TOON ", FormatTOON},
		{"", FormatText},
		{"csv", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseFormat(tt.input)
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	f, err := NewFormatter(FormatText, "", true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	defer f.Close()

	if f.format != FormatText {
		t.Errorf("format = %q, want %q", f.format, FormatText)
	}
	if !f.Colored() {
		t.Error("Colored() should be true for stdout")
	}
	if f.file != nil {
		t.Error("file should be nil for stdout")
	}
	if f.writer != os.Stdout {
		t.Error("writer should be stdout")
	}
}

func TestNewFormatterWithFile(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "bins.json")

	f, err := NewFormatter(FormatJSON, outputPath, true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	if f.file == nil {
		t.Error("file should not be nil for file output")
	}
	if f.colored {
		t.Error("colored should be false when writing to file")
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		t.Error("output file should exist")
	}
}

func TestNewFormatterInvalidPath(t *testing.T) {
	_, err := NewFormatter(FormatText, "/nonexistent/directory/report.txt", false)
	if err == nil {
		t.Error("NewFormatter() should error for invalid path")
	}
}

func sampleTable() *Table {
	return NewTable(
		"Score Rates",
		[]string{"Subject", "Score Rate", "Count"},
		[][]string{
			{"Math", "85.0%", "3"},
			{"Physics", "72.5%", "2"},
		},
		[]string{"Total", "", "5"},
		nil,
	)
}

func TestTableRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleTable().RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Score Rates", "SUBJECT", "SCORE RATE", "Math", "72.5%"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderText() missing %q in output:\n%s", want, out)
		}
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleTable().RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"## Score Rates",
		"| Subject | Score Rate | Count |",
		"| --- | ---: | ---: |",
		"| Math | 85.0% | 3 |",
		"| Total |  | 5 |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderMarkdown() missing %q in output:\n%s", want, out)
		}
	}
}

func TestTableRenderData(t *testing.T) {
	t.Run("rows_as_maps", func(t *testing.T) {
		data, ok := sampleTable().RenderData().([]map[string]string)
		if !ok {
			t.Fatalf("RenderData() type = %T", sampleTable().RenderData())
		}
		if len(data) != 2 {
			t.Fatalf("len(data) = %d, want 2", len(data))
		}
		if data[1]["Subject"] != "Physics" {
			t.Errorf("data[1][Subject] = %q, want Physics", data[1]["Subject"])
		}
	})

	t.Run("structured_data_wins", func(t *testing.T) {
		raw := map[string]int{"count": 5}
		table := NewTable("T", []string{"A"}, [][]string{{"x"}}, nil, raw)
		got, ok := table.RenderData().(map[string]int)
		if !ok || got["count"] != 5 {
			t.Errorf("RenderData() = %v, want raw data", table.RenderData())
		}
	})
}

func TestSectionRender(t *testing.T) {
	s := &Section{
		Title:   "Insights",
		Content: "Best period: 2024-02",
		Sections: []Section{
			{Title: "Trend", Content: "improving"},
		},
	}

	var text bytes.Buffer
	if err := s.RenderText(&text, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	for _, want := range []string{"Insights\n========", "Best period: 2024-02", "Trend\n-----", "improving"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("RenderText() missing %q in output:\n%s", want, text.String())
		}
	}

	var md bytes.Buffer
	if err := s.RenderMarkdown(&md); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	for _, want := range []string{"## Insights", "### Trend"} {
		if !strings.Contains(md.String(), want) {
			t.Errorf("RenderMarkdown() missing %q in output:\n%s", want, md.String())
		}
	}

	if s.RenderData() != s {
		t.Error("RenderData() should return the section itself without Data")
	}
}

func TestReportRender(t *testing.T) {
	r := &Report{
		Title: "Score Report",
		Sections: []Renderable{
			sampleTable(),
			&Section{Title: "Trend", Content: "slope 0.4"},
		},
	}

	var text bytes.Buffer
	if err := r.RenderText(&text, true); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	for _, want := range []string{"Score Report", "Math", "slope 0.4"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("RenderText() missing %q in output:\n%s", want, text.String())
		}
	}

	var md bytes.Buffer
	if err := r.RenderMarkdown(&md); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	if !strings.HasPrefix(md.String(), "# Score Report\n") {
		t.Errorf("RenderMarkdown() should start with report title:\n%s", md.String())
	}

	data, ok := r.RenderData().(map[string]any)
	if !ok {
		t.Fatalf("RenderData() type = %T", r.RenderData())
	}
	if data["title"] != "Score Report" {
		t.Errorf("title = %v", data["title"])
	}
	if parts, _ := data["sections"].([]any); len(parts) != 2 {
		t.Errorf("sections = %v, want 2 parts", data["sections"])
	}
}

func TestFormatterOutput(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   any
		want   string
	}{
		{"text_table", FormatText, sampleTable(), "Physics"},
		{"markdown_table", FormatMarkdown, sampleTable(), "| Physics | 72.5% | 2 |"},
		{"json_table", FormatJSON, sampleTable(), `"Subject": "Physics"`},
		{"toon_table", FormatTOON, sampleTable(), "Physics"},
		{"json_raw", FormatJSON, map[string]string{"subject": "Math"}, `"subject": "Math"`},
		{"markdown_raw", FormatMarkdown, map[string]string{"subject": "Math"}, "```json"},
		{"toon_raw", FormatTOON, map[string]string{"subject": "Math"}, "subject: Math"},
		{"text_raw", FormatText, map[string]int{"count": 42}, `"count": 42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outputPath := filepath.Join(t.TempDir(), "out.txt")

			f, err := NewFormatter(tt.format, outputPath, false)
			if err != nil {
				t.Fatalf("NewFormatter() error: %v", err)
			}
			if err := f.Output(tt.data); err != nil {
				t.Fatalf("Output() error: %v", err)
			}
			f.Close()

			content, err := os.ReadFile(outputPath)
			if err != nil {
				t.Fatalf("ReadFile() error: %v", err)
			}
			if !strings.Contains(string(content), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, content)
			}
		})
	}
}

func TestFormatterOutputJSONIsValid(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "scatter.json")

	f, err := NewFormatter(FormatJSON, outputPath, false)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	data := map[string]any{
		"x_max":  100,
		"counts": map[string]int{"efficient": 1, "high-performer": 1},
	}
	if err := f.Output(data); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	f.Close()

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["x_max"] != float64(100) {
		t.Errorf("x_max = %v, want 100", decoded["x_max"])
	}
}

func TestTableNumericColumns(t *testing.T) {
	table := NewTable("", []string{"Category", "Rate", "Delta", "Count", "Note"}, [][]string{
		{"Math", "85%", "+2.5", "1,204", ""},
		{"Physics", "-", "-3", "7", ""},
	}, nil, nil)

	got := table.numericColumns()
	want := []bool{false, true, true, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("numericColumns()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTableMarkdownEscapesPipes(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable("", []string{"Exam"}, [][]string{{"Unit 1 | retake"}}, nil, nil)
	if err := table.RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	if !strings.Contains(buf.String(), `| Unit 1 \| retake |`) {
		t.Errorf("pipe not escaped:\n%s", buf.String())
	}
}

func TestNestedReportHeadings(t *testing.T) {
	r := &Report{
		Title: "Score Analytics",
		Sections: []Renderable{
			&Report{
				Title:    "Trend",
				Sections: []Renderable{&Section{Title: "Fit", Content: "linear"}},
			},
			sampleTable(),
		},
	}

	var md bytes.Buffer
	if err := r.RenderMarkdown(&md); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	for _, want := range []string{"# Score Analytics\n", "\n## Trend\n", "\n### Fit\n", "\n## Score Rates\n"} {
		if !strings.Contains(md.String(), want) {
			t.Errorf("RenderMarkdown() missing %q in output:\n%s", want, md.String())
		}
	}

	var text bytes.Buffer
	if err := r.RenderText(&text, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	for _, want := range []string{"Score Analytics\n===============", "Trend\n-----", "Fit\n---\n"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("RenderText() missing %q in output:\n%s", want, text.String())
		}
	}
}

func TestTrendColor(t *testing.T) {
	for _, direction := range []string{"improving", "declining", "stable", "none", "efficient", ""} {
		t.Run(direction, func(t *testing.T) {
			got := TrendColor(direction, "Math")
			if !strings.Contains(got, "Math") {
				t.Errorf("TrendColor(%q) = %q, should contain text", direction, got)
			}
		})
	}
}
