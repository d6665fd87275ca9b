package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/panbanda/gradelens/pkg/models"
	"github.com/sourcegraph/conc/pool"
)

var (
	// ErrUnsupportedFormat is returned for files that are not CSV, JSON or YAML.
	ErrUnsupportedFormat = errors.New("unsupported record format")

	// ErrInvalidRecord is returned in strict mode for the first rejected record.
	ErrInvalidRecord = errors.New("invalid record")
)

// Format is a record file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// DetectFormat infers the format from the file extension.
func DetectFormat(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Date layouts accepted in record files, tried in order.
var dateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}

// ParseDate parses a record date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}

// Issue describes a record that was skipped.
type Issue struct {
	Path   string `json:"path,omitempty"`
	Line   int    `json:"line"` // CSV line, or 1-based element index for JSON/YAML
	Reason string `json:"reason"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return fmt.Sprintf("record %d: %s", i.Line, i.Reason)
	}
	return fmt.Sprintf("%s:%d: %s", i.Path, i.Line, i.Reason)
}

// Result holds the records read from one or more files.
type Result struct {
	Records []models.Record `json:"records"`
	Issues  []Issue         `json:"issues,omitempty"`
	Files   []string        `json:"files"`

	contents map[string][]byte
}

// Contents returns the raw bytes of each loaded file keyed by path.
func (r *Result) Contents() map[string][]byte {
	return r.contents
}

// Loader reads record files.
type Loader struct {
	src    ContentSource
	format Format
	strict bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithSource reads files through src instead of the filesystem.
func WithSource(src ContentSource) Option {
	return func(l *Loader) {
		l.src = src
	}
}

// WithFormat forces a format instead of detecting it from the extension.
func WithFormat(f Format) Option {
	return func(l *Loader) {
		l.format = f
	}
}

// WithStrict makes the first rejected record fail the load.
func WithStrict(strict bool) Option {
	return func(l *Loader) {
		l.strict = strict
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{src: NewFilesystem(0)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every path concurrently and merges the records in argument
// order.
func (l *Loader) Load(paths ...string) (*Result, error) {
	parts := make([]*Result, len(paths))
	contents := make([][]byte, len(paths))

	p := pool.New().WithErrors()
	for i, path := range paths {
		p.Go(func() error {
			format := l.format
			if format == "" {
				f, err := DetectFormat(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				format = f
			}

			content, err := l.src.Read(path)
			if err != nil {
				return err
			}

			part, err := l.Parse(content, format)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			parts[i] = part
			contents[i] = content
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		Records:  []models.Record{},
		Files:    []string{},
		contents: make(map[string][]byte, len(paths)),
	}
	for i, part := range parts {
		path := paths[i]
		for _, issue := range part.Issues {
			issue.Path = path
			result.Issues = append(result.Issues, issue)
		}
		result.Records = append(result.Records, part.Records...)
		result.Files = append(result.Files, path)
		result.contents[path] = contents[i]
	}
	return result, nil
}

// Parse decodes records from data.
func (l *Loader) Parse(data []byte, format Format) (*Result, error) {
	var (
		rows []row
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = decodeCSV(data)
	case FormatJSON:
		rows, err = decodeJSON(data)
	case FormatYAML:
		rows, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	result := &Result{Records: make([]models.Record, 0, len(rows))}
	for _, r := range rows {
		rec, reason := r.record()
		if reason != "" {
			issue := Issue{Line: r.line, Reason: reason}
			if l.strict {
				return nil, fmt.Errorf("%s: %w", issue, ErrInvalidRecord)
			}
			result.Issues = append(result.Issues, issue)
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

// row is a decoded but unvalidated record. A non-empty reject means the
// decoder already knows the row is unusable.
type row struct {
	line         int
	date         string
	subject      string
	questionType string
	exam         string
	earned       float64
	possible     float64
	reject       string
}

func (r row) record() (models.Record, string) {
	if r.reject != "" {
		return models.Record{}, r.reject
	}
	date, err := ParseDate(r.date)
	if err != nil {
		return models.Record{}, err.Error()
	}

	rec := models.Record{
		Date:         date,
		Subject:      strings.TrimSpace(r.subject),
		QuestionType: strings.TrimSpace(r.questionType),
		Exam:         strings.TrimSpace(r.exam),
		Earned:       r.earned,
		Possible:     r.possible,
	}
	switch {
	case !rec.Finite():
		return models.Record{}, "non-finite score"
	case rec.Possible < 0:
		return models.Record{}, fmt.Sprintf("negative possible score %v", rec.Possible)
	}
	return rec, ""
}
