package source

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed record.schema.json
var recordSchemaJSON []byte

const recordSchemaURL = "https://gradelens.dev/schema/record.json"

var (
	recordSchemaOnce sync.Once
	recordSchema     *jsonschema.Schema
	recordSchemaErr  error
)

func compiledRecordSchema() (*jsonschema.Schema, error) {
	recordSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(recordSchemaJSON))
		if err != nil {
			recordSchemaErr = fmt.Errorf("invalid record schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(recordSchemaURL, doc); err != nil {
			recordSchemaErr = fmt.Errorf("invalid record schema: %w", err)
			return
		}
		recordSchema, recordSchemaErr = c.Compile(recordSchemaURL)
	})
	return recordSchema, recordSchemaErr
}

// document is the shape of a JSON or YAML record.
type document struct {
	Date         string  `json:"date" yaml:"date"`
	Subject      string  `json:"subject" yaml:"subject"`
	QuestionType string  `json:"question_type" yaml:"question_type"`
	Exam         string  `json:"exam" yaml:"exam"`
	Earned       float64 `json:"earned" yaml:"earned"`
	Possible     float64 `json:"possible" yaml:"possible"`
}

func (d document) row(line int) row {
	return row{
		line:         line,
		date:         d.Date,
		subject:      d.Subject,
		questionType: d.QuestionType,
		exam:         d.Exam,
		earned:       d.Earned,
		possible:     d.Possible,
	}
}

// decodeJSON reads an array of record objects. Each element is checked
// against the record schema; failures become rejected rows.
func decodeJSON(data []byte) ([]row, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("records must be a JSON array: %w", err)
	}

	schema, err := compiledRecordSchema()
	if err != nil {
		return nil, err
	}

	rows := make([]row, 0, len(elems))
	for i, raw := range elems {
		line := i + 1

		inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			rows = append(rows, row{line: line, reject: err.Error()})
			continue
		}
		if err := schema.Validate(inst); err != nil {
			rows = append(rows, row{line: line, reject: schemaReason(err)})
			continue
		}

		var d document
		if err := json.Unmarshal(raw, &d); err != nil {
			rows = append(rows, row{line: line, reject: err.Error()})
			continue
		}
		rows = append(rows, d.row(line))
	}
	return rows, nil
}

// schemaReason flattens a validation error to one line.
func schemaReason(err error) string {
	var verr *jsonschema.ValidationError
	if errors.As(err, &verr) {
		var causes []string
		for _, c := range verr.Causes {
			causes = append(causes, schemaReason(c))
		}
		if len(causes) > 0 {
			return strings.Join(causes, "; ")
		}
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, "\n"); i >= 0 {
		msg = strings.TrimSpace(msg[i+1:])
	}
	return strings.TrimSpace(strings.TrimPrefix(msg, "-"))
}

// decodeYAML reads a sequence of record mappings. Each mapping is checked
// against the same schema as JSON records.
func decodeYAML(data []byte) ([]row, error) {
	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("records must be a YAML sequence: %w", err)
	}

	schema, err := compiledRecordSchema()
	if err != nil {
		return nil, err
	}

	rows := make([]row, 0, len(nodes))
	for i := range nodes {
		line := i + 1

		var raw any
		if err := nodes[i].Decode(&raw); err != nil {
			rows = append(rows, row{line: line, reject: err.Error()})
			continue
		}
		if err := schema.Validate(yamlInstance(raw)); err != nil {
			rows = append(rows, row{line: line, reject: schemaReason(err)})
			continue
		}

		var d document
		if err := nodes[i].Decode(&d); err != nil {
			rows = append(rows, row{line: line, reject: err.Error()})
			continue
		}
		rows = append(rows, d.row(line))
	}
	return rows, nil
}

// yamlInstance converts a decoded YAML value into the shapes the schema
// validator gets from JSON: string keys, json.Number numbers, string
// timestamps. Non-finite numbers become 0 here and are rejected later by
// the finite check, which names the problem.
func yamlInstance(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = yamlInstance(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[fmt.Sprint(k)] = yamlInstance(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = yamlInstance(e)
		}
		return out
	case int:
		return json.Number(strconv.Itoa(v))
	case int64:
		return json.Number(strconv.FormatInt(v, 10))
	case uint64:
		return json.Number(strconv.FormatUint(v, 10))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return json.Number("0")
		}
		return json.Number(strconv.FormatFloat(v, 'g', -1, 64))
	case time.Time:
		return v.Format(time.RFC3339)
	}
	return v
}
