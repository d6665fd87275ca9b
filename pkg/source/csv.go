package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header names accepted for each CSV column.
var csvColumns = map[string]string{
	"date":           "date",
	"subject":        "subject",
	"question_type":  "question_type",
	"questiontype":   "question_type",
	"type":           "question_type",
	"exam":           "exam",
	"earned":         "earned",
	"score_earned":   "earned",
	"possible":       "possible",
	"score_possible": "possible",
}

var requiredColumns = []string{"date", "earned", "possible"}

func decodeCSV(data []byte) ([]row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comment = '#'

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if col, ok := csvColumns[key]; ok {
			index[col] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("CSV header is missing the %q column", col)
		}
	}

	var rows []row
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			rows = append(rows, row{line: parseErr.Line, reject: parseErr.Err.Error()})
			continue
		}
		if err != nil {
			return nil, err
		}

		line, _ := r.FieldPos(0)
		rows = append(rows, csvRow(fields, index, line))
	}
	return rows, nil
}

func csvRow(fields []string, index map[string]int, line int) row {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	r := row{
		line:         line,
		date:         get("date"),
		subject:      get("subject"),
		questionType: get("question_type"),
		exam:         get("exam"),
	}

	var err error
	if r.earned, err = strconv.ParseFloat(get("earned"), 64); err != nil {
		r.reject = fmt.Sprintf("invalid earned score %q", get("earned"))
		return r
	}
	if r.possible, err = strconv.ParseFloat(get("possible"), 64); err != nil {
		r.reject = fmt.Sprintf("invalid possible score %q", get("possible"))
	}
	return r
}
