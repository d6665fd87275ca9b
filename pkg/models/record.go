package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Record is a single logged exam or practice score.
type Record struct {
	Date         time.Time `json:"date" yaml:"date"`
	Subject      string    `json:"subject" yaml:"subject"`
	QuestionType string    `json:"question_type,omitempty" yaml:"question_type,omitempty"`
	Exam         string    `json:"exam,omitempty" yaml:"exam,omitempty"`
	Earned       float64   `json:"earned" yaml:"earned"`
	Possible     float64   `json:"possible" yaml:"possible"`
}

// Rate returns the score rate as a percentage (0-100).
// Returns 0 when nothing was possible.
func (r Record) Rate() float64 {
	if r.Possible == 0 {
		return 0
	}
	return 100 * r.Earned / r.Possible
}

// Lost returns the score that was possible but not earned.
func (r Record) Lost() float64 {
	return r.Possible - r.Earned
}

// Finite reports whether both score fields are usable numbers.
func (r Record) Finite() bool {
	return !math.IsNaN(r.Earned) && !math.IsInf(r.Earned, 0) &&
		!math.IsNaN(r.Possible) && !math.IsInf(r.Possible, 0)
}

// CategoryKind selects which record field is treated as the category.
type CategoryKind string

const (
	CategorySubject      CategoryKind = "subject"
	CategoryQuestionType CategoryKind = "question_type"
	CategoryExam         CategoryKind = "exam"
)

// ParseCategoryKind converts a string to a CategoryKind.
// An empty string selects the subject.
func ParseCategoryKind(s string) (CategoryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "subject":
		return CategorySubject, nil
	case "question_type", "question-type", "type":
		return CategoryQuestionType, nil
	case "exam":
		return CategoryExam, nil
	default:
		return "", fmt.Errorf("%w: unknown category kind %q", ErrInvalidConfig, s)
	}
}

// Of returns the category of r for this kind.
func (k CategoryKind) Of(r Record) string {
	switch k {
	case CategoryQuestionType:
		return r.QuestionType
	case CategoryExam:
		return r.Exam
	default:
		return r.Subject
	}
}

// Label returns a human-readable column name for the kind.
func (k CategoryKind) Label() string {
	switch k {
	case CategoryQuestionType:
		return "Question Type"
	case CategoryExam:
		return "Exam"
	default:
		return "Subject"
	}
}
