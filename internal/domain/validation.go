package domain

import (
	"math"
	"strings"
)

// MinPasswordLength is the shortest password the identity provider accepts.
const MinPasswordLength = 6

func validLevel(level int) bool {
	return level >= 1 && level <= 3
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidateQuestion rejects malformed question payloads before they are stored.
func ValidateQuestion(q QuestionRecord) error {
	known := false
	for _, t := range QuestionTypes {
		if QuestionType(q.Type) == t {
			known = true
			break
		}
	}
	if !known {
		return invalid("type", "must be one of: mcq, short_answer, numeric, long_answer")
	}
	if blank(q.Text) {
		return invalid("text", "is required")
	}
	if !validLevel(q.Difficulty) {
		return invalid("difficulty", "must be 1, 2, or 3")
	}
	if !validLevel(q.SkillCategory) {
		return invalid("skillCategory", "must be 1, 2, or 3")
	}
	if blank(q.Topic) {
		return invalid("topic", "is required")
	}

	m := q.Metadata
	switch QuestionType(q.Type) {
	case QuestionMCQ:
		if len(m.Options) < 2 {
			return invalid("metadata.options", "must include at least two options for mcq questions")
		}
		found := false
		for _, opt := range m.Options {
			if blank(opt.ID) || blank(opt.Text) {
				return invalid("metadata.options", "must each include a non-empty id and text")
			}
			if opt.ID == m.CorrectOption {
				found = true
			}
		}
		if !found {
			return invalid("metadata.correctOption", "must match one of the option ids")
		}
	case QuestionShortAnswer:
		if len(m.AcceptedAnswers) == 0 {
			return invalid("metadata.acceptedAnswers", "must be a non-empty list for short_answer questions")
		}
	case QuestionNumeric:
		if m.NumericAnswer == nil || !finite(*m.NumericAnswer) {
			return invalid("metadata.numericAnswer", "must be a number for numeric questions")
		}
		if m.Tolerance != nil && (!finite(*m.Tolerance) || *m.Tolerance < 0) {
			return invalid("metadata.tolerance", "must be a non-negative number when provided")
		}
	}
	return nil
}

// ValidateQuiz rejects malformed quiz payloads. An EstimatedTime of zero is
// derived at read time.
func ValidateQuiz(q QuizRecord) error {
	switch {
	case blank(q.Title):
		return invalid("title", "is required")
	case blank(q.Description):
		return invalid("description", "is required")
	case blank(q.Topic):
		return invalid("topic", "is required")
	case !validLevel(q.Difficulty):
		return invalid("difficulty", "must be 1, 2, or 3")
	case q.EstimatedTime < 0 || !finite(q.EstimatedTime):
		return invalid("estimatedTime", "must be a positive number of minutes")
	case q.Timing != nil && q.Timing.DurationSeconds < 0:
		return invalid("timing.durationSeconds", "must not be negative")
	}
	for _, id := range q.QuestionIDs {
		if blank(id) {
			return invalid("questionIds", "must not contain empty ids")
		}
	}
	return nil
}

// ValidateCourse rejects malformed course payloads.
func ValidateCourse(c CourseRecord) error {
	switch {
	case blank(c.Title):
		return invalid("title", "is required")
	case blank(c.Description):
		return invalid("description", "is required")
	case blank(c.Topic):
		return invalid("topic", "is required")
	}
	return nil
}

// ValidateDisplayName rejects an empty profile name.
func ValidateDisplayName(name string) error {
	if blank(name) {
		return invalid("displayName", "cannot be empty")
	}
	return nil
}

// ValidateComment rejects an empty discussion entry.
func ValidateComment(text string) error {
	if blank(text) {
		return invalid("text", "cannot be empty")
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
