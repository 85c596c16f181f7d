// Package grading decides whether a single submitted answer is correct.
package grading

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"quiz-attempt-service/internal/domain"
)

// toleranceSlack absorbs binary float error so that decimal inputs compare as
// written (3.15 is within 0.01 of 3.14).
const toleranceSlack = 1e-9

// Evaluate reports whether answer is correct for q. It never panics; a
// question without grading metadata is never correct.
func Evaluate(q domain.Question, answer string) bool {
	switch g := q.Grading.(type) {
	case domain.MCQGrading:
		return answer == g.CorrectOption
	case domain.ShortAnswerGrading:
		return matchShortAnswer(g, answer)
	case domain.NumericGrading:
		return matchNumeric(g, answer)
	default:
		return false
	}
}

// Gradable reports whether q has an automated grading path.
func Gradable(q domain.Question) bool {
	switch q.Grading.(type) {
	case domain.MCQGrading, domain.ShortAnswerGrading, domain.NumericGrading:
		return true
	}
	return false
}

// Normalize applies the short-answer normalization: strip one leading "=",
// then remove or trim whitespace, then lowercase.
func Normalize(s string, g domain.ShortAnswerGrading) string {
	if g.StripLeadingEquals {
		s = strings.TrimPrefix(s, "=")
	}
	if g.IgnoreWhitespace {
		s = strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, s)
	} else {
		s = strings.TrimSpace(s)
	}
	if !g.CaseSensitive {
		s = strings.ToLower(s)
	}
	return s
}

func matchShortAnswer(g domain.ShortAnswerGrading, answer string) bool {
	submitted := Normalize(answer, g)
	for _, accepted := range g.AcceptedAnswers {
		if Normalize(accepted, g) == submitted {
			return true
		}
	}
	return false
}

func matchNumeric(g domain.NumericGrading, answer string) bool {
	submitted, ok := parseNumber(answer)
	if !ok || !finite(g.Answer) {
		return false
	}
	if g.Tolerance != nil && *g.Tolerance >= 0 {
		return math.Abs(submitted-g.Answer) <= *g.Tolerance+toleranceSlack
	}
	return submitted == g.Answer
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
