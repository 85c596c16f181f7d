// Package projection maps stored quiz and question records into the
// normalized shapes used by scoring and presentation.
package projection

import (
	"strings"

	"quiz-attempt-service/internal/domain"
)

// Project normalizes a quiz and its questions. questions may be in any order
// and may contain archived or unrelated records; only the active ones named by
// quiz.QuestionIDs are kept, in that order.
func Project(quiz domain.QuizRecord, questions []domain.QuestionRecord, course *domain.CourseRecord) (domain.Quiz, error) {
	if quiz.Archived {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	ordered := OrderQuestions(quiz.QuestionIDs, questions)

	projected := make([]domain.Question, 0, len(ordered))
	for i, q := range ordered {
		pq := ProjectQuestion(q)
		pq.Order = i
		projected = append(projected, pq)
	}

	return domain.Quiz{
		ID:            quiz.ID,
		Title:         quiz.Title,
		Description:   describe(quiz.Description),
		Topic:         QuizTopic(quiz, course),
		Difficulty:    QuizDifficulty(quiz.Difficulty, quiz.Tags),
		Timing:        ResolveTiming(quiz, len(projected)),
		EstimatedTime: EstimatedMinutes(quiz, len(projected)),
		QuestionCount: len(projected),
		Questions:     projected,
	}, nil
}

// OrderQuestions returns the active records named by ids, in ids order.
// Missing and archived questions are dropped; duplicates in ids are kept once.
func OrderQuestions(ids []string, records []domain.QuestionRecord) []domain.QuestionRecord {
	byID := make(map[string]domain.QuestionRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]domain.QuestionRecord, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		r, ok := byID[id]
		if !ok || r.Archived {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ProjectQuestion resolves labels and builds the grading variant for one record.
func ProjectQuestion(r domain.QuestionRecord) domain.Question {
	typ := domain.QuestionType(strings.ToLower(strings.TrimSpace(r.Type)))
	return domain.Question{
		ID:              r.ID,
		Type:            typ,
		Text:            r.Text,
		Grading:         gradingFor(typ, r.Metadata),
		Difficulty:      QuestionDifficulty(r.Difficulty, r.Tags),
		DifficultyLevel: r.Difficulty,
		Topic:           QuestionTopic(r),
		SkillCategory:   Skill(r.SkillCategory),
		Explanation:     r.Explanation,
	}
}

func gradingFor(typ domain.QuestionType, m domain.QuestionMetadata) domain.Grading {
	switch typ {
	case domain.QuestionMCQ:
		return domain.MCQGrading{Options: m.Options, CorrectOption: m.CorrectOption}
	case domain.QuestionShortAnswer:
		return domain.ShortAnswerGrading{
			AcceptedAnswers:    m.AcceptedAnswers,
			CaseSensitive:      m.CaseSensitive,
			IgnoreWhitespace:   m.IgnoreWhitespace,
			StripLeadingEquals: m.StripLeadingEquals,
		}
	case domain.QuestionNumeric:
		if m.NumericAnswer == nil {
			return nil
		}
		return domain.NumericGrading{Answer: *m.NumericAnswer, Tolerance: m.Tolerance}
	case domain.QuestionLongAnswer:
		return domain.LongAnswerGrading{}
	}
	return nil
}

// FilterQuizzes drops archived quizzes, preserving the order of the rest.
func FilterQuizzes(quizzes []domain.QuizRecord) []domain.QuizRecord {
	out := make([]domain.QuizRecord, 0, len(quizzes))
	for _, q := range quizzes {
		if !q.Archived {
			out = append(out, q)
		}
	}
	return out
}

// CourseIndex maps each quiz id to the first active course that lists it.
func CourseIndex(courses []domain.CourseRecord) map[string]*domain.CourseRecord {
	idx := make(map[string]*domain.CourseRecord)
	for i := range courses {
		c := &courses[i]
		if c.Archived {
			continue
		}
		for _, quizID := range c.QuizIDs {
			if _, ok := idx[quizID]; !ok {
				idx[quizID] = c
			}
		}
	}
	return idx
}

func describe(s string) string {
	if strings.TrimSpace(s) == "" {
		return "No description provided."
	}
	return s
}
