// Package scoring aggregates per-question grading into an attempt score.
package scoring

import (
	"sort"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/grading"
)

// Score bands. A topic below GreatThreshold is reported as a weakness.
const (
	ExcellentThreshold = 90
	GreatThreshold     = 75
	GoodThreshold      = 60
)

const (
	BandExcellent            = "excellent"
	BandGreat                = "great"
	BandGood                 = "good"
	BandBuildingFundamentals = "building_fundamentals"
)

// Score grades every question of quiz, in quiz order, against answers keyed
// by question id. A missing answer is graded as the empty string.
func Score(quiz domain.Quiz, answers map[string]string) domain.ScoreResult {
	result := domain.ScoreResult{
		TotalQuestions: len(quiz.Questions),
		Answers:        make([]domain.QuestionResult, 0, len(quiz.Questions)),
	}

	topics := newGroups[string]()
	skills := newGroups[domain.SkillCategory]()

	for _, q := range quiz.Questions {
		answer := answers[q.ID]
		correct := grading.Evaluate(q, answer)
		if correct {
			result.CorrectAnswers++
		}
		result.Answers = append(result.Answers, domain.QuestionResult{
			QuestionID:     q.ID,
			SelectedAnswer: answer,
			Correct:        correct,
			Graded:         grading.Gradable(q),
		})
		topics.add(q.Topic, correct)
		skills.add(q.SkillCategory, correct)
	}

	result.Score = Percent(result.CorrectAnswers, result.TotalQuestions)

	result.TopicBreakdown = make([]domain.TopicStat, 0, len(topics.order))
	for _, key := range topics.order {
		result.TopicBreakdown = append(result.TopicBreakdown, domain.TopicStat{Topic: key, Breakdown: topics.breakdown(key)})
	}
	result.SkillBreakdown = make([]domain.SkillStat, 0, len(skills.order))
	for _, key := range skills.order {
		result.SkillBreakdown = append(result.SkillBreakdown, domain.SkillStat{Skill: key, Breakdown: skills.breakdown(key)})
	}

	result.Weaknesses = Weaknesses(result.TopicBreakdown)
	result.Diagnosis = Diagnose(result.Score)
	return result
}

// Percent is round-half-up of correct/total*100 in integer arithmetic, or 0
// for an empty group.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (correct*200 + total) / (2 * total)
}

// Weaknesses lists topics below GreatThreshold, worst first. Ties keep
// breakdown order.
func Weaknesses(topics []domain.TopicStat) []domain.Weakness {
	out := make([]domain.Weakness, 0)
	for _, t := range topics {
		if t.Accuracy < GreatThreshold {
			out = append(out, domain.Weakness{Topic: t.Topic, Accuracy: t.Accuracy})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Accuracy < out[j].Accuracy })
	return out
}

// Diagnose picks the qualitative message for a score.
func Diagnose(score int) domain.Diagnosis {
	switch {
	case score >= ExcellentThreshold:
		return domain.Diagnosis{Band: BandExcellent, Message: "Excellent work. Keep increasing difficulty and practice mixed-question sets to maintain your edge."}
	case score >= GreatThreshold:
		return domain.Diagnosis{Band: BandGreat, Message: "Strong performance. Focus targeted review on your weakest topics to push into the top score band."}
	case score >= GoodThreshold:
		return domain.Diagnosis{Band: BandGood, Message: "Decent foundation. Revisit core concepts and then retake similar quizzes to improve consistency."}
	default:
		return domain.Diagnosis{Band: BandBuildingFundamentals, Message: "You are still building fundamentals. Slow down, review explanations, and practice topic-by-topic before retesting."}
	}
}

type tally struct {
	total, correct int
}

// groups keeps first-appearance order of its keys.
type groups[K comparable] struct {
	order  []K
	counts map[K]*tally
}

func newGroups[K comparable]() *groups[K] {
	return &groups[K]{counts: make(map[K]*tally)}
}

func (g *groups[K]) add(key K, correct bool) {
	t, ok := g.counts[key]
	if !ok {
		t = &tally{}
		g.counts[key] = t
		g.order = append(g.order, key)
	}
	t.total++
	if correct {
		t.correct++
	}
}

func (g *groups[K]) breakdown(key K) domain.Breakdown {
	t := g.counts[key]
	return domain.Breakdown{Total: t.total, Correct: t.correct, Accuracy: Percent(t.correct, t.total)}
}
