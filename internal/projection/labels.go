package projection

import (
	"strings"

	"quiz-attempt-service/internal/domain"
)

// GeneralTopic is the topic of last resort.
const GeneralTopic = "General"

var (
	questionDifficulty = [3]string{"easy", "medium", "hard"}
	quizDifficulty     = [3]string{"beginner", "intermediate", "advanced"}
	skillCategories    = [3]domain.SkillCategory{domain.SkillRecall, domain.SkillConceptual, domain.SkillApplication}
)

// QuestionDifficulty maps a 1..3 level to easy/medium/hard, inferring from tags otherwise.
func QuestionDifficulty(level int, tags []string) string {
	return resolveDifficulty(questionDifficulty, level, tags)
}

// QuizDifficulty maps a 1..3 level to beginner/intermediate/advanced, inferring from tags otherwise.
func QuizDifficulty(level int, tags []string) string {
	return resolveDifficulty(quizDifficulty, level, tags)
}

func resolveDifficulty(labels [3]string, level int, tags []string) string {
	if level >= 1 && level <= 3 {
		return labels[level-1]
	}
	lowered := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		lowered[strings.ToLower(strings.TrimSpace(tag))] = struct{}{}
	}
	if hasAny(lowered, "beginner", "easy") {
		return labels[0]
	}
	if hasAny(lowered, "advanced", "hard") {
		return labels[2]
	}
	return labels[1]
}

func hasAny(set map[string]struct{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := set[k]; ok {
			return true
		}
	}
	return false
}

// Skill maps a 1..3 level to a skill category; anything else is conceptual.
func Skill(level int) domain.SkillCategory {
	if level >= 1 && level <= 3 {
		return skillCategories[level-1]
	}
	return domain.SkillConceptual
}

// QuestionTopic resolves topic, course code, first tag, then "General".
func QuestionTopic(q domain.QuestionRecord) string {
	return firstNonBlank(q.Topic, q.CourseCode, firstTag(q.Tags), GeneralTopic)
}

// QuizTopic resolves the quiz topic, falling back through the owning course.
func QuizTopic(q domain.QuizRecord, course *domain.CourseRecord) string {
	var courseTopic, courseCode, courseTitle string
	if course != nil {
		courseTopic, courseCode, courseTitle = course.Topic, course.CourseCode, course.Title
	}
	return firstNonBlank(q.Topic, courseTopic, courseCode, courseTitle, q.CourseCode, firstTag(q.Tags), GeneralTopic)
}

func firstTag(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return tags[0]
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
