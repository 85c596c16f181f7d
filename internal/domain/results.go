package domain

import "time"

// QuestionResult is the graded outcome of one question.
type QuestionResult struct {
	QuestionID     string `json:"questionId"`
	SelectedAnswer string `json:"selectedAnswer"`
	Correct        bool   `json:"isCorrect"`
	// Graded is false for question types without automated grading.
	Graded bool `json:"graded"`
}

// Breakdown aggregates correctness of a group of questions.
type Breakdown struct {
	Total    int `json:"total"`
	Correct  int `json:"correct"`
	Accuracy int `json:"accuracy"`
}

type TopicStat struct {
	Topic string `json:"topic"`
	Breakdown
}

type SkillStat struct {
	Skill SkillCategory `json:"skill"`
	Breakdown
}

// Weakness is a topic whose accuracy is below the "great" band.
type Weakness struct {
	Topic    string `json:"topic"`
	Accuracy int    `json:"accuracy"`
}

// Diagnosis is the qualitative message selected by score band.
type Diagnosis struct {
	Band    string `json:"band"`
	Message string `json:"message"`
}

// ScoreResult is the deterministic output of scoring a quiz.
type ScoreResult struct {
	TotalQuestions int              `json:"totalQuestions"`
	CorrectAnswers int              `json:"correctAnswers"`
	Score          int              `json:"score"`
	Answers        []QuestionResult `json:"answers"`
	TopicBreakdown []TopicStat      `json:"topicBreakdown"`
	SkillBreakdown []SkillStat      `json:"skillBreakdown"`
	Weaknesses     []Weakness       `json:"weaknesses"`
	Diagnosis      Diagnosis        `json:"diagnosis"`
}

// Results is the on-demand results view of a submitted attempt.
type Results struct {
	AttemptID   string     `json:"attemptId"`
	QuizID      string     `json:"quizId"`
	CompletedAt *time.Time `json:"completedAt"`
	ScoreResult
}

// SubmitResult is returned by a successful submission.
type SubmitResult struct {
	AttemptID      string    `json:"attemptId"`
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	SubmittedAt    time.Time `json:"submittedAt"`
	Auto           bool      `json:"auto"`
}
