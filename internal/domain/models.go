package domain

import (
	"encoding/json"
	"time"
)

// QuestionType names a grading path.
type QuestionType string

const (
	QuestionMCQ         QuestionType = "mcq"
	QuestionShortAnswer QuestionType = "short_answer"
	QuestionNumeric     QuestionType = "numeric"
	QuestionLongAnswer  QuestionType = "long_answer"
)

// QuestionTypes lists the types accepted by authoring.
var QuestionTypes = []QuestionType{QuestionMCQ, QuestionShortAnswer, QuestionNumeric, QuestionLongAnswer}

// Grading is the per-type grading metadata of a question. Exactly one of
// MCQGrading, ShortAnswerGrading, NumericGrading or LongAnswerGrading.
type Grading interface {
	Kind() QuestionType
}

// MCQGrading is correct iff the submission equals CorrectOption exactly.
type MCQGrading struct {
	Options       []Option `json:"options"`
	CorrectOption string   `json:"correctOption"`
}

// ShortAnswerGrading matches normalized submissions against AcceptedAnswers.
type ShortAnswerGrading struct {
	AcceptedAnswers    []string `json:"acceptedAnswers"`
	CaseSensitive      bool     `json:"caseSensitive"`
	IgnoreWhitespace   bool     `json:"ignoreWhitespace"`
	StripLeadingEquals bool     `json:"stripLeadingEquals"`
}

// NumericGrading compares parsed numbers, within Tolerance when set.
type NumericGrading struct {
	Answer    float64  `json:"numericAnswer"`
	Tolerance *float64 `json:"tolerance,omitempty"`
}

// LongAnswerGrading has no automated grading path.
type LongAnswerGrading struct{}

func (MCQGrading) Kind() QuestionType         { return QuestionMCQ }
func (ShortAnswerGrading) Kind() QuestionType { return QuestionShortAnswer }
func (NumericGrading) Kind() QuestionType     { return QuestionNumeric }
func (LongAnswerGrading) Kind() QuestionType  { return QuestionLongAnswer }

// SkillCategory is the cognitive classification used for skill breakdowns.
type SkillCategory string

const (
	SkillRecall      SkillCategory = "recall"
	SkillConceptual  SkillCategory = "conceptual"
	SkillApplication SkillCategory = "application"
)

// Question is the normalized, gradable view of a QuestionRecord.
type Question struct {
	ID              string        `json:"id"`
	Type            QuestionType  `json:"type"`
	Text            string        `json:"text"`
	Grading         Grading       `json:"-"`
	Difficulty      string        `json:"difficulty"`
	DifficultyLevel int           `json:"difficultyLevel,omitempty"`
	Topic           string        `json:"topic"`
	SkillCategory   SkillCategory `json:"skillCategory"`
	Explanation     string        `json:"explanation,omitempty"`
	Order           int           `json:"orderIndex"`
}

// MarshalJSON adds the choices of an mcq to the view. Answer keys
// (correct option, accepted answers, numeric answer) are never serialized.
func (q Question) MarshalJSON() ([]byte, error) {
	type view Question
	out := struct {
		view
		Options []Option `json:"options,omitempty"`
	}{view: view(q)}
	if g, ok := q.Grading.(MCQGrading); ok {
		out.Options = g.Options
	}
	return json.Marshal(out)
}

// Timing is the resolved timer configuration of a quiz. An attempt keeps a
// copy of it as its timing snapshot.
type Timing struct {
	Enabled         bool `json:"enabled" bson:"enabled"`
	DurationSeconds int  `json:"durationSeconds" bson:"durationSeconds"`
	PerQuestion     bool `json:"perQuestion" bson:"perQuestion"`
}

// Timed reports whether a countdown applies.
func (t Timing) Timed() bool {
	return t.Enabled && t.DurationSeconds > 0
}

// Quiz is the normalized quiz consumed by scoring and presentation.
type Quiz struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Topic         string     `json:"topic"`
	Difficulty    string     `json:"difficulty"`
	Timing        Timing     `json:"timing"`
	EstimatedTime float64    `json:"estimatedTime"`
	QuestionCount int        `json:"questionCount"`
	Questions     []Question `json:"questions,omitempty"`
}

// Summary drops the questions, as used by quiz listings.
func (q Quiz) Summary() Quiz {
	q.Questions = nil
	return q
}

// AttemptStatus only ever moves from in_progress to submitted.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
)

// Attempt is one user's single run through one quiz.
type Attempt struct {
	ID             string        `json:"id" bson:"_id"`
	UserID         string        `json:"userId" bson:"userId"`
	QuizID         string        `json:"quizId" bson:"quizId"`
	Status         AttemptStatus `json:"status" bson:"status"`
	TimingSnapshot Timing        `json:"timingSnapshot" bson:"timingSnapshot"`
	StartedAt      time.Time     `json:"startedAt" bson:"startedAt"`
	SubmittedAt    *time.Time    `json:"submittedAt,omitempty" bson:"submittedAt,omitempty"`
	Score          *int          `json:"score,omitempty" bson:"score,omitempty"`
}

// Deadline returns when a timed attempt runs out.
func (a Attempt) Deadline() (time.Time, bool) {
	if !a.TimingSnapshot.Timed() {
		return time.Time{}, false
	}
	return a.StartedAt.Add(time.Duration(a.TimingSnapshot.DurationSeconds) * time.Second), true
}

// Answer is the live response of one user to one question of one attempt.
type Answer struct {
	AttemptID  string    `json:"attemptId" bson:"attemptId"`
	QuestionID string    `json:"questionId" bson:"questionId"`
	UserID     string    `json:"userId" bson:"userId"`
	Value      string    `json:"answer" bson:"answer"`
	AnsweredAt time.Time `json:"answeredAt" bson:"answeredAt"`
}

// AnswerSubmission is a client's write of one answer. A zero AnsweredAt is
// stamped with the server clock.
type AnswerSubmission struct {
	QuestionID string
	Answer     string
	AnsweredAt time.Time
}

// User is an identity provider account and its profile.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	DisplayName  string    `json:"displayName" bson:"displayName"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// Comment is one entry of a question's discussion thread.
type Comment struct {
	ID         string    `json:"id" bson:"_id"`
	QuestionID string    `json:"questionId" bson:"questionId"`
	Text       string    `json:"text" bson:"text"`
	Author     string    `json:"author" bson:"author"`
	Status     string    `json:"status" bson:"status"`
	Upvotes    int       `json:"upvotes" bson:"upvotes"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// AttemptEvent is published on attempt state changes.
type AttemptEvent struct {
	Type      string    `json:"type"`
	AttemptID string    `json:"attemptId"`
	UserID    string    `json:"userId"`
	QuizID    string    `json:"quizId"`
	Score     *int      `json:"score,omitempty"`
	Auto      bool      `json:"auto,omitempty"`
	At        time.Time `json:"at"`
}

const (
	EventAttemptStarted   = "attempt.started"
	EventAttemptSubmitted = "attempt.submitted"
)
