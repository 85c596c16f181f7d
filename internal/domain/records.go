package domain

import "time"

// Storage records mirror the documents kept by the document store. They are
// read-only inputs to the projector; the canonical field names are camelCase.

// Option is one choice of a multiple-choice question.
type Option struct {
	ID   string `json:"id" bson:"id" yaml:"id"`
	Text string `json:"text" bson:"text" yaml:"text"`
}

// QuestionMetadata holds the grading fields of every question type. Only the
// fields relevant to the record's type are read.
type QuestionMetadata struct {
	Options            []Option `json:"options,omitempty" bson:"options,omitempty" yaml:"options,omitempty"`
	CorrectOption      string   `json:"correctOption,omitempty" bson:"correctOption,omitempty" yaml:"correctOption,omitempty"`
	AcceptedAnswers    []string `json:"acceptedAnswers,omitempty" bson:"acceptedAnswers,omitempty" yaml:"acceptedAnswers,omitempty"`
	CaseSensitive      bool     `json:"caseSensitive,omitempty" bson:"caseSensitive,omitempty" yaml:"caseSensitive,omitempty"`
	IgnoreWhitespace   bool     `json:"ignoreWhitespace,omitempty" bson:"ignoreWhitespace,omitempty" yaml:"ignoreWhitespace,omitempty"`
	StripLeadingEquals bool     `json:"stripLeadingEquals,omitempty" bson:"stripLeadingEquals,omitempty" yaml:"stripLeadingEquals,omitempty"`
	NumericAnswer      *float64 `json:"numericAnswer,omitempty" bson:"numericAnswer,omitempty" yaml:"numericAnswer,omitempty"`
	Tolerance          *float64 `json:"tolerance,omitempty" bson:"tolerance,omitempty" yaml:"tolerance,omitempty"`
}

// QuestionRecord is a stored question document.
type QuestionRecord struct {
	ID            string           `json:"id" bson:"_id" yaml:"id"`
	Type          string           `json:"type" bson:"type" yaml:"type"`
	Text          string           `json:"text" bson:"text" yaml:"text"`
	Metadata      QuestionMetadata `json:"metadata" bson:"metadata" yaml:"metadata"`
	Difficulty    int              `json:"difficulty,omitempty" bson:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	SkillCategory int              `json:"skillCategory,omitempty" bson:"skillCategory,omitempty" yaml:"skillCategory,omitempty"`
	Topic         string           `json:"topic,omitempty" bson:"topic,omitempty" yaml:"topic,omitempty"`
	CourseCode    string           `json:"courseCode,omitempty" bson:"courseCode,omitempty" yaml:"courseCode,omitempty"`
	Tags          []string         `json:"tags,omitempty" bson:"tags,omitempty" yaml:"tags,omitempty"`
	Explanation   string           `json:"explanation,omitempty" bson:"explanation,omitempty" yaml:"explanation,omitempty"`
	Archived      bool             `json:"isArchived,omitempty" bson:"isArchived,omitempty" yaml:"isArchived,omitempty"`
	CreatedAt     time.Time        `json:"createdAt" bson:"createdAt" yaml:"-"`
	UpdatedAt     time.Time        `json:"lastModified" bson:"lastModified" yaml:"-"`
}

// TimingRecord is the optional timer configuration stored on a quiz.
type TimingRecord struct {
	Enabled         bool `json:"enabled" bson:"enabled" yaml:"enabled"`
	DurationSeconds int  `json:"durationSeconds,omitempty" bson:"durationSeconds,omitempty" yaml:"durationSeconds,omitempty"`
	PerQuestion     bool `json:"perQuestion,omitempty" bson:"perQuestion,omitempty" yaml:"perQuestion,omitempty"`
}

// QuizRecord is a stored quiz document.
type QuizRecord struct {
	ID                string        `json:"id" bson:"_id" yaml:"id"`
	Title             string        `json:"title" bson:"title" yaml:"title"`
	Description       string        `json:"description" bson:"description" yaml:"description"`
	Topic             string        `json:"topic,omitempty" bson:"topic,omitempty" yaml:"topic,omitempty"`
	CourseCode        string        `json:"courseCode,omitempty" bson:"courseCode,omitempty" yaml:"courseCode,omitempty"`
	Tags              []string      `json:"tags,omitempty" bson:"tags,omitempty" yaml:"tags,omitempty"`
	Difficulty        int           `json:"difficulty,omitempty" bson:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	EstimatedTime     float64       `json:"estimatedTime,omitempty" bson:"estimatedTime,omitempty" yaml:"estimatedTime,omitempty"`
	Timing            *TimingRecord `json:"timing,omitempty" bson:"timing,omitempty" yaml:"timing,omitempty"`
	IsTimePerQuestion *bool         `json:"isTimePerQuestion,omitempty" bson:"isTimePerQuestion,omitempty" yaml:"isTimePerQuestion,omitempty"`
	QuestionIDs       []string      `json:"questionIds" bson:"questionIds" yaml:"questionIds"`
	Archived          bool          `json:"isArchived,omitempty" bson:"isArchived,omitempty" yaml:"isArchived,omitempty"`
	CreatedAt         time.Time     `json:"createdAt" bson:"createdAt" yaml:"-"`
	UpdatedAt         time.Time     `json:"lastModified" bson:"lastModified" yaml:"-"`
}

// CourseRecord groups quizzes; it only feeds the quiz topic fallback.
type CourseRecord struct {
	ID          string    `json:"id" bson:"_id" yaml:"id"`
	Title       string    `json:"title" bson:"title" yaml:"title"`
	Description string    `json:"description" bson:"description" yaml:"description"`
	Topic       string    `json:"topic" bson:"topic" yaml:"topic"`
	CourseCode  string    `json:"courseCode,omitempty" bson:"courseCode,omitempty" yaml:"courseCode,omitempty"`
	QuizIDs     []string  `json:"quizIds" bson:"quizIds" yaml:"quizIds"`
	Archived    bool      `json:"isArchived,omitempty" bson:"isArchived,omitempty" yaml:"isArchived,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt" yaml:"-"`
	UpdatedAt   time.Time `json:"lastModified" bson:"lastModified" yaml:"-"`
}

// Catalog is a bundle of records, as read from seed fixtures.
type Catalog struct {
	Courses   []CourseRecord   `json:"courses" yaml:"courses"`
	Quizzes   []QuizRecord     `json:"quizzes" yaml:"quizzes"`
	Questions []QuestionRecord `json:"questions" yaml:"questions"`
}
