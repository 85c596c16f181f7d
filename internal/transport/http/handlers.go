package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/identity"
)

type handlers struct {
	svc    Services
	logger *logrus.Logger
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	sess, err := h.svc.Auth.Register(r.Context(), body.Email, body.Password, body.DisplayName)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	sess, err := h.svc.Auth.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Auth.CurrentUser(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DisplayName string `json:"displayName"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	user, err := h.svc.Auth.UpdateDisplayName(r.Context(), body.DisplayName)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.svc.Catalog.GetQuizzes(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *handlers) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.svc.Catalog.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *handlers) quizQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.svc.Catalog.GetQuizQuestions(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *handlers) questionDetails(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.Catalog.GetQuestionDetails(r.Context(), chi.URLParam(r, "quizID"), chi.URLParam(r, "questionID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *handlers) startAttempt(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity.UserID(r.Context())
	attempt, err := h.svc.Attempts.Start(r.Context(), chi.URLParam(r, "quizID"), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

func (h *handlers) getAttempt(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.svc.Attempts.GetAttempt(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

type answerBody struct {
	Answer     string    `json:"answer"`
	AnsweredAt time.Time `json:"answeredAt"`
}

func (h *handlers) recordAnswer(w http.ResponseWriter, r *http.Request) {
	var body answerBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	answer, err := h.svc.Attempts.RecordAnswer(r.Context(), chi.URLParam(r, "attemptID"), domain.AnswerSubmission{
		QuestionID: chi.URLParam(r, "questionID"),
		Answer:     body.Answer,
		AnsweredAt: body.AnsweredAt,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *handlers) unanswered(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.Attempts.Unanswered(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"questionIds": ids})
}

func (h *handlers) submit(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Attempts.Submit(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) results(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Attempts.GetResults(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.Discussion.List(r.Context(), chi.URLParam(r, "questionID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *handlers) postComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	comment, err := h.svc.Discussion.Post(r.Context(), chi.URLParam(r, "questionID"), body.Text)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *handlers) upvote(w http.ResponseWriter, r *http.Request) {
	comment, err := h.svc.Discussion.Upvote(r.Context(), chi.URLParam(r, "questionID"), chi.URLParam(r, "commentID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *handlers) createQuestion(w http.ResponseWriter, r *http.Request) {
	var body domain.QuestionRecord
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	q, err := h.svc.Catalog.CreateQuestion(r.Context(), body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *handlers) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var body domain.QuestionRecord
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	body.ID = chi.URLParam(r, "questionID")
	q, err := h.svc.Catalog.UpdateQuestion(r.Context(), body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *handlers) createQuiz(w http.ResponseWriter, r *http.Request) {
	var body domain.QuizRecord
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	q, err := h.svc.Catalog.CreateQuiz(r.Context(), body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *handlers) updateQuiz(w http.ResponseWriter, r *http.Request) {
	var body domain.QuizRecord
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	body.ID = chi.URLParam(r, "quizID")
	q, err := h.svc.Catalog.UpdateQuiz(r.Context(), body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *handlers) createCourse(w http.ResponseWriter, r *http.Request) {
	var body domain.CourseRecord
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	c, err := h.svc.Catalog.CreateCourse(r.Context(), body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handlers) updateCourse(w http.ResponseWriter, r *http.Request) {
	var body domain.CourseRecord
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	body.ID = chi.URLParam(r, "courseID")
	c, err := h.svc.Catalog.UpdateCourse(r.Context(), body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
