package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/logging"
)

// Services bundles the use cases the transport exposes.
type Services struct {
	Catalog    *app.CatalogService
	Attempts   *app.AttemptService
	Auth       *app.AuthService
	Discussion *app.DiscussionService
}

// RouterOptions configures NewRouter. Zero values are usable.
type RouterOptions struct {
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer
	Logger         *logrus.Logger
}

// NewRouter mounts the REST API, the attempt websocket and operational endpoints.
func NewRouter(svc Services, tokens TokenParser, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	h := &handlers{svc: svc, logger: logger}
	ws := NewWSHandler(svc.Attempts, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(pr chi.Router) {
		pr.Use(authenticate(tokens))

		// the websocket must not be cut by the request timeout
		pr.Get("/ws/attempts/{attemptID}", ws.ServeWS)

		pr.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(30 * time.Second))

			api.Post("/auth/register", h.register)
			api.Post("/auth/login", h.login)
			api.Get("/me", h.me)
			api.Put("/me", h.updateProfile)

			api.Get("/quizzes", h.listQuizzes)
			api.Post("/quizzes", h.createQuiz)
			api.Get("/quizzes/{quizID}", h.getQuiz)
			api.Put("/quizzes/{quizID}", h.updateQuiz)
			api.Get("/quizzes/{quizID}/questions", h.quizQuestions)
			api.Get("/quizzes/{quizID}/questions/{questionID}", h.questionDetails)
			api.Post("/quizzes/{quizID}/attempts", h.startAttempt)

			api.Get("/attempts/{attemptID}", h.getAttempt)
			api.Put("/attempts/{attemptID}/answers/{questionID}", h.recordAnswer)
			api.Get("/attempts/{attemptID}/unanswered", h.unanswered)
			api.Post("/attempts/{attemptID}/submit", h.submit)
			api.Get("/attempts/{attemptID}/results", h.results)

			api.Post("/questions", h.createQuestion)
			api.Put("/questions/{questionID}", h.updateQuestion)
			api.Get("/questions/{questionID}/comments", h.listComments)
			api.Post("/questions/{questionID}/comments", h.postComment)
			api.Post("/questions/{questionID}/comments/{commentID}/upvote", h.upvote)

			api.Post("/courses", h.createCourse)
			api.Put("/courses/{courseID}", h.updateCourse)
		})
	})
	return r
}
