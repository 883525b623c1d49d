// Package simbackend is an in-memory stand-in for the quiz backend, speaking
// the same REST and channel protocol the real one does. It exists so the
// clients can be run and integration-tested without the external
// collaborator; it is not a production server and persists nothing.
package simbackend

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Server struct {
	store    *QuizStore
	registry *Registry
	log      *zap.Logger
}

func New(parent context.Context, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	store := NewQuizStore()
	return &Server{
		store:    store,
		registry: NewRegistry(parent, store, log),
		log:      log,
	}
}

func (s *Server) Store() *QuizStore   { return s.store }
func (s *Server) Registry() *Registry { return s.registry }
func (s *Server) Shutdown()           { s.registry.Shutdown() }

// Handler serves the REST surface under /api and the per-session channel
// under /ws/session/{pin}/.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions/", s.handleCreateSession)
		r.Post("/participants/join/", s.handleJoin)
		r.Get("/quizzes/", s.handleListQuizzes)
		r.Post("/quizzes/", s.handleCreateQuiz)
		r.Get("/questions/", s.handleListQuestions)
		r.Post("/questions/", s.handleCreateQuestion)
	})
	r.Get("/ws/session/{pin}/", s.handleWS)
	r.Get("/healthz", s.handleHealthz)
	return r
}

// SeedDemo loads a small quiz so the dev server is usable immediately.
func (s *Server) SeedDemo() Quiz {
	quiz := s.store.CreateQuiz("General knowledge")
	questions := []Question{
		{
			Text:      "Which planet is closest to the sun?",
			TimeLimit: 30,
			Choices: []Choice{
				{Text: "Mercury", Correct: true},
				{Text: "Venus"},
				{Text: "Mars"},
			},
		},
		{
			Text:      "What is the capital of Australia?",
			TimeLimit: 20,
			Choices: []Choice{
				{Text: "Sydney"},
				{Text: "Canberra", Correct: true},
				{Text: "Melbourne"},
			},
		},
		{
			Text:      "How many sides does a hexagon have?",
			TimeLimit: 15,
			Choices: []Choice{
				{Text: "Five"},
				{Text: "Six", Correct: true},
				{Text: "Seven"},
			},
		},
	}
	for _, q := range questions {
		if _, err := s.store.AddQuestion(quiz.ID, q); err != nil {
			s.log.Error("seed failed", zap.Error(err))
		}
	}
	return quiz
}
