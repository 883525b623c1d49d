package simbackend

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrQuizNotFound = errors.New("simbackend: quiz not found")

type Choice struct {
	ID      string
	Text    string
	Correct bool
}

type Question struct {
	ID        string
	Text      string
	Choices   []Choice
	TimeLimit int
}

type Quiz struct {
	ID        string
	Title     string
	Questions []Question
}

// QuizStore holds authored quizzes in memory. The simulator exists to
// exercise the clients' protocol handling, so nothing here is durable.
type QuizStore struct {
	mu      sync.Mutex
	quizzes map[string]*Quiz
}

func NewQuizStore() *QuizStore {
	return &QuizStore{quizzes: make(map[string]*Quiz)}
}

func (s *QuizStore) CreateQuiz(title string) Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := &Quiz{ID: uuid.NewString(), Title: title}
	s.quizzes[q.ID] = q
	return *q
}

func (s *QuizStore) AddQuestion(quizID string, q Question) (Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return Question{}, ErrQuizNotFound
	}
	q.ID = uuid.NewString()
	for i := range q.Choices {
		q.Choices[i].ID = uuid.NewString()
	}
	if q.TimeLimit <= 0 {
		q.TimeLimit = 30
	}
	quiz.Questions = append(quiz.Questions, q)
	return q, nil
}

func (s *QuizStore) ListQuizzes() []Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		out = append(out, *q)
	}
	return out
}

func (s *QuizStore) Questions(quizID string) ([]Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return nil, ErrQuizNotFound
	}
	return append([]Question{}, quiz.Questions...), nil
}

// FindQuestion looks a question up across a quiz by id.
func (s *QuizStore) FindQuestion(quizID, questionID string) (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return Question{}, false
	}
	for _, q := range quiz.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return Question{}, false
}
