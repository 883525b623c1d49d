package simbackend

import (
	"encoding/json"
	"net/http"
)

type createSessionRequest struct {
	Quiz string `json:"quiz"`
}

type createQuizRequest struct {
	Title string `json:"title"`
}

type questionPayload struct {
	ID        string          `json:"id,omitempty"`
	Quiz      string          `json:"quiz,omitempty"`
	Text      string          `json:"text"`
	TimeLimit int             `json:"time_limit"`
	Choices   []choicePayload `json:"choices"`
}

type choicePayload struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type joinRequest struct {
	Name string `json:"name"`
	Pin  string `json:"pin"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quiz == "" {
		httpError(w, http.StatusBadRequest, "quiz id required")
		return
	}
	if _, err := s.store.Questions(req.Quiz); err != nil {
		httpError(w, http.StatusNotFound, "quiz not found")
		return
	}

	room := s.registry.Create(req.Quiz)
	if room == nil {
		httpError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": room.ID, "pin": room.Pin})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Pin == "" {
		httpError(w, http.StatusBadRequest, "name and pin required")
		return
	}

	room := s.registry.Get(req.Pin)
	if room == nil {
		httpError(w, http.StatusNotFound, "session not found")
		return
	}

	p, ok := room.Join(req.Name)
	if !ok {
		httpError(w, http.StatusConflict, "session closed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"participant": map[string]any{"id": p.ID, "name": p.Name, "score": p.Score},
		"session":     map[string]string{"id": room.ID, "pin": room.Pin},
	})
}

func (s *Server) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		httpError(w, http.StatusBadRequest, "title required")
		return
	}
	quiz := s.store.CreateQuiz(req.Title)
	writeJSON(w, http.StatusCreated, map[string]string{"id": quiz.ID, "title": quiz.Title})
}

func (s *Server) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes := s.store.ListQuizzes()
	out := make([]map[string]string, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, map[string]string{"id": q.ID, "title": q.Title})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quiz")
	questions, err := s.store.Questions(quizID)
	if err != nil {
		httpError(w, http.StatusNotFound, "quiz not found")
		return
	}
	out := make([]questionPayload, 0, len(questions))
	for _, q := range questions {
		out = append(out, toQuestionPayload(q))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quiz == "" || req.Text == "" {
		httpError(w, http.StatusBadRequest, "quiz and text required")
		return
	}

	q := Question{Text: req.Text, TimeLimit: req.TimeLimit}
	for _, c := range req.Choices {
		q.Choices = append(q.Choices, Choice{Text: c.Text, Correct: c.IsCorrect})
	}

	created, err := s.store.AddQuestion(req.Quiz, q)
	if err != nil {
		httpError(w, http.StatusNotFound, "quiz not found")
		return
	}
	writeJSON(w, http.StatusCreated, toQuestionPayload(created))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func toQuestionPayload(q Question) questionPayload {
	out := questionPayload{ID: q.ID, Text: q.Text, TimeLimit: q.TimeLimit}
	for _, c := range q.Choices {
		out.Choices = append(out.Choices, choicePayload{ID: c.ID, Text: c.Text, IsCorrect: c.Correct})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func httpError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
