// Package api is the client for the quiz backend's HTTP surface. The
// backend owns sessions, questions and scoring; this package only issues
// black-box request/response calls and reports their outcome.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/quizpin/clients/internal/protocol"
)

// Credentials carries the host's opaque bearer token. It is passed into
// each call site explicitly; nothing in this package holds ambient
// process-wide auth state.
type Credentials struct {
	Token string
}

func (c Credentials) Empty() bool { return c.Token == "" }

type Client struct {
	baseURL string
	http    *http.Client
	creds   Credentials
	log     *zap.Logger
}

func New(baseURL string, creds Credentials, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		creds:   creds,
		log:     log,
	}
}

type Quiz struct {
	ID    protocol.ID `json:"id"`
	Title string      `json:"title"`
}

type Choice struct {
	ID        protocol.ID `json:"id"`
	Text      string      `json:"text"`
	IsCorrect bool        `json:"is_correct"`
}

type Question struct {
	ID        protocol.ID `json:"id"`
	Text      string      `json:"text"`
	Choices   []Choice    `json:"choices"`
	TimeLimit int         `json:"time_limit"`
}

type Session struct {
	ID  protocol.ID `json:"id"`
	Pin string      `json:"pin"`
}

type JoinResult struct {
	Participant struct {
		ID    protocol.ID `json:"id"`
		Name  string      `json:"name"`
		Score int         `json:"score"`
	} `json:"participant"`
	Session Session `json:"session"`
}

// CreateSession creates a live session for a quiz; the server assigns the
// pin participants enter.
func (c *Client) CreateSession(ctx context.Context, quizID string) (Session, error) {
	var out Session
	in := map[string]string{"quiz": quizID}
	err := c.do(ctx, http.MethodPost, "/sessions/", in, &out)
	return out, err
}

func (c *Client) ListQuizzes(ctx context.Context) ([]Quiz, error) {
	var out []Quiz
	err := c.do(ctx, http.MethodGet, "/quizzes/", nil, &out)
	return out, err
}

func (c *Client) ListQuestions(ctx context.Context, quizID string) ([]Question, error) {
	var out []Question
	err := c.do(ctx, http.MethodGet, "/questions/?quiz="+quizID, nil, &out)
	return out, err
}

func (c *Client) CreateQuestion(ctx context.Context, quizID string, q Question) (Question, error) {
	var out Question
	in := struct {
		Quiz string `json:"quiz"`
		Question
	}{Quiz: quizID, Question: q}
	err := c.do(ctx, http.MethodPost, "/questions/", in, &out)
	return out, err
}

// JoinByPin registers a participant in the session behind pin. The server
// may adjust the name to keep it unique within the session; callers must
// use the returned name and id.
func (c *Client) JoinByPin(ctx context.Context, name, pin string) (JoinResult, error) {
	var out JoinResult
	in := map[string]string{"name": name, "pin": pin}
	err := c.do(ctx, http.MethodPost, "/participants/join/", in, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if !c.creds.Empty() {
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("api: %s %s: status %d: %s", method, path, resp.StatusCode, excerpt)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}
