package simbackend

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/quizpin/clients/internal/protocol"
)

type roomMsg interface{ isRoomMsg() }

type attach struct {
	connID string
	outbox chan []byte
}

type detach struct{ connID string }

type fromConn struct {
	connID string
	data   []byte
}

type joinParticipant struct {
	name  string
	reply chan participant
}

type shutdownRoom struct{}

func (attach) isRoomMsg()          {}
func (detach) isRoomMsg()          {}
func (fromConn) isRoomMsg()        {}
func (joinParticipant) isRoomMsg() {}
func (shutdownRoom) isRoomMsg()    {}

type participant struct {
	ID    string `json:"participant_id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Room is one live session: a single goroutine owning the participants,
// scores and active question, fed by connection reads and REST joins.
type Room struct {
	ID  string
	Pin string

	quizID string
	store  *QuizStore

	inbox        chan roomMsg
	conns        map[string]chan []byte
	participants map[string]*participant
	order        []string
	answered     map[string]map[string]bool
	active       *Question
	ended        bool

	nextParticipant int

	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func newRoom(parent context.Context, id, pin, quizID string, store *QuizStore, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		ID:           id,
		Pin:          pin,
		quizID:       quizID,
		store:        store,
		inbox:        make(chan roomMsg, 64),
		conns:        make(map[string]chan []byte),
		participants: make(map[string]*participant),
		answered:     make(map[string]map[string]bool),
		log:          log,
		ctx:          ctx,
		cancel:       cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- roomMsg { return r.inbox }

// Join registers a participant through the REST surface, assigning a unique
// name within the session when needed.
func (r *Room) Join(name string) (participant, bool) {
	reply := make(chan participant, 1)
	select {
	case r.inbox <- joinParticipant{name: name, reply: reply}:
		return <-reply, true
	case <-r.ctx.Done():
		return participant{}, false
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case attach:
				r.conns[msg.connID] = msg.outbox
				// New connections get the current board immediately so a
				// rejoining client resumes without waiting for an answer.
				r.sendTo(msg.connID, r.scoreboardMessage())

			case detach:
				// Close the outbox so the connection's writer goroutine
				// exits; a drop already closed it if the conn was slow.
				if ch, ok := r.conns[msg.connID]; ok {
					close(ch)
					delete(r.conns, msg.connID)
				}

			case fromConn:
				r.handleAction(msg.connID, msg.data)

			case joinParticipant:
				msg.reply <- r.join(msg.name)

			case shutdownRoom:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) join(name string) participant {
	assigned := name
	for i := 2; r.nameTaken(assigned); i++ {
		assigned = fmt.Sprintf("%s_%d", name, i)
	}
	r.nextParticipant++
	p := &participant{ID: fmt.Sprintf("%d", r.nextParticipant), Name: assigned}
	r.participants[p.ID] = p
	r.order = append(r.order, p.ID)
	return *p
}

func (r *Room) nameTaken(name string) bool {
	for _, p := range r.participants {
		if p.Name == name {
			return true
		}
	}
	return false
}

type clientAction struct {
	Action        string      `json:"action"`
	Token         string      `json:"token"`
	SessionPin    string      `json:"session_pin"`
	ParticipantID protocol.ID `json:"participant_id"`
	QuestionID    protocol.ID `json:"question_id"`
	ChoiceID      protocol.ID `json:"choice_id"`
}

func (r *Room) handleAction(connID string, data []byte) {
	var act clientAction
	if err := json.Unmarshal(data, &act); err != nil {
		r.sendTo(connID, map[string]string{"error": "invalid_json"})
		return
	}

	switch act.Action {
	case "ping":
		r.sendTo(connID, map[string]string{"action": "pong"})

	case "host_join":
		if act.Token == "" || act.SessionPin != r.Pin {
			r.sendTo(connID, map[string]string{"error": "host_join_failed"})
			return
		}
		r.sendTo(connID, map[string]string{"type": "host_join_success"})

	case "join":
		if _, ok := r.participants[act.ParticipantID.String()]; !ok {
			r.sendTo(connID, map[string]string{"error": "join_failed"})
			return
		}
		r.sendTo(connID, map[string]string{"type": "join_success"})

	case "host_push_question":
		if r.ended {
			r.sendTo(connID, map[string]string{"error": "session_ended"})
			return
		}
		q, ok := r.store.FindQuestion(r.quizID, act.QuestionID.String())
		if !ok {
			r.sendTo(connID, map[string]string{"error": "question_not_found"})
			return
		}
		r.active = &q
		if r.answered[q.ID] == nil {
			r.answered[q.ID] = make(map[string]bool)
		}
		r.broadcast(questionMessage(q))

	case "answer":
		r.handleAnswer(connID, act)

	case "host_end_session":
		r.ended = true
		r.broadcast(map[string]string{"type": "end"})

	default:
		r.sendTo(connID, map[string]string{"error": "unknown_action", "action": act.Action})
	}
}

func (r *Room) handleAnswer(connID string, act clientAction) {
	if r.ended || r.active == nil {
		r.sendTo(connID, map[string]string{"error": "no_active_question"})
		return
	}
	p, ok := r.participants[act.ParticipantID.String()]
	if !ok {
		r.sendTo(connID, map[string]string{"error": "unknown_participant"})
		return
	}

	seen := r.answered[r.active.ID]
	if seen[p.ID] {
		// First answer wins; repeats are dropped without feedback.
		return
	}
	seen[p.ID] = true

	for _, c := range r.active.Choices {
		if c.ID == act.ChoiceID.String() && c.Correct {
			p.Score++
			break
		}
	}
	r.broadcast(r.scoreboardMessage())
}

func (r *Room) scoreboardMessage() map[string]any {
	board := make([]participant, 0, len(r.order))
	for _, id := range r.order {
		board = append(board, *r.participants[id])
	}
	msg := map[string]any{"type": "score_update", "scoreboard": board}
	if r.active != nil {
		msg["question_id"] = r.active.ID
	}
	return msg
}

// questionMessage builds the participant-facing payload: correctness flags
// never leave the server.
func questionMessage(q Question) map[string]any {
	choices := make([]map[string]string, 0, len(q.Choices))
	for _, c := range q.Choices {
		choices = append(choices, map[string]string{"id": c.ID, "text": c.Text})
	}
	return map[string]any{
		"type": "question",
		"question": map[string]any{
			"id":         q.ID,
			"text":       q.Text,
			"choices":    choices,
			"time_limit": q.TimeLimit,
		},
	}
}

func (r *Room) sendTo(connID string, payload any) {
	ch, ok := r.conns[connID]
	if !ok {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("room: marshal failed", zap.Error(err))
		return
	}
	select {
	case ch <- data:
	default:
		// Connection is slow or dead - drop it.
		close(ch)
		delete(r.conns, connID)
	}
}

func (r *Room) broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("room: marshal failed", zap.Error(err))
		return
	}
	for id, ch := range r.conns {
		select {
		case ch <- data:
		default:
			close(ch)
			delete(r.conns, id)
		}
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.conns {
		close(ch)
		delete(r.conns, id)
	}
	r.cancel()
}
