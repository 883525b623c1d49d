package client

import (
	"github.com/quizpin/clients/internal/countdown"
	"github.com/quizpin/clients/internal/engine"
	"github.com/quizpin/clients/internal/protocol"
)

// inboundEvents translates one decoded channel message into reducer events.
// A message whose type carries meaning produces its typed event; an error
// field on any message additionally produces a ServerError so it is
// surfaced regardless of type. Unknown kinds produce nothing.
func inboundEvents(msg protocol.Inbound) []engine.Event {
	var evs []engine.Event

	switch msg.Kind {
	case protocol.KindHostJoinSuccess:
		evs = append(evs, engine.HostJoinAck{})
	case protocol.KindJoinSuccess:
		evs = append(evs, engine.JoinAck{})
	case protocol.KindQuestion:
		evs = append(evs, engine.QuestionReceived{Question: toQuestion(*msg.Question)})
	case protocol.KindScoreUpdate:
		evs = append(evs, engine.ScoreUpdate{
			Entries:    toParticipants(msg.Scoreboard),
			QuestionID: msg.QuestionID.String(),
		})
	case protocol.KindEnd:
		evs = append(evs, engine.SessionEnded{})
	}

	if msg.Error != "" {
		evs = append(evs, engine.ServerError{Text: msg.Error})
	}
	return evs
}

func countdownEvent(ev countdown.Event) engine.Event {
	switch e := ev.(type) {
	case countdown.Tick:
		return engine.CountdownTick{QuestionID: e.QuestionID, Remaining: e.Remaining}
	case countdown.Expired:
		return engine.CountdownExpired{QuestionID: e.QuestionID}
	default:
		return nil
	}
}

func toQuestion(q protocol.Question) engine.Question {
	choices := make([]engine.Choice, 0, len(q.Choices))
	for _, c := range q.Choices {
		choices = append(choices, engine.Choice{ID: c.ID.String(), Text: c.Text})
	}
	return engine.Question{
		ID:           q.ID.String(),
		Text:         q.Text,
		Choices:      choices,
		TimeLimitSec: q.TimeLimit,
	}
}

func toParticipants(entries []protocol.ScoreEntry) []engine.Participant {
	out := make([]engine.Participant, 0, len(entries))
	for _, e := range entries {
		out = append(out, engine.Participant{
			ID:    e.ParticipantID.String(),
			Name:  e.Name,
			Score: e.Score,
		})
	}
	return out
}
