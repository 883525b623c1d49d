package client

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/quizpin/clients/internal/countdown"
	"github.com/quizpin/clients/internal/engine"
	"github.com/quizpin/clients/internal/protocol"
)

// Participant plays a session from the student side: it announces itself on
// every channel open, receives questions, and submits at most one answer per
// question while the countdown is running.
type Participant struct {
	rt  *Runtime
	log *zap.Logger
}

type ParticipantConfig struct {
	Pin           string
	ParticipantID string
	Channel       Channel
	Clock         clockwork.Clock
	Logger        *zap.Logger
}

// NewParticipant wires a participant adapter onto an undialed channel. The
// participant id comes from the join-by-pin call against the HTTP API; the
// channel join message only announces it.
func NewParticipant(parent context.Context, cfg ParticipantConfig) *Participant {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	p := &Participant{log: log}

	cd := countdown.New(clock, log, func(ev countdown.Event) {
		p.rt.Dispatch(countdownEvent(ev))
	})
	p.rt = NewRuntime(parent, engine.NewParticipantState(cfg.Pin, cfg.ParticipantID), cfg.Channel, cd, log)

	cfg.Channel.OnOpen(func() {
		p.rt.Dispatch(engine.ChannelOpened{})
		// Explicit rejoin on every open: a reconnect is useless until the
		// server knows who came back.
		p.rt.Dispatch(engine.JoinRequested{})
	})
	cfg.Channel.OnClose(func() {
		p.rt.Dispatch(engine.ChannelClosed{})
	})
	cfg.Channel.OnMessage(func(msg protocol.Inbound) {
		p.deliver(msg)
	})

	return p
}

func (p *Participant) deliver(msg protocol.Inbound) {
	if msg.Kind == protocol.KindUnknown {
		p.log.Debug("ignoring unrecognized message type", zap.String("type", msg.Type))
	}
	for _, ev := range inboundEvents(msg) {
		p.rt.Dispatch(ev)
	}
}

// SubmitAnswer submits the chosen answer. Duplicate or late submissions are
// suppressed by the reducer's guard and emit nothing.
func (p *Participant) SubmitAnswer(choiceID string) {
	p.rt.Dispatch(engine.SubmitAnswer{ChoiceID: choiceID})
}

func (p *Participant) Subscribe(id string, outbox chan Snapshot) {
	p.rt.Inbox() <- Subscribe{ID: id, Outbox: outbox}
}

func (p *Participant) Unsubscribe(id string) {
	p.rt.Inbox() <- Unsubscribe{ID: id}
}

func (p *Participant) View() View { return p.rt.View() }

func (p *Participant) Shutdown() {
	p.rt.Inbox() <- Shutdown{}
}
