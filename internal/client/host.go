package client

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/quizpin/clients/internal/api"
	"github.com/quizpin/clients/internal/countdown"
	"github.com/quizpin/clients/internal/engine"
	"github.com/quizpin/clients/internal/protocol"
)

// Channel is the duplex connection as the adapters see it: outbound sends
// plus subscriber registration for the three connection events.
type Channel interface {
	Transport
	OnMessage(func(protocol.Inbound))
	OnOpen(func())
	OnClose(func())
}

// Host drives a session from the teacher side: it joins the session channel
// with its credentials, pushes questions, and ends the session. Credentials
// are held here explicitly rather than in any package-level state.
type Host struct {
	rt    *Runtime
	creds api.Credentials
	log   *zap.Logger
}

type HostConfig struct {
	Pin         string
	Credentials api.Credentials
	Channel     Channel
	Clock       clockwork.Clock
	Logger      *zap.Logger
}

// NewHost wires a host adapter onto an undialed channel. Every channel open,
// including reopens after a reconnect, re-sends the explicit host_join; the
// server keeps no memory of who was connected.
func NewHost(parent context.Context, cfg HostConfig) *Host {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	h := &Host{creds: cfg.Credentials, log: log}

	cd := countdown.New(clock, log, func(ev countdown.Event) {
		h.rt.Dispatch(countdownEvent(ev))
	})
	h.rt = NewRuntime(parent, engine.NewHostState(cfg.Pin), cfg.Channel, cd, log)

	cfg.Channel.OnOpen(func() {
		h.rt.Dispatch(engine.ChannelOpened{})
		h.rt.Dispatch(engine.HostJoinRequested{Token: h.creds.Token})
	})
	cfg.Channel.OnClose(func() {
		h.rt.Dispatch(engine.ChannelClosed{})
	})
	cfg.Channel.OnMessage(func(msg protocol.Inbound) {
		h.deliver(msg)
	})

	return h
}

func (h *Host) deliver(msg protocol.Inbound) {
	if msg.Kind == protocol.KindUnknown {
		h.log.Debug("ignoring unrecognized message type", zap.String("type", msg.Type))
	}
	for _, ev := range inboundEvents(msg) {
		h.rt.Dispatch(ev)
	}
}

// PushQuestion makes the given question active and starts its countdown.
func (h *Host) PushQuestion(q engine.Question) {
	h.rt.Dispatch(engine.PushQuestion{Question: q})
}

// EndSession ends the session for everyone, overriding any running timer.
func (h *Host) EndSession() {
	h.rt.Dispatch(engine.EndSession{})
}

func (h *Host) Subscribe(id string, outbox chan Snapshot) {
	h.rt.Inbox() <- Subscribe{ID: id, Outbox: outbox}
}

func (h *Host) Unsubscribe(id string) {
	h.rt.Inbox() <- Unsubscribe{ID: id}
}

func (h *Host) View() View { return h.rt.View() }

func (h *Host) Shutdown() {
	h.rt.Inbox() <- Shutdown{}
}
