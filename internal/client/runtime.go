// Package client contains the host and participant role adapters: thin
// translations from user actions and channel traffic into reducer events,
// plus the single-goroutine loop that owns the session state.
package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/quizpin/clients/internal/engine"
	"github.com/quizpin/clients/internal/protocol"
)

type Msg interface{ isClientMsg() }

// Dispatch feeds one event through the reducer.
type Dispatch struct{ Event engine.Event }

// Subscribe registers a snapshot outbox; the current snapshot is delivered
// immediately so a late subscriber starts consistent.
type Subscribe struct {
	ID     string
	Outbox chan Snapshot
}

type Unsubscribe struct{ ID string }

// GetView reflects internal state without data races; used by tests and the
// CLI status commands.
type GetView struct{ Reply chan View }

type Shutdown struct{}

func (Dispatch) isClientMsg()    {}
func (Subscribe) isClientMsg()   {}
func (Unsubscribe) isClientMsg() {}
func (GetView) isClientMsg()     {}
func (Shutdown) isClientMsg()    {}

type Snapshot struct {
	Version int
	State   engine.State
}

type View struct {
	Version        int
	NumSubscribers int
	State          engine.State
}

// Transport is the outbound half of the channel as the loop sees it. Sends
// are fire-and-forget; the loop never learns whether delivery happened.
type Transport interface {
	Send(ctx context.Context, msg protocol.Outbound)
}

// Timer is the countdown controller as the loop sees it.
type Timer interface {
	Arm(questionID string, seconds int)
	Stop()
}

// Runtime is the event loop owning one session's state. Channel delivery,
// countdown ticks and user actions all funnel into the same inbox, so no
// two reducer invocations ever run concurrently and the state store is
// never mutated outside a dispatched event.
type Runtime struct {
	inbox     chan Msg
	outbox    chan protocol.Outbound
	state     engine.State
	version   int
	subs      map[string]chan Snapshot
	transport Transport
	timer     Timer
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewRuntime(parent context.Context, initial engine.State, tr Transport, timer Timer, log *zap.Logger) *Runtime {
	ctx, cancel := context.WithCancel(parent)
	rt := &Runtime{
		inbox:     make(chan Msg, 64),
		outbox:    make(chan protocol.Outbound, 64),
		state:     initial,
		subs:      make(map[string]chan Snapshot),
		transport: tr,
		timer:     timer,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
	go rt.loop()
	go rt.writeLoop()
	return rt
}

func (rt *Runtime) Inbox() chan<- Msg { return rt.inbox }

// Dispatch queues one event for the loop. Safe from any goroutine; becomes a
// no-op once the runtime has shut down.
func (rt *Runtime) Dispatch(ev engine.Event) {
	select {
	case rt.inbox <- Dispatch{Event: ev}:
	case <-rt.ctx.Done():
	}
}

// View blocks until the loop reports its current state. After shutdown it
// returns a zero View: the loop goroutine owns the state, and reading it
// from here would race a dispatch still in flight.
func (rt *Runtime) View() View {
	reply := make(chan View, 1)
	select {
	case rt.inbox <- GetView{Reply: reply}:
		select {
		case v := <-reply:
			return v
		case <-rt.ctx.Done():
			return View{}
		}
	case <-rt.ctx.Done():
		return View{}
	}
}

func (rt *Runtime) loop() {
	for {
		select {
		case <-rt.ctx.Done():
			rt.shutdown()
			return

		case m := <-rt.inbox:
			switch msg := m.(type) {
			case Dispatch:
				effects, next, err := engine.Apply(rt.state, msg.Event)
				if err != nil {
					rt.log.Debug("event rejected", zap.Error(err))
					break
				}
				rt.state = next
				rt.version++
				for _, eff := range effects {
					rt.execute(eff)
				}
				rt.broadcast(Snapshot{Version: rt.version, State: rt.state})

			case Subscribe:
				rt.subs[msg.ID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: rt.version, State: rt.state}

			case Unsubscribe:
				delete(rt.subs, msg.ID)

			case GetView:
				msg.Reply <- View{
					Version:        rt.version,
					NumSubscribers: len(rt.subs),
					State:          rt.state,
				}

			case Shutdown:
				rt.shutdown()
				return
			}
		}
	}
}

func (rt *Runtime) execute(eff engine.Effect) {
	switch e := eff.(type) {
	case engine.SendHostJoin:
		rt.send(protocol.NewHostJoin(e.Token, e.Pin))
	case engine.SendPushQuestion:
		rt.send(protocol.NewHostPushQuestion(e.QuestionID))
	case engine.SendEndSession:
		rt.send(protocol.NewHostEndSession())
	case engine.SendJoin:
		rt.send(protocol.NewJoin(e.ParticipantID))
	case engine.SendAnswer:
		rt.send(protocol.NewAnswer(e.ParticipantID, e.ChoiceID))
	case engine.ArmCountdown:
		rt.timer.Arm(e.QuestionID, e.Seconds)
	case engine.CancelCountdown:
		rt.timer.Stop()
	default:
		rt.log.Warn("unhandled effect")
	}
}

// send queues an outbound message for the writer goroutine. The loop never
// touches the transport itself: a stalled connection must not stop ticks and
// inbound messages from being applied. A full outbox drops the message, the
// same at-most-once contract the channel has.
func (rt *Runtime) send(msg protocol.Outbound) {
	select {
	case rt.outbox <- msg:
	default:
		rt.log.Warn("outbox full, message dropped")
	}
}

func (rt *Runtime) writeLoop() {
	for {
		select {
		case <-rt.ctx.Done():
			return
		case msg := <-rt.outbox:
			rt.transport.Send(rt.ctx, msg)
		}
	}
}

func (rt *Runtime) broadcast(snap Snapshot) {
	for id, ch := range rt.subs {
		select {
		case ch <- snap:
		default:
			// Subscriber is slow or gone - drop it.
			close(ch)
			delete(rt.subs, id)
		}
	}
}

func (rt *Runtime) shutdown() {
	rt.timer.Stop()
	for id, ch := range rt.subs {
		close(ch)
		delete(rt.subs, id)
	}
	rt.cancel()
}
