package simbackend

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type registryMsg interface{ isRegistryMsg() }

type createRoom struct {
	quizID string
	reply  chan *Room
}

type getRoom struct {
	pin   string
	reply chan *Room
}

type removeRoom struct{ pin string }

type shutdownRegistry struct{}

func (createRoom) isRegistryMsg()       {}
func (getRoom) isRegistryMsg()          {}
func (removeRoom) isRegistryMsg()       {}
func (shutdownRegistry) isRegistryMsg() {}

// Registry owns the pin -> room map behind a single goroutine.
type Registry struct {
	inbox  chan registryMsg
	rooms  map[string]*Room
	store  *QuizStore
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRegistry(parent context.Context, store *QuizStore, log *zap.Logger) *Registry {
	ctx, cancel := context.WithCancel(parent)
	reg := &Registry{
		inbox:  make(chan registryMsg, 64),
		rooms:  make(map[string]*Room),
		store:  store,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go reg.loop()
	return reg
}

func (reg *Registry) Inbox() chan<- registryMsg { return reg.inbox }

func (reg *Registry) Create(quizID string) *Room {
	reply := make(chan *Room, 1)
	select {
	case reg.inbox <- createRoom{quizID: quizID, reply: reply}:
		return <-reply
	case <-reg.ctx.Done():
		return nil
	}
}

func (reg *Registry) Get(pin string) *Room {
	reply := make(chan *Room, 1)
	select {
	case reg.inbox <- getRoom{pin: pin, reply: reply}:
		return <-reply
	case <-reg.ctx.Done():
		return nil
	}
}

func (reg *Registry) Shutdown() {
	select {
	case reg.inbox <- shutdownRegistry{}:
	case <-reg.ctx.Done():
	}
}

func (reg *Registry) loop() {
	for {
		select {
		case <-reg.ctx.Done():
			reg.shutdown()
			return

		case m := <-reg.inbox:
			switch msg := m.(type) {
			case createRoom:
				pin := reg.freePin()
				room := newRoom(reg.ctx, uuid.NewString(), pin, msg.quizID, reg.store, reg.log)
				reg.rooms[pin] = room
				reg.log.Info("session created", zap.String("pin", pin))
				msg.reply <- room

			case getRoom:
				msg.reply <- reg.rooms[msg.pin] // may be nil

			case removeRoom:
				if room := reg.rooms[msg.pin]; room != nil {
					room.Inbox() <- shutdownRoom{}
					delete(reg.rooms, msg.pin)
				}

			case shutdownRegistry:
				reg.shutdown()
				return
			}
		}
	}
}

func (reg *Registry) shutdown() {
	for pin, room := range reg.rooms {
		room.Inbox() <- shutdownRoom{}
		delete(reg.rooms, pin)
	}
	reg.cancel()
}

func (reg *Registry) freePin() string {
	for {
		pin := generatePin()
		if _, taken := reg.rooms[pin]; !taken {
			return pin
		}
	}
}

// generatePin produces the short numeric code participants type in.
func generatePin() string {
	const digits = "0123456789"
	pin := make([]byte, 6)
	for i := range pin {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			// crypto/rand only fails when the platform source is broken.
			panic(err)
		}
		pin[i] = digits[n.Int64()]
	}
	return string(pin)
}
