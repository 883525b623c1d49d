package engine

import "errors"

var ErrWrongRole = errors.New("action not valid for this role")
var ErrSessionEnded = errors.New("session already ended")

type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

type Phase string

const (
	PhaseCreated        Phase = "created"
	PhaseWaiting        Phase = "waiting_for_question"
	PhaseQuestionActive Phase = "question_active"
	// PhaseQuestionClosed is entered only on an explicit server-side close.
	// The current server never sends one; the question and score handlers
	// accept it so a close message can be added without touching them.
	PhaseQuestionClosed Phase = "question_closed"
	PhaseEnded          Phase = "ended"
)

type Choice struct {
	ID   string
	Text string
	// Correct is populated only on the host's copy of a question. It is
	// never present on anything received over the channel.
	Correct bool
}

type Question struct {
	ID           string
	Text         string
	Choices      []Choice
	TimeLimitSec int
}

type Participant struct {
	ID    string
	Name  string
	Score int
}

// State is the local view of one session, owned exclusively by a single
// client loop. It is only ever replaced through Apply.
type State struct {
	Role      Role
	Phase     Phase
	Pin       string
	SelfID    string
	Connected bool

	Active      *Question
	HasAnswered bool

	// Remaining and CountdownQuestionID mirror the countdown controller:
	// at most one question id has a live countdown at a time.
	Remaining           int
	CountdownQuestionID string

	Participants map[string]Participant

	// LastError holds the most recent server-reported error verbatim. It
	// never changes the phase.
	LastError string
}

func NewHostState(pin string) State {
	return State{
		Role:         RoleHost,
		Phase:        PhaseCreated,
		Pin:          pin,
		Participants: map[string]Participant{},
	}
}

func NewParticipantState(pin, participantID string) State {
	return State{
		Role:         RoleParticipant,
		Phase:        PhaseCreated,
		Pin:          pin,
		SelfID:       participantID,
		Participants: map[string]Participant{},
	}
}

// Self returns the client's own scoreboard entry, when known.
func (s State) Self() (Participant, bool) {
	p, ok := s.Participants[s.SelfID]
	return p, ok
}

// AnswerLocked reports whether local answer submission is disabled.
func (s State) AnswerLocked() bool {
	return s.HasAnswered || s.Remaining <= 0
}

type Event interface{ isEvent() }

// Local actions and local timer events.

type HostJoinRequested struct{ Token string }
type PushQuestion struct{ Question Question }
type EndSession struct{}
type JoinRequested struct{}
type SubmitAnswer struct{ ChoiceID string }
type CountdownTick struct {
	QuestionID string
	Remaining  int
}
type CountdownExpired struct{ QuestionID string }
type ChannelOpened struct{}
type ChannelClosed struct{}

// Inbound server messages, already translated out of the wire format.

type HostJoinAck struct{}
type JoinAck struct{}
type QuestionReceived struct{ Question Question }
type ScoreUpdate struct {
	Entries []Participant
	// QuestionID is empty when the server does not tag score updates.
	QuestionID string
}
type SessionEnded struct{}
type ServerError struct{ Text string }

func (HostJoinRequested) isEvent() {}
func (PushQuestion) isEvent()      {}
func (EndSession) isEvent()        {}
func (JoinRequested) isEvent()     {}
func (SubmitAnswer) isEvent()      {}
func (CountdownTick) isEvent()     {}
func (CountdownExpired) isEvent()  {}
func (ChannelOpened) isEvent()     {}
func (ChannelClosed) isEvent()     {}
func (HostJoinAck) isEvent()       {}
func (JoinAck) isEvent()           {}
func (QuestionReceived) isEvent()  {}
func (ScoreUpdate) isEvent()       {}
func (SessionEnded) isEvent()      {}
func (ServerError) isEvent()       {}

// Effects are the reducer's requested side effects. The loop that owns the
// state executes them; Apply itself never touches the channel or the clock.

type Effect interface{ isEffect() }

type SendHostJoin struct {
	Token string
	Pin   string
}
type SendPushQuestion struct{ QuestionID string }
type SendEndSession struct{}
type SendJoin struct{ ParticipantID string }
type SendAnswer struct {
	ParticipantID string
	ChoiceID      string
}
type ArmCountdown struct {
	QuestionID string
	Seconds    int
}
type CancelCountdown struct{}

func (SendHostJoin) isEffect()     {}
func (SendPushQuestion) isEffect() {}
func (SendEndSession) isEffect()   {}
func (SendJoin) isEffect()         {}
func (SendAnswer) isEffect()       {}
func (ArmCountdown) isEffect()     {}
func (CancelCountdown) isEffect()  {}

// Apply is the protocol reducer. It is pure: the same state and event always
// produce the same effects and next state. Guard violations that are races
// between the UI and the timer (late answers, duplicate submissions) are
// silent no-ops; errors are reserved for caller bugs such as a participant
// invoking host actions.
func Apply(s State, ev Event) ([]Effect, State, error) {
	// Connection bookkeeping applies in every phase, including Ended.
	switch e := ev.(type) {
	case ChannelOpened:
		s.Connected = true
		return nil, s, nil
	case ChannelClosed:
		s.Connected = false
		return []Effect{CancelCountdown{}}, s, nil
	case ServerError:
		if s.Phase == PhaseEnded {
			return nil, s, nil
		}
		s.LastError = e.Text
		return nil, s, nil
	}

	if s.Phase == PhaseEnded {
		// Terminal: everything except the bookkeeping above is ignored,
		// apart from a deliberate host action which is reported back.
		if _, ok := ev.(PushQuestion); ok {
			return nil, s, ErrSessionEnded
		}
		return nil, s, nil
	}

	switch e := ev.(type) {
	case HostJoinRequested:
		if s.Role != RoleHost {
			return nil, s, ErrWrongRole
		}
		return []Effect{SendHostJoin{Token: e.Token, Pin: s.Pin}}, s, nil

	case HostJoinAck:
		if s.Phase == PhaseCreated {
			s.Phase = PhaseWaiting
		}
		return nil, s, nil

	case JoinRequested:
		if s.Role != RoleParticipant {
			return nil, s, ErrWrongRole
		}
		effects := []Effect{SendJoin{ParticipantID: s.SelfID}}
		if s.Phase == PhaseCreated {
			s.Phase = PhaseWaiting
		}
		return effects, s, nil

	case JoinAck:
		return nil, s, nil

	case PushQuestion:
		if s.Role != RoleHost {
			return nil, s, ErrWrongRole
		}
		q := e.Question
		next := startQuestion(s, q)
		effects := []Effect{
			SendPushQuestion{QuestionID: q.ID},
			ArmCountdown{QuestionID: q.ID, Seconds: q.TimeLimitSec},
		}
		return effects, next, nil

	case EndSession:
		if s.Role != RoleHost {
			return nil, s, ErrWrongRole
		}
		s.Phase = PhaseEnded
		return []Effect{SendEndSession{}, CancelCountdown{}}, s, nil

	case SubmitAnswer:
		// Guarded: at most one answer per question, and only while the
		// local countdown is still running. Violations are a race between
		// the UI and the timer, not a user mistake, and are suppressed
		// without an error.
		if s.Role != RoleParticipant {
			return nil, s, ErrWrongRole
		}
		if s.Phase != PhaseQuestionActive || s.Active == nil || s.AnswerLocked() {
			return nil, s, nil
		}
		s.HasAnswered = true
		return []Effect{SendAnswer{ParticipantID: s.SelfID, ChoiceID: e.ChoiceID}}, s, nil

	case QuestionReceived:
		q := e.Question
		if s.Active != nil && s.Active.ID == q.ID && s.CountdownQuestionID == q.ID {
			// Idempotent re-delivery of the question we are already on:
			// the countdown is not re-armed and HasAnswered survives.
			return nil, s, nil
		}
		next := startQuestion(s, q)
		return []Effect{ArmCountdown{QuestionID: q.ID, Seconds: q.TimeLimitSec}}, next, nil

	case CountdownTick:
		if e.QuestionID != s.CountdownQuestionID {
			// Tick from a cancelled timer that raced the re-arm.
			return nil, s, nil
		}
		if e.Remaining < s.Remaining {
			s.Remaining = e.Remaining
		}
		return nil, s, nil

	case CountdownExpired:
		if e.QuestionID != s.CountdownQuestionID {
			return nil, s, nil
		}
		s.Remaining = 0
		// Expiry locks local submission but transitions nothing: whether
		// the question is closed is the server's decision, and no answer
		// is fabricated on the participant's behalf.
		s.HasAnswered = true
		return nil, s, nil

	case ScoreUpdate:
		if e.QuestionID != "" && s.Active != nil && e.QuestionID != s.Active.ID {
			// Tagged update for a question we are no longer on.
			return nil, s, nil
		}
		// The server owns scores: the board is replaced wholesale so that
		// entries it omits do not survive locally.
		participants := make(map[string]Participant, len(e.Entries))
		for _, p := range e.Entries {
			participants[p.ID] = p
		}
		s.Participants = participants
		return nil, s, nil

	case SessionEnded:
		s.Phase = PhaseEnded
		return []Effect{CancelCountdown{}}, s, nil

	default:
		// Unrecognized events keep the reducer forward-compatible.
		return nil, s, nil
	}
}

func startQuestion(s State, q Question) State {
	s.Active = &q
	s.HasAnswered = false
	s.Remaining = q.TimeLimitSec
	s.CountdownQuestionID = q.ID
	s.Phase = PhaseQuestionActive
	return s
}
