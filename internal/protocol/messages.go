package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrBadPayload = errors.New("protocol: bad payload")

// ID is an opaque entity identifier. The server serializes ids as JSON
// numbers (database pks) but clients never do arithmetic on them, so they
// are carried as strings and decoded from either form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty id", ErrBadPayload)
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: id is neither string nor number", ErrBadPayload)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Int returns the id as an integer when it happens to be numeric.
func (id ID) Int() (int, bool) {
	n, err := strconv.Atoi(string(id))
	return n, err == nil
}

// Client -> Server. Every outbound message carries an "action" discriminator.

type Outbound interface{ isOutbound() }

type HostJoin struct {
	Action     string `json:"action"`
	Token      string `json:"token"`
	SessionPin string `json:"session_pin"`
}

type HostPushQuestion struct {
	Action     string `json:"action"`
	QuestionID string `json:"question_id"`
}

type HostEndSession struct {
	Action string `json:"action"`
}

type Join struct {
	Action        string `json:"action"`
	ParticipantID string `json:"participant_id"`
}

type Answer struct {
	Action        string `json:"action"`
	ParticipantID string `json:"participant_id"`
	ChoiceID      string `json:"choice_id"`
}

func (HostJoin) isOutbound()         {}
func (HostPushQuestion) isOutbound() {}
func (HostEndSession) isOutbound()   {}
func (Join) isOutbound()             {}
func (Answer) isOutbound()           {}

func NewHostJoin(token, pin string) HostJoin {
	return HostJoin{Action: "host_join", Token: token, SessionPin: pin}
}

func NewHostPushQuestion(questionID string) HostPushQuestion {
	return HostPushQuestion{Action: "host_push_question", QuestionID: questionID}
}

func NewHostEndSession() HostEndSession {
	return HostEndSession{Action: "host_end_session"}
}

func NewJoin(participantID string) Join {
	return Join{Action: "join", ParticipantID: participantID}
}

func NewAnswer(participantID, choiceID string) Answer {
	return Answer{Action: "answer", ParticipantID: participantID, ChoiceID: choiceID}
}

func Encode(m Outbound) ([]byte, error) {
	return json.Marshal(m)
}

// Server -> Client. Inbound messages are discriminated by "type"; any
// message may additionally carry an "error" field.

type Kind string

const (
	KindHostJoinSuccess Kind = "host_join_success"
	KindJoinSuccess     Kind = "join_success"
	KindQuestion        Kind = "question"
	KindScoreUpdate     Kind = "score_update"
	KindEnd             Kind = "end"
	KindError           Kind = "error"
	KindUnknown         Kind = "unknown"
)

type Choice struct {
	ID   ID     `json:"id"`
	Text string `json:"text"`
}

type Question struct {
	ID        ID       `json:"id"`
	Text      string   `json:"text"`
	Choices   []Choice `json:"choices"`
	TimeLimit int      `json:"time_limit"`
}

type ScoreEntry struct {
	ParticipantID ID     `json:"participant_id"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
}

type Inbound struct {
	Kind       Kind
	Type       string
	Question   *Question
	Scoreboard []ScoreEntry
	// QuestionID tags a score_update with the question it belongs to.
	// Older servers omit it.
	QuestionID ID
	Error      string
}

// Decode parses an inbound payload. Unknown types decode to KindUnknown so
// the caller can ignore them without treating server additions as failures;
// payloads that are not valid JSON objects or carry no type and no error
// are rejected.
func Decode(data []byte) (Inbound, error) {
	var raw struct {
		Type       string       `json:"type"`
		Question   *Question    `json:"question"`
		Scoreboard []ScoreEntry `json:"scoreboard"`
		QuestionID ID           `json:"question_id"`
		Error      string       `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	msg := Inbound{
		Type:       raw.Type,
		Question:   raw.Question,
		Scoreboard: raw.Scoreboard,
		QuestionID: raw.QuestionID,
		Error:      raw.Error,
	}

	switch raw.Type {
	case "host_join_success":
		msg.Kind = KindHostJoinSuccess
	case "join_success":
		msg.Kind = KindJoinSuccess
	case "question":
		if raw.Question == nil {
			return Inbound{}, fmt.Errorf("%w: question message without question", ErrBadPayload)
		}
		msg.Kind = KindQuestion
	case "score_update":
		msg.Kind = KindScoreUpdate
	case "end":
		msg.Kind = KindEnd
	case "error":
		msg.Kind = KindError
	case "":
		if raw.Error == "" {
			return Inbound{}, fmt.Errorf("%w: message without type", ErrBadPayload)
		}
		msg.Kind = KindError
	default:
		msg.Kind = KindUnknown
	}
	return msg, nil
}
