package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuestion(id string, limit int) Question {
	return Question{
		ID:   id,
		Text: "capital of France?",
		Choices: []Choice{
			{ID: "c1", Text: "Lyon"},
			{ID: "c2", Text: "Paris"},
		},
		TimeLimitSec: limit,
	}
}

// apply runs a sequence of events and fails the test on the first error.
func apply(t *testing.T, s State, events ...Event) State {
	t.Helper()
	for _, ev := range events {
		var err error
		_, s, err = Apply(s, ev)
		require.NoError(t, err)
	}
	return s
}

func TestHostJoinFlow(t *testing.T) {
	s := NewHostState("123456")
	require.Equal(t, PhaseCreated, s.Phase)

	effects, s, err := Apply(s, ChannelOpened{})
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.True(t, s.Connected)

	effects, s, err = Apply(s, HostJoinRequested{Token: "tok"})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, SendHostJoin{Token: "tok", Pin: "123456"}, effects[0])
	assert.Equal(t, PhaseCreated, s.Phase, "phase moves only on the ack")

	_, s, err = Apply(s, HostJoinAck{})
	require.NoError(t, err)
	assert.Equal(t, PhaseWaiting, s.Phase)
}

func TestParticipantJoinFlow(t *testing.T) {
	s := NewParticipantState("123456", "p1")

	effects, s, err := Apply(s, JoinRequested{})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, SendJoin{ParticipantID: "p1"}, effects[0])
	assert.Equal(t, PhaseWaiting, s.Phase)

	// The ack itself changes nothing further.
	effects, s2, err := Apply(s, JoinAck{})
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, s, s2)
}

func TestRoleGuards(t *testing.T) {
	host := NewHostState("123456")
	participant := NewParticipantState("123456", "p1")

	cases := []struct {
		name  string
		state State
		ev    Event
	}{
		{"participant host_join", participant, HostJoinRequested{Token: "t"}},
		{"participant push", participant, PushQuestion{Question: sampleQuestion("q1", 10)}},
		{"participant end", participant, EndSession{}},
		{"host join", host, JoinRequested{}},
		{"host answer", host, SubmitAnswer{ChoiceID: "c1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			effects, next, err := Apply(tc.state, tc.ev)
			require.ErrorIs(t, err, ErrWrongRole)
			assert.Empty(t, effects)
			assert.Equal(t, tc.state, next, "state untouched on role error")
		})
	}
}

func TestHostPushQuestion(t *testing.T) {
	s := apply(t, NewHostState("123456"), ChannelOpened{}, HostJoinRequested{Token: "t"}, HostJoinAck{})

	q := sampleQuestion("q1", 30)
	effects, s, err := Apply(s, PushQuestion{Question: q})
	require.NoError(t, err)
	require.Len(t, effects, 2)
	assert.Equal(t, SendPushQuestion{QuestionID: "q1"}, effects[0])
	assert.Equal(t, ArmCountdown{QuestionID: "q1", Seconds: 30}, effects[1])

	assert.Equal(t, PhaseQuestionActive, s.Phase)
	require.NotNil(t, s.Active)
	assert.Equal(t, "q1", s.Active.ID)
	assert.Equal(t, 30, s.Remaining)
	assert.Equal(t, "q1", s.CountdownQuestionID)
}

func TestQuestionReceivedStartsQuestion(t *testing.T) {
	s := apply(t, NewParticipantState("123456", "p1"), ChannelOpened{}, JoinRequested{})

	q := sampleQuestion("q1", 20)
	effects, s, err := Apply(s, QuestionReceived{Question: q})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, ArmCountdown{QuestionID: "q1", Seconds: 20}, effects[0])
	assert.Equal(t, PhaseQuestionActive, s.Phase)
	assert.False(t, s.HasAnswered)
	assert.Equal(t, 20, s.Remaining)
}

func TestQuestionRedeliveryIsIdempotent(t *testing.T) {
	q := sampleQuestion("q1", 20)
	s := apply(t, NewParticipantState("123456", "p1"),
		JoinRequested{}, QuestionReceived{Question: q},
		CountdownTick{QuestionID: "q1", Remaining: 17},
		SubmitAnswer{ChoiceID: "c2"},
	)
	require.True(t, s.HasAnswered)

	// Same question id delivered again: no re-arm, no reset.
	effects, next, err := Apply(s, QuestionReceived{Question: q})
	require.NoError(t, err)
	assert.Empty(t, effects, "countdown must not be re-armed")
	assert.True(t, next.HasAnswered, "answer lock survives redelivery")
	assert.Equal(t, 17, next.Remaining)
}

func TestNewQuestionReplacesOldOne(t *testing.T) {
	s := apply(t, NewParticipantState("123456", "p1"),
		JoinRequested{},
		QuestionReceived{Question: sampleQuestion("q1", 20)},
		SubmitAnswer{ChoiceID: "c1"},
	)

	effects, s, err := Apply(s, QuestionReceived{Question: sampleQuestion("q2", 15)})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, ArmCountdown{QuestionID: "q2", Seconds: 15}, effects[0])
	assert.False(t, s.HasAnswered, "fresh question unlocks answering")
	assert.Equal(t, "q2", s.Active.ID)
	assert.Equal(t, 15, s.Remaining)
}

func TestSubmitAnswerOncePerQuestion(t *testing.T) {
	s := apply(t, NewParticipantState("123456", "p1"),
		JoinRequested{}, QuestionReceived{Question: sampleQuestion("q1", 20)})

	effects, s, err := Apply(s, SubmitAnswer{ChoiceID: "c2"})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, SendAnswer{ParticipantID: "p1", ChoiceID: "c2"}, effects[0])
	assert.True(t, s.HasAnswered)

	// Duplicate submission is silently dropped.
	effects, s, err = Apply(s, SubmitAnswer{ChoiceID: "c1"})
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.True(t, s.HasAnswered)
}

func TestAnswerAfterExpiryIsDropped(t *testing.T) {
	s := apply(t, NewParticipantState("123456", "p1"),
		JoinRequested{}, QuestionReceived{Question: sampleQuestion("q1", 20)})

	effects, s, err := Apply(s, CountdownExpired{QuestionID: "q1"})
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, 0, s.Remaining)
	assert.True(t, s.HasAnswered, "expiry locks submission")
	assert.Equal(t, PhaseQuestionActive, s.Phase, "expiry transitions no phase")

	effects, _, err = Apply(s, SubmitAnswer{ChoiceID: "c1"})
	require.NoError(t, err)
	assert.Empty(t, effects, "late answer never reaches the wire")
}

func TestExpiryAfterAnswerChangesNothingVisible(t *testing.T) {
	base := apply(t, NewParticipantState("123456", "p1"),
		JoinRequested{}, QuestionReceived{Question: sampleQuestion("q1", 20)})

	// answer then expiry
	a := apply(t, base, SubmitAnswer{ChoiceID: "c1"}, CountdownExpired{QuestionID: "q1"})
	// expiry then (dropped) answer
	b := apply(t, base, CountdownExpired{QuestionID: "q1"}, SubmitAnswer{ChoiceID: "c1"})

	assert.Equal(t, a.Phase, b.Phase)
	assert.Equal(t, a.HasAnswered, b.HasAnswered)
	assert.Equal(t, a.Remaining, b.Remaining)
}

func TestStaleCountdownEventsIgnored(t *testing.T) {
	s := apply(t, NewParticipantState("123456", "p1"),
		JoinRequested{},
		QuestionReceived{Question: sampleQuestion("q1", 20)},
		QuestionReceived{Question: sampleQuestion("q2", 15)},
	)

	// Events from the cancelled q1 timer race the re-arm.
	s2 := apply(t, s, CountdownTick{QuestionID: "q1", Remaining: 3})
	assert.Equal(t, 15, s2.Remaining)

	s2 = apply(t, s, CountdownExpired{QuestionID: "q1"})
	assert.Equal(t, 15, s2.Remaining)
	assert.False(t, s2.HasAnswered)
}

func TestCountdownTickNeverIncreasesRemaining(t *testing.T) {
	s := apply(t, NewParticipantState("123456", "p1"),
		JoinRequested{},
		QuestionReceived{Question: sampleQuestion("q1", 20)},
		CountdownTick{QuestionID: "q1", Remaining: 5},
	)
	assert.Equal(t, 5, s.Remaining)

	s = apply(t, s, CountdownTick{QuestionID: "q1", Remaining: 8})
	assert.Equal(t, 5, s.Remaining)
}

func TestScoreUpdateReplacesBoardWholesale(t *testing.T) {
	s := apply(t, NewParticipantState("123456", "p1"),
		JoinRequested{},
		ScoreUpdate{Entries: []Participant{
			{ID: "p1", Name: "ada", Score: 1},
			{ID: "p2", Name: "grace", Score: 2},
		}},
	)
	require.Len(t, s.Participants, 2)

	// p2 is omitted from the next update and must vanish; p3 is unknown
	// and must be accepted.
	s = apply(t, s, ScoreUpdate{Entries: []Participant{
		{ID: "p1", Name: "ada", Score: 2},
		{ID: "p3", Name: "alan", Score: 1},
	}})
	require.Len(t, s.Participants, 2)
	assert.NotContains(t, s.Participants, "p2")
	assert.Equal(t, 2, s.Participants["p1"].Score)
	assert.Equal(t, "alan", s.Participants["p3"].Name)
}

func TestTaggedScoreUpdateForOldQuestionDropped(t *testing.T) {
	s := apply(t, NewParticipantState("123456", "p1"),
		JoinRequested{},
		QuestionReceived{Question: sampleQuestion("q2", 20)},
	)

	s2 := apply(t, s, ScoreUpdate{
		QuestionID: "q1",
		Entries:    []Participant{{ID: "p1", Name: "ada", Score: 9}},
	})
	assert.Empty(t, s2.Participants, "stale tagged update is dropped")

	// Untagged updates are always applied.
	s2 = apply(t, s, ScoreUpdate{
		Entries: []Participant{{ID: "p1", Name: "ada", Score: 9}},
	})
	assert.Equal(t, 9, s2.Participants["p1"].Score)
}

func TestSessionEndedIsUnconditional(t *testing.T) {
	s := apply(t, NewParticipantState("123456", "p1"),
		JoinRequested{},
		QuestionReceived{Question: sampleQuestion("q1", 20)},
	)

	effects, s, err := Apply(s, SessionEnded{})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, CancelCountdown{}, effects[0])
	assert.Equal(t, PhaseEnded, s.Phase)
}

func TestEndedIsTerminal(t *testing.T) {
	s := apply(t, NewParticipantState("123456", "p1"), JoinRequested{}, SessionEnded{})

	for _, ev := range []Event{
		QuestionReceived{Question: sampleQuestion("q1", 20)},
		ScoreUpdate{Entries: []Participant{{ID: "p1", Score: 5}}},
		SubmitAnswer{ChoiceID: "c1"},
		CountdownExpired{QuestionID: "q1"},
	} {
		effects, next, err := Apply(s, ev)
		require.NoError(t, err)
		assert.Empty(t, effects)
		assert.Equal(t, PhaseEnded, next.Phase)
		assert.Nil(t, next.Active)
	}

	// Connection bookkeeping still applies after the end.
	_, s2, err := Apply(s, ChannelClosed{})
	require.NoError(t, err)
	assert.False(t, s2.Connected)
	_, s2, err = Apply(s2, ChannelOpened{})
	require.NoError(t, err)
	assert.True(t, s2.Connected)
}

func TestPushAfterEndIsAnError(t *testing.T) {
	s := apply(t, NewHostState("123456"), HostJoinRequested{Token: "t"}, HostJoinAck{}, EndSession{})

	effects, _, err := Apply(s, PushQuestion{Question: sampleQuestion("q1", 20)})
	require.ErrorIs(t, err, ErrSessionEnded)
	assert.Empty(t, effects)
}

func TestHostEndSession(t *testing.T) {
	s := apply(t, NewHostState("123456"), HostJoinRequested{Token: "t"}, HostJoinAck{},
		PushQuestion{Question: sampleQuestion("q1", 20)})

	effects, s, err := Apply(s, EndSession{})
	require.NoError(t, err)
	require.Len(t, effects, 2)
	assert.Equal(t, SendEndSession{}, effects[0])
	assert.Equal(t, CancelCountdown{}, effects[1])
	assert.Equal(t, PhaseEnded, s.Phase)
}

func TestServerErrorLeavesPhaseAlone(t *testing.T) {
	s := apply(t, NewParticipantState("123456", "p1"),
		JoinRequested{},
		QuestionReceived{Question: sampleQuestion("q1", 20)},
	)

	effects, s2, err := Apply(s, ServerError{Text: "unknown action"})
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, "unknown action", s2.LastError)
	assert.Equal(t, s.Phase, s2.Phase)
	assert.Equal(t, s.Active, s2.Active)
	assert.Equal(t, s.Remaining, s2.Remaining)
}

func TestChannelClosedCancelsCountdownOnly(t *testing.T) {
	s := apply(t, NewParticipantState("123456", "p1"),
		ChannelOpened{},
		JoinRequested{},
		QuestionReceived{Question: sampleQuestion("q1", 20)},
	)

	effects, s, err := Apply(s, ChannelClosed{})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, CancelCountdown{}, effects[0])
	assert.False(t, s.Connected)
	assert.Equal(t, PhaseQuestionActive, s.Phase, "disconnect does not end the session")
	require.NotNil(t, s.Active)
}

func TestSelfLookup(t *testing.T) {
	s := apply(t, NewParticipantState("123456", "p2"),
		JoinRequested{},
		ScoreUpdate{Entries: []Participant{
			{ID: "p1", Name: "ada", Score: 3},
			{ID: "p2", Name: "grace", Score: 1},
		}},
	)
	self, ok := s.Self()
	require.True(t, ok)
	assert.Equal(t, "grace", self.Name)
	assert.Equal(t, 1, self.Score)
}
