package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViMaSter/sessionserver/domain"
)

type commandCall struct {
	name     string
	playerID int
	payload  any
}

type mockCommands struct {
	calls []commandCall
}

func (m *mockCommands) CreateSession(playerID int, p domain.CreateSessionPayload) {
	m.calls = append(m.calls, commandCall{domain.CmdCreateSession, playerID, p})
}

func (m *mockCommands) JoinSession(playerID int, p domain.JoinSessionPayload) {
	m.calls = append(m.calls, commandCall{domain.CmdJoinSession, playerID, p})
}

func (m *mockCommands) UpdateSession(playerID int, p domain.UpdateSessionPayload) {
	m.calls = append(m.calls, commandCall{domain.CmdUpdateSession, playerID, p})
}

func (m *mockCommands) UpdatePlayer(playerID int, p domain.UpdatePlayerPayload) {
	m.calls = append(m.calls, commandCall{domain.CmdUpdatePlayer, playerID, p})
}

func (m *mockCommands) LeaveSession(playerID int) {
	m.calls = append(m.calls, commandCall{domain.CmdLeaveSession, playerID, nil})
}

func TestHandler_Routing(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"createSession", `{"command":"createSession","session":{"mapName":"castle"},"player":{"name":"P1"}}`, domain.CmdCreateSession},
		{"joinSession", `{"command":"joinSession","sessionID":-1}`, domain.CmdJoinSession},
		{"updateSession", `{"command":"updateSession","session":{},"player":{}}`, domain.CmdUpdateSession},
		{"updatePlayer", `{"command":"updatePlayer","player":{"name":"P2"}}`, domain.CmdUpdatePlayer},
		{"leaveSession", `{"command":"leaveSession"}`, domain.CmdLeaveSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := &mockCommands{}
			handler := NewHandler(ops)

			handler.Handle(3, []byte(tt.message))

			require.Len(t, ops.calls, 1)
			assert.Equal(t, tt.want, ops.calls[0].name)
			assert.Equal(t, 3, ops.calls[0].playerID)
		})
	}
}

func TestHandler_DecodedPayloads(t *testing.T) {
	ops := &mockCommands{}
	handler := NewHandler(ops)

	handler.Handle(0, []byte(`{"command":"createSession","session":{"mapName":"castle"},"player":{"name":"P1"}}`))
	handler.Handle(0, []byte(`{"command":"joinSession","sessionID":7}`))

	require.Len(t, ops.calls, 2)

	create := ops.calls[0].payload.(domain.CreateSessionPayload)
	assert.JSONEq(t, `{"mapName":"castle"}`, string(create.Session))
	assert.JSONEq(t, `{"name":"P1"}`, string(create.Player))

	join := ops.calls[1].payload.(domain.JoinSessionPayload)
	require.NotNil(t, join.SessionID)
	assert.Equal(t, 7, *join.SessionID)
}

func TestHandler_Drops(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"invalid JSON", `{"command":`},
		{"not an object", `"leaveSession"`},
		{"missing command field", `{"session":{}}`},
		{"blank command", `{"command":"  "}`},
		{"unknown command", `{"command":"startGame"}`},
		{"payload type mismatch", `{"command":"joinSession","sessionID":"first"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := &mockCommands{}
			handler := NewHandler(ops)

			handler.Handle(0, []byte(tt.message))

			assert.Empty(t, ops.calls, "message must be dropped without dispatch")
		})
	}
}
