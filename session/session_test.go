package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatKeys(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "flat object",
			raw:  `{"name":"P1","score":0}`,
			want: []string{"name", "score"},
		},
		{
			name: "nested objects are walked",
			raw:  `{"position":{"x":1,"y":2},"name":"P1"}`,
			want: []string{"x", "y", "name"},
		},
		{
			name: "arrays are leaves",
			raw:  `{"inventory":[{"id":1}],"name":"P1"}`,
			want: []string{"inventory", "name"},
		},
		{
			name: "null is a leaf",
			raw:  `{"target":null}`,
			want: []string{"target"},
		},
		{
			name: "empty object",
			raw:  `{}`,
			want: []string{},
		},
		{
			name: "non-object yields no keys",
			raw:  `42`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flatKeys([]byte(tt.raw))

			assert.Len(t, got, len(tt.want))
			for _, name := range tt.want {
				assert.Contains(t, got, name)
			}
		})
	}
}

func TestKeysEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", `{"name":"a"}`, `{"name":"b"}`, true},
		{"extra field", `{"name":"a"}`, `{"name":"a","hp":1}`, false},
		{"missing field", `{"name":"a","hp":1}`, `{"name":"a"}`, false},
		{"renamed field", `{"name":"a"}`, `{"nick":"a"}`, false},
		{"nested leaves match flat leaves", `{"pos":{"x":1,"y":2}}`, `{"loc":{"x":0,"y":0}}`, true},
		{"both empty", `{}`, `{}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keysEqual(flatKeys([]byte(tt.a)), flatKeys([]byte(tt.b))))
		})
	}
}

func TestSession_AddRemovePlayer(t *testing.T) {
	s := New(0, json.RawMessage(`{"mapName":"castle"}`), json.RawMessage(`{"name":"Unnamed Player"}`))

	require.True(t, s.AddPlayer(7))
	assert.True(t, s.Has(7))
	assert.Equal(t, 1, s.PlayerCount())
	assert.JSONEq(t, `{"name":"Unnamed Player"}`, string(s.PlayerData(7)))

	assert.False(t, s.AddPlayer(7), "adding the same player twice")

	require.True(t, s.RemovePlayer(7))
	assert.False(t, s.Has(7))
	assert.Equal(t, 0, s.PlayerCount())

	assert.False(t, s.RemovePlayer(7), "removing a player that already left")
}

func TestSession_PlayerDataOutsideSession(t *testing.T) {
	s := New(0, json.RawMessage(`{}`), json.RawMessage(`{"name":"P"}`))

	assert.JSONEq(t, `{}`, string(s.PlayerData(99)))
}

func TestSession_UpdatePlayer(t *testing.T) {
	tests := []struct {
		name     string
		template string
		update   string
		want     bool
	}{
		{"same keys", `{"name":"a","hp":10}`, `{"hp":3,"name":"b"}`, true},
		{"extra key", `{"name":"a"}`, `{"name":"b","hp":3}`, false},
		{"missing key", `{"name":"a","hp":10}`, `{"name":"b"}`, false},
		{"nested keys preserved", `{"pos":{"x":0,"y":0}}`, `{"pos":{"x":4,"y":2}}`, true},
		{"nested key renamed", `{"pos":{"x":0,"y":0}}`, `{"pos":{"x":4,"z":2}}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(0, json.RawMessage(`{}`), json.RawMessage(tt.template))
			require.True(t, s.AddPlayer(0))

			ok := s.UpdatePlayer(0, json.RawMessage(tt.update))

			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.JSONEq(t, tt.update, string(s.PlayerData(0)))
			} else {
				assert.JSONEq(t, tt.template, string(s.PlayerData(0)), "failed update must not mutate state")
			}
		})
	}
}

func TestSession_UpdatePlayer_NotAMember(t *testing.T) {
	s := New(0, json.RawMessage(`{}`), json.RawMessage(`{"name":"a"}`))

	assert.False(t, s.UpdatePlayer(3, json.RawMessage(`{"name":"b"}`)))
}

func TestSession_UpdateData_ResetsAllPlayers(t *testing.T) {
	s := New(0, json.RawMessage(`{"mapName":"castle"}`), json.RawMessage(`{"name":"a"}`))
	require.True(t, s.AddPlayer(0))
	require.True(t, s.AddPlayer(1))
	require.True(t, s.UpdatePlayer(0, json.RawMessage(`{"name":"diverged"}`)))

	s.UpdateData(json.RawMessage(`{"mapName":"harbor"}`), json.RawMessage(`{"hp":100}`))

	assert.JSONEq(t, `{"mapName":"harbor"}`, string(s.Data()))
	assert.JSONEq(t, `{"hp":100}`, string(s.DefaultPlayerData()))
	assert.JSONEq(t, `{"hp":100}`, string(s.PlayerData(0)), "prior divergence discarded")
	assert.JSONEq(t, `{"hp":100}`, string(s.PlayerData(1)))
}

func TestNew_CopiesSessionData(t *testing.T) {
	raw := json.RawMessage(`{"mapName":"castle"}`)
	s := New(0, raw, json.RawMessage(`{}`))

	assert.JSONEq(t, string(raw), string(s.Data()))

	// The live data is a copy, not an alias of the caller's buffer.
	raw[2] = 'X'
	assert.JSONEq(t, `{"mapName":"castle"}`, string(s.Data()))
}
