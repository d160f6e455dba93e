package session

import (
	"bytes"
	"encoding/json"
	"log/slog"
)

// Session is one room: its shared session-level data and the roster of
// member players with their per-player data. The server never interprets
// either body beyond the flat key-set check in UpdatePlayer, so both are
// kept as raw JSON. Access is serialized by the owning hub; Session itself
// holds no lock.
type Session struct {
	ID int

	defaultSessionData json.RawMessage
	currentSessionData json.RawMessage
	defaultPlayerData  json.RawMessage

	members map[int]json.RawMessage
}

// New creates a session with an empty roster. currentSessionData starts as
// a copy of the supplied session data.
func New(id int, sessionData, playerData json.RawMessage) *Session {
	return &Session{
		ID:                 id,
		defaultSessionData: sessionData,
		currentSessionData: bytes.Clone(sessionData),
		defaultPlayerData:  playerData,
		members:            make(map[int]json.RawMessage),
	}
}

// Has reports whether playerID is a member.
func (s *Session) Has(playerID int) bool {
	_, ok := s.members[playerID]
	return ok
}

// PlayerCount returns the number of members.
func (s *Session) PlayerCount() int {
	return len(s.members)
}

// ForEachPlayer invokes fn once per member, in no particular order.
func (s *Session) ForEachPlayer(fn func(playerID int)) {
	if len(s.members) == 0 {
		slog.Error("iterating over players of an empty session", "sessionID", s.ID)
		return
	}
	for playerID := range s.members {
		fn(playerID)
	}
}

// AddPlayer adds playerID to the roster with a copy of the current player
// data template. Returns false if the player is already a member.
func (s *Session) AddPlayer(playerID int) bool {
	if s.Has(playerID) {
		slog.Error("player already part of session", "playerID", playerID, "sessionID", s.ID)
		return false
	}
	s.members[playerID] = bytes.Clone(s.defaultPlayerData)
	return true
}

// RemovePlayer drops playerID from the roster. Returns false if the player
// was not a member.
func (s *Session) RemovePlayer(playerID int) bool {
	if !s.Has(playerID) {
		slog.Error("player not part of session", "playerID", playerID, "sessionID", s.ID)
		return false
	}
	delete(s.members, playerID)
	return true
}

// PlayerData returns the stored data for playerID, or an empty object if
// the player is not a member.
func (s *Session) PlayerData(playerID int) json.RawMessage {
	data, ok := s.members[playerID]
	if !ok {
		slog.Error("requested data for player outside session", "playerID", playerID, "sessionID", s.ID)
		return json.RawMessage("{}")
	}
	return data
}

// UpdatePlayer replaces playerID's data wholesale. The flat key-set of the
// supplied object must equal that of the player data template; on any
// mismatch nothing is changed and false is returned.
func (s *Session) UpdatePlayer(playerID int, data json.RawMessage) bool {
	if !s.Has(playerID) {
		slog.Error("updating data for player outside session", "playerID", playerID, "sessionID", s.ID)
		return false
	}
	if !keysEqual(flatKeys(s.defaultPlayerData), flatKeys(data)) {
		slog.Error("player data update with additional or missing fields",
			"playerID", playerID, "sessionID", s.ID,
			"template", string(s.defaultPlayerData), "requested", string(data))
		return false
	}
	s.members[playerID] = data
	return true
}

// Data returns the live session-level data.
func (s *Session) Data() json.RawMessage {
	return s.currentSessionData
}

// DefaultPlayerData returns the current per-player data template.
func (s *Session) DefaultPlayerData() json.RawMessage {
	return s.defaultPlayerData
}

// UpdateData replaces the session data and the player data template
// wholesale, then resets every member's data to the new template. A session
// data change can redefine what per-player state means, so prior per-player
// divergence is discarded rather than reconciled; members learn the new
// template through the sessionUpdate broadcast and re-send their own state.
func (s *Session) UpdateData(sessionData, playerData json.RawMessage) {
	s.currentSessionData = sessionData
	s.defaultPlayerData = playerData

	slog.Info("resetting all player data after session data change", "sessionID", s.ID)
	s.ForEachPlayer(func(playerID int) {
		s.UpdatePlayer(playerID, s.defaultPlayerData)
	})
}
