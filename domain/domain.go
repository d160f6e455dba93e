package domain

import "encoding/json"

// Inbound command names.
const (
	CmdCreateSession = "createSession"
	CmdJoinSession   = "joinSession"
	CmdUpdateSession = "updateSession"
	CmdUpdatePlayer  = "updatePlayer"
	CmdLeaveSession  = "leaveSession"
)

// Outbound reply/event command names.
const (
	ReplySessionJoin   = "sessionJoin"
	ReplySessionUpdate = "sessionUpdate"
	ReplyPlayerUpdate  = "playerUpdate"
	ReplySessionLeave  = "sessionLeave"
	ReplyPlayerJoin    = "playerJoin"
	ReplyPlayerLeave   = "playerLeave"
)

// Error codes carried in the error field of replies. 0 is success; nonzero
// codes are scoped to the reply command that carries them.
const (
	ErrNone = 0

	// Shared live-session preconditions (sessionUpdate, playerUpdate, sessionLeave).
	ErrUnknownPlayer  = 1
	ErrNotInSession   = 2
	ErrSessionExpired = 3

	// sessionJoin.
	ErrCreateWhileJoined = 4
	ErrJoinWhileJoined   = 5
	ErrNoSessions        = 6
	ErrNoSuchSession     = 7
	ErrAddPlayer         = 8

	// playerUpdate.
	ErrPlayerSchema = 4

	// sessionLeave.
	ErrRemovePlayer = 4
)

// Envelope is the one field every inbound message must carry.
type Envelope struct {
	Command string `json:"command"`
}

// CreateSessionPayload carries the session-level data and the per-player
// data template for a new session. Both bodies are opaque to the server.
type CreateSessionPayload struct {
	Session json.RawMessage `json:"session"`
	Player  json.RawMessage `json:"player"`
}

// JoinSessionPayload names the session to join. -1 means "the session
// created last"; an absent field fails the session lookup.
type JoinSessionPayload struct {
	SessionID *int `json:"sessionID"`
}

type UpdateSessionPayload struct {
	Session json.RawMessage `json:"session"`
	Player  json.RawMessage `json:"player"`
}

type UpdatePlayerPayload struct {
	Player json.RawMessage `json:"player"`
}

// Reply is a bare acknowledgement: the reply command plus an error code.
type Reply struct {
	Command string `json:"command"`
	Error   int    `json:"error"`
}

// SessionJoin confirms a successful create or join to the joining player.
type SessionJoin struct {
	Command   string          `json:"command"`
	Error     int             `json:"error"`
	SessionID int             `json:"sessionID"`
	PlayerID  int             `json:"playerID"`
	Session   json.RawMessage `json:"session"`
	Player    json.RawMessage `json:"player"`
}

// PlayerJoin announces one player's presence and data to another.
type PlayerJoin struct {
	Command  string          `json:"command"`
	Error    int             `json:"error"`
	PlayerID int             `json:"playerID"`
	Player   json.RawMessage `json:"player"`
}

// SessionUpdate carries the replaced session data and the new player data
// template to every member.
type SessionUpdate struct {
	Command string          `json:"command"`
	Error   int             `json:"error"`
	Session json.RawMessage `json:"session"`
	Player  json.RawMessage `json:"player"`
}

type PlayerUpdate struct {
	Command  string          `json:"command"`
	Error    int             `json:"error"`
	PlayerID int             `json:"playerID"`
	Player   json.RawMessage `json:"player"`
}

type PlayerLeave struct {
	Command  string `json:"command"`
	Error    int    `json:"error"`
	PlayerID int    `json:"playerID"`
}

// Transport is one live client connection as the relay core sees it. The
// core holds transports only inside the registry and addresses peers by
// player ID, never by handle.
type Transport interface {
	Send(data []byte) error
	Ready() bool
	Close() error
}

// Registry ties transports to player identities.
type Registry interface {
	Register(t Transport) int
	Unregister(playerID int)
}

// Commands is the set of session operations the router dispatches into.
type Commands interface {
	CreateSession(playerID int, p CreateSessionPayload)
	JoinSession(playerID int, p JoinSessionPayload)
	UpdateSession(playerID int, p UpdateSessionPayload)
	UpdatePlayer(playerID int, p UpdatePlayerPayload)
	LeaveSession(playerID int)
}

// Dispatcher consumes raw inbound frames for one player.
type Dispatcher interface {
	Handle(playerID int, data []byte)
}
