package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ViMaSter/sessionserver/domain"
	"github.com/ViMaSter/sessionserver/session"
)

// NoSession marks a connected player that is not in any session.
const NoSession = -1

// Hub owns the three core tables: the connection registry (player ID to
// transport), the session table and the membership index (player ID to
// session ID). Player and session IDs come from monotonic counters and are
// never reused for the lifetime of the hub.
//
// One mutex guards all three tables; every operation runs atomically under
// it, which gives the check-then-act sequences (membership check before
// join, empty check before teardown) their required atomicity. Transports
// must not block inside Send.
type Hub struct {
	mu sync.Mutex

	players      map[int]domain.Transport
	nextPlayerID int

	sessions      map[int]*session.Session
	nextSessionID int

	sessionByPlayer map[int]int
}

func New() *Hub {
	return &Hub{
		players:         make(map[int]domain.Transport),
		sessions:        make(map[int]*session.Session),
		sessionByPlayer: make(map[int]int),
	}
}

// Register assigns the next player ID to t and records the player as being
// in no session.
func (h *Hub) Register(t domain.Transport) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	playerID := h.nextPlayerID
	h.nextPlayerID++
	h.players[playerID] = t
	h.sessionByPlayer[playerID] = NoSession

	slog.Info("player connected", "playerID", playerID, "players", len(h.players))
	return playerID
}

// Unregister removes playerID from the registry and the membership index.
// A player still in a session leaves it first, so remaining members are
// notified exactly as for an explicit leave. Calling Unregister for an
// already-removed player is a no-op; the transport layer can deliver close
// events more than once.
func (h *Hub) Unregister(playerID int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.players[playerID]; !ok {
		slog.Info("player already removed", "playerID", playerID)
		return
	}

	if h.sessionByPlayer[playerID] != NoSession {
		h.leaveLocked(playerID)
	}

	delete(h.players, playerID)
	delete(h.sessionByPlayer, playerID)
	slog.Info("player disconnected", "playerID", playerID, "players", len(h.players))
}

// Send marshals v and writes it to playerID's transport. Returns false if
// the player is unknown, the transport is not ready or the write fails; a
// peer disconnecting mid-broadcast is an expected race, so failures are
// logged and swallowed.
func (h *Hub) Send(playerID int, v any) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sendLocked(playerID, v)
}

func (h *Hub) sendLocked(playerID int, v any) bool {
	t, ok := h.players[playerID]
	if !ok {
		slog.Error("no connected player with this ID", "playerID", playerID)
		return false
	}
	if !t.Ready() {
		slog.Warn("connection unavailable, dropping message", "playerID", playerID)
		return false
	}

	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal outbound message", "playerID", playerID, "error", err)
		return false
	}
	if err := t.Send(data); err != nil {
		slog.Warn("send failed", "playerID", playerID, "error", err)
		return false
	}
	return true
}

// CreateSession allocates a new session from the supplied session data and
// player data template, then runs the join path for the creating player, so
// create and join are one atomic step from the player's point of view.
func (h *Hub) CreateSession(playerID int, p domain.CreateSessionPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A player can only be connected to one session at a time.
	if sid, ok := h.sessionByPlayer[playerID]; !ok || sid != NoSession {
		h.sendLocked(playerID, domain.Reply{Command: domain.ReplySessionJoin, Error: domain.ErrCreateWhileJoined})
		return
	}

	sessionID := h.nextSessionID
	h.nextSessionID++
	h.sessions[sessionID] = session.New(sessionID, p.Session, p.Player)
	slog.Info("session created", "sessionID", sessionID, "playerID", playerID)

	h.joinLocked(playerID, sessionID)
}

// JoinSession adds playerID to an existing session and exchanges playerJoin
// notifications with every existing member.
func (h *Hub) JoinSession(playerID int, p domain.JoinSessionPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sid, ok := h.sessionByPlayer[playerID]; !ok || sid != NoSession {
		h.sendLocked(playerID, domain.Reply{Command: domain.ReplySessionJoin, Error: domain.ErrJoinWhileJoined})
		return
	}

	// A missing sessionID falls through to the lookup below and fails there.
	target := NoSession
	if p.SessionID != nil {
		target = *p.SessionID
	}

	if p.SessionID != nil && target == -1 {
		if len(h.sessions) == 0 {
			h.sendLocked(playerID, domain.Reply{Command: domain.ReplySessionJoin, Error: domain.ErrNoSessions})
			return
		}
		// The session created last, by ID. If that session was already torn
		// down this resolves to a dead ID and the join fails below even when
		// older sessions are still alive.
		target = h.nextSessionID - 1
	}

	h.joinLocked(playerID, target)
}

func (h *Hub) joinLocked(playerID, sessionID int) {
	s, ok := h.sessions[sessionID]
	if !ok {
		h.sendLocked(playerID, domain.Reply{Command: domain.ReplySessionJoin, Error: domain.ErrNoSuchSession})
		return
	}

	if !s.AddPlayer(playerID) {
		h.sendLocked(playerID, domain.Reply{Command: domain.ReplySessionJoin, Error: domain.ErrAddPlayer})
		return
	}
	h.sessionByPlayer[playerID] = sessionID
	slog.Info("player joined session", "playerID", playerID, "sessionID", sessionID, "members", s.PlayerCount())

	// Session state to the new player...
	h.sendLocked(playerID, domain.SessionJoin{
		Command:   domain.ReplySessionJoin,
		Error:     domain.ErrNone,
		SessionID: sessionID,
		PlayerID:  playerID,
		Session:   s.Data(),
		Player:    s.PlayerData(playerID),
	})

	// ...and a playerJoin both ways for every player already connected.
	s.ForEachPlayer(func(existingID int) {
		if existingID == playerID {
			return
		}
		h.sendLocked(playerID, domain.PlayerJoin{
			Command:  domain.ReplyPlayerJoin,
			Error:    domain.ErrNone,
			PlayerID: existingID,
			Player:   s.PlayerData(existingID),
		})
		h.sendLocked(existingID, domain.PlayerJoin{
			Command:  domain.ReplyPlayerJoin,
			Error:    domain.ErrNone,
			PlayerID: playerID,
			Player:   s.PlayerData(playerID),
		})
	})
}

// UpdateSession replaces the session data and the player data template of
// the sender's session, resets every member's player data to the new
// template and broadcasts the new state to all members.
func (h *Hub) UpdateSession(playerID int, p domain.UpdateSessionPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.liveSessionLocked(playerID, domain.ReplySessionUpdate)
	if !ok {
		return
	}

	s.UpdateData(p.Session, p.Player)

	s.ForEachPlayer(func(memberID int) {
		h.sendLocked(memberID, domain.SessionUpdate{
			Command: domain.ReplySessionUpdate,
			Error:   domain.ErrNone,
			Session: s.Data(),
			Player:  s.DefaultPlayerData(),
		})
	})
}

// UpdatePlayer replaces the sender's player data after the flat key-set
// check and broadcasts the new data to every member of the session. On a
// schema mismatch the sender gets error 4 and nothing is mutated or sent to
// anyone else.
func (h *Hub) UpdatePlayer(playerID int, p domain.UpdatePlayerPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.liveSessionLocked(playerID, domain.ReplyPlayerUpdate)
	if !ok {
		return
	}

	if !s.UpdatePlayer(playerID, p.Player) {
		h.sendLocked(playerID, domain.Reply{Command: domain.ReplyPlayerUpdate, Error: domain.ErrPlayerSchema})
		return
	}

	s.ForEachPlayer(func(memberID int) {
		h.sendLocked(memberID, domain.PlayerUpdate{
			Command:  domain.ReplyPlayerUpdate,
			Error:    domain.ErrNone,
			PlayerID: playerID,
			Player:   s.PlayerData(playerID),
		})
	})
}

// LeaveSession removes the sender from their session, tears the session
// down if it became empty and notifies any remaining members.
func (h *Hub) LeaveSession(playerID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(playerID)
}

func (h *Hub) leaveLocked(playerID int) {
	s, ok := h.liveSessionLocked(playerID, domain.ReplySessionLeave)
	if !ok {
		return
	}
	sessionID := h.sessionByPlayer[playerID]

	if !s.RemovePlayer(playerID) {
		h.sendLocked(playerID, domain.Reply{Command: domain.ReplySessionLeave, Error: domain.ErrRemovePlayer})
		return
	}

	slog.Info("player left session", "playerID", playerID, "sessionID", sessionID, "members", s.PlayerCount())
	if s.PlayerCount() == 0 {
		delete(h.sessions, sessionID)
		slog.Info("session has no players left, discarding it", "sessionID", sessionID)
	}

	h.sessionByPlayer[playerID] = NoSession

	h.sendLocked(playerID, domain.Reply{Command: domain.ReplySessionLeave, Error: domain.ErrNone})

	// The session is gone if the last player just left.
	if _, alive := h.sessions[sessionID]; !alive {
		return
	}
	s.ForEachPlayer(func(remainingID int) {
		h.sendLocked(remainingID, domain.PlayerLeave{
			Command:  domain.ReplyPlayerLeave,
			Error:    domain.ErrNone,
			PlayerID: playerID,
		})
	})
}

// liveSessionLocked enforces the shared precondition of updateSession,
// updatePlayer and leaveSession: the sender must be known, must be in a
// session and that session must still exist. On failure the sender gets the
// matching error code on replyCommand.
func (h *Hub) liveSessionLocked(playerID int, replyCommand string) (*session.Session, bool) {
	sessionID, ok := h.sessionByPlayer[playerID]
	if !ok {
		slog.Error("player missing from membership index", "playerID", playerID, "command", replyCommand)
		h.sendLocked(playerID, domain.Reply{Command: replyCommand, Error: domain.ErrUnknownPlayer})
		return nil, false
	}
	if sessionID == NoSession {
		slog.Error("player is not in a session", "playerID", playerID, "command", replyCommand)
		h.sendLocked(playerID, domain.Reply{Command: replyCommand, Error: domain.ErrNotInSession})
		return nil, false
	}
	s, ok := h.sessions[sessionID]
	if !ok {
		slog.Error("player's session no longer exists", "playerID", playerID, "sessionID", sessionID, "command", replyCommand)
		h.sendLocked(playerID, domain.Reply{Command: replyCommand, Error: domain.ErrSessionExpired})
		return nil, false
	}
	return s, true
}

// Stats returns the number of live sessions and connected players.
func (h *Hub) Stats() (sessions, players int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions), len(h.players)
}

// CloseAll closes every registered transport. Used on shutdown; the
// transports' close notifications drive the usual unregister path.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for playerID, t := range h.players {
		if err := t.Close(); err != nil {
			slog.Warn("close transport", "playerID", playerID, "error", err)
		}
	}
}
