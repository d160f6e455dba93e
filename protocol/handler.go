package protocol

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/ViMaSter/sessionserver/domain"
)

// Handler routes inbound frames to the session operations by command name.
// Malformed JSON, a missing command field and unknown commands are logged
// and dropped without a reply; there is no command name to correlate one
// with. Registered handlers run synchronously, so per-connection FIFO
// ordering is preserved by the caller simply calling Handle in order.
type Handler struct {
	commands map[string]func(playerID int, data []byte)
}

func NewHandler(ops domain.Commands) *Handler {
	return &Handler{
		commands: map[string]func(int, []byte){
			domain.CmdCreateSession: func(playerID int, data []byte) {
				var p domain.CreateSessionPayload
				if !decode(playerID, domain.CmdCreateSession, data, &p) {
					return
				}
				ops.CreateSession(playerID, p)
			},
			domain.CmdJoinSession: func(playerID int, data []byte) {
				var p domain.JoinSessionPayload
				if !decode(playerID, domain.CmdJoinSession, data, &p) {
					return
				}
				ops.JoinSession(playerID, p)
			},
			domain.CmdUpdateSession: func(playerID int, data []byte) {
				var p domain.UpdateSessionPayload
				if !decode(playerID, domain.CmdUpdateSession, data, &p) {
					return
				}
				ops.UpdateSession(playerID, p)
			},
			domain.CmdUpdatePlayer: func(playerID int, data []byte) {
				var p domain.UpdatePlayerPayload
				if !decode(playerID, domain.CmdUpdatePlayer, data, &p) {
					return
				}
				ops.UpdatePlayer(playerID, p)
			},
			domain.CmdLeaveSession: func(playerID int, _ []byte) {
				ops.LeaveSession(playerID)
			},
		},
	}
}

// Handle parses one inbound frame and dispatches it.
func (h *Handler) Handle(playerID int, data []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("invalid message", "playerID", playerID, "error", err)
		return
	}

	if strings.TrimSpace(env.Command) == "" {
		slog.Warn("message without command field", "playerID", playerID)
		return
	}

	cmd, ok := h.commands[env.Command]
	if !ok {
		slog.Warn("unknown command", "playerID", playerID, "command", env.Command)
		return
	}

	cmd(playerID, data)
}

func decode(playerID int, command string, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("invalid payload", "playerID", playerID, "command", command, "error", err)
		return false
	}
	return true
}
