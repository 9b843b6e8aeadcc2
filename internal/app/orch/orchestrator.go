// Package orch wires the connection registry, the room registry and the
// media coordinator into the event flows of the call protocol. All outbound
// emission goes through core.SignalConnection, so tests can drive the
// orchestrator with fake connections.
package orch

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"huddle/internal/app"
	"huddle/internal/app/media"
	"huddle/internal/core"
	"huddle/internal/protocol"
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.Rooms
	Media    *media.Coordinator

	// SettleDelay is the pause before active producers are replayed to a
	// fresh joiner.
	SettleDelay time.Duration
}

// send encodes v and pushes it to one connection, reporting whether the
// frame was handed to the transport. Send failures are dropped with a log: a
// full or dying connection resolves itself through its own disconnect, and
// the next authoritative broadcast repairs any missed state.
func (o *Orchestrator) send(conn core.ConnID, v any) bool {
	sig, ok := o.Registry.Signal(conn)
	if !ok {
		return false
	}
	return o.sendSig(conn, sig, v)
}

func (o *Orchestrator) sendSig(conn core.ConnID, sig core.SignalConnection, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("marshal outbound event")
		return false
	}
	if err := sig.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("conn", string(conn)).Msg("dropped outbound event")
		return false
	}
	return true
}

// broadcastRoom pushes v to every participant in the roster.
func (o *Orchestrator) broadcastRoom(roster []app.ParticipantRef, v any) {
	for _, p := range roster {
		o.send(p.Conn, v)
	}
}

// broadcastGlobal pushes v to every live connection, for discovery events
// like room_opened and room_closed.
func (o *Orchestrator) broadcastGlobal(v any) {
	for _, id := range o.Registry.All() {
		o.send(id, v)
	}
}

func settingsEvent(tag string, s app.SettingsView, isHost bool) protocol.RoomSettings {
	return protocol.RoomSettings{
		Type:       tag,
		Room:       s.Room,
		Host:       s.Host,
		IsHost:     isHost,
		Flags:      s.Flags,
		Recording:  s.Recording,
		RecordedBy: s.RecordedBy,
	}
}

func rosterEvent(room app.SettingsView, roster []app.ParticipantRef) protocol.RoomRoster {
	parts := make([]protocol.Participant, 0, len(roster))
	for _, p := range roster {
		parts = append(parts, protocol.Participant{Conn: p.Conn, User: p.User, Username: p.Username})
	}
	return protocol.RoomRoster{
		Type:         protocol.TypeRoomRoster,
		Room:         room.Room,
		Participants: parts,
		Count:        len(parts),
	}
}
