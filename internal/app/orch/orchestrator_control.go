package orch

import (
	"errors"

	"github.com/rs/zerolog/log"

	"huddle/internal/app"
	"huddle/internal/core"
	"huddle/internal/domain"
	"huddle/internal/protocol"
)

// ToggleFlag flips a room feature flag. Host-only: a non-host caller gets an
// explicit unauthorized event and nothing changes.
func (o *Orchestrator) ToggleFlag(conn core.ConnID, p protocol.ToggleFlag) {
	user, ok := o.Registry.User(conn)
	if !ok {
		return
	}
	room, ok := o.Registry.RoomOf(conn)
	if !ok {
		return
	}
	settings, err := o.Rooms.ToggleFlag(room, user.ID, p.Flag, p.Value)
	switch {
	case errors.Is(err, app.ErrNotHost):
		o.send(conn, protocol.Unauthorized{Type: protocol.TypeUnauthorized, Action: protocol.TypeToggleFlag, Reason: "host_only"})
		return
	case err != nil:
		log.Warn().Err(err).Str("module", "orch.control").Str("room", string(room)).Msg("toggle dropped")
		return
	}
	o.broadcastSettings(room, settings)
}

// SetRecording records a recording-started/stopped notice from a
// participant and shares the new state with the room.
func (o *Orchestrator) SetRecording(conn core.ConnID, p protocol.Recording) {
	user, ok := o.Registry.User(conn)
	if !ok {
		return
	}
	room, ok := o.Registry.RoomOf(conn)
	if !ok {
		return
	}
	settings, err := o.Rooms.SetRecording(room, user.ID, p.Started)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch.control").Str("room", string(room)).Msg("recording notice dropped")
		return
	}
	o.broadcastSettings(room, settings)
}

// broadcastSettings pushes settings_updated to the whole room, tagging each
// recipient with whether they are host.
func (o *Orchestrator) broadcastSettings(room domain.RoomID, settings app.SettingsView) {
	_, roster, _, ok := o.Rooms.Snapshot(room)
	if !ok {
		return
	}
	for _, m := range roster {
		o.send(m.Conn, settingsEvent(protocol.TypeSettingsUpdated, settings, m.User == settings.Host))
	}
}
