package app

import (
	"github.com/rs/zerolog/log"

	"huddle/internal/domain"
)

// IsHost reports whether uid currently hosts the room.
func (rs *Rooms) IsHost(id domain.RoomID, uid domain.UserID) bool {
	st, ok := rs.get(id)
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.room.Host == uid
}

// ToggleFlag flips a feature flag. Host-only; nothing changes on rejection.
func (rs *Rooms) ToggleFlag(id domain.RoomID, actor domain.UserID, flag string, value bool) (SettingsView, error) {
	st, ok := rs.get(id)
	if !ok {
		return SettingsView{}, ErrNoRoom
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.room.Host != actor {
		return SettingsView{}, ErrNotHost
	}
	st.room.Flags[flag] = value
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("flag", flag).Bool("value", value).Msg("flag toggled")
	return st.settingsLocked(), nil
}

// SetRecording records who is capturing the call. Any participant may flip
// it; the recorder identity travels with the flag.
func (rs *Rooms) SetRecording(id domain.RoomID, actor domain.UserID, started bool) (SettingsView, error) {
	st, ok := rs.get(id)
	if !ok {
		return SettingsView{}, ErrNoRoom
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.participantByUser(actor); !ok {
		return SettingsView{}, ErrNotParticipant
	}
	st.room.Recording = started
	if started {
		st.room.RecordedBy = actor
	} else {
		st.room.RecordedBy = ""
	}
	return st.settingsLocked(), nil
}
