package app

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"huddle/internal/core"
	"huddle/internal/domain"
	"huddle/internal/protocol"
)

var (
	ErrNoRoom         = errors.New("room not found")
	ErrNotHost        = errors.New("not the host")
	ErrNotParticipant = errors.New("not a participant")
)

// ParticipantRef is a room's record of one member. Removal is always by
// connection id; usernames are not unique.
type ParticipantRef struct {
	Conn     core.ConnID
	User     domain.UserID
	Username string
}

// RoomMeta is the optional meta a join may carry; it is honored only when
// the join creates the room.
type RoomMeta struct {
	Name       domain.RoomName
	Visibility domain.Visibility
}

// callState is everything one live call owns. Its mutex serializes every
// mutation for the room; operations on different rooms run in parallel.
type callState struct {
	mu           sync.Mutex
	closed       bool
	room         *domain.Room
	participants []ParticipantRef
	offers       []*Offer
	requests     map[domain.UserID]*JoinRequest
}

// Rooms is the room registry. A room exists here if and only if it has at
// least one participant.
type Rooms struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*callState
}

func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[domain.RoomID]*callState)}
}

// SettingsView is a read-only copy of a room's shared state.
type SettingsView struct {
	Room       domain.RoomID
	Name       domain.RoomName
	Visibility domain.Visibility
	Host       domain.UserID
	Flags      map[string]bool
	Recording  bool
	RecordedBy domain.UserID
}

type JoinResult struct {
	Created  bool
	Settings SettingsView
	Roster   []ParticipantRef
	// Pending holds offers still awaiting an answer, replayed to the joiner.
	Pending []protocol.OfferView
}

type LeaveResult struct {
	Found       bool
	Closed      bool
	Name        domain.RoomName
	Leaver      ParticipantRef
	HostChanged bool
	OldHost     domain.UserID
	NewHost     domain.UserID
	Settings    SettingsView
	Roster      []ParticipantRef
	Offers      []protocol.OfferView
}

type RoomInfo struct {
	ID           domain.RoomID     `json:"id"`
	Name         domain.RoomName   `json:"name"`
	Visibility   domain.Visibility `json:"visibility"`
	Participants int               `json:"participants"`
	Host         domain.UserID     `json:"host"`
	CreatedAt    time.Time         `json:"created_at"`
	Recording    bool              `json:"recording"`
}

// Join adds ref to the room, creating it lazily with ref's user as host.
// Appending is idempotent under retry: a connection already present is not
// added twice. Exclusive membership (one call per connection) is enforced a
// level up, by the orchestrator leaving the previous room first.
func (rs *Rooms) Join(id domain.RoomID, ref ParticipantRef, meta *RoomMeta) JoinResult {
	for {
		rs.mu.Lock()
		st, ok := rs.rooms[id]
		created := false
		if !ok {
			vis := domain.VisibilityPublic
			var name domain.RoomName
			if meta != nil {
				if meta.Visibility != "" {
					vis = meta.Visibility
				}
				name = meta.Name
			}
			st = &callState{
				room:     domain.NewRoom(id, name, vis, ref.User),
				requests: make(map[domain.UserID]*JoinRequest),
			}
			rs.rooms[id] = st
			created = true
		}
		rs.mu.Unlock()

		st.mu.Lock()
		if st.closed {
			// Lost a race with the last leave; the map entry is gone.
			st.mu.Unlock()
			continue
		}
		if !st.hasConn(ref.Conn) {
			st.participants = append(st.participants, ref)
		}
		res := JoinResult{
			Created:  created,
			Settings: st.settingsLocked(),
			Roster:   st.rosterLocked(),
			Pending:  st.pendingOffersLocked(),
		}
		st.mu.Unlock()
		if created {
			log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("host", string(ref.User)).Msg("room opened")
		}
		return res
	}
}

// Leave removes the participant by connection id, purges its offers, runs
// host succession when the host departs and closes the room when it empties.
func (rs *Rooms) Leave(id domain.RoomID, conn core.ConnID) LeaveResult {
	st, ok := rs.get(id)
	if !ok {
		return LeaveResult{}
	}

	st.mu.Lock()
	idx := -1
	for i, p := range st.participants {
		if p.Conn == conn {
			idx = i
			break
		}
	}
	if idx < 0 {
		st.mu.Unlock()
		return LeaveResult{}
	}
	leaver := st.participants[idx]
	st.participants = append(st.participants[:idx], st.participants[idx+1:]...)
	st.purgeOffersLocked(conn)

	res := LeaveResult{
		Found:  true,
		Name:   st.room.Name,
		Leaver: leaver,
	}

	if len(st.participants) == 0 {
		st.closed = true
		res.Closed = true
		st.mu.Unlock()
		rs.drop(id, st)
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room closed")
		return res
	}

	if st.room.Host == leaver.User {
		// Succession: earliest-joined survivor becomes host.
		res.HostChanged = true
		res.OldHost = st.room.Host
		st.room.Host = st.participants[0].User
		res.NewHost = st.room.Host
		log.Info().Str("module", "app.rooms").Str("room", string(id)).
			Str("old_host", string(res.OldHost)).Str("new_host", string(res.NewHost)).Msg("host changed")
	}

	res.Settings = st.settingsLocked()
	res.Roster = st.rosterLocked()
	res.Offers = st.offerViewsLocked()
	st.mu.Unlock()
	return res
}

// Snapshot returns the room's current state, or ok=false when it no longer
// exists.
func (rs *Rooms) Snapshot(id domain.RoomID) (SettingsView, []ParticipantRef, []protocol.OfferView, bool) {
	st, ok := rs.get(id)
	if !ok {
		return SettingsView{}, nil, nil, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return SettingsView{}, nil, nil, false
	}
	return st.settingsLocked(), st.rosterLocked(), st.offerViewsLocked(), true
}

// List returns all non-private rooms with at least one participant, newest
// first, for the discovery endpoint.
func (rs *Rooms) List() []RoomInfo {
	rs.mu.RLock()
	states := make([]*callState, 0, len(rs.rooms))
	for _, st := range rs.rooms {
		states = append(states, st)
	}
	rs.mu.RUnlock()

	out := make([]RoomInfo, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		if !st.closed && st.room.Visibility != domain.VisibilityPrivate && len(st.participants) > 0 {
			out = append(out, RoomInfo{
				ID:           st.room.ID,
				Name:         st.room.Name,
				Visibility:   st.room.Visibility,
				Participants: len(st.participants),
				Host:         st.room.Host,
				CreatedAt:    st.room.CreatedAt,
				Recording:    st.room.Recording,
			})
		}
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Exists reports whether the room currently has state in the registry.
func (rs *Rooms) Exists(id domain.RoomID) bool {
	_, ok := rs.get(id)
	return ok
}

func (rs *Rooms) get(id domain.RoomID) (*callState, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	st, ok := rs.rooms[id]
	return st, ok
}

// drop removes a closed state from the map. The identity check guards
// against deleting a fresh state that reused the id in the meantime.
func (rs *Rooms) drop(id domain.RoomID, st *callState) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if cur, ok := rs.rooms[id]; ok && cur == st {
		delete(rs.rooms, id)
	}
}

func (st *callState) hasConn(conn core.ConnID) bool {
	for _, p := range st.participants {
		if p.Conn == conn {
			return true
		}
	}
	return false
}

func (st *callState) participantByUser(uid domain.UserID) (ParticipantRef, bool) {
	for _, p := range st.participants {
		if p.User == uid {
			return p, true
		}
	}
	return ParticipantRef{}, false
}

func (st *callState) rosterLocked() []ParticipantRef {
	out := make([]ParticipantRef, len(st.participants))
	copy(out, st.participants)
	return out
}

func (st *callState) settingsLocked() SettingsView {
	return SettingsView{
		Room:       st.room.ID,
		Name:       st.room.Name,
		Visibility: st.room.Visibility,
		Host:       st.room.Host,
		Flags:      st.room.CloneFlags(),
		Recording:  st.room.Recording,
		RecordedBy: st.room.RecordedBy,
	}
}
