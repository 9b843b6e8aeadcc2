package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"huddle/internal/core"
	"huddle/internal/domain"
)

// PresenceEntry is the online record for one user. At most one entry exists
// per user id; a reconnect replaces the prior entry.
type PresenceEntry struct {
	User     *domain.User
	Conn     core.ConnID
	LastSeen time.Time
}

type connEntry struct {
	User   *domain.User
	Room   domain.RoomID
	Signal core.SignalConnection
	Ctx    context.Context
	Cancel context.CancelFunc
}

// Registry tracks every live realtime connection, the authenticated identity
// behind it and the global presence index. It owns no room state.
type Registry struct {
	mu       sync.RWMutex
	conns    map[core.ConnID]*connEntry
	presence map[domain.UserID]*PresenceEntry
}

func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[core.ConnID]*connEntry),
		presence: make(map[domain.UserID]*PresenceEntry),
	}
}

// Bind registers an authenticated connection and refreshes presence. A prior
// connection of the same user stays registered (it will be torn down by its
// own disconnect), but presence always points at the newest connection.
func (r *Registry) Bind(id core.ConnID, user *domain.User, sig core.SignalConnection, ctx context.Context, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &connEntry{User: user, Signal: sig, Ctx: ctx, Cancel: cancel}
	r.presence[user.ID] = &PresenceEntry{User: user, Conn: id, LastSeen: time.Now()}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("user", string(user.ID)).Msg("bound connection")
}

// Unbind drops a connection and, when it is still the user's presence
// connection, the presence entry with it.
func (r *Registry) Unbind(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return
	}
	delete(r.conns, id)
	if p, ok := r.presence[e.User.ID]; ok && p.Conn == id {
		delete(r.presence, e.User.ID)
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unbound connection")
}

func (r *Registry) User(id core.ConnID) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.User, true
	}
	return nil, false
}

func (r *Registry) Signal(id core.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.Signal, true
	}
	return nil, false
}

// Ctx returns the connection-scoped context, used to cancel work (like the
// producer replay timer) when the connection goes away.
func (r *Registry) Ctx(id core.ConnID) (context.Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok && e.Ctx != nil {
		return e.Ctx, true
	}
	return nil, false
}

func (r *Registry) RoomOf(id core.ConnID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok || e.Room == "" {
		return "", false
	}
	return e.Room, true
}

func (r *Registry) SetRoom(id core.ConnID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	e.Room = room
	return true
}

func (r *Registry) ClearRoom(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok {
		e.Room = ""
	}
}

// ConnOfUser returns the user's presence connection, if the user is online.
func (r *Registry) ConnOfUser(uid domain.UserID) (core.ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.presence[uid]; ok {
		return p.Conn, true
	}
	return "", false
}

func (r *Registry) Presence() []PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PresenceEntry, 0, len(r.presence))
	for _, p := range r.presence {
		out = append(out, *p)
	}
	return out
}

// All returns every live connection id, for global broadcasts like
// room_opened and room_closed.
func (r *Registry) All() []core.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ConnID, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}

// Cancel fires the connection's cancel func, tearing down its pumps and any
// timers bound to its context.
func (r *Registry) Cancel(id core.ConnID) bool {
	r.mu.RLock()
	e, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	return true
}
