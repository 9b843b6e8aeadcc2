package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"huddle/internal/app"
	"huddle/internal/core"
	"huddle/internal/domain"
	"huddle/internal/protocol"
)

// Connect registers an authenticated connection.
func (o *Orchestrator) Connect(conn core.ConnID, user *domain.User, sig core.SignalConnection, ctx context.Context, cancel context.CancelFunc) {
	o.Registry.Bind(conn, user, sig, ctx, cancel)
}

// Disconnect tears everything belonging to the connection down: room
// membership (with succession and rebroadcasts), pending join requests the
// user authored, presence and the registry entry. The connection context is
// cancelled, which also stops a still-armed producer replay timer.
func (o *Orchestrator) Disconnect(conn core.ConnID) {
	if room, ok := o.Registry.RoomOf(conn); ok {
		o.leaveRoom(conn, room)
	}
	if user, ok := o.Registry.User(conn); ok {
		for _, purged := range o.Rooms.PurgeRequestsBy(user.ID) {
			o.pushPendingToHost(purged.Request.Room, purged.Host, purged.Remaining)
		}
	}
	o.Registry.Cancel(conn)
	o.Registry.Unbind(conn)
}

// JoinRoom puts the connection into a room, creating it lazily. Membership
// is exclusive: a connection already in a different room leaves it first.
func (o *Orchestrator) JoinRoom(conn core.ConnID, p protocol.JoinRoom) {
	user, ok := o.Registry.User(conn)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.Room)

	// Meta is validated before membership is touched: a rejected join leaves
	// the caller exactly where it was.
	var meta *app.RoomMeta
	if p.Name != "" || p.Visibility != "" {
		vis, err := domain.ParseVisibility(p.Visibility)
		if err != nil {
			o.send(conn, protocol.ErrorEvent{Type: protocol.TypeError, Error: "bad_visibility"})
			return
		}
		meta = &app.RoomMeta{Name: domain.RoomName(p.Name), Visibility: vis}
	}

	cur, wasIn := o.Registry.RoomOf(conn)
	if wasIn && cur != roomID {
		o.leaveRoom(conn, cur)
	}

	ref := app.ParticipantRef{Conn: conn, User: user.ID, Username: user.Username}
	res := o.Rooms.Join(roomID, ref, meta)
	o.Registry.SetRoom(conn, roomID)

	if res.Created {
		o.broadcastGlobal(protocol.RoomLifecycle{Type: protocol.TypeRoomOpened, Room: roomID, Name: res.Settings.Name})
	}

	// Roster is rebroadcast to the whole room, caller included; the caller
	// additionally gets pending offers and the current settings.
	o.broadcastRoom(res.Roster, rosterEvent(res.Settings, res.Roster))
	o.send(conn, protocol.OffersAwaiting{Type: protocol.TypeOffersAwaiting, Room: roomID, Offers: res.Pending})
	o.send(conn, settingsEvent(protocol.TypeRoomSettings, res.Settings, res.Settings.Host == user.ID))

	// A redundant join for the current room replays nothing; the client
	// already received these producers on its first join.
	if !wasIn || cur != roomID {
		o.scheduleProducerReplay(conn, roomID)
	}
}

// LeaveRoom handles an explicit leave; the connection stays open.
func (o *Orchestrator) LeaveRoom(conn core.ConnID) {
	room, ok := o.Registry.RoomOf(conn)
	if !ok {
		return
	}
	o.leaveRoom(conn, room)
	o.send(conn, protocol.Left{Type: protocol.TypeLeft})
}

func (o *Orchestrator) leaveRoom(conn core.ConnID, room domain.RoomID) {
	res := o.Rooms.Leave(room, conn)
	o.Registry.ClearRoom(conn)
	if !res.Found {
		return
	}

	if res.Closed {
		o.broadcastGlobal(protocol.RoomLifecycle{Type: protocol.TypeRoomClosed, Room: room, Name: res.Name})
		return
	}

	o.broadcastRoom(res.Roster, rosterEvent(res.Settings, res.Roster))
	o.broadcastRoom(res.Roster, protocol.OffersAwaiting{Type: protocol.TypeOffersAwaiting, Room: room, Offers: res.Offers})

	if res.HostChanged {
		for _, p := range res.Roster {
			o.send(p.Conn, settingsEvent(protocol.TypeSettingsUpdated, res.Settings, p.User == res.NewHost))
			if p.User == res.NewHost {
				o.send(p.Conn, protocol.YouAreHost{Type: protocol.TypeYouAreHost, Room: room})
			}
		}
		o.broadcastRoom(res.Roster, protocol.HostChanged{
			Type:    protocol.TypeHostChanged,
			Room:    room,
			OldHost: res.OldHost,
			NewHost: res.NewHost,
		})
	}
}

// scheduleProducerReplay pushes synthetic new_media events for every
// producer already active in the room (excluding the joiner's own) to the
// joiner only, after a settle delay. The timer dies with the connection.
func (o *Orchestrator) scheduleProducerReplay(conn core.ConnID, room domain.RoomID) {
	if o.Media == nil {
		return
	}
	ctx, ok := o.Registry.Ctx(conn)
	if !ok {
		return
	}
	t := time.AfterFunc(o.SettleDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if cur, ok := o.Registry.RoomOf(conn); !ok || cur != room {
			return
		}
		for _, p := range o.Media.Producers(room, conn) {
			o.send(conn, protocol.NewMedia{
				Type:     protocol.TypeNewMedia,
				Room:     p.Room,
				Producer: p.ID,
				Peer:     p.Peer,
				Kind:     p.Kind,
			})
		}
		log.Debug().Str("module", "orch").Str("conn", string(conn)).Str("room", string(room)).Msg("producer replay delivered")
	})
	go func() {
		<-ctx.Done()
		t.Stop()
	}()
}
