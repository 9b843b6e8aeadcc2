package orch

import (
	"github.com/rs/zerolog/log"

	"huddle/internal/app/media"
	"huddle/internal/core"
	"huddle/internal/domain"
	"huddle/internal/protocol"
)

// EmitNewMedia pushes new_media to every connection currently in the room
// except the producing peer's own, and returns how many actually received
// the frame; members whose send fails are not counted. It backs both the
// in-process broadcaster and the cross-process HTTP bridge.
func (o *Orchestrator) EmitNewMedia(room domain.RoomID, producer string, peer core.ConnID, kind string) int {
	_, roster, _, ok := o.Rooms.Snapshot(room)
	if !ok {
		log.Warn().Str("module", "orch.media").Str("room", string(room)).Str("producer", producer).Msg("new-media for unknown room, dropped")
		return 0
	}
	ev := protocol.NewMedia{Type: protocol.TypeNewMedia, Room: room, Producer: producer, Peer: peer, Kind: kind}
	notified := 0
	for _, m := range roster {
		if m.Conn == peer {
			continue
		}
		if o.send(m.Conn, ev) {
			notified++
		}
	}
	return notified
}

// LocalBroadcaster adapts EmitNewMedia to the media.Broadcaster port for
// co-located deployments.
func (o *Orchestrator) LocalBroadcaster() *media.LocalBroadcaster {
	return &media.LocalBroadcaster{
		Emit: func(n media.Notice) int {
			return o.EmitNewMedia(n.Room, n.Producer, n.Peer, n.Kind)
		},
	}
}
