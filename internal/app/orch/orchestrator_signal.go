package orch

import (
	"github.com/rs/zerolog/log"

	"huddle/internal/core"
	"huddle/internal/protocol"
)

// AnnounceOffer records the offer and pushes it to every other room member
// as awaiting an answer. Stale references (no room, not a participant) are
// dropped with a log: they indicate a race with a just-closed room and are
// not actionable by the client.
func (o *Orchestrator) AnnounceOffer(conn core.ConnID, p protocol.AnnounceOffer) {
	room, ok := o.Registry.RoomOf(conn)
	if !ok {
		log.Warn().Str("module", "orch.signal").Str("conn", string(conn)).Msg("offer outside a room, dropped")
		return
	}
	view, err := o.Rooms.AnnounceOffer(room, conn, p.SDP)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch.signal").Str("conn", string(conn)).Str("room", string(room)).Msg("offer dropped")
		return
	}
	_, roster, _, ok := o.Rooms.Snapshot(room)
	if !ok {
		return
	}
	ev := protocol.NewOfferAwaiting{Type: protocol.TypeNewOfferAwaiting, Offer: view}
	for _, m := range roster {
		if m.Conn != conn {
			o.send(m.Conn, ev)
		}
	}
}

// AnnounceAnswer accepts an answer for the offer owned by p.Offerer. The
// offerer's buffered candidates ride back to the answerer in the ack of this
// same call, which makes candidate hand-off atomic with answer acceptance —
// candidates sent between offer and answer cannot be lost. The completed
// offer is then forwarded to the original offerer.
func (o *Orchestrator) AnnounceAnswer(conn core.ConnID, p protocol.AnnounceAnswer) {
	room, ok := o.Registry.RoomOf(conn)
	if !ok {
		return
	}
	offerer := core.ConnID(p.Offerer)
	handoff, view, err := o.Rooms.AnnounceAnswer(room, offerer, conn, p.SDP)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch.signal").Str("conn", string(conn)).Str("offerer", p.Offerer).Msg("answer dropped")
		return
	}
	o.send(conn, protocol.AnswerAck{Type: protocol.TypeAnswerAck, Offerer: offerer, Candidates: handoff})
	o.send(offerer, protocol.AnswerReady{Type: protocol.TypeAnswerReady, Offer: view})
}

// RelayICE buffers the candidate on its offer and forwards it when the
// counterpart is known. Offerer-side candidates sent before the answer wait
// for the answer-ack handoff; answerer-side candidates always forward
// immediately, since the offerer was known from the start.
func (o *Orchestrator) RelayICE(conn core.ConnID, p protocol.RelayICE) {
	room, ok := o.Registry.RoomOf(conn)
	if !ok {
		return
	}
	offerer := core.ConnID(p.Offerer)
	if p.IsOfferer && conn != offerer {
		log.Warn().Str("module", "orch.signal").Str("conn", string(conn)).Str("offerer", p.Offerer).Msg("candidate owner mismatch, dropped")
		return
	}
	forwardTo, err := o.Rooms.AddCandidate(room, offerer, p.IsOfferer, p.Candidate)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch.signal").Str("conn", string(conn)).Str("offerer", p.Offerer).Msg("candidate dropped")
		return
	}
	if forwardTo == "" {
		return
	}
	o.send(forwardTo, protocol.ICECandidate{
		Type:      protocol.TypeICECandidate,
		Offerer:   offerer,
		From:      conn,
		Candidate: p.Candidate,
	})
}
