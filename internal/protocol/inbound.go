// Package protocol defines the tagged event variants exchanged over the
// signal channel. Every event is a JSON object with a "type" discriminator
// and a fixed field set per tag; payloads are validated at the boundary
// before any room state is touched.
package protocol

import (
	"github.com/pion/webrtc/v4"

	"huddle/internal/core"
)

// Inbound event tags.
const (
	TypeJoinRoom    = "join_room"
	TypeLeaveRoom   = "leave_room"
	TypeOffer       = "announce_offer"
	TypeAnswer      = "announce_answer"
	TypeICE         = "relay_ice"
	TypeRequestJoin = "request_join_room"
	TypeRespondJoin = "respond_join_request"
	TypeToggleFlag  = "toggle_flag"
	TypeRecording   = "recording"
	TypePing        = "ping"
)

// Envelope carries only the discriminator; the full payload is decoded a
// second time into the matching variant.
type Envelope struct {
	Type string `json:"type"`
}

type JoinRoom struct {
	Type string `json:"type"`
	Room string `json:"room"`
	// Optional meta, honored only when the join creates the room.
	Name       string `json:"name,omitempty"`
	Visibility string `json:"visibility,omitempty"`
}

type LeaveRoom struct {
	Type string `json:"type"`
}

type AnnounceOffer struct {
	Type string                    `json:"type"`
	SDP  webrtc.SessionDescription `json:"sdp"`
}

type AnnounceAnswer struct {
	Type string `json:"type"`
	// Offerer is the connection id that announced the offer being answered.
	Offerer string                    `json:"offerer"`
	SDP     webrtc.SessionDescription `json:"sdp"`
}

type RelayICE struct {
	Type string `json:"type"`
	// Offerer is the connection id owning the offer this candidate belongs to.
	Offerer string `json:"offerer"`
	// IsOfferer is true when the sender is the offer's owner.
	IsOfferer bool                    `json:"is_offerer"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

type RequestJoin struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type RespondJoin struct {
	Type     string `json:"type"`
	Request  string `json:"request"`
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

type ToggleFlag struct {
	Type  string `json:"type"`
	Flag  string `json:"flag"`
	Value bool   `json:"value"`
}

type Recording struct {
	Type    string `json:"type"`
	Started bool   `json:"started"`
}

// Broadcast is the body of POST /internal/broadcast/new-media, the
// cross-process bridge from the media-engine process.
type Broadcast struct {
	Room     string `json:"room_id" binding:"required"`
	Producer string `json:"producer_id" binding:"required"`
	Peer     string `json:"peer_id" binding:"required"`
	Kind     string `json:"kind,omitempty"`
}

// PeerOf is a convenience for handlers translating bridge payloads.
func (b Broadcast) PeerOf() core.ConnID { return core.ConnID(b.Peer) }
