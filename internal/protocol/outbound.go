package protocol

import (
	"time"

	"github.com/pion/webrtc/v4"

	"huddle/internal/core"
	"huddle/internal/domain"
)

// Outbound event tags.
const (
	TypeRoomRoster       = "room_roster"
	TypeOffersAwaiting   = "offers_awaiting"
	TypeNewOfferAwaiting = "new_offer_awaiting"
	TypeAnswerAck        = "answer_ack"
	TypeAnswerReady      = "answer_ready"
	TypeICECandidate     = "ice_candidate"
	TypeRoomSettings     = "room_settings"
	TypeSettingsUpdated  = "settings_updated"
	TypeHostChanged      = "host_changed"
	TypeYouAreHost       = "you_are_host"
	TypeUnauthorized     = "unauthorized"
	TypeJoinResult       = "join_request_result"
	TypeJoinRequests     = "join_requests_updated"
	TypeJoinApproved     = "join_approved"
	TypeJoinDenied       = "join_denied"
	TypeRoomOpened       = "room_opened"
	TypeRoomClosed       = "room_closed"
	TypeNewMedia         = "new_media"
	TypeLeft             = "left"
	TypeError            = "error"
	TypePong             = "pong"
)

// Participant is the read-only roster view of one room member.
type Participant struct {
	Conn     core.ConnID   `json:"conn"`
	User     domain.UserID `json:"user"`
	Username string        `json:"username"`
}

type RoomRoster struct {
	Type         string        `json:"type"`
	Room         domain.RoomID `json:"room"`
	Participants []Participant `json:"participants"`
	Count        int           `json:"count"`
}

// OfferView is the shareable face of an in-flight offer. Buffered candidates
// are never included; they travel only through the answer ack.
type OfferView struct {
	Offerer  core.ConnID                `json:"offerer"`
	SDP      webrtc.SessionDescription  `json:"sdp"`
	Answerer core.ConnID                `json:"answerer,omitempty"`
	Answer   *webrtc.SessionDescription `json:"answer,omitempty"`
}

type OffersAwaiting struct {
	Type   string        `json:"type"`
	Room   domain.RoomID `json:"room"`
	Offers []OfferView   `json:"offers"`
}

type NewOfferAwaiting struct {
	Type  string    `json:"type"`
	Offer OfferView `json:"offer"`
}

// AnswerAck goes back to the answerer in direct response to announce_answer.
// It hands over every candidate the offerer buffered before the answer, in
// arrival order, so the hand-off is atomic with answer acceptance.
type AnswerAck struct {
	Type       string                    `json:"type"`
	Offerer    core.ConnID               `json:"offerer"`
	Candidates []webrtc.ICECandidateInit `json:"candidates"`
}

// AnswerReady notifies the original offerer that its offer was answered.
type AnswerReady struct {
	Type  string    `json:"type"`
	Offer OfferView `json:"offer"`
}

type ICECandidate struct {
	Type      string                  `json:"type"`
	Offerer   core.ConnID             `json:"offerer"`
	From      core.ConnID             `json:"from"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

// RoomSettings reports host/flag/recording state. IsHost is filled in
// per-recipient before sending.
type RoomSettings struct {
	Type       string          `json:"type"`
	Room       domain.RoomID   `json:"room"`
	Host       domain.UserID   `json:"host"`
	IsHost     bool            `json:"is_host"`
	Flags      map[string]bool `json:"flags"`
	Recording  bool            `json:"recording"`
	RecordedBy domain.UserID   `json:"recorded_by,omitempty"`
}

type HostChanged struct {
	Type    string        `json:"type"`
	Room    domain.RoomID `json:"room"`
	OldHost domain.UserID `json:"old_host"`
	NewHost domain.UserID `json:"new_host"`
}

type YouAreHost struct {
	Type string        `json:"type"`
	Room domain.RoomID `json:"room"`
}

type Unauthorized struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

type JoinRequestView struct {
	ID        string        `json:"id"`
	Room      domain.RoomID `json:"room"`
	User      domain.UserID `json:"user"`
	Username  string        `json:"username"`
	CreatedAt time.Time     `json:"created_at"`
}

type JoinRequestResult struct {
	Type   string `json:"type"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

type JoinRequestsUpdated struct {
	Type     string            `json:"type"`
	Room     domain.RoomID     `json:"room"`
	Requests []JoinRequestView `json:"requests"`
	Count    int               `json:"count"`
}

type JoinDecision struct {
	Type   string        `json:"type"`
	Room   domain.RoomID `json:"room"`
	Reason string        `json:"reason,omitempty"`
}

type RoomLifecycle struct {
	Type string          `json:"type"`
	Room domain.RoomID   `json:"room"`
	Name domain.RoomName `json:"name,omitempty"`
}

type NewMedia struct {
	Type     string        `json:"type"`
	Room     domain.RoomID `json:"room"`
	Producer string        `json:"producer"`
	Peer     core.ConnID   `json:"peer"`
	Kind     string        `json:"kind,omitempty"`
}

type Left struct {
	Type string `json:"type"`
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type Pong struct {
	Type string `json:"type"`
}
