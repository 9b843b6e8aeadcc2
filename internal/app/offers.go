package app

import (
	"errors"

	"github.com/pion/webrtc/v4"

	"huddle/internal/core"
	"huddle/internal/domain"
	"huddle/internal/protocol"
)

var ErrNoOffer = errors.New("offer not found")

// Offer is one in-flight handshake attempt, keyed by the announcing
// connection. Candidates from either side are buffered in arrival order; the
// offerer's buffer is flushed to the answerer atomically with the answer ack.
type Offer struct {
	Offerer            core.ConnID
	SDP                webrtc.SessionDescription
	OffererCandidates  []webrtc.ICECandidateInit
	Answerer           core.ConnID
	Answer             *webrtc.SessionDescription
	AnswererCandidates []webrtc.ICECandidateInit
	Room               domain.RoomID
}

func (o *Offer) view() protocol.OfferView {
	return protocol.OfferView{
		Offerer:  o.Offerer,
		SDP:      o.SDP,
		Answerer: o.Answerer,
		Answer:   o.Answer,
	}
}

// AnnounceOffer records a new offer for the room. The announcing connection
// must be a participant.
func (rs *Rooms) AnnounceOffer(id domain.RoomID, offerer core.ConnID, sdp webrtc.SessionDescription) (protocol.OfferView, error) {
	st, ok := rs.get(id)
	if !ok {
		return protocol.OfferView{}, ErrNoRoom
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return protocol.OfferView{}, ErrNoRoom
	}
	if !st.hasConn(offerer) {
		return protocol.OfferView{}, ErrNotParticipant
	}
	// One in-flight offer per connection: re-announcing replaces.
	st.removeOfferLocked(offerer)
	o := &Offer{Offerer: offerer, SDP: sdp, Room: id}
	st.offers = append(st.offers, o)
	return o.view(), nil
}

// AnnounceAnswer records the answer on the offer owned by offerer and hands
// back the offerer's entire buffered candidate list. The returned handoff
// slice preserves arrival order; delivering it in the ack of this same call
// keeps candidate hand-off atomic with answer acceptance.
func (rs *Rooms) AnnounceAnswer(id domain.RoomID, offerer, answerer core.ConnID, sdp webrtc.SessionDescription) ([]webrtc.ICECandidateInit, protocol.OfferView, error) {
	st, ok := rs.get(id)
	if !ok {
		return nil, protocol.OfferView{}, ErrNoRoom
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	o := st.offerLocked(offerer)
	if o == nil {
		return nil, protocol.OfferView{}, ErrNoOffer
	}
	answer := sdp
	o.Answerer = answerer
	o.Answer = &answer
	handoff := make([]webrtc.ICECandidateInit, len(o.OffererCandidates))
	copy(handoff, o.OffererCandidates)
	return handoff, o.view(), nil
}

// AddCandidate buffers the candidate on the offer owned by offerer and
// returns the connection to forward it to, or "" when the counterpart is not
// known yet (offerer-side candidates wait for the answer-ack handoff).
func (rs *Rooms) AddCandidate(id domain.RoomID, offerer core.ConnID, isOfferer bool, cand webrtc.ICECandidateInit) (core.ConnID, error) {
	st, ok := rs.get(id)
	if !ok {
		return "", ErrNoRoom
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	o := st.offerLocked(offerer)
	if o == nil {
		return "", ErrNoOffer
	}
	if isOfferer {
		o.OffererCandidates = append(o.OffererCandidates, cand)
		// Forward right away only once the answerer is known; earlier
		// candidates travel inside the answer ack.
		return o.Answerer, nil
	}
	o.AnswererCandidates = append(o.AnswererCandidates, cand)
	return o.Offerer, nil
}

// OfferViews returns every offer in the room, answered or not.
func (rs *Rooms) OfferViews(id domain.RoomID) ([]protocol.OfferView, bool) {
	st, ok := rs.get(id)
	if !ok {
		return nil, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.offerViewsLocked(), true
}

func (st *callState) offerLocked(offerer core.ConnID) *Offer {
	for _, o := range st.offers {
		if o.Offerer == offerer {
			return o
		}
	}
	return nil
}

func (st *callState) removeOfferLocked(offerer core.ConnID) {
	for i, o := range st.offers {
		if o.Offerer == offerer {
			st.offers = append(st.offers[:i], st.offers[i+1:]...)
			return
		}
	}
}

func (st *callState) purgeOffersLocked(conn core.ConnID) {
	kept := st.offers[:0]
	for _, o := range st.offers {
		if o.Offerer != conn {
			kept = append(kept, o)
		}
	}
	st.offers = kept
}

func (st *callState) offerViewsLocked() []protocol.OfferView {
	out := make([]protocol.OfferView, 0, len(st.offers))
	for _, o := range st.offers {
		out = append(out, o.view())
	}
	return out
}

func (st *callState) pendingOffersLocked() []protocol.OfferView {
	out := make([]protocol.OfferView, 0, len(st.offers))
	for _, o := range st.offers {
		if o.Answerer == "" {
			out = append(out, o.view())
		}
	}
	return out
}
