package app

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"huddle/internal/core"
	"huddle/internal/domain"
	"huddle/internal/protocol"
)

var (
	ErrNotApproval      = errors.New("room is not approval-gated")
	ErrDuplicateRequest = errors.New("join request already pending")
	ErrNoRequest        = errors.New("join request not found")
)

// JoinRequest is one pending admission request for an approval-gated room.
// At most one exists per (room, requester user id).
type JoinRequest struct {
	ID        string
	Room      domain.RoomID
	User      domain.UserID
	Username  string
	Conn      core.ConnID
	CreatedAt time.Time
}

func (r *JoinRequest) view() protocol.JoinRequestView {
	return protocol.JoinRequestView{
		ID:        r.ID,
		Room:      r.Room,
		User:      r.User,
		Username:  r.Username,
		CreatedAt: r.CreatedAt,
	}
}

// RequestResult carries what the orchestrator needs to notify the host.
type RequestResult struct {
	Host     domain.UserID
	Requests []protocol.JoinRequestView
}

// RequestJoin files an admission request. It fails fast when the room is
// missing, not approval-gated, or the requester already has a pending
// request; the existing request is left untouched on duplicates.
func (rs *Rooms) RequestJoin(id domain.RoomID, user domain.UserID, username string, conn core.ConnID) (RequestResult, error) {
	st, ok := rs.get(id)
	if !ok {
		return RequestResult{}, ErrNoRoom
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return RequestResult{}, ErrNoRoom
	}
	if st.room.Visibility != domain.VisibilityApproval {
		return RequestResult{}, ErrNotApproval
	}
	if _, dup := st.requests[user]; dup {
		return RequestResult{}, ErrDuplicateRequest
	}
	req := &JoinRequest{
		ID:        uuid.NewString(),
		Room:      id,
		User:      user,
		Username:  username,
		Conn:      conn,
		CreatedAt: time.Now(),
	}
	st.requests[user] = req
	log.Info().Str("module", "app.approval").Str("room", string(id)).Str("user", string(user)).Str("request", req.ID).Msg("join requested")
	return RequestResult{Host: st.room.Host, Requests: st.requestViewsLocked()}, nil
}

// Respond consumes the request by id, approve and deny alike, and returns it
// together with the refreshed pending list. Only the host may respond.
func (rs *Rooms) Respond(id domain.RoomID, actor domain.UserID, requestID string) (JoinRequest, []protocol.JoinRequestView, error) {
	st, ok := rs.get(id)
	if !ok {
		return JoinRequest{}, nil, ErrNoRoom
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.room.Host != actor {
		return JoinRequest{}, nil, ErrNotHost
	}
	for user, req := range st.requests {
		if req.ID == requestID {
			delete(st.requests, user)
			return *req, st.requestViewsLocked(), nil
		}
	}
	return JoinRequest{}, nil, ErrNoRequest
}

// PurgedRequest reports one request removed outside the respond flow, with
// enough context to refresh the affected host.
type PurgedRequest struct {
	Request   JoinRequest
	Host      domain.UserID
	Remaining []protocol.JoinRequestView
}

// PurgeRequestsBy removes every pending request the user authored, in any
// room. Called on disconnect so abandoned requests do not leak.
func (rs *Rooms) PurgeRequestsBy(user domain.UserID) []PurgedRequest {
	rs.mu.RLock()
	states := make([]*callState, 0, len(rs.rooms))
	for _, st := range rs.rooms {
		states = append(states, st)
	}
	rs.mu.RUnlock()

	var out []PurgedRequest
	for _, st := range states {
		st.mu.Lock()
		if req, ok := st.requests[user]; ok && !st.closed {
			delete(st.requests, user)
			out = append(out, PurgedRequest{
				Request:   *req,
				Host:      st.room.Host,
				Remaining: st.requestViewsLocked(),
			})
		}
		st.mu.Unlock()
	}
	return out
}

// ExpireRequests removes every pending request older than ttl. The original
// design had no expiry; unanswered requests now behave like a deny so a
// vanished host cannot strand requesters forever.
func (rs *Rooms) ExpireRequests(ttl time.Duration) []PurgedRequest {
	rs.mu.RLock()
	states := make([]*callState, 0, len(rs.rooms))
	for _, st := range rs.rooms {
		states = append(states, st)
	}
	rs.mu.RUnlock()

	cutoff := time.Now().Add(-ttl)
	var out []PurgedRequest
	for _, st := range states {
		st.mu.Lock()
		for user, req := range st.requests {
			if req.CreatedAt.Before(cutoff) {
				delete(st.requests, user)
				out = append(out, PurgedRequest{
					Request:   *req,
					Host:      st.room.Host,
					Remaining: st.requestViewsLocked(),
				})
			}
		}
		st.mu.Unlock()
	}
	return out
}

func (st *callState) requestViewsLocked() []protocol.JoinRequestView {
	out := make([]protocol.JoinRequestView, 0, len(st.requests))
	for _, req := range st.requests {
		out = append(out, req.view())
	}
	return out
}
