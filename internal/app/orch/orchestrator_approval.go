package orch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"huddle/internal/app"
	"huddle/internal/core"
	"huddle/internal/domain"
	"huddle/internal/protocol"
)

// RequestJoin files an admission request for an approval-gated room. The
// request succeeds server-side even when the host is offline; the requester
// is told the host is unavailable only when no host connection exists.
func (o *Orchestrator) RequestJoin(conn core.ConnID, p protocol.RequestJoin) {
	user, ok := o.Registry.User(conn)
	if !ok {
		return
	}
	roomID := domain.RoomID(p.Room)
	res, err := o.Rooms.RequestJoin(roomID, user.ID, user.Username, conn)
	if err != nil {
		o.send(conn, protocol.JoinRequestResult{Type: protocol.TypeJoinResult, OK: false, Reason: requestFailReason(err)})
		return
	}

	result := protocol.JoinRequestResult{Type: protocol.TypeJoinResult, OK: true}
	if !o.pushPendingToHost(roomID, res.Host, res.Requests) {
		result.Reason = "host_unavailable"
	}
	o.send(conn, result)
}

// RespondJoin consumes the request, refreshes the host's pending list and
// notifies the requester. Approval only authorizes a subsequent normal join;
// it never adds the requester to the room, so access is never granted from
// stale room state.
func (o *Orchestrator) RespondJoin(conn core.ConnID, p protocol.RespondJoin) {
	user, ok := o.Registry.User(conn)
	if !ok {
		return
	}
	room, ok := o.Registry.RoomOf(conn)
	if !ok {
		return
	}
	req, remaining, err := o.Rooms.Respond(room, user.ID, p.Request)
	switch {
	case errors.Is(err, app.ErrNotHost):
		o.send(conn, protocol.Unauthorized{Type: protocol.TypeUnauthorized, Action: protocol.TypeRespondJoin, Reason: "host_only"})
		return
	case err != nil:
		log.Warn().Err(err).Str("module", "orch.approval").Str("request", p.Request).Msg("respond dropped")
		return
	}

	o.send(conn, protocol.JoinRequestsUpdated{
		Type:     protocol.TypeJoinRequests,
		Room:     room,
		Requests: remaining,
		Count:    len(remaining),
	})

	// Presence lookup rather than the stored connection id, so a requester
	// that reconnected while waiting still hears the decision. Unreachable
	// requester: no-op beyond the removal above.
	target, ok := o.Registry.ConnOfUser(req.User)
	if !ok {
		log.Info().Str("module", "orch.approval").Str("user", string(req.User)).Msg("requester offline, decision not delivered")
		return
	}
	if p.Approved {
		o.send(target, protocol.JoinDecision{Type: protocol.TypeJoinApproved, Room: room})
	} else {
		o.send(target, protocol.JoinDecision{Type: protocol.TypeJoinDenied, Room: room, Reason: p.Reason})
	}
}

// RunRequestSweeper expires pending join requests older than ttl until ctx
// is done. Expiry behaves like a deny with reason "expired".
func (o *Orchestrator) RunRequestSweeper(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, exp := range o.Rooms.ExpireRequests(ttl) {
				log.Info().Str("module", "orch.approval").Str("request", exp.Request.ID).Str("room", string(exp.Request.Room)).Msg("join request expired")
				o.pushPendingToHost(exp.Request.Room, exp.Host, exp.Remaining)
				if target, ok := o.Registry.ConnOfUser(exp.Request.User); ok {
					o.send(target, protocol.JoinDecision{Type: protocol.TypeJoinDenied, Room: exp.Request.Room, Reason: "expired"})
				}
			}
		}
	}
}

// pushPendingToHost delivers the room's refreshed pending list to the host
// connection. Returns false when the host is unreachable.
func (o *Orchestrator) pushPendingToHost(room domain.RoomID, host domain.UserID, requests []protocol.JoinRequestView) bool {
	hostConn, ok := o.Registry.ConnOfUser(host)
	if !ok {
		return false
	}
	o.send(hostConn, protocol.JoinRequestsUpdated{
		Type:     protocol.TypeJoinRequests,
		Room:     room,
		Requests: requests,
		Count:    len(requests),
	})
	return true
}

func requestFailReason(err error) string {
	switch {
	case errors.Is(err, app.ErrNoRoom):
		return "room_not_found"
	case errors.Is(err, app.ErrNotApproval):
		return "not_approval_gated"
	case errors.Is(err, app.ErrDuplicateRequest):
		return "duplicate_request"
	default:
		return "request_failed"
	}
}
