package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"huddle/internal/core"
	"huddle/internal/protocol"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sid core.ConnID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		ctl.limiter.Forget(sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleEvent(sid, c, data)
		}
	}
}

func (ctl *Controller) handleEvent(sid core.ConnID, c *wsConn, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Type {
	case protocol.TypeJoinRoom:
		if !ctl.limiter.Allow(sid) {
			ctl.sendError(c, "rate_limited")
			return
		}
		var p protocol.JoinRoom
		if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
			ctl.sendError(c, "bad_payload")
			return
		}
		ctl.Orch.JoinRoom(sid, p)
	case protocol.TypeLeaveRoom:
		ctl.Orch.LeaveRoom(sid)
	case protocol.TypeOffer:
		var p protocol.AnnounceOffer
		if err := json.Unmarshal(data, &p); err != nil || p.SDP.SDP == "" {
			ctl.sendError(c, "bad_payload")
			return
		}
		ctl.Orch.AnnounceOffer(sid, p)
	case protocol.TypeAnswer:
		var p protocol.AnnounceAnswer
		if err := json.Unmarshal(data, &p); err != nil || p.Offerer == "" {
			ctl.sendError(c, "bad_payload")
			return
		}
		ctl.Orch.AnnounceAnswer(sid, p)
	case protocol.TypeICE:
		var p protocol.RelayICE
		if err := json.Unmarshal(data, &p); err != nil || p.Offerer == "" {
			ctl.sendError(c, "bad_payload")
			return
		}
		ctl.Orch.RelayICE(sid, p)
	case protocol.TypeRequestJoin:
		if !ctl.limiter.Allow(sid) {
			ctl.sendError(c, "rate_limited")
			return
		}
		var p protocol.RequestJoin
		if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
			ctl.sendError(c, "bad_payload")
			return
		}
		ctl.Orch.RequestJoin(sid, p)
	case protocol.TypeRespondJoin:
		var p protocol.RespondJoin
		if err := json.Unmarshal(data, &p); err != nil || p.Request == "" {
			ctl.sendError(c, "bad_payload")
			return
		}
		ctl.Orch.RespondJoin(sid, p)
	case protocol.TypeToggleFlag:
		var p protocol.ToggleFlag
		if err := json.Unmarshal(data, &p); err != nil || p.Flag == "" {
			ctl.sendError(c, "bad_payload")
			return
		}
		ctl.Orch.ToggleFlag(sid, p)
	case protocol.TypeRecording:
		var p protocol.Recording
		if err := json.Unmarshal(data, &p); err != nil {
			ctl.sendError(c, "bad_payload")
			return
		}
		ctl.Orch.SetRecording(sid, p)
	case protocol.TypePing:
		ctl.sendJSON(c, protocol.Pong{Type: protocol.TypePong})
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *Controller) sendError(c *wsConn, reason string) {
	ctl.sendJSON(c, protocol.ErrorEvent{Type: protocol.TypeError, Error: reason})
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
