package orch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"huddle/internal/app"
	"huddle/internal/app/media"
	"huddle/internal/core"
	"huddle/internal/domain"
	"huddle/internal/protocol"
)

// fakeConn captures every outbound frame so tests can assert on the exact
// event stream a client would see.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {}

func (f *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var m map[string]any
		if err := json.Unmarshal(fr, &m); err != nil {
			t.Fatalf("bad outbound frame %q: %v", fr, err)
		}
		out = append(out, m)
	}
	return out
}

func (f *fakeConn) ofType(t *testing.T, tag string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ev := range f.events(t) {
		if ev["type"] == tag {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeConn) lastOfType(t *testing.T, tag string) map[string]any {
	t.Helper()
	evs := f.ofType(t, tag)
	if len(evs) == 0 {
		t.Fatalf("no %q event captured", tag)
	}
	return evs[len(evs)-1]
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	f.frames = nil
	f.mu.Unlock()
}

func newTestOrch() *Orchestrator {
	o := &Orchestrator{
		Registry:    app.NewRegistry(),
		Rooms:       app.NewRooms(),
		SettleDelay: 5 * time.Millisecond,
	}
	o.Media = media.NewCoordinator(o.LocalBroadcaster())
	return o
}

func connect(o *Orchestrator, conn, uid, name string) *fakeConn {
	fc := &fakeConn{}
	ctx, cancel := context.WithCancel(context.Background())
	o.Connect(core.ConnID(conn), &domain.User{ID: domain.UserID(uid), Username: name}, fc, ctx, cancel)
	return fc
}

func offerSDP(s string) webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: s}
}

func TestJoinRoomEmitsRosterOffersSettings(t *testing.T) {
	o := newTestOrch()
	observer := connect(o, "obs", "uobs", "Obs")
	a := connect(o, "a", "ua", "A")

	o.JoinRoom("a", protocol.JoinRoom{Room: "r1", Name: "standup"})

	if ev := observer.lastOfType(t, protocol.TypeRoomOpened); ev["room"] != "r1" || ev["name"] != "standup" {
		t.Fatalf("room_opened: %v", ev)
	}
	roster := a.lastOfType(t, protocol.TypeRoomRoster)
	if roster["count"].(float64) != 1 {
		t.Fatalf("roster: %v", roster)
	}
	if ev := a.lastOfType(t, protocol.TypeOffersAwaiting); ev["room"] != "r1" {
		t.Fatalf("offers_awaiting: %v", ev)
	}
	settings := a.lastOfType(t, protocol.TypeRoomSettings)
	if settings["host"] != "ua" || settings["is_host"] != true {
		t.Fatalf("room_settings: %v", settings)
	}

	b := connect(o, "b", "ub", "B")
	o.JoinRoom("b", protocol.JoinRoom{Room: "r1"})
	if b.lastOfType(t, protocol.TypeRoomSettings)["is_host"] != false {
		t.Fatal("second joiner marked host")
	}
	if a.lastOfType(t, protocol.TypeRoomRoster)["count"].(float64) != 2 {
		t.Fatal("existing member missed roster update")
	}
	if len(b.ofType(t, protocol.TypeRoomOpened)) != 0 {
		t.Fatal("room_opened emitted for an existing room")
	}
}

func TestJoinRejectsBadVisibility(t *testing.T) {
	o := newTestOrch()
	a := connect(o, "a", "ua", "A")

	o.JoinRoom("a", protocol.JoinRoom{Room: "r1", Visibility: "secret"})
	if ev := a.lastOfType(t, protocol.TypeError); ev["error"] != "bad_visibility" {
		t.Fatalf("error event: %v", ev)
	}
	if o.Rooms.Exists("r1") {
		t.Fatal("room created despite rejected join")
	}
}

func TestJoinIsExclusiveAcrossRooms(t *testing.T) {
	o := newTestOrch()
	a := connect(o, "a", "ua", "A")
	b := connect(o, "b", "ub", "B")
	o.JoinRoom("a", protocol.JoinRoom{Room: "r1"})
	o.JoinRoom("b", protocol.JoinRoom{Room: "r1"})
	a.reset()
	b.reset()

	o.JoinRoom("b", protocol.JoinRoom{Room: "r2"})

	// b left r1 implicitly; a sees the shrunken roster.
	if a.lastOfType(t, protocol.TypeRoomRoster)["count"].(float64) != 1 {
		t.Fatal("old room roster not refreshed after implicit leave")
	}
	if room, _ := o.Registry.RoomOf("b"); room != "r2" {
		t.Fatalf("b bound to %q", room)
	}
	if b.lastOfType(t, protocol.TypeRoomRoster)["room"] != "r2" {
		t.Fatal("b missing new room roster")
	}
}

func TestRejectedJoinKeepsMembership(t *testing.T) {
	o := newTestOrch()
	a := connect(o, "a", "ua", "A")
	b := connect(o, "b", "ub", "B")
	o.JoinRoom("a", protocol.JoinRoom{Room: "r1"})
	o.JoinRoom("b", protocol.JoinRoom{Room: "r1"})
	a.reset()
	b.reset()

	o.JoinRoom("b", protocol.JoinRoom{Room: "r2", Visibility: "bogus"})

	if ev := b.lastOfType(t, protocol.TypeError); ev["error"] != "bad_visibility" {
		t.Fatalf("error event: %v", ev)
	}
	if room, ok := o.Registry.RoomOf("b"); !ok || room != "r1" {
		t.Fatalf("caller evicted by rejected join: room=%q ok=%v", room, ok)
	}
	_, roster, _, ok := o.Rooms.Snapshot("r1")
	if !ok || len(roster) != 2 {
		t.Fatalf("r1 roster = %d, want 2", len(roster))
	}
	if len(a.events(t)) != 0 {
		t.Fatal("rejected join broadcast to the old room")
	}
	if o.Rooms.Exists("r2") {
		t.Fatal("room created by rejected join")
	}
}

func TestLastLeaveClosesRoomGlobally(t *testing.T) {
	o := newTestOrch()
	observer := connect(o, "obs", "uobs", "Obs")
	a := connect(o, "a", "ua", "A")
	o.JoinRoom("a", protocol.JoinRoom{Room: "r1"})

	o.LeaveRoom("a")

	if ev := observer.lastOfType(t, protocol.TypeRoomClosed); ev["room"] != "r1" {
		t.Fatalf("room_closed: %v", ev)
	}
	if len(a.ofType(t, protocol.TypeLeft)) != 1 {
		t.Fatal("leaver missed left ack")
	}
	if o.Rooms.Exists("r1") {
		t.Fatal("room survived last leave")
	}
}

func TestHostDepartureEventFanout(t *testing.T) {
	o := newTestOrch()
	a := connect(o, "a", "ua", "A")
	b := connect(o, "b", "ub", "B")
	c := connect(o, "c", "uc", "C")
	o.JoinRoom("a", protocol.JoinRoom{Room: "r1"})
	o.JoinRoom("b", protocol.JoinRoom{Room: "r1"})
	o.JoinRoom("c", protocol.JoinRoom{Room: "r1"})
	b.reset()
	c.reset()

	o.Disconnect("a")

	if len(b.ofType(t, protocol.TypeYouAreHost)) != 1 {
		t.Fatal("successor missed you_are_host")
	}
	if len(c.ofType(t, protocol.TypeYouAreHost)) != 0 {
		t.Fatal("you_are_host leaked to a non-successor")
	}
	if b.lastOfType(t, protocol.TypeSettingsUpdated)["is_host"] != true {
		t.Fatal("successor settings not host-tagged")
	}
	if c.lastOfType(t, protocol.TypeSettingsUpdated)["is_host"] != false {
		t.Fatal("bystander settings host-tagged")
	}
	for _, fc := range []*fakeConn{b, c} {
		hc := fc.lastOfType(t, protocol.TypeHostChanged)
		if hc["old_host"] != "ua" || hc["new_host"] != "ub" {
			t.Fatalf("host_changed: %v", hc)
		}
	}
	_ = a
}

func TestAnswerAckCarriesBufferedCandidatesInOrder(t *testing.T) {
	o := newTestOrch()
	x := connect(o, "x", "ux", "X")
	y := connect(o, "y", "uy", "Y")
	o.JoinRoom("x", protocol.JoinRoom{Room: "r1"})
	o.JoinRoom("y", protocol.JoinRoom{Room: "r1"})
	y.reset()

	o.AnnounceOffer("x", protocol.AnnounceOffer{SDP: offerSDP("o")})
	if len(y.ofType(t, protocol.TypeNewOfferAwaiting)) != 1 {
		t.Fatal("peer missed new_offer_awaiting")
	}
	if len(x.ofType(t, protocol.TypeNewOfferAwaiting)) != 0 {
		t.Fatal("offer echoed to its announcer")
	}

	// Offerer trickles candidates before any answer exists.
	for _, c := range []string{"c1", "c2"} {
		o.RelayICE("x", protocol.RelayICE{Offerer: "x", IsOfferer: true, Candidate: webrtc.ICECandidateInit{Candidate: c}})
	}
	if len(y.ofType(t, protocol.TypeICECandidate)) != 0 {
		t.Fatal("candidates forwarded before the answer")
	}

	o.AnnounceAnswer("y", protocol.AnnounceAnswer{Offerer: "x", SDP: offerSDP("a")})

	ack := y.lastOfType(t, protocol.TypeAnswerAck)
	cands := ack["candidates"].([]any)
	if len(cands) != 2 {
		t.Fatalf("ack candidates = %d, want 2", len(cands))
	}
	for i, want := range []string{"c1", "c2"} {
		if cands[i].(map[string]any)["candidate"] != want {
			t.Fatalf("ack candidate[%d] = %v, want %s", i, cands[i], want)
		}
	}
	if x.lastOfType(t, protocol.TypeAnswerReady)["offer"].(map[string]any)["answerer"] != "y" {
		t.Fatal("offerer missed answer_ready")
	}

	// Post-answer candidates relay directly, both directions.
	o.RelayICE("x", protocol.RelayICE{Offerer: "x", IsOfferer: true, Candidate: webrtc.ICECandidateInit{Candidate: "c3"}})
	if y.lastOfType(t, protocol.TypeICECandidate)["candidate"].(map[string]any)["candidate"] != "c3" {
		t.Fatal("late offerer candidate not forwarded")
	}
	o.RelayICE("y", protocol.RelayICE{Offerer: "x", IsOfferer: false, Candidate: webrtc.ICECandidateInit{Candidate: "a1"}})
	if x.lastOfType(t, protocol.TypeICECandidate)["candidate"].(map[string]any)["candidate"] != "a1" {
		t.Fatal("answerer candidate not forwarded")
	}
}

func TestRelayICERejectsForgedOwner(t *testing.T) {
	o := newTestOrch()
	x := connect(o, "x", "ux", "X")
	y := connect(o, "y", "uy", "Y")
	o.JoinRoom("x", protocol.JoinRoom{Room: "r1"})
	o.JoinRoom("y", protocol.JoinRoom{Room: "r1"})
	o.AnnounceOffer("x", protocol.AnnounceOffer{SDP: offerSDP("o")})
	o.AnnounceAnswer("y", protocol.AnnounceAnswer{Offerer: "x", SDP: offerSDP("a")})
	x.reset()
	y.reset()

	// y claims to be the offerer of x's offer.
	o.RelayICE("y", protocol.RelayICE{Offerer: "x", IsOfferer: true, Candidate: webrtc.ICECandidateInit{Candidate: "forged"}})
	if len(x.ofType(t, protocol.TypeICECandidate))+len(y.ofType(t, protocol.TypeICECandidate)) != 0 {
		t.Fatal("forged candidate was relayed")
	}
}

func TestApprovalFlowEndToEnd(t *testing.T) {
	o := newTestOrch()
	h := connect(o, "h", "uh", "Host")
	o.JoinRoom("h", protocol.JoinRoom{Room: "gated", Visibility: "approval"})
	guest := connect(o, "g", "ug", "Guest")

	o.RequestJoin("g", protocol.RequestJoin{Room: "gated"})

	res := guest.lastOfType(t, protocol.TypeJoinResult)
	if res["ok"] != true {
		t.Fatalf("join_request_result: %v", res)
	}
	pending := h.lastOfType(t, protocol.TypeJoinRequests)
	if pending["count"].(float64) != 1 {
		t.Fatalf("host pending list: %v", pending)
	}
	reqID := pending["requests"].([]any)[0].(map[string]any)["id"].(string)

	// Duplicate while pending is refused.
	o.RequestJoin("g", protocol.RequestJoin{Room: "gated"})
	if guest.lastOfType(t, protocol.TypeJoinResult)["reason"] != "duplicate_request" {
		t.Fatal("duplicate request not refused")
	}

	o.RespondJoin("h", protocol.RespondJoin{Request: reqID, Approved: true})

	if h.lastOfType(t, protocol.TypeJoinRequests)["count"].(float64) != 0 {
		t.Fatal("host pending list not drained")
	}
	if guest.lastOfType(t, protocol.TypeJoinApproved)["room"] != "gated" {
		t.Fatal("guest missed join_approved")
	}

	// Approval only authorizes the join; the guest enters with a normal join.
	o.JoinRoom("g", protocol.JoinRoom{Room: "gated"})
	if guest.lastOfType(t, protocol.TypeRoomRoster)["count"].(float64) != 2 {
		t.Fatal("approved guest not admitted")
	}
}

func TestRespondJoinDeniedAndHostOnly(t *testing.T) {
	o := newTestOrch()
	h := connect(o, "h", "uh", "Host")
	o.JoinRoom("h", protocol.JoinRoom{Room: "gated", Visibility: "approval"})
	mallory := connect(o, "m", "um", "M")
	o.JoinRoom("m", protocol.JoinRoom{Room: "gated"})
	guest := connect(o, "g", "ug", "Guest")

	o.RequestJoin("g", protocol.RequestJoin{Room: "gated"})
	reqID := h.lastOfType(t, protocol.TypeJoinRequests)["requests"].([]any)[0].(map[string]any)["id"].(string)

	o.RespondJoin("m", protocol.RespondJoin{Request: reqID, Approved: true})
	unauth := mallory.lastOfType(t, protocol.TypeUnauthorized)
	if unauth["reason"] != "host_only" {
		t.Fatalf("unauthorized: %v", unauth)
	}
	if len(guest.ofType(t, protocol.TypeJoinApproved)) != 0 {
		t.Fatal("non-host approval reached the requester")
	}

	o.RespondJoin("h", protocol.RespondJoin{Request: reqID, Approved: false, Reason: "full"})
	denied := guest.lastOfType(t, protocol.TypeJoinDenied)
	if denied["room"] != "gated" || denied["reason"] != "full" {
		t.Fatalf("join_denied: %v", denied)
	}
}

func TestRequestFailReasons(t *testing.T) {
	o := newTestOrch()
	h := connect(o, "h", "uh", "Host")
	o.JoinRoom("h", protocol.JoinRoom{Room: "open"})
	guest := connect(o, "g", "ug", "Guest")

	o.RequestJoin("g", protocol.RequestJoin{Room: "nowhere"})
	if guest.lastOfType(t, protocol.TypeJoinResult)["reason"] != "room_not_found" {
		t.Fatal("missing room reason")
	}
	o.RequestJoin("g", protocol.RequestJoin{Room: "open"})
	if guest.lastOfType(t, protocol.TypeJoinResult)["reason"] != "not_approval_gated" {
		t.Fatal("open room reason")
	}
	_ = h
}

func TestDisconnectPurgesPendingRequests(t *testing.T) {
	o := newTestOrch()
	h := connect(o, "h", "uh", "Host")
	o.JoinRoom("h", protocol.JoinRoom{Room: "gated", Visibility: "approval"})
	connect(o, "g", "ug", "Guest")

	o.RequestJoin("g", protocol.RequestJoin{Room: "gated"})
	if h.lastOfType(t, protocol.TypeJoinRequests)["count"].(float64) != 1 {
		t.Fatal("request not filed")
	}

	o.Disconnect("g")
	if h.lastOfType(t, protocol.TypeJoinRequests)["count"].(float64) != 0 {
		t.Fatal("host not told about purged request")
	}
}

func TestToggleFlagAuthorityAndFanout(t *testing.T) {
	o := newTestOrch()
	a := connect(o, "a", "ua", "A")
	b := connect(o, "b", "ub", "B")
	o.JoinRoom("a", protocol.JoinRoom{Room: "r1"})
	o.JoinRoom("b", protocol.JoinRoom{Room: "r1"})
	a.reset()
	b.reset()

	o.ToggleFlag("b", protocol.ToggleFlag{Flag: "avatars", Value: true})
	if b.lastOfType(t, protocol.TypeUnauthorized)["action"] != protocol.TypeToggleFlag {
		t.Fatal("non-host toggle not refused")
	}
	if len(a.ofType(t, protocol.TypeSettingsUpdated)) != 0 {
		t.Fatal("rejected toggle broadcast settings")
	}

	o.ToggleFlag("a", protocol.ToggleFlag{Flag: "avatars", Value: true})
	for _, fc := range []*fakeConn{a, b} {
		ev := fc.lastOfType(t, protocol.TypeSettingsUpdated)
		if ev["flags"].(map[string]any)["avatars"] != true {
			t.Fatalf("settings_updated: %v", ev)
		}
	}
}

func TestRecordingNoticeFanout(t *testing.T) {
	o := newTestOrch()
	a := connect(o, "a", "ua", "A")
	b := connect(o, "b", "ub", "B")
	o.JoinRoom("a", protocol.JoinRoom{Room: "r1"})
	o.JoinRoom("b", protocol.JoinRoom{Room: "r1"})
	a.reset()

	// Any participant may announce recording, not just the host.
	o.SetRecording("b", protocol.Recording{Started: true})
	for _, fc := range []*fakeConn{a, b} {
		ev := fc.lastOfType(t, protocol.TypeSettingsUpdated)
		if ev["recording"] != true || ev["recorded_by"] != "ub" {
			t.Fatalf("settings_updated: %v", ev)
		}
	}
}

func TestEmitNewMediaSkipsProducingPeer(t *testing.T) {
	o := newTestOrch()
	a := connect(o, "a", "ua", "A")
	b := connect(o, "b", "ub", "B")
	o.JoinRoom("a", protocol.JoinRoom{Room: "r1"})
	o.JoinRoom("b", protocol.JoinRoom{Room: "r1"})
	a.reset()
	b.reset()

	if n := o.EmitNewMedia("r1", "p1", "a", "audio"); n != 1 {
		t.Fatalf("notified = %d, want 1", n)
	}
	if len(a.ofType(t, protocol.TypeNewMedia)) != 0 {
		t.Fatal("producer's own peer notified")
	}
	ev := b.lastOfType(t, protocol.TypeNewMedia)
	if ev["producer"] != "p1" || ev["peer"] != "a" {
		t.Fatalf("new_media: %v", ev)
	}

	if n := o.EmitNewMedia("nowhere", "p1", "a", "audio"); n != 0 {
		t.Fatal("unknown room notified someone")
	}
}

func TestEmitNewMediaCountsOnlyDelivered(t *testing.T) {
	o := newTestOrch()
	a := connect(o, "a", "ua", "A")
	b := connect(o, "b", "ub", "B")
	o.JoinRoom("a", protocol.JoinRoom{Room: "r1"})
	o.JoinRoom("b", protocol.JoinRoom{Room: "r1"})
	// Roster entry whose connection has no bound signal.
	o.Rooms.Join("r1", app.ParticipantRef{Conn: "ghost", User: "ug", Username: "G"}, nil)
	a.reset()
	b.reset()

	if n := o.EmitNewMedia("r1", "p1", "a", "audio"); n != 1 {
		t.Fatalf("notified = %d, want only the reachable member", n)
	}
	if len(b.ofType(t, protocol.TypeNewMedia)) != 1 {
		t.Fatal("reachable member missed new_media")
	}
}

func TestLateJoinerGetsProducerReplay(t *testing.T) {
	o := newTestOrch()
	a := connect(o, "a", "ua", "A")
	o.JoinRoom("a", protocol.JoinRoom{Room: "r1"})

	o.Media.RegisterTransport("t1", media.DirectionSend)
	if err := o.Media.AddProducer(context.Background(), "t1", "p1", "r1", "a", "video", nil); err != nil {
		t.Fatal(err)
	}

	b := connect(o, "b", "ub", "B")
	o.JoinRoom("b", protocol.JoinRoom{Room: "r1"})

	deadline := time.After(time.Second)
	for len(b.ofType(t, protocol.TypeNewMedia)) == 0 {
		select {
		case <-deadline:
			t.Fatal("replay never arrived")
		case <-time.After(2 * time.Millisecond):
		}
	}
	ev := b.lastOfType(t, protocol.TypeNewMedia)
	if ev["producer"] != "p1" || ev["peer"] != "a" || ev["kind"] != "video" {
		t.Fatalf("replayed new_media: %v", ev)
	}
	// The producing peer never hears its own producer replayed.
	time.Sleep(3 * o.SettleDelay)
	if len(a.ofType(t, protocol.TypeNewMedia)) != 0 {
		t.Fatal("replay leaked to the producing peer")
	}
}

func TestRejoinSameRoomSkipsReplay(t *testing.T) {
	o := newTestOrch()
	connect(o, "a", "ua", "A")
	o.JoinRoom("a", protocol.JoinRoom{Room: "r1"})
	o.Media.RegisterTransport("t1", media.DirectionSend)
	o.Media.AddProducer(context.Background(), "t1", "p1", "r1", "a", "audio", nil)

	b := connect(o, "b", "ub", "B")
	o.JoinRoom("b", protocol.JoinRoom{Room: "r1"})
	deadline := time.After(time.Second)
	for len(b.ofType(t, protocol.TypeNewMedia)) == 0 {
		select {
		case <-deadline:
			t.Fatal("first replay never arrived")
		case <-time.After(2 * time.Millisecond):
		}
	}

	// A redundant join for the same room must not replay again.
	o.JoinRoom("b", protocol.JoinRoom{Room: "r1"})
	time.Sleep(4 * o.SettleDelay)
	if got := len(b.ofType(t, protocol.TypeNewMedia)); got != 1 {
		t.Fatalf("new_media after rejoin = %d, want 1", got)
	}
}

func TestReplayCancelledByDisconnect(t *testing.T) {
	o := newTestOrch()
	a := connect(o, "a", "ua", "A")
	o.JoinRoom("a", protocol.JoinRoom{Room: "r1"})
	o.Media.RegisterTransport("t1", media.DirectionSend)
	o.Media.AddProducer(context.Background(), "t1", "p1", "r1", "a", "audio", nil)

	b := connect(o, "b", "ub", "B")
	o.JoinRoom("b", protocol.JoinRoom{Room: "r1"})
	o.Disconnect("b")

	time.Sleep(4 * o.SettleDelay)
	if len(b.ofType(t, protocol.TypeNewMedia)) != 0 {
		t.Fatal("replay fired for a disconnected joiner")
	}
	_ = a
}

func TestRequestSweeperExpiresAsDeny(t *testing.T) {
	o := newTestOrch()
	h := connect(o, "h", "uh", "Host")
	o.JoinRoom("h", protocol.JoinRoom{Room: "gated", Visibility: "approval"})
	guest := connect(o, "g", "ug", "Guest")
	o.RequestJoin("g", protocol.RequestJoin{Room: "gated"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.RunRequestSweeper(ctx, time.Millisecond, 5*time.Millisecond)

	deadline := time.After(time.Second)
	for len(guest.ofType(t, protocol.TypeJoinDenied)) == 0 {
		select {
		case <-deadline:
			t.Fatal("expiry never delivered")
		case <-time.After(2 * time.Millisecond):
		}
	}
	if guest.lastOfType(t, protocol.TypeJoinDenied)["reason"] != "expired" {
		t.Fatal("expiry reason missing")
	}
	if h.lastOfType(t, protocol.TypeJoinRequests)["count"].(float64) != 0 {
		t.Fatal("host pending list not refreshed on expiry")
	}
}
