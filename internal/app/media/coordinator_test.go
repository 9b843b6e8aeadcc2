package media

import (
	"context"
	"sync"
	"testing"
)

type fakeProducer struct {
	mu      sync.Mutex
	paused  int
	resumed int
	closed  int
}

func (f *fakeProducer) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused++
	return nil
}

func (f *fakeProducer) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed++
	return nil
}

func (f *fakeProducer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

type fakeConsumer struct {
	closed int
}

func (f *fakeConsumer) Close() error {
	f.closed++
	return nil
}

type captureBroadcaster struct {
	mu      sync.Mutex
	notices []Notice
}

func (b *captureBroadcaster) NewMedia(_ context.Context, n Notice) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, n)
	return nil
}

func TestAddProducerRejectsAnonymous(t *testing.T) {
	bc := &captureBroadcaster{}
	c := NewCoordinator(bc)
	c.RegisterTransport("t1", DirectionSend)

	err := c.AddProducer(context.Background(), "t1", "p1", "r1", "", "audio", &fakeProducer{})
	if err != ErrAnonymousProducer {
		t.Fatalf("anonymous producer: err = %v", err)
	}
	if len(c.Producers("r1", "")) != 0 {
		t.Fatal("rejected producer left an entry behind")
	}
	if len(bc.notices) != 0 {
		t.Fatal("rejected producer was announced")
	}
}

func TestAddProducerAnnounces(t *testing.T) {
	bc := &captureBroadcaster{}
	c := NewCoordinator(bc)
	c.RegisterTransport("t1", DirectionSend)

	if err := c.AddProducer(context.Background(), "missing", "p1", "r1", "peer1", "audio", nil); err != ErrNoTransport {
		t.Fatalf("unknown transport: err = %v", err)
	}
	if err := c.AddProducer(context.Background(), "t1", "p1", "r1", "peer1", "audio", &fakeProducer{}); err != nil {
		t.Fatal(err)
	}
	if len(bc.notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(bc.notices))
	}
	n := bc.notices[0]
	if n.Room != "r1" || n.Producer != "p1" || n.Peer != "peer1" || n.Kind != "audio" {
		t.Fatalf("notice: %+v", n)
	}
}

func TestCloseTransportCascades(t *testing.T) {
	c := NewCoordinator(&captureBroadcaster{})
	c.RegisterTransport("t1", DirectionSend)
	c.RegisterTransport("t2", DirectionRecv)

	p1 := &fakeProducer{}
	p2 := &fakeProducer{}
	other := &fakeProducer{}
	cons := &fakeConsumer{}

	c.AddProducer(context.Background(), "t1", "p1", "r1", "peer1", "audio", p1)
	c.AddProducer(context.Background(), "t1", "p2", "r1", "peer1", "video", p2)
	c.AddProducer(context.Background(), "t2", "p3", "r1", "peer2", "audio", other)
	c.AddConsumer("t1", "c1", "p3", cons)

	if err := c.CloseTransport("t1"); err != nil {
		t.Fatal(err)
	}
	if p1.closed != 1 || p2.closed != 1 || cons.closed != 1 {
		t.Fatalf("handles closed: p1=%d p2=%d c1=%d", p1.closed, p2.closed, cons.closed)
	}
	if other.closed != 0 {
		t.Fatal("cascade crossed transports")
	}

	left := c.Producers("r1", "")
	if len(left) != 1 || left[0].ID != "p3" {
		t.Fatalf("producers after cascade: %+v", left)
	}
	if err := c.CloseTransport("t1"); err != ErrNoTransport {
		t.Fatalf("double close: err = %v", err)
	}
}

func TestDuplicateTransportRejected(t *testing.T) {
	c := NewCoordinator(&captureBroadcaster{})
	c.RegisterTransport("t1", DirectionSend)
	if err := c.RegisterTransport("t1", DirectionRecv); err != ErrDuplicateTransport {
		t.Fatalf("duplicate transport: err = %v", err)
	}
}

func TestPauseResumeClose(t *testing.T) {
	c := NewCoordinator(&captureBroadcaster{})
	c.RegisterTransport("t1", DirectionSend)
	h := &fakeProducer{}
	c.AddProducer(context.Background(), "t1", "p1", "r1", "peer1", "audio", h)

	if err := c.PauseProducer("p1"); err != nil {
		t.Fatal(err)
	}
	if got := c.Producers("r1", ""); !got[0].Paused {
		t.Fatal("pause not recorded")
	}
	if err := c.ResumeProducer("p1"); err != nil {
		t.Fatal(err)
	}
	if got := c.Producers("r1", ""); got[0].Paused {
		t.Fatal("resume not recorded")
	}
	if h.paused != 1 || h.resumed != 1 {
		t.Fatalf("handle calls: paused=%d resumed=%d", h.paused, h.resumed)
	}

	if err := c.CloseProducer("p1"); err != nil {
		t.Fatal(err)
	}
	if h.closed != 1 {
		t.Fatal("handle not closed")
	}
	if err := c.PauseProducer("p1"); err != ErrNoProducer {
		t.Fatalf("pause after close: err = %v", err)
	}
}

func TestProducersFiltersRoomAndPeer(t *testing.T) {
	c := NewCoordinator(&captureBroadcaster{})
	c.RegisterTransport("t1", DirectionSend)
	c.AddProducer(context.Background(), "t1", "p1", "r1", "peer1", "audio", nil)
	c.AddProducer(context.Background(), "t1", "p2", "r1", "peer2", "audio", nil)
	c.AddProducer(context.Background(), "t1", "p3", "r2", "peer1", "audio", nil)

	if got := c.Producers("r1", ""); len(got) != 2 {
		t.Fatalf("room filter: %+v", got)
	}
	got := c.Producers("r1", "peer1")
	if len(got) != 1 || got[0].ID != "p2" {
		t.Fatalf("peer exclusion: %+v", got)
	}
}
