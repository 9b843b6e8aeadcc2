package media

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"huddle/internal/core"
	"huddle/internal/domain"
)

// ProducerInfo is the read-only view of one registered producer.
type ProducerInfo struct {
	ID     string        `json:"id"`
	Room   domain.RoomID `json:"room"`
	Peer   core.ConnID   `json:"peer"`
	Kind   string        `json:"kind"`
	Paused bool          `json:"paused"`
}

type producerState struct {
	info      ProducerInfo
	transport string
	handle    ProducerHandle
}

type consumerState struct {
	id        string
	transport string
	producer  string
	handle    ConsumerHandle
}

type transportState struct {
	direction Direction
	producers map[string]struct{}
	consumers map[string]struct{}
}

// Coordinator is the bookkeeping side of the media engine. Every producer
// and consumer is tied to its owning transport, so closing a transport
// cascades over everything created on it.
type Coordinator struct {
	mu         sync.RWMutex
	transports map[string]*transportState
	producers  map[string]*producerState
	consumers  map[string]*consumerState

	broadcaster Broadcaster
}

func NewCoordinator(b Broadcaster) *Coordinator {
	return &Coordinator{
		transports:  make(map[string]*transportState),
		producers:   make(map[string]*producerState),
		consumers:   make(map[string]*consumerState),
		broadcaster: b,
	}
}

func (c *Coordinator) RegisterTransport(id string, dir Direction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.transports[id]; ok {
		return ErrDuplicateTransport
	}
	c.transports[id] = &transportState{
		direction: dir,
		producers: make(map[string]struct{}),
		consumers: make(map[string]struct{}),
	}
	log.Info().Str("module", "media").Str("transport", id).Str("direction", string(dir)).Msg("transport registered")
	return nil
}

// CloseTransport drops the transport and every producer and consumer created
// on it. Engine handles are closed best-effort; bookkeeping is removed
// unconditionally so nothing dangles.
func (c *Coordinator) CloseTransport(id string) error {
	c.mu.Lock()
	t, ok := c.transports[id]
	if !ok {
		c.mu.Unlock()
		return ErrNoTransport
	}
	delete(c.transports, id)
	var producers []*producerState
	var consumers []*consumerState
	for pid := range t.producers {
		if p, ok := c.producers[pid]; ok {
			producers = append(producers, p)
			delete(c.producers, pid)
		}
	}
	for cid := range t.consumers {
		if cs, ok := c.consumers[cid]; ok {
			consumers = append(consumers, cs)
			delete(c.consumers, cid)
		}
	}
	c.mu.Unlock()

	for _, p := range producers {
		if p.handle != nil {
			if err := p.handle.Close(); err != nil {
				log.Error().Err(err).Str("module", "media").Str("producer", p.info.ID).Msg("producer close")
			}
		}
	}
	for _, cs := range consumers {
		if cs.handle != nil {
			if err := cs.handle.Close(); err != nil {
				log.Error().Err(err).Str("module", "media").Str("consumer", cs.id).Msg("consumer close")
			}
		}
	}
	log.Info().Str("module", "media").Str("transport", id).Int("producers", len(producers)).Int("consumers", len(consumers)).Msg("transport closed")
	return nil
}

// AddProducer registers a producer the engine just created and announces it
// to the rest of the room through the broadcaster. A producer without an
// owning peer is rejected up front: it could never be attributed to a room
// member. No entry is created on rejection.
func (c *Coordinator) AddProducer(ctx context.Context, transportID, id string, room domain.RoomID, peer core.ConnID, kind string, handle ProducerHandle) error {
	if peer == "" {
		return ErrAnonymousProducer
	}
	c.mu.Lock()
	t, ok := c.transports[transportID]
	if !ok {
		c.mu.Unlock()
		return ErrNoTransport
	}
	c.producers[id] = &producerState{
		info:      ProducerInfo{ID: id, Room: room, Peer: peer, Kind: kind},
		transport: transportID,
		handle:    handle,
	}
	t.producers[id] = struct{}{}
	c.mu.Unlock()

	// The broadcaster records undeliverable notices itself; the producer
	// stays registered either way, so a later pull or replay still sees it.
	if err := c.broadcaster.NewMedia(ctx, Notice{Room: room, Producer: id, Peer: peer, Kind: kind}); err != nil {
		log.Error().Err(err).Str("module", "media").
			Str("room", string(room)).Str("producer", id).Str("peer", string(peer)).
			Msg("new-media broadcast failed")
	}
	return nil
}

func (c *Coordinator) AddConsumer(transportID, id, producerID string, handle ConsumerHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.transports[transportID]
	if !ok {
		return ErrNoTransport
	}
	c.consumers[id] = &consumerState{id: id, transport: transportID, producer: producerID, handle: handle}
	t.consumers[id] = struct{}{}
	return nil
}

func (c *Coordinator) PauseProducer(id string) error {
	return c.setPaused(id, true)
}

func (c *Coordinator) ResumeProducer(id string) error {
	return c.setPaused(id, false)
}

func (c *Coordinator) setPaused(id string, paused bool) error {
	c.mu.Lock()
	p, ok := c.producers[id]
	if !ok {
		c.mu.Unlock()
		return ErrNoProducer
	}
	p.info.Paused = paused
	handle := p.handle
	c.mu.Unlock()

	if handle == nil {
		return nil
	}
	if paused {
		return handle.Pause()
	}
	return handle.Resume()
}

func (c *Coordinator) CloseProducer(id string) error {
	c.mu.Lock()
	p, ok := c.producers[id]
	if !ok {
		c.mu.Unlock()
		return ErrNoProducer
	}
	delete(c.producers, id)
	if t, ok := c.transports[p.transport]; ok {
		delete(t.producers, id)
	}
	c.mu.Unlock()

	if p.handle != nil {
		return p.handle.Close()
	}
	return nil
}

// Producers lists the room's active producers, excluding those owned by
// exclude when it is non-empty. Used both by the late-join replay and by the
// pull endpoint.
func (c *Coordinator) Producers(room domain.RoomID, exclude core.ConnID) []ProducerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ProducerInfo, 0, len(c.producers))
	for _, p := range c.producers {
		if p.info.Room != room {
			continue
		}
		if exclude != "" && p.info.Peer == exclude {
			continue
		}
		out = append(out, p.info)
	}
	return out
}
