// Package media keeps per-call transport/producer/consumer bookkeeping in
// sync with an external media-routing engine and propagates new-media events
// to call members. It never touches media bytes.
package media

import "errors"

var (
	ErrAnonymousProducer  = errors.New("producer has no owning peer")
	ErrNoTransport        = errors.New("transport not found")
	ErrDuplicateTransport = errors.New("transport already registered")
	ErrNoProducer         = errors.New("producer not found")
)

// Direction of a transport from the peer's point of view.
type Direction string

const (
	DirectionSend Direction = "send"
	DirectionRecv Direction = "recv"
)

// ProducerHandle is the engine-side handle for one producer. The engine owns
// the media path; the coordinator only forwards lifecycle calls.
type ProducerHandle interface {
	Pause() error
	Resume() error
	Close() error
}

// ConsumerHandle is the engine-side handle for one consumer.
type ConsumerHandle interface {
	Close() error
}
