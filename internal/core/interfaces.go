package core

// Frame is a raw outbound payload (already encoded).
type Frame []byte

// ConnID identifies one live realtime connection.
// A user reconnecting gets a fresh ConnID.
type ConnID string

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
