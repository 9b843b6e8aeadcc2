package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"huddle/internal/core"
	"huddle/internal/domain"
	"huddle/internal/protocol"
)

// Notice is one "new media available" announcement.
type Notice struct {
	Room     domain.RoomID
	Producer string
	Peer     core.ConnID
	Kind     string
}

// Broadcaster delivers new-media notices to the room-registry process. When
// the media engine and the room registry run in the same process this is a
// direct call; when they are split it is an HTTP hop that must not fail
// silently.
type Broadcaster interface {
	NewMedia(ctx context.Context, n Notice) error
}

// LocalBroadcaster delivers in-process, for co-located deployments and
// tests. Emit returns the number of connections notified.
type LocalBroadcaster struct {
	Emit func(n Notice) int
}

func (b *LocalBroadcaster) NewMedia(_ context.Context, n Notice) error {
	b.Emit(n)
	return nil
}

// FailedNotice is a notice that exhausted its retries. It stays queued for
// replay instead of being dropped: a lost notice means some room members
// never learn about a producer.
type FailedNotice struct {
	Notice
	Err string
	At  time.Time
}

// HTTPBroadcaster posts notices to the room-registry process with bounded
// retry and a per-attempt timeout. Exhausted notices are recorded, logged
// with full context and kept for Replay; there is no silent local fallback.
type HTTPBroadcaster struct {
	url     string
	client  *http.Client
	retries int
	backoff time.Duration

	mu     sync.Mutex
	failed []FailedNotice
}

func NewHTTPBroadcaster(url string, timeout time.Duration, retries int) *HTTPBroadcaster {
	if retries < 1 {
		retries = 1
	}
	return &HTTPBroadcaster{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		backoff: 200 * time.Millisecond,
	}
}

func (b *HTTPBroadcaster) NewMedia(ctx context.Context, n Notice) error {
	var lastErr error
	for attempt := 1; attempt <= b.retries; attempt++ {
		lastErr = b.post(ctx, n)
		if lastErr == nil {
			return nil
		}
		if attempt == b.retries {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = b.retries
		case <-time.After(b.backoff * time.Duration(attempt)):
		}
	}

	b.mu.Lock()
	b.failed = append(b.failed, FailedNotice{Notice: n, Err: lastErr.Error(), At: time.Now()})
	queued := len(b.failed)
	b.mu.Unlock()
	log.Error().Err(lastErr).Str("module", "media.broadcast").
		Str("room", string(n.Room)).Str("producer", n.Producer).Str("peer", string(n.Peer)).
		Int("queued", queued).Msg("new-media notice undeliverable, queued for replay")
	return fmt.Errorf("broadcast new-media: %w", lastErr)
}

func (b *HTTPBroadcaster) post(ctx context.Context, n Notice) error {
	body, err := json.Marshal(protocol.Broadcast{
		Room:     string(n.Room),
		Producer: n.Producer,
		Peer:     string(n.Peer),
		Kind:     n.Kind,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("broadcast endpoint returned %s", resp.Status)
	}
	return nil
}

// Failed returns a copy of the replay queue.
func (b *HTTPBroadcaster) Failed() []FailedNotice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]FailedNotice, len(b.failed))
	copy(out, b.failed)
	return out
}

// Replay retries every queued notice once, requeueing the ones that still
// fail. Returns how many were delivered.
func (b *HTTPBroadcaster) Replay(ctx context.Context) int {
	b.mu.Lock()
	pending := b.failed
	b.failed = nil
	b.mu.Unlock()

	delivered := 0
	var still []FailedNotice
	for _, f := range pending {
		if err := b.post(ctx, f.Notice); err != nil {
			f.Err = err.Error()
			still = append(still, f)
			continue
		}
		delivered++
	}
	if len(still) > 0 {
		b.mu.Lock()
		b.failed = append(still, b.failed...)
		b.mu.Unlock()
	}
	return delivered
}
