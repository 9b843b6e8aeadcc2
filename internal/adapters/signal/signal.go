package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"huddle/internal/app/orch"
	"huddle/internal/core"
	"huddle/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// ContextUserKey is where the auth middleware parks the resolved identity.
const ContextUserKey = "auth_user"

type Controller struct {
	Orch      *orch.Orchestrator
	ReadLimit int64
	limiter   *EventRateLimiter
}

func NewController(o *orch.Orchestrator, readLimit int64, limiter *EventRateLimiter) *Controller {
	return &Controller{Orch: o, ReadLimit: readLimit, limiter: limiter}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades an authenticated request to a websocket and starts
// the pumps. The identity was verified before the upgrade; an unauthenticated
// request never reaches this handler.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	user, ok := v.(*domain.User)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	sid := core.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(sid)).Str("user", string(user.ID)).Msg("new WS connection")

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Connect(sid, user, conn, ctx, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}
