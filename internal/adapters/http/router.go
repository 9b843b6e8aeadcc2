package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"huddle/internal/adapters/signal"
	"huddle/internal/app/orch"
	"huddle/internal/auth"
	"huddle/internal/config"
	"huddle/internal/core"
	"huddle/internal/domain"
	"huddle/internal/protocol"
)

// AuthMiddleware verifies the signed session token and resolves the identity
// before any protocol event can be processed. Token sources, in order:
// "token" query parameter, "session" cookie.
func AuthMiddleware(codec *auth.TokenCodec, ids auth.IdentityStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token, _ = c.Cookie("session")
		}
		uid, err := codec.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}
		user, err := ids.Lookup(c.Request.Context(), uid)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown_user"})
			return
		}
		c.Set(signal.ContextUserKey, user)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, codec *auth.TokenCodec, ids auth.IdentityStore) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	api := r.Group("/api")

	// Discovery: all non-private rooms with at least one participant,
	// newest first. Also mounted unprefixed for non-browser pollers like the
	// media-engine process.
	listRooms := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.Rooms.List()})
	}
	api.GET("/rooms", listRooms)
	r.GET("/rooms", listRooms)

	// Pull the current media set on demand instead of waiting for pushes.
	api.GET("/rooms/:id/producers", func(c *gin.Context) {
		room := domain.RoomID(c.Param("id"))
		exclude := core.ConnID(c.Query("exclude"))
		c.JSON(http.StatusOK, gin.H{"producers": o.Media.Producers(room, exclude)})
	})

	// Dev stand-in for the external account service: registers an identity
	// and mints its session token. Active only with the in-memory store.
	if seeder, ok := ids.(*auth.StaticStore); ok {
		api.POST("/session", func(c *gin.Context) {
			var req struct {
				UserID   string `json:"user_id"`
				Username string `json:"username" binding:"required"`
				Avatar   string `json:"avatar"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid username"})
				return
			}
			if req.UserID == "" {
				req.UserID = uuid.NewString()
			}
			user, err := domain.NewUser(domain.UserID(req.UserID), req.Username)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			user.Avatar = req.Avatar
			seeder.Put(user)
			token, err := codec.Mint(user.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "mint_failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
		})
	}

	ctl := signal.NewController(o, cfg.ReadLimit, signal.NewEventRateLimiter(cfg.JoinRateLimit, cfg.JoinRateInterval))
	api.GET("/ws/signal", AuthMiddleware(codec, ids), func(c *gin.Context) {
		ctl.HandleSignal(ctx, c)
	})

	// Cross-process bridge: the media-engine process announces a fresh
	// producer here; we re-emit new_media to everyone in the room and
	// report how many connections were notified.
	r.POST("/internal/broadcast/new-media", func(c *gin.Context) {
		var req protocol.Broadcast
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		n := o.EmitNewMedia(domain.RoomID(req.Room), req.Producer, req.PeerOf(), req.Kind)
		c.JSON(http.StatusOK, gin.H{"notified": n})
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
