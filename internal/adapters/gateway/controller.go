package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/chatcore/chatcore/internal/app/orch"
	"github.com/chatcore/chatcore/internal/auth"
	"github.com/chatcore/chatcore/internal/core"
	"github.com/chatcore/chatcore/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
}

type Controller struct {
	Orch     *orch.Orchestrator
	Verifier *auth.Verifier
	Limiter  *JoinRateLimiter
	Opts     Options
}

func NewController(o *orch.Orchestrator, v *auth.Verifier, rl *JoinRateLimiter, opts Options) *Controller {
	return &Controller{Orch: o, Verifier: v, Limiter: rl, Opts: opts}
}

// Handle authenticates, upgrades and runs the connection until the socket
// dies. The token rides the query string since browsers cannot set headers
// on a websocket upgrade.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = auth.FromHeader(c.GetHeader("Authorization"))
	}
	uid, err := ctl.Verifier.Verify(token)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.gateway").Msg("upgrade")
		return
	}

	sid := core.SessionID(uuid.NewString())
	conn := newConn(sid, uid, ws, ctl.Opts.SendBuffer)
	log.Info().Str("module", "adapters.gateway").
		Str("sid", string(sid)).Str("user", string(uid)).Msg("session connected")

	ws.SetReadLimit(ctl.Opts.ReadLimit)
	pongWait := ctl.Opts.PingPeriod + 10*time.Second
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctl.Orch.Connected(ctx, conn)
	go conn.writePump(ctl.Opts.PingPeriod)
	go ctl.readPump(ctx, conn)
}

func (ctl *Controller) readPump(ctx context.Context, conn *Conn) {
	defer func() {
		conn.Close()
		ctl.Orch.Disconnected(ctx, conn)
		if !ctl.Orch.Registry.IsOnline(conn.UserID()) {
			ctl.Limiter.Forget(conn.UserID())
		}
		log.Info().Str("module", "adapters.gateway").
			Str("sid", string(conn.ID())).Msg("session disconnected")
	}()
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := conn.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.dispatch(ctx, conn, data)
		}
	}
}

// Inbound envelopes mirror the outbound framing: {event, data}.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (ctl *Controller) dispatch(ctx context.Context, conn *Conn, data []byte) {
	var env inbound
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "adapters.gateway").Msg("bad envelope")
		return
	}
	switch env.Event {
	case "join-room":
		ctl.handleJoin(ctx, conn, env.Data)
	case "leave-room":
		ctl.handleLeave(ctx, conn, env.Data)
	case "writing-message":
		ctl.handleTyping(conn, env.Data)
	default:
		log.Warn().Str("module", "adapters.gateway").
			Str("event", env.Event).Msg("unknown event")
	}
}

type joinPayload struct {
	RoomID   domain.RoomID `json:"roomId"`
	Password string        `json:"password"`
	Enter    bool          `json:"enter"`
}

// joinRoomAck acknowledges directly on the requesting session, not through
// the fan-out: the other devices of the same user did not ask to join.
type joinRoomAck struct {
	orch.JoinAck
}

func (joinRoomAck) Name() string { return "join-room" }

func (ctl *Controller) handleJoin(ctx context.Context, conn *Conn, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if !ctl.Limiter.Allow(conn.UserID()) {
		log.Warn().Str("module", "adapters.gateway").
			Str("user", string(conn.UserID())).Msg("join rate limited")
		return
	}
	ack, err := ctl.Orch.JoinRoom(ctx, conn, p.RoomID, p.Password)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.gateway").Msg("join room")
		return
	}
	// The enter flag is the client's own and rides back unchanged.
	ack.Enter = p.Enter
	if err := conn.TrySend(joinRoomAck{JoinAck: *ack}); err != nil {
		conn.Close()
	}
}

type leavePayload struct {
	RoomID domain.RoomID `json:"roomId"`
}

// leaveRoomAck confirms the persisted exit on the requesting session.
type leaveRoomAck struct {
	RoomID   domain.RoomID   `json:"roomId"`
	RoomName domain.RoomName `json:"roomName"`
}

func (leaveRoomAck) Name() string { return "leave-room" }

func (ctl *Controller) handleLeave(ctx context.Context, conn *Conn, data json.RawMessage) {
	var p leavePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	room, err := ctl.Orch.LeaveRoom(ctx, conn.UserID(), p.RoomID)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.gateway").Msg("leave room")
		return
	}
	if err := conn.TrySend(leaveRoomAck{RoomID: room.ID, RoomName: room.Name}); err != nil {
		conn.Close()
	}
}

type typingPayload struct {
	UserID domain.UserID `json:"userId"`
	Status bool          `json:"status"`
}

func (ctl *Controller) handleTyping(conn *Conn, data json.RawMessage) {
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.UserID == "" {
		return
	}
	ctl.Orch.Typing(conn, p.UserID, p.Status)
}
