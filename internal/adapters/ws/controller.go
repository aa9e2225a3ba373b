// Package ws terminates one websocket per participant, decodes client
// frames into protocol requests and forwards them to the directory.
// Keep-alive is handled here: the room subsystem only ever learns
// about a dead connection through Disconnected.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/meiao/sizematters-server/internal/app"
	"github.com/meiao/sizematters-server/internal/protocol"
	"github.com/meiao/sizematters-server/internal/room"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Directory  *room.Directory
	Registry   *app.Registry
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	SendBuffer int
}

func NewController(dir *room.Directory, reg *app.Registry, readLimit int64, pingPeriod, pongWait time.Duration, sendBuffer int) *Controller {
	return &Controller{
		Directory:  dir,
		Registry:   reg,
		ReadLimit:  readLimit,
		PingPeriod: pingPeriod,
		PongWait:   pongWait,
		SendBuffer: sendBuffer,
	}
}

// HandleWS upgrades the connection and starts the pumps. The client
// token cookie carries the participant id across reconnects; without
// one the connection gets a fresh id that dies with the socket.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}

	userID := c.GetString("client_token")
	if userID == "" {
		userID = uuid.NewString()
	}
	log.Info().Str("module", "ws").Str("user", userID).Msg("new connection")

	client := newClient(userID, conn, ctl.SendBuffer)
	ctl.Registry.GetOrCreate(userID)

	go ctl.writePump(ctx, client)
	go ctl.readPump(ctx, client)
}

func (ctl *Controller) writePump(ctx context.Context, c *Client) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "ws").Str("user", c.userID).Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, c *Client) {
	defer func() {
		// The read pump owns the participant's lifecycle: whatever
		// killed the connection, the room subsystem sees one leave.
		ctl.Directory.Disconnected(c.userID)
		ctl.Registry.Remove(c.userID)
		c.Close()
		log.Info().Str("module", "ws").Str("user", c.userID).Msg("read pump closing")
	}()

	c.conn.SetReadLimit(ctl.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.handleFrame(c, data)
		}
	}
}

func (ctl *Controller) handleFrame(c *Client, data []byte) {
	in, err := protocol.DecodeInbound(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Str("user", c.userID).Msg("bad frame")
		_ = c.Send(protocol.Error{Msg: err.Error()})
		return
	}

	switch m := in.(type) {
	case *protocol.SetProfile:
		user, err := ctl.Registry.SetProfile(c.userID, m.Name, m.Avatar)
		if err != nil {
			_ = c.Send(protocol.Error{Msg: err.Error()})
			return
		}
		_ = c.Send(protocol.OwnData{User: user})
		ctl.Directory.ProfileUpdated(user)
	case protocol.Register:
		_ = c.Send(protocol.OwnData{User: ctl.Registry.GetOrCreate(c.userID)})
	case *protocol.JoinRoom:
		user := ctl.Registry.GetOrCreate(c.userID)
		ctl.Directory.JoinRoom(m.RoomName, m.Password, m.PasswordIsHash, user, c)
	case *protocol.LeaveRoom:
		ctl.Directory.LeaveRoom(m.RoomName, c.userID)
	case *protocol.Vote:
		ctl.Directory.Vote(m.RoomName, c.userID, m.Size)
	case *protocol.NewRound:
		ctl.Directory.NewRound(m.RoomName, c.userID)
	case *protocol.Randomize:
		ctl.Directory.Randomize(m.RoomName)
	case *protocol.ChangeScale:
		ctl.Directory.ChangeScale(m.RoomName, m.ScaleName)
	case *protocol.SetActive:
		target := m.UserID
		if target == "" {
			target = c.userID
		}
		ctl.Directory.SetActive(m.RoomName, target, m.Active)
	default:
		log.Warn().Str("module", "ws").Str("user", c.userID).Msg("unhandled inbound message")
	}
}
