package api

import (
	"net/http"
	"time"

	"OracleDash/internal/usecase"
	xlogger "OracleDash/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// StreamMessage is one websocket frame. A snapshot carries every panel; a
// panel message carries the one that changed.
type StreamMessage struct {
	Type   string          `json:"type"`
	Panels []usecase.Panel `json:"panels,omitempty"`
	Panel  *usecase.Panel  `json:"panel,omitempty"`
}

// Stream pushes panel changes to browser clients over websocket.
type Stream struct {
	logger   *xlogger.Logger
	dash     *usecase.Dashboard
	upgrader websocket.Upgrader
}

func NewStream(logger *xlogger.Logger, dash *usecase.Dashboard) *Stream {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &Stream{
		logger: logger,
		dash:   dash,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve upgrades the request, sends a snapshot, then one message per panel change.
func (s *Stream) Serve(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("stream: upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	events, unwatch := s.dash.Watch()
	defer unwatch()

	remote := c.RealIP()
	s.logger.Debug("stream: client connected", xlogger.String("remote", remote))

	// reader: only pongs and close frames are expected
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("stream: read error", xlogger.String("remote", remote), xlogger.Error(err))
				}
				return
			}
		}
	}()

	if err := s.write(conn, StreamMessage{Type: "snapshot", Panels: s.dash.Panels()}); err != nil {
		return nil
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			s.logger.Debug("stream: client gone", xlogger.String("remote", remote))
			return nil
		case ev, ok := <-events:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return nil
			}
			p, err := s.dash.Panel(ev.Panel)
			if err != nil {
				continue
			}
			if err := s.write(conn, StreamMessage{Type: "panel", Panel: &p}); err != nil {
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

func (s *Stream) write(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Debug("stream: write failed", xlogger.Error(err))
		return err
	}
	return nil
}
