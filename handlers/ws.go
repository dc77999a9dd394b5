package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"servifix/middleware"
	"servifix/models"
	"servifix/services/notification"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsSendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsSender owns one websocket connection's writes. A single goroutine
// drains the send channel so concurrent fanout never interleaves frames.
type wsSender struct {
	conn *websocket.Conn
	send chan models.NotificationEvent

	closeOnce sync.Once
	done      chan struct{}
}

func newWSSender(conn *websocket.Conn) *wsSender {
	return &wsSender{
		conn: conn,
		send: make(chan models.NotificationEvent, wsSendBuffer),
		done: make(chan struct{}),
	}
}

func (s *wsSender) Send(event models.NotificationEvent) error {
	select {
	case s.send <- event:
		return nil
	case <-s.done:
		return websocket.ErrCloseSent
	default:
		// A full buffer means a dead or hopelessly slow client; delivery
		// is at most once, so the frame is dropped with the connection.
		return websocket.ErrCloseSent
	}
}

func (s *wsSender) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *wsSender) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case event := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// WSConnect upgrades the request and binds the connection as the caller's
// live notification channel. Inbound frames are chat messages, typing
// indicators and technician location pings; none of them are persisted.
func (h *HandlerBundle) WSConnect(c *gin.Context) {
	userID, _ := middleware.AuthContext(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	sender := newWSSender(conn)
	go sender.writePump()
	h.Hub.Register(userID, connID, sender)

	// Hello frame confirms the binding to the client.
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(gin.H{"userId": userID}); err != nil {
		h.Hub.Unregister(userID, connID)
		return
	}

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		var msg models.ChatMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		msg.SenderID = userID
		msg.CreatedAt = time.Now()
		h.relayFrame(&msg)
	}

	h.Hub.Unregister(userID, connID)
}

// relayFrame routes an inbound frame: job-scoped frames fan out to the job
// room, direct frames go to the named receiver.
func (h *HandlerBundle) relayFrame(msg *models.ChatMessage) {
	event := notification.ChatEvent(msg)
	switch {
	case msg.JobID != "":
		h.Hub.SendToGroup(notification.JobGroup(msg.JobID), event)
	case msg.ReceiverID != "":
		h.Hub.SendToUser(msg.ReceiverID, event)
	}
}
