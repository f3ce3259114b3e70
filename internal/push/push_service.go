// Package push streams coordinator state changes to subscribed token
// owners over websockets.
package push

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/srdtrk/nft-ica/internal/models"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 54 * time.Second
	sendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The query surface is public; subscription messages carry no
	// privileges.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is one push frame.
type Event struct {
	Type      string      `json:"type"`
	TokenID   string      `json:"token_id"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// subscriber is one websocket connection. All frames go through the send
// channel and are written by a single goroutine; the connection itself is
// never written from more than one place.
type subscriber struct {
	conn *websocket.Conn
	send chan Event
}

// Service implements services.Notifier over a registry of websocket
// subscribers keyed by token id. Notifiers run on request and consumer
// goroutines concurrently, so delivery is decoupled from them: broadcast
// only enqueues, and a slow subscriber drops frames instead of blocking.
type Service struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{} // token id -> subscribers
	logger *logrus.Logger
}

// NewService creates a push Service.
func NewService(logger *logrus.Logger) *Service {
	return &Service{
		subs:   make(map[string]map[*subscriber]struct{}),
		logger: logger,
	}
}

// HandleWS upgrades a connection and subscribes it to one token's events.
// GET /ws/tokens/:token_id
func (s *Service) HandleWS(c *gin.Context) {
	tokenID := c.Param("token_id")
	if tokenID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "token_id is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan Event, sendBuffer),
	}
	s.subscribe(tokenID, sub)
	s.logger.WithField("token_id", tokenID).Debug("websocket subscribed")

	go s.writeLoop(tokenID, sub)
	go s.readLoop(tokenID, sub)
}

// writeLoop is the only writer on the connection.
func (s *Service) writeLoop(tokenID string, sub *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteJSON(event); err != nil {
				s.logger.WithError(err).Debug("websocket write failed, dropping subscriber")
				s.unsubscribe(tokenID, sub)
				return
			}

		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.unsubscribe(tokenID, sub)
				return
			}
		}
	}
}

// readLoop only detects close; subscribers never send payloads.
func (s *Service) readLoop(tokenID string, sub *subscriber) {
	defer func() {
		s.unsubscribe(tokenID, sub)
		sub.conn.Close()
	}()
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// NotifyChannel pushes a channel status change to the token's subscribers.
func (s *Service) NotifyChannel(tokenID string, status models.ChannelStatus, channelID string) {
	s.broadcast(tokenID, Event{
		Type:    "channel_status",
		TokenID: tokenID,
		Payload: gin.H{"status": status, "channel_id": channelID},
	})
}

// NotifyCommandResolved pushes a command resolution to the token's
// subscribers.
func (s *Service) NotifyCommandResolved(tokenID, owner string, record *models.TransactionRecord) {
	s.broadcast(tokenID, Event{
		Type:    "command_resolved",
		TokenID: tokenID,
		Payload: record,
	})
}

func (s *Service) subscribe(tokenID string, sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[tokenID] == nil {
		s.subs[tokenID] = make(map[*subscriber]struct{})
	}
	s.subs[tokenID][sub] = struct{}{}
}

// unsubscribe removes a subscriber and closes its send channel exactly
// once; later calls for the same subscriber are no-ops.
func (s *Service) unsubscribe(tokenID string, sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conns := s.subs[tokenID]
	if conns == nil {
		return
	}
	if _, ok := conns[sub]; !ok {
		return
	}
	delete(conns, sub)
	if len(conns) == 0 {
		delete(s.subs, tokenID)
	}
	close(sub.send)
}

// broadcast enqueues an event for every subscriber of the token. Enqueue
// happens under the read lock, so a send channel cannot be closed
// concurrently; a full buffer drops the frame rather than blocking the
// caller.
func (s *Service) broadcast(tokenID string, event Event) {
	event.Timestamp = time.Now().UTC()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for sub := range s.subs[tokenID] {
		select {
		case sub.send <- event:
		default:
			s.logger.WithField("token_id", tokenID).Debug("subscriber buffer full, dropping frame")
		}
	}
}

// subscriberCount reports the live subscribers of a token.
func (s *Service) subscriberCount(tokenID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs[tokenID])
}
