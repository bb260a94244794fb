package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mitch8020/guess-who-backend/internal/models"
	"github.com/mitch8020/guess-who-backend/internal/rooms"
	"github.com/mitch8020/guess-who-backend/pkg/token"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers cannot set custom headers on WebSocket connects, so the
	// token rides in the query string and origin checks are left to the
	// fronting proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Gateway upgrades HTTP connections to WebSocket and bridges them into
// the hub's room and match channels.
type Gateway struct {
	hub    *Hub
	rooms  *rooms.Service
	tokens *token.Manager
}

// NewGateway creates a WebSocket gateway.
func NewGateway(hub *Hub, roomService *rooms.Service, tokens *token.Manager) *Gateway {
	return &Gateway{hub: hub, rooms: roomService, tokens: tokens}
}

// clientMessage is what connected clients send upstream.
type clientMessage struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId,omitempty"`
	MatchID string `json:"matchId,omitempty"`
}

// Handle is the gin handler for GET /ws. The player token comes from
// the "token" query parameter or the Authorization header.
func (g *Gateway) Handle(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		tokenString = token.ExtractBearerToken(c.GetHeader("Authorization"))
	}
	principal, err := g.tokens.VerifyPlayerToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid player token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("realtime: upgrade failed: %v", err)
		return
	}

	session := &session{
		gateway:   g,
		conn:      conn,
		principal: principal,
		send:      make(Client, sendQueueSize),
		roomIDs:   make(map[string]bool),
		matchIDs:  make(map[string]bool),
	}
	go session.writePump()
	session.readPump()
}

// session is one live WebSocket connection and its subscriptions.
type session struct {
	gateway   *Gateway
	conn      *websocket.Conn
	principal models.Principal
	send      Client
	roomIDs   map[string]bool
	matchIDs  map[string]bool
}

func (s *session) readPump() {
	defer s.teardown()
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("realtime: read error: %v", err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.dispatch(msg)
	}
}

func (s *session) dispatch(msg clientMessage) {
	switch msg.Type {
	case "room.join":
		s.joinRoom(msg.RoomID)
	case "room.leave":
		if s.roomIDs[msg.RoomID] {
			delete(s.roomIDs, msg.RoomID)
			s.gateway.hub.UnsubscribeRoom(msg.RoomID, s.send)
		}
	case "match.join":
		if msg.MatchID != "" && !s.matchIDs[msg.MatchID] {
			s.matchIDs[msg.MatchID] = true
			s.gateway.hub.SubscribeMatch(msg.MatchID, s.send)
		}
	case "match.leave":
		if s.matchIDs[msg.MatchID] {
			delete(s.matchIDs, msg.MatchID)
			s.gateway.hub.UnsubscribeMatch(msg.MatchID, s.send)
		}
	}
}

// joinRoom subscribes after re-checking the caller is still an active
// member, so a kicked player's open socket cannot keep listening.
func (s *session) joinRoom(roomID string) {
	if roomID == "" || s.roomIDs[roomID] {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	member, err := s.gateway.rooms.EnsureActiveMember(ctx, roomID, s.principal)
	if err != nil {
		s.sendError("room.join", roomID, err)
		return
	}
	s.roomIDs[roomID] = true
	s.gateway.hub.SubscribeRoom(roomID, s.send, member.ID, member.DisplayName)
}

func (s *session) sendError(requestType, subject string, err error) {
	message, marshalErr := json.Marshal(Event{
		Channel: "system",
		Type:    "error",
		Payload: map[string]any{"request": requestType, "subject": subject, "message": err.Error()},
	})
	if marshalErr != nil {
		return
	}
	select {
	case s.send <- message:
	default:
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) teardown() {
	for roomID := range s.roomIDs {
		s.gateway.hub.UnsubscribeRoom(roomID, s.send)
	}
	for matchID := range s.matchIDs {
		s.gateway.hub.UnsubscribeMatch(matchID, s.send)
	}
	close(s.send)
	s.conn.Close()
}
