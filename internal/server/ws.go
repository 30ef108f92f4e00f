package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/ayusman/handrehab/internal/app"
	"github.com/ayusman/handrehab/internal/broadcast"
	"github.com/gorilla/websocket"
)

// Websocket timings.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	// maxMessageSize bounds client commands, which are tiny JSON objects.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// clientCommand is a message a websocket client may send.
type clientCommand struct {
	Type string `json:"type"`
}

// wsClient is one websocket subscriber of a session.
type wsClient struct {
	session *app.Session
	sub     *broadcast.Subscription
	conn    *websocket.Conn
	ip      string
}

// serveSessionWS upgrades the request and streams one JSON message per processed frame.
func serveSessionWS(w http.ResponseWriter, r *http.Request, session *app.Session) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS: Failed to upgrade connection: %v", err)
		return
	}

	c := &wsClient{
		session: session,
		sub:     session.Subscribe(),
		conn:    conn,
		ip:      r.RemoteAddr,
	}
	log.Printf("WS: client %s subscribed to session %s", c.ip, session.ID)

	go c.writePump()
	c.readPump()
}

// readPump handles client commands and notices disconnects. Leaving it unsubscribes,
// which in turn ends writePump.
func (c *wsClient) readPump() {
	defer func() {
		c.session.Unsubscribe(c.sub.ID)
		c.conn.Close()
		log.Printf("WS: client %s left session %s (%d frames dropped)", c.ip, c.session.ID, c.sub.Dropped())
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS: Read error: %v", err)
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Printf("WS: Invalid message format: %v", err)
			continue
		}
		switch cmd.Type {
		case "reset":
			if err := c.session.Reset(); err != nil {
				log.Printf("WS: reset: %v", err)
			}
		default:
			log.Printf("WS: unknown command %q", cmd.Type)
		}
	}
}

// writePump forwards broadcast messages and keeps the connection alive with pings.
// It closes the connection when the session ends so readPump returns too.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sub.C():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
