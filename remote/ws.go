package remote

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/playback"
)

const clientBuffer = 16

type client struct {
	conn *websocket.Conn
	out  chan []byte
}

// wsCommand is a command sent over the websocket: the POST body plus its name.
type wsCommand struct {
	Name string `json:"name"`
	commandRequest
}

// serveWS streams every observed state to the client and accepts commands
// from it until the connection closes.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("upgrade to websocket: %v", err)
		return
	}

	c := &client{conn: conn, out: make(chan []byte, clientBuffer)}
	s.register(c)
	defer s.unregister(c)

	if data, err := json.Marshal(s.snapshot()); err == nil {
		c.out <- data
	}

	go c.writeLoop()

	for {
		var msg wsCommand
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugf("websocket read: %v", err)
			}
			return
		}

		msg.commandRequest.Name = msg.Name
		if status, body := s.submit(msg.commandRequest); status != http.StatusAccepted {
			log.Debugf("websocket command %q rejected: %v", msg.Name, body)
		}
	}
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for data := range c.out {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Debugf("websocket write: %v", err)
			return
		}
	}
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.out)
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.out)
	}
}

// broadcast queues state for every client. Slow clients miss updates rather
// than stalling the event loop.
func (s *Server) broadcast(state playback.State) {
	data, err := json.Marshal(state)
	if err != nil {
		log.Warnf("encode state: %v", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.out <- data:
		default:
			log.Debug("websocket client is behind, dropping state")
		}
	}
}
