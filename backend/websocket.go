// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Message types for WebSocket communication
const (
	MsgTypeJoined      = "JOINED"
	MsgTypeAtBatResult = "AT_BAT_RESULT"
	MsgTypeCountUpdate = "COUNT_UPDATE"
	MsgTypeGameFinal   = "GAME_FINAL"
	MsgTypeError       = "ERROR"
)

// Message is a live update pushed to spectators of a game.
type Message struct {
	Type    string                `json:"type"`
	GameId  string                `json:"gameId,omitempty"`
	Result  *ProcessedAtBatResult `json:"result,omitempty"`
	Session *GameSessionState     `json:"session,omitempty"`
	Score   *Score                `json:"score,omitempty"`
	Reason  string                `json:"reason,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// Hub maintains the set of active spectators for one game and broadcasts
// updates to them.
type Hub struct {
	gameId string

	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
}

func newHub(gameId string) *Hub {
	return &Hub{
		gameId:     gameId,
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow consumer: drop the connection rather
					// than block the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// HubManager owns one Hub per game with live spectators.
type HubManager struct {
	mu   sync.Mutex
	hubs map[string]*Hub

	connCount int
}

// NewHubManager creates a new HubManager.
func NewHubManager() *HubManager {
	return &HubManager{hubs: make(map[string]*Hub)}
}

func (hm *HubManager) getOrCreate(gameId string) *Hub {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	h, ok := hm.hubs[gameId]
	if !ok {
		h = newHub(gameId)
		hm.hubs[gameId] = h
		go h.run()
	}
	return h
}

// Broadcast pushes a message to all spectators of a game, if any.
func (hm *HubManager) Broadcast(gameId string, msg Message) {
	hm.mu.Lock()
	h, ok := hm.hubs[gameId]
	hm.mu.Unlock()
	if !ok {
		return
	}
	msg.GameId = gameId
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Broadcast marshal error for game %s: %v", gameId, err)
		return
	}
	h.broadcast <- data
}

// NotifyAtBat pushes a resolved at-bat to the game's spectators, followed by
// a final-score message when the play ended the game.
func (hm *HubManager) NotifyAtBat(g *Game, res *ProcessedAtBatResult) {
	if hm == nil {
		return
	}
	hm.Broadcast(g.ID, Message{
		Type:    MsgTypeAtBatResult,
		Result:  res,
		Session: &g.Session,
		Score:   &g.Score,
	})
	if g.Status == GameStatusFinal {
		hm.Broadcast(g.ID, Message{
			Type:   MsgTypeGameFinal,
			Score:  &g.Score,
			Reason: g.Completion.Reason,
		})
	}
}

// NotifyCount pushes the live count to the game's spectators after a pitch
// that did not complete the at-bat.
func (hm *HubManager) NotifyCount(g *Game) {
	if hm == nil {
		return
	}
	hm.Broadcast(g.ID, Message{
		Type:    MsgTypeCountUpdate,
		Session: &g.Session,
		Score:   &g.Score,
	})
}

// GetTotalConnectionCount returns the number of open websocket connections.
func (hm *HubManager) GetTotalConnectionCount() int {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	return hm.connCount
}

func (hm *HubManager) addConn(n int) {
	hm.mu.Lock()
	hm.connCount += n
	hm.mu.Unlock()
}

// wsClient is a middleman between one websocket connection and a hub.
type wsClient struct {
	hub  *Hub
	hm   *HubManager
	conn *websocket.Conn
	send chan []byte
}

// readPump discards inbound frames (spectators are read-only) and keeps the
// connection alive via pong handling.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.hm.addConn(-1)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// ServeWS upgrades a spectator connection for a game after a read-access
// check and sends the current game snapshot as the join message.
func ServeWS(hm *HubManager, gs *GameStore, ts *TeamStore, w http.ResponseWriter, r *http.Request, gameId string) {
	game, err := gs.LoadGame(gameId)
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if GetGameAccess(getUserID(r), game, ts) < AccessRead {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	hub := hm.getOrCreate(gameId)
	client := &wsClient{hub: hub, hm: hm, conn: conn, send: make(chan []byte, 16)}
	hub.register <- client
	hm.addConn(1)

	joined := Message{
		Type:    MsgTypeJoined,
		GameId:  gameId,
		Session: &game.Session,
		Score:   &game.Score,
	}
	if data, err := json.Marshal(joined); err == nil {
		client.send <- data
	}

	go client.writePump()
	go client.readPump()
}
