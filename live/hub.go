package live

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types pushed to competition rooms.
const (
	EventEntriesUpdated = "ENTRIES_UPDATED"
	EventStatusUpdated  = "STATUS_UPDATED"
	EventWinnerDrawn    = "WINNER_DRAWN"
)

// Message служит конвертом для всех сообщений, рассылаемых по комнатам конкурсов.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Room     string
	IsClosed bool
	Mu       sync.Mutex
}

// Hub keeps one room per competition; viewers of a competition page join its
// room and receive entry-counter and status updates.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if roomClients, ok := h.rooms[client.Room]; ok {
				if _, okClient := roomClients[client]; okClient {
					client.Mu.Lock()
					if !client.IsClosed {
						close(client.Send)
						client.IsClosed = true
					}
					client.Mu.Unlock()
					delete(roomClients, client)
					if len(roomClients) == 0 {
						delete(h.rooms, client.Room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToRoom отправляет сообщение всем клиентам в указанной комнате.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roomClients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshalling message for room %s: %v", roomID, err)
		return
	}

	for client := range roomClients {
		client.Mu.Lock()
		if client.IsClosed {
			client.Mu.Unlock()
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			// Slow consumer, skip this message.
		}
		client.Mu.Unlock()
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		// Inbound messages are ignored; the socket is broadcast-only.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error in room %s: %v", c.Room, err)
			}
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
