package stockfeed

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one websocket subscriber, following a single product room
// or the firehose room "all".
type Client struct {
	Conn   *websocket.Conn
	Send   chan []byte
	Room   string
	UserID string
}

type broadcastMsg struct {
	Room string
	Data []byte
}

// Hub fans committed stock changes out to websocket subscribers.
// Rooms are keyed by product ID.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMsg
	done       chan struct{}
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMsg),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.Room] == nil {
				h.rooms[c.Room] = make(map[*Client]bool)
			}
			h.rooms[c.Room][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if conns := h.rooms[c.Room]; conns != nil && conns[c] {
				delete(conns, c)
				close(c.Send)
			}
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.mu.Lock()
			for c := range h.rooms[m.Room] {
				select {
				case c.Send <- m.Data:
				default:
					// Slow consumer, drop it.
					close(c.Send)
					delete(h.rooms[m.Room], c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

// StockUpdate is the wire payload pushed to subscribers.
type StockUpdate struct {
	Type       string `json:"type"`
	ProductID  string `json:"productId"`
	StockCount int    `json:"stockCount"`
}

// BroadcastStock pushes a stock change to the product's room and the
// firehose room. Called from order post-commit hooks, so it must not
// block: Run drains the channel as long as the hub is running.
func (h *Hub) BroadcastStock(productID string, stockCount int) {
	update := StockUpdate{Type: "stock_update", ProductID: productID, StockCount: stockCount}
	data, err := json.Marshal(update)
	if err != nil {
		log.Println("stockfeed marshal:", err)
		return
	}
	for _, room := range []string{productID, "all"} {
		select {
		case h.broadcast <- broadcastMsg{Room: room, Data: data}:
		case <-h.done:
			return
		}
	}
}
