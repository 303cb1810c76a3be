package kds

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
)

// Event types
const (
	EventOrdersUpdate = "orders_update"
	EventOrdersError  = "orders_error"
	EventMenuUpdate   = "menu_update"
)

// AllTables subscribes a client to every table.
const AllTables = 0

type Message struct {
	Event string      `json:"event"`
	Table int         `json:"table,omitempty"`
	Data  interface{} `json:"data"`
}

// TableOrders is the payload of EventOrdersUpdate.
type TableOrders struct {
	Table  int                   `json:"table"`
	Orders []models.OrderSummary `json:"orders"`
}

// Hub holds the admin dashboard sockets and the table each one watches.
type Hub struct {
	clients map[*websocket.Conn]int // conn -> table
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]int)}
}

func (h *Hub) RegisterClient(conn *websocket.Conn, table int) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = table
}

// Subscribe moves an already registered client to another table.
func (h *Hub) Subscribe(conn *websocket.Conn, table int) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		h.clients[conn] = table
	}
}

func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

// Tables returns the distinct tables somebody is watching. AllTables is
// never included.
func (h *Hub) Tables() []int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	seen := make(map[int]bool)
	var out []int
	for _, t := range h.clients {
		if t != AllTables && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *Hub) BroadcastTableOrders(table int, orders []models.OrderSummary) {
	h.broadcast(Message{
		Event: EventOrdersUpdate,
		Table: table,
		Data:  TableOrders{Table: table, Orders: orders},
	})
}

func (h *Hub) BroadcastTableError(table int, message string) {
	h.broadcast(Message{
		Event: EventOrdersError,
		Table: table,
		Data:  message,
	})
}

// BroadcastMenuUpdate tells every dashboard to refetch the menu tab.
func (h *Hub) BroadcastMenuUpdate() {
	h.broadcast(Message{Event: EventMenuUpdate})
}

// broadcast sends msg to clients watching msg.Table, or to all clients when
// msg.Table is zero.
func (h *Hub) broadcast(msg Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling message: %v", err)
		return
	}

	for conn, table := range h.clients {
		if msg.Table != AllTables && table != AllTables && table != msg.Table {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Printf("Error sending %s to client: %v", msg.Event, err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}
