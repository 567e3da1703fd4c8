package websocket

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/goshopnow/backend/models"
	"github.com/google/uuid"
)

type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
}

type settlementEvent struct {
	Type    string          `json:"type"`
	Payment *models.Payment `json:"payment"`
}

var clients = make(map[uuid.UUID]*websocket.Conn)
var clientsMu sync.RWMutex
var Register = make(chan *Client)
var Unregister = make(chan *Client)

// Broadcast receives every payment that reaches Completed; the hub pushes
// it to the owning user's connection if one is open.
var Broadcast = make(chan *models.Payment)

func RunHub() {
	for {
		select {
		case client := <-Register:
			log.Printf("Settlement feed client registered: %s", client.UserID)
			clientsMu.Lock()
			clients[client.UserID] = client.Conn
			clientsMu.Unlock()
		case client := <-Unregister:
			log.Printf("Settlement feed client unregistered: %s", client.UserID)
			clientsMu.Lock()
			if conn, ok := clients[client.UserID]; ok && conn == client.Conn {
				delete(clients, client.UserID)
			}
			clientsMu.Unlock()
		case payment := <-Broadcast:
			clientsMu.RLock()
			conn, ok := clients[payment.UserID]
			clientsMu.RUnlock()
			if !ok {
				continue
			}

			event := settlementEvent{Type: "payment_completed", Payment: payment}
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("Error pushing settlement event to client %s: %v", payment.UserID, err)
				conn.Close()
				clientsMu.Lock()
				delete(clients, payment.UserID)
				clientsMu.Unlock()
			}
		}
	}
}

// Notify hands a completed payment to the hub without blocking the caller
// when no hub goroutine is draining the channel (e.g. in tests).
func Notify(payment *models.Payment) {
	select {
	case Broadcast <- payment:
	default:
	}
}
