package realtime

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Monynha-Softwares/botecopro-sync/utils"
)

// Event names pushed to dashboard clients.
const (
	EventEntityChange = "entity_change"
	EventSyncApplied  = "sync_applied"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub fans change notifications out to connected dashboard clients. Each
// connection is scoped to one company; a broadcast never crosses tenants.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> company id
	mutex   sync.Mutex
}

var hub = Hub{
	clients: make(map[*websocket.Conn]string),
}

// RegisterClient adds a connection scoped to a company.
func RegisterClient(conn *websocket.Conn, companyID string) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.clients[conn] = companyID
}

// UnregisterClient drops and closes a connection.
func UnregisterClient(conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	delete(hub.clients, conn)
	conn.Close()
}

// BroadcastEntityChange notifies a company's clients that an entity changed
// and they should refresh (or pull a sync delta).
func BroadcastEntityChange(companyID, entity, action, recordID string) {
	broadcast(companyID, Message{
		Event: EventEntityChange,
		Data: map[string]interface{}{
			"entity":    entity,
			"action":    action,
			"record_id": recordID,
		},
	})
}

// BroadcastSyncApplied signals that an upload batch from some device was
// applied server-side.
func BroadcastSyncApplied(companyID string, counts map[string]int) {
	broadcast(companyID, Message{
		Event: EventSyncApplied,
		Data:  counts,
	})
}

func broadcast(companyID string, msg Message) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for conn, clientCompany := range hub.clients {
		if clientCompany != companyID {
			continue
		}
		if err := conn.WriteJSON(msg); err != nil {
			if utils.ErrorLogger != nil {
				utils.ErrorLogger.Printf("Dropping realtime client: %v", err)
			}
			delete(hub.clients, conn)
			conn.Close()
		}
	}
}
