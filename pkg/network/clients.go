package network

import (
	"errors"
	"sync"
)

var (
	// ErrConnClosed is returned when sending on a closed connection
	ErrConnClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when a connection cannot take more outbound messages
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conn is an outbound channel to a single client. Send must not block.
type Conn interface {
	Send(b []byte) error
	Close() error
}

// Client represents a connected player
type Client struct {
	PlayerID string
	RoomID   string
	Conn     Conn
}

// DisconnectEvent is queued for the game loop when a player's connection goes away
type DisconnectEvent struct {
	PlayerID string
	RoomID   string
}

// ClientManager maps player identities to their live connection and current room
type ClientManager struct {
	clients     map[string]*Client
	clientsLock sync.RWMutex
}

// NewClientManager creates a new ClientManager
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[string]*Client),
	}
}

// Register binds conn to playerID and returns the connection it replaced, if any.
// The player's room mapping survives a replacement.
func (cm *ClientManager) Register(playerID string, conn Conn) Conn {
	cm.clientsLock.Lock()
	defer cm.clientsLock.Unlock()

	client, ok := cm.clients[playerID]
	if !ok {
		cm.clients[playerID] = &Client{PlayerID: playerID, Conn: conn}
		return nil
	}
	previous := client.Conn
	client.Conn = conn
	if previous == conn {
		return nil
	}
	return previous
}

// Unregister removes playerID if it is still bound to conn, returning the room it was in.
// A stale connection closing after a reconnect leaves the new binding alone.
func (cm *ClientManager) Unregister(playerID string, conn Conn) (string, bool) {
	cm.clientsLock.Lock()
	defer cm.clientsLock.Unlock()

	client, ok := cm.clients[playerID]
	if !ok || client.Conn != conn {
		return "", false
	}
	delete(cm.clients, playerID)
	return client.RoomID, true
}

// SetRoom updates the room a connected player receives broadcasts for.
func (cm *ClientManager) SetRoom(playerID, roomID string) {
	cm.clientsLock.Lock()
	defer cm.clientsLock.Unlock()

	if client, ok := cm.clients[playerID]; ok {
		client.RoomID = roomID
	}
}

// ClearRoom detaches every player mapped to roomID.
func (cm *ClientManager) ClearRoom(roomID string) {
	cm.clientsLock.Lock()
	defer cm.clientsLock.Unlock()

	for _, client := range cm.clients {
		if client.RoomID == roomID {
			client.RoomID = ""
		}
	}
}

// RoomOf returns the room playerID is mapped to, or an empty string.
func (cm *ClientManager) RoomOf(playerID string) string {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()

	if client, ok := cm.clients[playerID]; ok {
		return client.RoomID
	}
	return ""
}

// GetConn returns the live connection of playerID.
func (cm *ClientManager) GetConn(playerID string) (Conn, bool) {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()

	client, ok := cm.clients[playerID]
	if !ok {
		return nil, false
	}
	return client.Conn, true
}

// GetClientsInRoom returns a slice with a copy of every client mapped to roomID.
func (cm *ClientManager) GetClientsInRoom(roomID string) []*Client {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()

	clients := make([]*Client, 0)
	for _, client := range cm.clients {
		if client.RoomID != roomID {
			continue
		}
		clients = append(clients, &Client{
			PlayerID: client.PlayerID,
			RoomID:   client.RoomID,
			Conn:     client.Conn,
		})
	}
	return clients
}

func (cm *ClientManager) Exists(playerID string) bool {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	_, ok := cm.clients[playerID]
	return ok
}

func (cm *ClientManager) Count() int {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	return len(cm.clients)
}
