package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cbodonnell/manhunt/pkg/log"
	"github.com/cbodonnell/manhunt/pkg/messages"
	"github.com/cbodonnell/manhunt/pkg/queue"
	"nhooyr.io/websocket"
)

// Frame is a server message as seen by a client. Data stays raw until the
// caller knows which type it expects.
type Frame struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"roomId,omitempty"`
	PlayerID  string          `json:"playerId,omitempty"`
	Success   *bool           `json:"success,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"ts"`
}

// Failed reports whether the frame is a failed result.
func (f *Frame) Failed() bool {
	return f.Success != nil && !*f.Success
}

// WSClient speaks the game protocol as a single player.
type WSClient struct {
	serverAddr   string
	playerID     string
	messageQueue queue.Queue
	conn         *websocket.Conn
	writeLock    sync.Mutex
}

type NewWSClientOptions struct {
	ServerAddr string
	PlayerID   string
	// MessageQueue receives every decoded *Frame
	MessageQueue queue.Queue
}

// NewWSClient creates a new WebSocket client.
func NewWSClient(opts NewWSClientOptions) *WSClient {
	return &WSClient{
		serverAddr:   opts.ServerAddr,
		playerID:     opts.PlayerID,
		messageQueue: opts.MessageQueue,
	}
}

// Connect establishes a connection to the WebSocket server.
func (c *WSClient) Connect(ctx context.Context) error {
	log.Info("Connecting to WebSocket server at %s as %s", c.serverAddr, c.playerID)
	conn, _, err := websocket.Dial(ctx, c.serverAddr, &websocket.DialOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	conn.SetReadLimit(messages.MessageBufferSize * 64)
	c.conn = conn
	return nil
}

// HandleMessages reads frames into the message queue until the connection closes.
func (c *WSClient) HandleMessages(ctx context.Context) error {
	for {
		_, b, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				log.Trace("Connection to %s closed", c.serverAddr)
				return nil
			}
			return fmt.Errorf("failed to read from server: %w", err)
		}

		frame := &Frame{}
		if err := json.Unmarshal(b, frame); err != nil {
			log.Error("Failed to decode server frame: %v", err)
			continue
		}
		log.Trace("Received %s from server", frame.Type)
		if err := c.messageQueue.Enqueue(frame); err != nil {
			log.Error("Failed to enqueue %s frame: %v", frame.Type, err)
		}
	}
}

// Send writes one message on behalf of the client's player. A nil payload is omitted.
func (c *WSClient) Send(ctx context.Context, msgType, roomID string, payload interface{}) error {
	msg := &messages.Inbound{Type: msgType, RoomID: roomID, PlayerID: c.playerID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
		}
		msg.Payload = raw
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msgType, err)
	}

	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	if err := c.conn.Write(ctx, websocket.MessageText, b); err != nil {
		return fmt.Errorf("failed to write %s message: %w", msgType, err)
	}
	return nil
}

// Close closes the WebSocket connection.
func (c *WSClient) Close() error {
	if c.conn == nil {
		log.Warn("WebSocket connection is already closed")
		return nil
	}
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
