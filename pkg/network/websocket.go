package network

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cbodonnell/manhunt/pkg/log"
	"github.com/cbodonnell/manhunt/pkg/messages"
	"github.com/cbodonnell/manhunt/pkg/queue"
	"nhooyr.io/websocket"
)

const (
	DefaultSendBufferSize = 256
	DefaultPingInterval   = 20 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
)

// WSServer accepts player WebSocket connections and feeds their messages into the game loop queue.
type WSServer struct {
	clientManager  *ClientManager
	messageQueue   queue.Queue
	acceptOptions  *websocket.AcceptOptions
	sendBufferSize int
	pingInterval   time.Duration
	writeTimeout   time.Duration
}

type NewWSServerOptions struct {
	ClientManager  *ClientManager
	MessageQueue   queue.Queue
	OriginPatterns []string
	SendBufferSize int
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

// NewWSServer creates a new WebSocket server.
func NewWSServer(opts NewWSServerOptions) *WSServer {
	s := &WSServer{
		clientManager: opts.ClientManager,
		messageQueue:  opts.MessageQueue,
		acceptOptions: &websocket.AcceptOptions{
			InsecureSkipVerify: len(opts.OriginPatterns) == 0,
			OriginPatterns:     opts.OriginPatterns,
			CompressionMode:    websocket.CompressionContextTakeover,
		},
		sendBufferSize: opts.SendBufferSize,
		pingInterval:   opts.PingInterval,
		writeTimeout:   opts.WriteTimeout,
	}
	if s.sendBufferSize <= 0 {
		s.sendBufferSize = DefaultSendBufferSize
	}
	if s.pingInterval <= 0 {
		s.pingInterval = DefaultPingInterval
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = DefaultWriteTimeout
	}
	return s
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, s.acceptOptions)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket: %v", err)
		return
	}
	log.Debug("New WebSocket connection from %s", r.RemoteAddr)
	conn.SetReadLimit(messages.MessageBufferSize)

	s.handleWSConnection(r.Context(), conn, r.RemoteAddr)
}

// handleWSConnection handles a WebSocket connection.
func (s *WSServer) handleWSConnection(ctx context.Context, conn *websocket.Conn, remoteAddr string) {
	ctx, cancel := context.WithCancel(ctx)
	c := newWSConn(conn, s.sendBufferSize)

	var writerDone sync.WaitGroup
	writerDone.Add(1)
	go func() {
		defer writerDone.Done()
		c.writeLoop(ctx, s.pingInterval, s.writeTimeout)
	}()

	var playerID string
	defer func() {
		cancel()
		c.Close()
		writerDone.Wait()
		conn.Close(websocket.StatusNormalClosure, "")
		if playerID == "" {
			return
		}
		roomID, ok := s.clientManager.Unregister(playerID, c)
		if !ok {
			return
		}
		log.Info("Player %s disconnected", playerID)
		if err := s.messageQueue.Enqueue(&DisconnectEvent{PlayerID: playerID, RoomID: roomID}); err != nil {
			log.Error("Failed to enqueue disconnect of player %s: %v", playerID, err)
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				log.Debug("Error reading WebSocket message from %s: %v", remoteAddr, err)
			}
			log.Trace("Connection closed for %s", remoteAddr)
			return
		}

		message, err := messages.DeserializeInbound(data)
		if err != nil {
			log.Warn("Dropping message from %s: %v", remoteAddr, err)
			continue
		}

		if playerID == "" {
			playerID = message.PlayerID
			if previous := s.clientManager.Register(playerID, c); previous != nil {
				log.Info("Player %s reconnected, closing previous connection", playerID)
				previous.Close()
			}
		} else if message.PlayerID != playerID {
			log.Warn("Dropping message for player %s on connection bound to %s", message.PlayerID, playerID)
			continue
		}

		if err := s.messageQueue.Enqueue(message); err != nil {
			log.Error("Failed to enqueue message: %v", err)
		}
	}
}

// wsConn buffers outbound frames so senders never wait on the network.
type wsConn struct {
	conn      *websocket.Conn
	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(conn *websocket.Conn, bufferSize int) *wsConn {
	return &wsConn{
		conn:   conn,
		sendCh: make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

func (c *wsConn) Send(b []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.sendCh <- b:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *wsConn) writeLoop(ctx context.Context, pingInterval, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			// closed from outside, e.g. replaced by a newer connection; unblock the reader too
			c.conn.Close(websocket.StatusNormalClosure, "")
			return
		case b := <-c.sendCh:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, b)
			cancel()
			if err != nil {
				log.Debug("Failed to write WebSocket message: %v", err)
				c.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				log.Debug("WebSocket ping failed: %v", err)
				c.conn.Close(websocket.StatusGoingAway, "ping failed")
				return
			}
		}
	}
}
