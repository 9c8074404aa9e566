package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cbodonnell/manhunt/pkg/client"
	"github.com/cbodonnell/manhunt/pkg/log"
	"github.com/cbodonnell/manhunt/pkg/queue"
	"github.com/google/uuid"
)

// A line on stdin is "<type> [roomId] [json payload]", e.g.
//
//	room:create - {"nickname":"alice"}
//	location:update ABC123 {"lat":37.5665,"lng":126.978,"accuracy":5}
//
// A roomId of "-" sends no room.
func main() {
	addr := flag.String("addr", "ws://localhost:9001/ws", "Server WebSocket address")
	playerID := flag.String("player", uuid.NewString(), "Player ID")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	log.SetDefaultLogger(log.NewConsole(os.Stderr, parsedLogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frames := queue.NewInMemoryQueue(0)
	c := client.NewWSClient(client.NewWSClientOptions{
		ServerAddr:   *addr,
		PlayerID:     *playerID,
		MessageQueue: frames,
	})
	if err := c.Connect(ctx); err != nil {
		log.Error("Failed to connect: %v", err)
		os.Exit(1)
	}
	defer c.Close()

	go func() {
		if err := c.HandleMessages(ctx); err != nil {
			log.Error("Connection lost: %v", err)
		}
		stop()
	}()
	go printFrames(ctx, frames)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Printf("Connected as %s\n", *playerID)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			msgType, roomID, payload, err := parseLine(line)
			if err != nil {
				fmt.Println("Error:", err)
				continue
			}
			if msgType == "" {
				continue
			}
			if err := c.Send(ctx, msgType, roomID, payload); err != nil {
				log.Error("Failed to send %s: %v", msgType, err)
			}
		}
	}
}

func parseLine(line string) (string, string, json.RawMessage, error) {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 3)
	if parts[0] == "" {
		return "", "", nil, nil
	}
	var roomID string
	if len(parts) > 1 && parts[1] != "-" {
		roomID = parts[1]
	}
	var payload json.RawMessage
	if len(parts) > 2 {
		payload = json.RawMessage(parts[2])
		if !json.Valid(payload) {
			return "", "", nil, fmt.Errorf("payload is not valid JSON")
		}
	}
	return parts[0], roomID, payload, nil
}

func printFrames(ctx context.Context, frames queue.Queue) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := frames.ReadAllMessages()
			if err != nil {
				log.Error("Failed to read frames: %v", err)
				continue
			}
			for _, item := range pending {
				f := item.(*client.Frame)
				switch {
				case f.Failed():
					fmt.Printf("< %s failed: %s\n", f.Type, f.Error)
				case len(f.Data) > 0:
					fmt.Printf("< %s %s\n", f.Type, f.Data)
				default:
					fmt.Printf("< %s\n", f.Type)
				}
			}
		}
	}
}
