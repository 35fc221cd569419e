// Validation Viewer - live view of validated and rejected events.
// Consumes the outcome topics and pushes them to the browser over WebSocket.
package main

import (
	"context"
	"embed"
	"encoding/json"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"
)

//go:embed static/*
var staticFiles embed.FS

type validationError struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// validatedEvent is the message shape on the valid topic.
type validatedEvent struct {
	Event struct {
		Name    string `json:"name"`
		Version int    `json:"version"`
		ID      string `json:"id"`
		FlowID  string `json:"flowId"`
	} `json:"event"`
	EncryptedFields []string `json:"encryptedFields"`
	ValidatedAt     int64    `json:"validatedAt"`
}

// OutcomeEvent is what the browser receives for either topic.
type OutcomeEvent struct {
	Outcome         string            `json:"outcome"`
	Name            string            `json:"name"`
	Version         int               `json:"version"`
	EventID         string            `json:"eventId"`
	FlowID          string            `json:"flowId,omitempty"`
	Errors          []validationError `json:"errors,omitempty"`
	EncryptedFields []string          `json:"encryptedFields,omitempty"`
	ValidatedAt     int64             `json:"validatedAt"`
}

func decodeOutcome(outcome string, value []byte) (OutcomeEvent, error) {
	if outcome == "valid" {
		var v validatedEvent
		if err := json.Unmarshal(value, &v); err != nil {
			return OutcomeEvent{}, err
		}
		return OutcomeEvent{
			Outcome:         outcome,
			Name:            v.Event.Name,
			Version:         v.Event.Version,
			EventID:         v.Event.ID,
			FlowID:          v.Event.FlowID,
			EncryptedFields: v.EncryptedFields,
			ValidatedAt:     v.ValidatedAt,
		}, nil
	}

	ev := OutcomeEvent{Outcome: outcome}
	if err := json.Unmarshal(value, &ev); err != nil {
		return OutcomeEvent{}, err
	}
	ev.Outcome = outcome
	return ev, nil
}

// Hub manages WebSocket connections
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan OutcomeEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.Mutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan OutcomeEvent, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Client connected. Total: %d", n)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("Client disconnected. Total: %d", n)

		case event := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteJSON(event); err != nil {
					log.Printf("Write error: %v", err)
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev
	},
}

func wsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}
		hub.register <- conn

		// Drain reads so disconnects are noticed
		go func() {
			defer func() {
				hub.unregister <- conn
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}

func consumeKafka(ctx context.Context, hub *Hub, brokers, topic, outcome string) {
	// Partition reader without a consumer group so the viewer never steals offsets
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   strings.Split(brokers, ","),
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-1*time.Hour)); err != nil {
		log.Printf("Failed to seek %s: %v", topic, err)
	}

	log.Printf("Consuming from Kafka topic: %s partition 0 (last hour)", topic)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Kafka read error on %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}

		event, err := decodeOutcome(outcome, msg.Value)
		if err != nil {
			log.Printf("JSON unmarshal error on %s: %v", topic, err)
			continue
		}

		log.Printf("Received %s: %s/%d (id: %s, errors: %d)", event.Outcome, event.Name, event.Version, event.EventID, len(event.Errors))
		hub.broadcast <- event
	}
}

func main() {
	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicValid := flag.String("topic-valid", "events.validated", "Validated events topic")
	topicInvalid := flag.String("topic-invalid", "events.rejected", "Rejected events topic")
	flag.Parse()

	hub := newHub()
	go hub.run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consumeKafka(ctx, hub, *brokers, *topicValid, "valid")
	go consumeKafka(ctx, hub, *brokers, *topicInvalid, "invalid")

	staticFS, _ := fs.Sub(staticFiles, "static")
	http.Handle("/", http.FileServer(http.FS(staticFS)))
	http.HandleFunc("/ws", wsHandler(hub))

	log.Printf("Validation Viewer starting on http://localhost:%s", *port)
	log.Printf("   Kafka brokers: %s", *brokers)
	log.Printf("   Topics: %s, %s", *topicValid, *topicInvalid)

	if err := http.ListenAndServe(":"+*port, nil); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
