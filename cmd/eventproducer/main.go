package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"event-validation-service/internal/models"
)

// Publishes one event per line of a JSON-lines file to the input topic.
func main() {
	eventsFile := flag.String("events", "-", "JSON-lines file of events, - for stdin")
	brokers := flag.String("brokers", "localhost:9092", "Comma-separated Kafka brokers")
	topic := flag.String("topic", "events.requested", "Input topic")
	interval := flag.Duration("interval", 0, "Pause between events")
	flag.Parse()

	in := os.Stdin
	if *eventsFile != "-" {
		f, err := os.Open(*eventsFile)
		if err != nil {
			log.Fatalf("Failed to open events file: %v", err)
		}
		defer f.Close()
		in = f
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(*brokers, ",")...),
		Topic:        *topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
	}
	defer writer.Close()

	ctx := context.Background()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var sent, skipped int
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var ev models.Event
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			// Sent as-is so the service reports it as malformed.
			log.Printf("line %d: not an event (%v), sending raw", line, err)
			skipped++
		} else if ev.ID == "" {
			ev.ID = uuid.NewString()
			b, _ := json.Marshal(ev)
			text = string(b)
		}

		msg := kafka.Message{Key: []byte(ev.Name), Value: []byte(text)}
		if err := writer.WriteMessages(ctx, msg); err != nil {
			log.Fatalf("Failed to publish line %d: %v", line, err)
		}
		sent++
		log.Printf("Sent line %d: name=%s version=%d id=%s", line, ev.Name, ev.Version, ev.ID)

		if *interval > 0 {
			time.Sleep(*interval)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Failed to read events: %v", err)
	}

	log.Printf("Finished: %d events sent (%d malformed)", sent, skipped)
}
