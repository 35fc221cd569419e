package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcapi "event-validation-service/internal/api/grpc"
	"event-validation-service/internal/models"
)

func main() {
	serverAddr := flag.String("server", "localhost:50051", "gRPC server address")
	eventFile := flag.String("event", "testdata/events/event_test.json", "Path to an event JSON file")
	flag.Parse()

	data, err := os.ReadFile(*eventFile)
	if err != nil {
		log.Fatalf("failed to read event: %v", err)
	}
	var ev models.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Fatalf("failed to decode event: %v", err)
	}

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("Connected to %s", *serverAddr)

	client := grpcapi.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report, err := client.Validate(ctx, &ev)
	if err != nil {
		log.Fatalf("validate failed: %v", err)
	}

	log.Printf("Received report: event=%s/%d success=%t", report.Name, report.Version, report.Success)
	for _, e := range report.Errors {
		log.Printf("  [%s] %s: %s", e.Code, e.Path, e.Message)
	}
	for _, f := range report.EncryptedFields {
		log.Printf("  encrypt: %s", f)
	}
}
