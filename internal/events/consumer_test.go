package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	fetchErr  error
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.fetchErr != nil {
		err := r.fetchErr
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func TestConsumer_RunRoutesAndCommits(t *testing.T) {
	reader := &fakeReader{}
	for i := 0; i < 10; i++ {
		value := `{"name":"login","version":1,"payload":{"user":"bob","password":"x"}}`
		if i%2 == 1 {
			value = `{"name":"login","version":1,"payload":{}}`
		}
		reader.queue = append(reader.queue, kafka.Message{Offset: int64(i), Value: []byte(value)})
	}
	sink := &recordingSink{}
	c := newConsumer(reader, newTestHandler(t, sink), 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for reader.committedCount() < 10 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out, committed %d of 10", reader.committedCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}

	valid, invalid := 0, 0
	for _, p := range sink.published() {
		switch p.outcome {
		case "valid":
			valid++
		case "invalid":
			invalid++
		}
	}
	if valid != 5 || invalid != 5 {
		t.Errorf("expected 5 valid and 5 invalid, got %d and %d", valid, invalid)
	}
}

func TestConsumer_PublishFailureLeavesUncommitted(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Offset: 1, Value: []byte(`{"name":"login","version":1}`)}}}
	sink := &recordingSink{err: errors.New("broker down")}
	c := newConsumer(reader, newTestHandler(t, sink), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := reader.committedCount(); n != 0 {
		t.Errorf("expected no commits, got %d", n)
	}
}

func TestConsumer_FetchError(t *testing.T) {
	reader := &fakeReader{fetchErr: fmt.Errorf("connection refused")}
	c := newConsumer(reader, newTestHandler(t, &recordingSink{}), 2)

	err := c.Run(context.Background())
	if err == nil {
		t.Fatal("expected fetch error")
	}
	if !errors.Is(err, reader.fetchErr) {
		t.Errorf("expected wrapped fetch error, got %v", err)
	}
}

func TestConsumer_Close(t *testing.T) {
	reader := &fakeReader{}
	c := newConsumer(reader, nil, 0)

	if c.workers != 1 {
		t.Errorf("expected at least one worker, got %d", c.workers)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reader.closed {
		t.Error("expected reader to be closed")
	}
}
