package main

import "testing"

func TestDecodeOutcome_Valid(t *testing.T) {
	raw := []byte(`{"event":{"name":"login","version":2,"id":"e-1"},"encryptedFields":["userId"],"validatedAt":42}`)

	ev, err := decodeOutcome("valid", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Name != "login" || ev.Version != 2 || ev.EventID != "e-1" {
		t.Errorf("expected login/2 e-1, got %s/%d %s", ev.Name, ev.Version, ev.EventID)
	}
	if len(ev.EncryptedFields) != 1 || ev.EncryptedFields[0] != "userId" {
		t.Errorf("expected [userId], got %v", ev.EncryptedFields)
	}
}

func TestDecodeOutcome_Invalid(t *testing.T) {
	raw := []byte(`{"eventId":"e-2","name":"login","version":1,"success":false,"errors":[{"code":"required","path":"payload.user","message":"Element 'user' is required"}],"validatedAt":7}`)

	ev, err := decodeOutcome("invalid", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Outcome != "invalid" {
		t.Errorf("expected outcome 'invalid', got %s", ev.Outcome)
	}
	if len(ev.Errors) != 1 || ev.Errors[0].Code != "required" {
		t.Errorf("expected one required error, got %v", ev.Errors)
	}
}

func TestDecodeOutcome_Garbage(t *testing.T) {
	if _, err := decodeOutcome("valid", []byte("{")); err == nil {
		t.Error("expected error for truncated JSON")
	}
}
