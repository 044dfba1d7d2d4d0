package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAssess(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: `{"suitable": false}`},
			Done:    true,
		})
	}))
	defer server.Close()

	o := New(Config{BaseURL: server.URL, Model: "gemma3:27b"})
	got, err := o.Assess(context.Background(), []byte("imagebytes"), "IMG_1234.png")
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if got.Suitable {
		t.Error("Suitable = true, want false")
	}

	if gotReq.Model != "gemma3:27b" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || len(gotReq.Messages[0].Images) != 1 {
		t.Fatalf("request should carry exactly one message with one image")
	}
	if gotReq.Stream {
		t.Error("stream should be false")
	}
}

func TestPropose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{
				Role:    "assistant",
				Content: `{"stem": "sunset-over-harbor--golden-light", "extension": "jpg"}`,
			},
			Done: true,
		})
	}))
	defer server.Close()

	o := New(Config{BaseURL: server.URL})
	got, err := o.Propose(context.Background(), []byte("imagebytes"))
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if got.Stem != "sunset-over-harbor--golden-light" {
		t.Errorf("Stem = %q", got.Stem)
	}
}

func TestProposeEmptyStem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{Role: "assistant", Content: `{"stem": "", "extension": ".png"}`},
		})
	}))
	defer server.Close()

	o := New(Config{BaseURL: server.URL})
	if _, err := o.Propose(context.Background(), []byte("x")); err == nil {
		t.Error("expected error for empty stem")
	}
}

func TestServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	o := New(Config{BaseURL: server.URL})
	if _, err := o.Assess(context.Background(), []byte("x"), "a.png"); err == nil {
		t.Error("expected error for non-200 status")
	}
}
