package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestComplete(t *testing.T) {
	var gotPath string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Interested"}]}}]}`))
	}))
	defer server.Close()

	svc := NewGeminiService("test-key")
	svc.baseURL = server.URL

	got, err := svc.Complete(context.Background(), "classify this", 50, 0.1)
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "Interested" {
		t.Errorf("Complete() = %q", got)
	}
	if !strings.Contains(gotPath, "gemini-1.5-flash:generateContent") {
		t.Errorf("path = %q", gotPath)
	}

	var req generateRequest
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if req.GenerationConfig == nil || req.GenerationConfig.MaxOutputTokens != 50 {
		t.Errorf("generation config not forwarded: %+v", req.GenerationConfig)
	}
	if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "classify this" {
		t.Errorf("prompt not forwarded: %+v", req.Contents)
	}
}

func TestCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	}))
	defer server.Close()

	svc := NewGeminiService("bad-key")
	svc.baseURL = server.URL

	if _, err := svc.Complete(context.Background(), "x", 10, 0); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestCompleteEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	svc := NewGeminiService("k")
	svc.baseURL = server.URL

	if _, err := svc.Complete(context.Background(), "x", 10, 0); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"pong"}]}}]}`))
	}))
	defer server.Close()

	svc := NewGeminiService("k")
	svc.baseURL = server.URL

	if err := svc.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}
