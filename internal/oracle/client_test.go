package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientGenerate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{Model: got.Model, Response: `{"summary":"ok"}`, Done: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "llama3", time.Second)
	out, err := c.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(out) != `{"summary":"ok"}` {
		t.Fatalf("unexpected output %q", out)
	}
	if got.Model != "llama3" || got.Prompt != "hello" || got.Format != "json" || got.Stream {
		t.Fatalf("unexpected request body %+v", got)
	}
}

func TestClientNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "missing", time.Second).Generate(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestClientMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"not json": "<html>",
		"empty":    `{"response":"  ","done":true}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()
			_, err := NewClient(srv.URL, "m", time.Second).Generate(context.Background(), "x")
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}
