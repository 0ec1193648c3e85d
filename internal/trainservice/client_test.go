package trainservice

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

func TestClient_Register(t *testing.T) {
	t.Run("accepts 200 and forwards the payload", func(t *testing.T) {
		var gotBody map[string]any
		var gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotContentType = r.Header.Get("Content-Type")
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Errorf("decoding request body: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(Config{URL: server.URL, Timeout: 5 * time.Second})
		payload := map[string]any{"siding": "S1", "max_bags": float64(50)}

		if err := client.Register(context.Background(), payload); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if gotContentType != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", gotContentType)
		}
		if gotBody["siding"] != "S1" || gotBody["max_bags"] != float64(50) {
			t.Errorf("forwarded payload = %v, want original fields", gotBody)
		}
	})

	t.Run("accepts 201", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := NewClient(Config{URL: server.URL})
		if err := client.Register(context.Background(), map[string]any{}); err != nil {
			t.Errorf("Register() error = %v", err)
		}
	})

	t.Run("rejection carries status and body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"train already registered"}`))
		}))
		defer server.Close()

		client := NewClient(Config{URL: server.URL})
		err := client.Register(context.Background(), map[string]any{"siding": "S1"})
		if !errors.Is(err, ErrRegistrationRejected) {
			t.Fatalf("Register() error = %v, want ErrRegistrationRejected", err)
		}
		if !strings.Contains(err.Error(), "409") {
			t.Errorf("error %q does not mention the status code", err)
		}
		if !strings.Contains(err.Error(), "train already registered") {
			t.Errorf("error %q does not carry the response body", err)
		}
	})

	t.Run("transport failure is not a rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		server.Close() // refuse connections

		client := NewClient(Config{URL: server.URL, Timeout: time.Second})
		err := client.Register(context.Background(), map[string]any{})
		if err == nil {
			t.Fatal("Register() error = nil, want transport failure")
		}
		if errors.Is(err, ErrRegistrationRejected) {
			t.Errorf("transport failure reported as rejection: %v", err)
		}
	})
}

func TestClient_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	server.Close()
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() error = nil after server shutdown, want failure")
	}
}
