package commerce

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewClient(srv.URL, "test-token", logger)
}

func TestClient_FetchPaidLineItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("email"); got != "trader@example.com" {
			t.Errorf("email query = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"line_items":[
			{"title":"Elite Trader Mentorship","is_subscription":true,"subscription_plan":"monthly","paid_at":"2024-06-01T00:00:00Z"},
			{"title":"Sticker Pack","is_subscription":false,"paid_at":"not-a-date"}
		]}`))
	})

	items, err := client.FetchPaidLineItems(context.Background(), "trader@example.com")
	if err != nil {
		t.Fatalf("FetchPaidLineItems() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if !items[0].IsSubscription || items[0].PaidAt == nil {
		t.Errorf("first item not parsed: %+v", items[0])
	}
	if items[1].PaidAt != nil {
		t.Errorf("unparseable paid_at should stay nil, got %v", items[1].PaidAt)
	}
}

func TestClient_FetchPaidLineItems_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"line_items":[]}`))
	})

	items, err := client.FetchPaidLineItems(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("empty result must not error, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
}

func TestClient_FetchPaidLineItems_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"auth rejected", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}, ErrGatewayAuth},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, ErrGatewayConnectivity},
		{"wrong content type", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html>"))
		}, ErrGatewayConnectivity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.FetchPaidLineItems(context.Background(), "x@example.com")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
