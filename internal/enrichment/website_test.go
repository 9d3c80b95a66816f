package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckWebsiteStatuses(t *testing.T) {
	tests := []struct {
		name string
		code int
		want string
	}{
		{"ok", http.StatusOK, WebsiteActive},
		{"redirect counts as active", http.StatusFound, WebsiteActive},
		{"not found", http.StatusNotFound, WebsiteNotFound},
		{"gone", http.StatusGone, WebsiteNotFound},
		{"server error", http.StatusInternalServerError, WebsiteUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer server.Close()

			status, err := NewWebsiteProber().CheckWebsite(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("check: %v", err)
			}
			if status != tt.want {
				t.Errorf("status = %s, want %s", status, tt.want)
			}
		})
	}
}

func TestCheckWebsiteConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	status, err := NewWebsiteProber().CheckWebsite(context.Background(), url)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status != WebsiteUnreachable {
		t.Errorf("status = %s, want %s", status, WebsiteUnreachable)
	}
}

func TestCheckWebsiteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	status, err := NewWebsiteProber().CheckWebsite(ctx, server.URL)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status != WebsiteTimeout {
		t.Errorf("status = %s, want %s", status, WebsiteTimeout)
	}
}

func TestCheckWebsiteAddsScheme(t *testing.T) {
	// No scheme and an unresolvable host: the probe should degrade to
	// unreachable, not error.
	status, err := NewWebsiteProber().CheckWebsite(context.Background(), "definitely-not-a-real-host.invalid")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status != WebsiteUnreachable {
		t.Errorf("status = %s, want %s", status, WebsiteUnreachable)
	}
}
