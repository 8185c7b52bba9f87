package holiday

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/PublicHolidays/2024/US" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"date": "2024-01-01", "localName": "New Year's Day", "name": "New Year's Day"},
			{"date": "2024-07-04", "localName": "Independence Day", "name": ""}
		]`))
	}))
	defer srv.Close()

	cal, err := NewClient(srv.URL).Fetch(context.Background(), 2024, "US")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(cal) != 2 {
		t.Fatalf("fetched %d entries, want 2", len(cal))
	}
	if cal["2024-01-01"] != "New Year's Day" {
		t.Errorf("entry = %q", cal["2024-01-01"])
	}
	// The English name is empty here, so the local name is kept.
	if cal["2024-07-04"] != "Independence Day" {
		t.Errorf("entry = %q", cal["2024-07-04"])
	}
}

func TestClientFetch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no data", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Fetch(context.Background(), 2024, "US"); err == nil {
		t.Error("Fetch() expected error, got nil")
	}
}

func TestClientFetch_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Fetch(context.Background(), 2024, "US"); err == nil {
		t.Error("Fetch() expected error, got nil")
	}
}
