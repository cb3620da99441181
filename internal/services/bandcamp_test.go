package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/spoticamper/internal/shared"
)

const searchPage = `<html><body><ul class="result-items">
<li class="searchresult data-search">
  <div class="result-info">
    <div class="heading"><a href="https://artist.bandcamp.com/album/record?from=search&amp;search_item_id=1">Record</a></div>
  </div>
</li>
<li class="searchresult data-search">
  <div class="heading"><a href="https://other.bandcamp.com/album/second?from=search">Second</a></div>
</li>
</ul></body></html>`

const collectionPage = `<html><body><ol class="collection-grid">
<li><a class="item-link" href="https://artist.bandcamp.com/album/record">Record</a></li>
<li><a class="item-link" href="https://other.bandcamp.com/album/owned">Owned</a></li>
<li><a class="item-link">No href</a></li>
</ol></body></html>`

func TestBandcampService(t *testing.T) {
	t.Run("NewBandcampService Defaults", func(t *testing.T) {
		srv := NewBandcampService(BandcampOpts{})
		if srv.baseURL != defaultBandcampURL {
			t.Errorf("expected default base URL, got %s", srv.baseURL)
		}
		if srv.limiter.Limit() != 5 {
			t.Errorf("expected default limit 5, got %v", srv.limiter.Limit())
		}
		if srv.limiter.Burst() != 1 {
			t.Errorf("expected burst 1, got %d", srv.limiter.Burst())
		}
		if srv.Name() != "Bandcamp" {
			t.Errorf("expected name 'Bandcamp', got %s", srv.Name())
		}
	})

	t.Run("SearchAlbum", func(t *testing.T) {
		t.Run("First Result Without Query", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/search" {
					t.Errorf("expected path /search, got %s", r.URL.Path)
				}
				if r.URL.Query().Get("q") != "Artist Record" {
					t.Errorf("expected query 'Artist Record', got %q", r.URL.Query().Get("q"))
				}
				w.Write([]byte(searchPage))
			}))
			defer server.Close()

			srv := NewBandcampService(BandcampOpts{BaseURL: server.URL, HTTPClient: server.Client()})
			got, err := srv.SearchAlbum(context.Background(), "Artist Record")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != "https://artist.bandcamp.com/album/record" {
				t.Errorf("unexpected URL %q", got)
			}
		})

		t.Run("No Results", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html><body><p>No results</p></body></html>`))
			}))
			defer server.Close()

			srv := NewBandcampService(BandcampOpts{BaseURL: server.URL, HTTPClient: server.Client()})
			got, err := srv.SearchAlbum(context.Background(), "nothing")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != "" {
				t.Errorf("expected empty URL, got %q", got)
			}
		})

		t.Run("Result Without Link", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<div class="searchresult"><span>broken</span></div>`))
			}))
			defer server.Close()

			srv := NewBandcampService(BandcampOpts{BaseURL: server.URL, HTTPClient: server.Client()})
			_, err := srv.SearchAlbum(context.Background(), "broken")
			if !errors.Is(err, shared.ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})

		t.Run("Result Without Host", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<div class="searchresult"><a href="/album/x">x</a></div>`))
			}))
			defer server.Close()

			srv := NewBandcampService(BandcampOpts{BaseURL: server.URL, HTTPClient: server.Client()})
			got, err := srv.SearchAlbum(context.Background(), "x")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != "" {
				t.Errorf("expected not found, got %q", got)
			}
		})

		t.Run("Server Error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer server.Close()

			srv := NewBandcampService(BandcampOpts{BaseURL: server.URL, HTTPClient: server.Client()})
			_, err := srv.SearchAlbum(context.Background(), "x")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Rate Limited", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(searchPage))
			}))
			defer server.Close()

			srv := NewBandcampService(BandcampOpts{BaseURL: server.URL, HTTPClient: server.Client(), RateLimit: 20})
			start := time.Now()
			for range 3 {
				if _, err := srv.SearchAlbum(context.Background(), "x"); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
			}
			// burst 1 at 20/s: the second and third searches each wait ~50ms
			if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
				t.Errorf("expected searches to be spaced out, took %v", elapsed)
			}
		})

		t.Run("Retries Are Rate Limited", func(t *testing.T) {
			var mu sync.Mutex
			var seen []time.Time
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				seen = append(seen, time.Now())
				mu.Unlock()
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer server.Close()

			srv := NewBandcampService(BandcampOpts{
				BaseURL:    server.URL,
				HTTPClient: server.Client(),
				RateLimit:  20,
				Retry:      RetryPolicy{MaxRetries: 3, Backoff: 0},
			})
			_, err := srv.SearchAlbum(context.Background(), "x")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if len(seen) != 4 {
				t.Fatalf("expected 4 attempts, got %d", len(seen))
			}
			// 20/s leaves ~50ms between attempts even without backoff
			for i := 1; i < len(seen); i++ {
				if gap := seen[i].Sub(seen[i-1]); gap < 40*time.Millisecond {
					t.Errorf("attempt %d followed the previous one after %v", i+1, gap)
				}
			}
		})

		t.Run("Cancelled Context", func(t *testing.T) {
			srv := NewBandcampService(BandcampOpts{BaseURL: "http://127.0.0.1:0", RateLimit: 0.001})
			srv.limiter.Allow()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			if _, err := srv.SearchAlbum(ctx, "x"); err == nil {
				t.Error("expected error for cancelled context")
			}
		})
	})

	t.Run("Purchases", func(t *testing.T) {
		t.Run("Collection Links", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/fan" {
					t.Errorf("expected path /fan, got %s", r.URL.Path)
				}
				cookie, err := r.Cookie("identity")
				if err != nil || cookie.Value != "secret-token" {
					t.Errorf("expected identity cookie, got %v (%v)", cookie, err)
				}
				w.Write([]byte(collectionPage))
			}))
			defer server.Close()

			srv := NewBandcampService(BandcampOpts{BaseURL: server.URL, Username: "fan", Token: "secret-token", HTTPClient: server.Client()})
			links, err := srv.Purchases(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(links) != 2 {
				t.Fatalf("expected 2 links, got %v", links)
			}
			if links[0] != "https://artist.bandcamp.com/album/record" {
				t.Errorf("unexpected first link %q", links[0])
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			srv := NewBandcampService(BandcampOpts{Username: "fan"})
			_, err := srv.Purchases(context.Background())
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})
}

func TestNormalizeListingURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "drops query", raw: "https://a.bandcamp.com/album/x?from=search", want: "https://a.bandcamp.com/album/x"},
		{name: "drops fragment", raw: "https://a.bandcamp.com/album/x#tracks", want: "https://a.bandcamp.com/album/x"},
		{name: "protocol relative", raw: "//a.bandcamp.com/album/x", want: "https://a.bandcamp.com/album/x"},
		{name: "upgrades http", raw: "http://a.bandcamp.com/album/x", want: "https://a.bandcamp.com/album/x"},
		{name: "relative path", raw: "/album/x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeListingURL(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrParse) {
					t.Errorf("expected ErrParse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
