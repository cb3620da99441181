package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/desertthunder/spoticamper/internal/shared"
)

// newSpotifyServer serves the token endpoint and a playlist split into pages of the given items.
func newSpotifyServer(t *testing.T, pages [][]map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse token form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("expected client_credentials grant, got %q", r.Form.Get("grant_type"))
		}
		id, secret, ok := r.BasicAuth()
		if !ok || id != "app-id" || secret != "app-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/playlists/{id}/tracks", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.PathValue("id") != "pl1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("fields") != playlistFields {
			t.Errorf("expected fields %q, got %q", playlistFields, r.URL.Query().Get("fields"))
		}

		offset := r.URL.Query().Get("offset")
		index := 0
		seen := 0
		for i, page := range pages {
			if offset == strconv.Itoa(seen) {
				index = i
				break
			}
			seen += len(page)
		}

		var next *string
		if index < len(pages)-1 {
			link := "https://api.spotify.com/v1/next"
			next = &link
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"items": pages[index], "next": next})
	})
	return httptest.NewServer(mux)
}

func track(albumID, albumName string, artists ...string) map[string]any {
	names := make([]map[string]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, map[string]string{"name": a})
	}
	return map[string]any{
		"track": map[string]any{
			"artists": names,
			"album":   map[string]string{"id": albumID, "name": albumName},
		},
	}
}

func newTestSpotify(t *testing.T, server *httptest.Server, secret string) *SpotifyService {
	t.Helper()
	srv, err := NewSpotifyService(SpotifyOpts{
		ClientID:     "app-id",
		ClientSecret: secret,
		TokenURL:     server.URL + "/token",
		BaseURL:      server.URL + "/v1",
		HTTPClient:   server.Client(),
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return srv
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(SpotifyOpts{ClientID: "id", ClientSecret: "secret"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.config.TokenURL != spotifyTokenURL {
				t.Errorf("expected default token URL, got %s", srv.config.TokenURL)
			}
			if srv.baseURL != spotifyBaseURL {
				t.Errorf("expected default base URL, got %s", srv.baseURL)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(SpotifyOpts{ClientSecret: "secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(SpotifyOpts{ClientID: "id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("Authenticate", func(t *testing.T) {
		server := newSpotifyServer(t, [][]map[string]any{{}})
		defer server.Close()

		t.Run("Valid Credentials", func(t *testing.T) {
			srv := newTestSpotify(t, server, "app-secret")
			if err := srv.Authenticate(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.authed == nil {
				t.Error("expected authenticated client to be set")
			}
		})

		t.Run("Rejected Credentials", func(t *testing.T) {
			srv := newTestSpotify(t, server, "wrong")
			err := srv.Authenticate(context.Background())
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
		})
	})

	t.Run("PlaylistAlbums", func(t *testing.T) {
		t.Run("Pages Through Playlist", func(t *testing.T) {
			server := newSpotifyServer(t, [][]map[string]any{
				{
					track("a1", "First", "Artist One", "Guest"),
					{"track": nil},
					track("a2", "Second", "Artist Two"),
				},
				{
					track("a1", "First", "Artist One"),
					track("", "Local File", "Nobody"),
				},
			})
			defer server.Close()

			srv := newTestSpotify(t, server, "app-secret")
			entries, err := srv.PlaylistAlbums(context.Background(), "pl1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(entries) != 3 {
				t.Fatalf("expected 3 entries, got %d: %+v", len(entries), entries)
			}
			if entries[0].AlbumID != "a1" || entries[0].AlbumName != "First" {
				t.Errorf("unexpected first entry: %+v", entries[0])
			}
			if len(entries[0].Artists) != 2 || entries[0].Artists[0] != "Artist One" {
				t.Errorf("expected artists in order, got %v", entries[0].Artists)
			}
			if entries[1].AlbumID != "a2" {
				t.Errorf("expected second entry a2, got %s", entries[1].AlbumID)
			}
			if entries[2].AlbumID != "a1" {
				t.Errorf("expected repeated album to be kept in order, got %s", entries[2].AlbumID)
			}
		})

		t.Run("Unknown Playlist", func(t *testing.T) {
			server := newSpotifyServer(t, [][]map[string]any{{}})
			defer server.Close()

			srv := newTestSpotify(t, server, "app-secret")
			_, err := srv.PlaylistAlbums(context.Background(), "missing")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
		})

		t.Run("Authentication Failure", func(t *testing.T) {
			server := newSpotifyServer(t, [][]map[string]any{{}})
			defer server.Close()

			srv := newTestSpotify(t, server, "wrong")
			_, err := srv.PlaylistAlbums(context.Background(), "pl1")
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
		})

		t.Run("Malformed Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/token" {
					w.Header().Set("Content-Type", "application/json")
					w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`))
					return
				}
				w.Write([]byte("not json"))
			}))
			defer server.Close()

			srv := newTestSpotify(t, server, "app-secret")
			_, err := srv.PlaylistAlbums(context.Background(), "pl1")
			if !errors.Is(err, shared.ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})
	})

	t.Run("Request Before Authenticate", func(t *testing.T) {
		srv, _ := NewSpotifyService(SpotifyOpts{ClientID: "id", ClientSecret: "secret"})
		_, err := srv.PlaylistTracks(context.Background(), "pl1", 10, 0)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestPlaylistID(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{name: "bare id", ref: "37i9dQZF1DXcBWIGoYBM5M", want: "37i9dQZF1DXcBWIGoYBM5M"},
		{name: "share url", ref: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc", want: "37i9dQZF1DXcBWIGoYBM5M"},
		{name: "trailing slash", ref: "https://open.spotify.com/playlist/abc/", want: "abc"},
		{name: "uri", ref: "spotify:playlist:abc", want: "abc"},
		{name: "surrounding space", ref: "  abc  ", want: "abc"},
		{name: "album uri", ref: "spotify:album:abc", wantErr: true},
		{name: "empty", ref: "", wantErr: true},
		{name: "url without path", ref: "https://open.spotify.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlaylistID(tt.ref)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v (%q)", err, got)
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
