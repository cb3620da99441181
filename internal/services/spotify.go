// Spotify Web API implementation of [PlaylistSource]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/desertthunder/spoticamper/internal/models"
	"github.com/desertthunder/spoticamper/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// only the album and artist names of each track are needed
	playlistFields   = "items(track(artists(name),album(id,name))),next"
	playlistPageSize = 100
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track, reduced to the fields requested.
type SpotifyTrack struct {
	Artists []SpotifyArtist `json:"artists"`
	Album   SpotifyAlbum    `json:"album"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for removed or unavailable items.
type SpotifyPlaylistTrack struct {
	Track *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistTracks represents one page of playlist items.
type SpotifyPlaylistTracks struct {
	Items []SpotifyPlaylistTrack `json:"items"`
	Next  *string                `json:"next"`
}

// SpotifyOpts configures a [SpotifyService].
type SpotifyOpts struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	BaseURL      string
	HTTPClient   *http.Client
	Retry        RetryPolicy
}

// SpotifyService implements [PlaylistSource] using the client-credentials grant.
//
// No user authorization is involved, so only public playlists can be read.
type SpotifyService struct {
	config     *clientcredentials.Config
	baseURL    string
	httpClient *http.Client
	authed     *http.Client
	retry      RetryPolicy
}

// NewSpotifyService creates a new Spotify service with the given app credentials.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &SpotifyService{
		config: &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		retry:      opts.Retry,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate exchanges the app credentials for an access token.
//
// The token is cached and renewed by [oauth2] when it expires. ctx must outlive every later request.
func (s *SpotifyService) Authenticate(ctx context.Context) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	source := s.config.TokenSource(ctx)
	if _, err := source.Token(); err != nil {
		return fmt.Errorf("%w: spotify token exchange: %v", shared.ErrAuthFailed, err)
	}

	client := oauth2.NewClient(ctx, source)
	client.Timeout = s.httpClient.Timeout
	s.authed = client
	return nil
}

// doRequest performs an authenticated GET against the Spotify API and decodes the JSON body into result.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.authed == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	resp, err := doWithRetry(ctx, s.authed, s.retry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, endpoint)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify rejected the access token", shared.ErrNotAuthenticated)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode spotify response: %v", shared.ErrParse, err)
	}
	return nil
}

// PlaylistTracks retrieves one page of playlist items.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPlaylistTracks, error) {
	if limit <= 0 || limit > playlistPageSize {
		limit = playlistPageSize
	}

	query := url.Values{
		"fields": {playlistFields},
		"limit":  {fmt.Sprint(limit)},
		"offset": {fmt.Sprint(offset)},
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks?%s", url.PathEscape(playlistID), query.Encode())

	var page SpotifyPlaylistTracks
	if err := s.doRequest(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// PlaylistAlbums pages through the whole playlist and returns the album of every track, in order.
//
// Authenticates first when needed. Removed tracks and local files (no album id) are skipped.
func (s *SpotifyService) PlaylistAlbums(ctx context.Context, playlistID string) ([]models.PlaylistEntry, error) {
	if s.authed == nil {
		if err := s.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	var entries []models.PlaylistEntry
	offset := 0
	for {
		page, err := s.PlaylistTracks(ctx, playlistID, playlistPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.Album.ID == "" {
				continue
			}

			artists := make([]string, 0, len(item.Track.Artists))
			for _, artist := range item.Track.Artists {
				artists = append(artists, artist.Name)
			}

			entries = append(entries, models.PlaylistEntry{
				AlbumID:   item.Track.Album.ID,
				AlbumName: item.Track.Album.Name,
				Artists:   artists,
			})
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	return entries, nil
}

// PlaylistID extracts the playlist id from a share URL, a spotify:playlist: URI or a bare id.
func PlaylistID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty playlist reference", shared.ErrInvalidArgument)
	}

	if rest, ok := strings.CutPrefix(ref, "spotify:"); ok {
		kind, id, found := strings.Cut(rest, ":")
		if !found || kind != "playlist" || id == "" {
			return "", fmt.Errorf("%w: not a playlist URI: %s", shared.ErrInvalidArgument, ref)
		}
		return id, nil
	}

	if !strings.Contains(ref, "://") {
		return ref, nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	id := path.Base(strings.TrimRight(u.Path, "/"))
	if id == "" || id == "." || id == "/" {
		return "", fmt.Errorf("%w: no playlist id in %s", shared.ErrInvalidArgument, ref)
	}
	return id, nil
}
