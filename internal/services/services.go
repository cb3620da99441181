// package services defines the external collaborators used by reconciliation
//
// Spotify (playlist source), Bandcamp (marketplace)
package services

import (
	"context"

	"github.com/desertthunder/spoticamper/internal/models"
)

// PlaylistSource lists the albums behind a streaming-service playlist.
type PlaylistSource interface {
	// PlaylistAlbums returns one entry per playlist track, in playlist order.
	PlaylistAlbums(ctx context.Context, playlistID string) ([]models.PlaylistEntry, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// Marketplace finds album listings and the user's purchases.
type Marketplace interface {
	// SearchAlbum returns the normalized URL of the first listing matching query, or "" when nothing matches.
	SearchAlbum(ctx context.Context, query string) (string, error)

	// Purchases returns the links on the user's collection page.
	Purchases(ctx context.Context) ([]string, error)

	// Name returns the name of the service (e.g., "Bandcamp")
	Name() string
}
