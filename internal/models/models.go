// package models defines the data model for the library reconciliation
package models

import (
	"strings"
	"time"
)

// Album is one Spotify album and what is known about it on Bandcamp.
type Album struct {
	Key        string   `json:"key"`
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Purchased  bool     `json:"purchased"`
	SearchTerm string   `json:"bandcamp_search_term"`
	Found      bool     `json:"bandcamp_url_found"`
	Searched   bool     `json:"bandcamp_url_searched"`
	URL        string   `json:"bandcamp_url"`
}

// PlaylistEntry is the album part of a single playlist track.
type PlaylistEntry struct {
	AlbumID   string
	AlbumName string
	Artists   []string
}

// Stats aggregates a [State]. NotFound counts every album without a URL, searched or not.
type Stats struct {
	Albums     int
	Purchased  int
	Found      int
	NotFound   int
	Unsearched int
}

// Run records the outcome of one successful invocation.
type Run struct {
	ID         string
	Playlist   string
	Albums     int
	Registered int
	Searched   int
	Found      int
	Purchased  int
	StartedAt  time.Time
	FinishedAt time.Time
}

// AlbumKey builds the stable identity of an album: its name and Spotify id joined by a colon.
func AlbumKey(name, id string) string {
	return name + ":" + id
}

// SearchTerm builds the Bandcamp query for an album: first artist, a space, then the album name.
//
// Albums without artists are searched by name alone.
func SearchTerm(artists []string, name string) string {
	if len(artists) == 0 {
		return name
	}
	return strings.TrimSpace(artists[0] + " " + name)
}

// NewAlbum creates an album from a playlist entry with every derived fact unset.
func NewAlbum(entry PlaylistEntry) *Album {
	artists := append([]string{}, entry.Artists...)
	return &Album{
		Key:        AlbumKey(entry.AlbumName, entry.AlbumID),
		ID:         entry.AlbumID,
		Name:       entry.AlbumName,
		Artists:    artists,
		SearchTerm: SearchTerm(artists, entry.AlbumName),
	}
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
