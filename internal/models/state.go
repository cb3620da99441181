package models

import (
	"fmt"
	"sort"

	"github.com/desertthunder/spoticamper/internal/shared"
)

// State is the persisted document: all known albums and the Bandcamp URL reverse index.
type State struct {
	Albums     map[string]*Album `json:"albums"`
	URLToAlbum map[string]string `json:"bandcamp_url_to_album_key"`
}

// NewState returns an empty document.
func NewState() *State {
	return &State{
		Albums:     make(map[string]*Album),
		URLToAlbum: make(map[string]string),
	}
}

// Normalize fills nil maps and missing keys left by older or hand-edited files.
func (s *State) Normalize() {
	if s.Albums == nil {
		s.Albums = make(map[string]*Album)
	}
	if s.URLToAlbum == nil {
		s.URLToAlbum = make(map[string]string)
	}
	for key, album := range s.Albums {
		if album == nil {
			delete(s.Albums, key)
			continue
		}
		if album.Key == "" {
			album.Key = key
		}
	}
}

// Register adds the album for entry unless its key is already known. Reports whether it was added.
func (s *State) Register(entry PlaylistEntry) bool {
	key := AlbumKey(entry.AlbumName, entry.AlbumID)
	if _, ok := s.Albums[key]; ok {
		return false
	}
	s.Albums[key] = NewAlbum(entry)
	return true
}

// Album returns the album stored under key.
func (s *State) Album(key string) (*Album, bool) {
	a, ok := s.Albums[key]
	return a, ok
}

// Keys returns album keys in sorted order.
func (s *State) Keys() []string {
	keys := make([]string, 0, len(s.Albums))
	for key := range s.Albums {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Unsearched returns albums never searched on Bandcamp, ordered by key.
func (s *State) Unsearched() []*Album {
	var albums []*Album
	for _, key := range s.Keys() {
		if a := s.Albums[key]; !a.Searched {
			albums = append(albums, a)
		}
	}
	return albums
}

// RecordSearch stores the outcome of a Bandcamp search. An empty url means nothing was found.
func (s *State) RecordSearch(key, url string) error {
	album, ok := s.Albums[key]
	if !ok {
		return fmt.Errorf("%w: unknown album %q", shared.ErrInvalidState, key)
	}

	album.Searched = true
	if url == "" {
		album.Found = false
		album.URL = ""
		return nil
	}

	// when two albums resolve to one listing the index follows the latest search
	album.Found = true
	album.URL = url
	s.URLToAlbum[url] = key
	return nil
}

// MarkPurchased flips the album indexed under url to purchased. Reports whether anything changed.
func (s *State) MarkPurchased(url string) bool {
	key, ok := s.URLToAlbum[url]
	if !ok {
		return false
	}
	album, ok := s.Albums[key]
	if !ok || album.Purchased {
		return false
	}
	album.Purchased = true
	return true
}

// ResetNotFound marks every searched-but-not-found album as unsearched again. Returns how many were reset.
func (s *State) ResetNotFound() int {
	n := 0
	for _, album := range s.Albums {
		if album.Searched && !album.Found {
			album.Searched = false
			n++
		}
	}
	return n
}

// Unpurchased returns found albums not yet purchased, ordered by key.
//
// Albums without a Bandcamp URL are left out.
func (s *State) Unpurchased() []*Album {
	var albums []*Album
	for _, key := range s.Keys() {
		if a := s.Albums[key]; !a.Purchased && a.Found {
			albums = append(albums, a)
		}
	}
	return albums
}

// Stats counts albums by derived fact.
func (s *State) Stats() Stats {
	var st Stats
	for _, album := range s.Albums {
		st.Albums++
		if album.Purchased {
			st.Purchased++
		}
		if album.Found {
			st.Found++
		}
		if !album.Searched {
			st.Unsearched++
		}
	}
	st.NotFound = st.Albums - st.Found
	return st
}

// Validate checks the document invariants and reports the first violation.
func (s *State) Validate() error {
	for _, key := range s.Keys() {
		album := s.Albums[key]
		if album.Key != key {
			return fmt.Errorf("%w: album %q stored under key %q", shared.ErrInvalidState, album.Key, key)
		}
		if !album.Searched && (album.Found || album.Purchased) {
			return fmt.Errorf("%w: album %q is found or purchased without being searched", shared.ErrInvalidState, key)
		}
		if album.Found != (album.URL != "") {
			return fmt.Errorf("%w: album %q found=%v with url %q", shared.ErrInvalidState, key, album.Found, album.URL)
		}
	}

	for url, key := range s.URLToAlbum {
		album, ok := s.Albums[key]
		if !ok {
			return fmt.Errorf("%w: reverse index %q points at unknown album %q", shared.ErrInvalidState, url, key)
		}
		if album.URL != url {
			return fmt.Errorf("%w: reverse index %q points at album %q with url %q", shared.ErrInvalidState, url, key, album.URL)
		}
	}
	return nil
}

// PercentPurchased returns the share of purchased albums, or [shared.ErrNoAlbums] when there are none.
func (st Stats) PercentPurchased() (float64, error) {
	return percent(st.Purchased, st.Albums)
}

// PercentNotFound returns the share of albums without a Bandcamp URL, or [shared.ErrNoAlbums] when there are none.
func (st Stats) PercentNotFound() (float64, error) {
	return percent(st.NotFound, st.Albums)
}

func percent(part, total int) (float64, error) {
	if total == 0 {
		return 0, shared.ErrNoAlbums
	}
	return float64(part) / float64(total) * 100, nil
}
