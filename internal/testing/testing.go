// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/spoticamper/internal/models"
)

// MockPlaylistSource is a test double for [services.PlaylistSource]
type MockPlaylistSource struct {
	Entries []models.PlaylistEntry
	Err     error
	Calls   []string // playlist ids requested
}

func (m *MockPlaylistSource) PlaylistAlbums(ctx context.Context, playlistID string) ([]models.PlaylistEntry, error) {
	m.Calls = append(m.Calls, playlistID)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Entries, nil
}

func (m *MockPlaylistSource) Name() string { return "mock-source" }

// MockMarketplace is a test double for [services.Marketplace]
//
// Results maps search terms to listing URLs; unknown terms find nothing.
// SearchErrs fails individual terms.
type MockMarketplace struct {
	Results      map[string]string
	SearchErrs   map[string]error
	Links        []string
	PurchasesErr error
	Queries      []string
}

func (m *MockMarketplace) SearchAlbum(ctx context.Context, query string) (string, error) {
	m.Queries = append(m.Queries, query)
	if err := m.SearchErrs[query]; err != nil {
		return "", err
	}
	return m.Results[query], nil
}

func (m *MockMarketplace) Purchases(ctx context.Context) ([]string, error) {
	if m.PurchasesErr != nil {
		return nil, m.PurchasesErr
	}
	return m.Links, nil
}

func (m *MockMarketplace) Name() string { return "mock-market" }

// Entry builds a playlist entry.
func Entry(id, name string, artists ...string) models.PlaylistEntry {
	return models.PlaylistEntry{AlbumID: id, AlbumName: name, Artists: artists}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("File should not exist: %s", path)
	}
}
