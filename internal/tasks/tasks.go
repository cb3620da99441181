// package tasks implements album reconciliation between a playlist source and a marketplace.
//
// The core type is Reconciler, which mutates a [models.State] in place.
// Operations emit progress updates via channels for non-blocking status reporting to the CLI layer.
package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spoticamper/internal/models"
	"github.com/desertthunder/spoticamper/internal/services"
	"github.com/desertthunder/spoticamper/internal/shared"
)

// ImportResult summarizes a playlist import.
type ImportResult struct {
	PlaylistID string // Resolved playlist id
	Entries    int    // Playlist items carrying an album
	Registered int    // Albums not previously in the state
}

// ResolveResult summarizes a marketplace search pass.
type ResolveResult struct {
	Searched int // Albums queried
	Found    int // Albums for which a listing was recorded
}

// SyncResult contains everything a playlist run did.
type SyncResult struct {
	Import    ImportResult
	Resolve   ResolveResult
	Purchased int // Albums newly flagged as purchased
}

// Reconciler brings a [models.State] up to date with a playlist and a marketplace.
//
// It is not safe for concurrent use; callers hold the state lock for the whole run.
type Reconciler struct {
	playlists services.PlaylistSource
	market    services.Marketplace
	logger    *log.Logger
}

// NewReconciler creates a new Reconciler. Either service may be nil when the operations needing it are not used.
func NewReconciler(playlists services.PlaylistSource, market services.Marketplace, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Reconciler{playlists: playlists, market: market, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (r *Reconciler) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// ImportPlaylist registers every album of the playlist that the state does not know yet.
//
// Known albums are left untouched, so importing the same playlist twice registers nothing the second time.
func (r *Reconciler) ImportPlaylist(ctx context.Context, progress chan<- ProgressUpdate, state *models.State, playlistRef string) (*ImportResult, error) {
	if r.playlists == nil {
		return nil, fmt.Errorf("%w: playlist source not initialized", shared.ErrServiceUnavailable)
	}

	id, err := services.PlaylistID(playlistRef)
	if err != nil {
		return nil, err
	}

	r.sendProgress(progress, fetchPlaylistUpdate(r.playlists.Name(), id))
	entries, err := r.playlists.PlaylistAlbums(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %s: %w", id, err)
	}

	result := &ImportResult{PlaylistID: id, Entries: len(entries)}
	for _, entry := range entries {
		if state.Register(entry) {
			result.Registered++
			r.logger.Debug("registered album", "key", models.AlbumKey(entry.AlbumName, entry.AlbumID))
		}
	}

	r.sendProgress(progress, registeredUpdate(result.Registered, result.Entries))
	return result, nil
}

// Resolve searches the marketplace for every album that has not been searched, in key order.
//
// Each album is searched at most once: a miss is recorded as searched and not found.
// The first search error aborts the pass; albums searched before it keep their results in memory.
func (r *Reconciler) Resolve(ctx context.Context, progress chan<- ProgressUpdate, state *models.State) (*ResolveResult, error) {
	if r.market == nil {
		return nil, fmt.Errorf("%w: marketplace not initialized", shared.ErrServiceUnavailable)
	}

	pending := state.Unsearched()
	total := len(pending)
	result := &ResolveResult{}

	r.sendProgress(progress, searchStartUpdate(total, r.market.Name()))
	for i, album := range pending {
		url, err := r.market.SearchAlbum(ctx, album.SearchTerm)
		if err != nil {
			return result, fmt.Errorf("search %q: %w", album.SearchTerm, err)
		}

		if err := state.RecordSearch(album.Key, url); err != nil {
			return result, err
		}

		result.Searched++
		if url != "" {
			result.Found++
		}
		r.logger.Debug("searched album", "term", album.SearchTerm, "url", url)
		r.sendProgress(progress, searchAlbumUpdate(i+1, total, album))
	}

	return result, nil
}

// RefreshPurchased flags every album whose listing appears in the user's purchases and returns how many flipped.
func (r *Reconciler) RefreshPurchased(ctx context.Context, progress chan<- ProgressUpdate, state *models.State) (int, error) {
	if r.market == nil {
		return 0, fmt.Errorf("%w: marketplace not initialized", shared.ErrServiceUnavailable)
	}

	r.sendProgress(progress, fetchPurchasesUpdate(r.market.Name()))
	links, err := r.market.Purchases(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch purchases: %w", err)
	}

	newly := 0
	for _, link := range links {
		if state.MarkPurchased(link) {
			newly++
			r.logger.Debug("marked purchased", "url", link)
		}
	}

	r.sendProgress(progress, purchasedUpdate(newly, len(links)))
	return newly, nil
}

// Sync imports a playlist, searches the new albums and refreshes purchases.
func (r *Reconciler) Sync(ctx context.Context, progress chan<- ProgressUpdate, state *models.State, playlistRef string) (*SyncResult, error) {
	imported, err := r.ImportPlaylist(ctx, progress, state, playlistRef)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Import: *imported}

	resolved, err := r.Resolve(ctx, progress, state)
	if err != nil {
		return nil, err
	}
	result.Resolve = *resolved

	result.Purchased, err = r.RefreshPurchased(ctx, progress, state)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RetryNotFound makes every not-found album searchable again and resolves them.
//
// Albums that were never searched are picked up by the same pass.
func (r *Reconciler) RetryNotFound(ctx context.Context, progress chan<- ProgressUpdate, state *models.State) (int, *ResolveResult, error) {
	reset := state.ResetNotFound()
	r.sendProgress(progress, resetNotFoundUpdate(reset))

	resolved, err := r.Resolve(ctx, progress, state)
	if err != nil {
		return reset, nil, err
	}
	return reset, resolved, nil
}
