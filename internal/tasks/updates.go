package tasks

import (
	"fmt"

	"github.com/desertthunder/spoticamper/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data (*models.Album while searching)
}

// Remaining reports how many steps of the phase are left after this one.
func (u ProgressUpdate) Remaining() int {
	if u.Total <= u.Step {
		return 0
	}
	return u.Total - u.Step
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	RegisterAlbums
	SearchAlbums
	FetchPurchases
	ResetNotFound
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case RegisterAlbums:
		return "register_albums"
	case SearchAlbums:
		return "search_albums"
	case FetchPurchases:
		return "fetch_purchases"
	case ResetNotFound:
		return "reset_not_found"
	default:
		return ""
	}
}

func fetchPlaylistUpdate(source, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s from %s...", id, source),
	}
}

func registeredUpdate(registered, entries int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RegisterAlbums,
		Step:    entries,
		Total:   entries,
		Message: fmt.Sprintf("registered %d albums from spotify", registered),
	}
}

func searchStartUpdate(total int, market string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchAlbums,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Searching %d albums on %s...", total, market),
	}
}

func searchAlbumUpdate(step, total int, album *models.Album) ProgressUpdate {
	message := fmt.Sprintf("[%d/%d] not found: %s", step, total, album.SearchTerm)
	if album.Found {
		message = fmt.Sprintf("[%d/%d] %s", step, total, album.URL)
	}
	return ProgressUpdate{
		Phase:   SearchAlbums,
		Step:    step,
		Total:   total,
		Message: message,
		Data:    album,
	}
}

func fetchPurchasesUpdate(market string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPurchases,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching purchases from %s...", market),
	}
}

func purchasedUpdate(newly, links int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPurchases,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d albums newly registered as purchased", newly),
		Data:    links,
	}
}

func resetNotFoundUpdate(reset int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResetNotFound,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d not-found albums queued for another search", reset),
	}
}
