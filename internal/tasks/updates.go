package tasks

import (
	"fmt"

	"github.com/desertthunder/folio/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchProfile Phase = iota
	FetchCoins
	FetchHistory
	FetchNotifications
	FetchBookmarks
	FetchBook
	SaveCover
	ExportEpisodes
	WriteIndex
)

func (p Phase) String() string {
	switch p {
	case FetchProfile:
		return "fetch_profile"
	case FetchCoins:
		return "fetch_coins"
	case FetchHistory:
		return "fetch_history"
	case FetchNotifications:
		return "fetch_notifications"
	case FetchBookmarks:
		return "fetch_bookmarks"
	case FetchBook:
		return "fetch_book"
	case SaveCover:
		return "save_cover"
	case ExportEpisodes:
		return "export_episodes"
	case WriteIndex:
		return "write_index"
	default:
		return ""
	}
}

func operationUpdate(op dumpOperation, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   op.phase,
		Step:    step,
		Total:   total,
		Message: op.message,
	}
}

func bookmarksUpdate(step, total int, genre models.Genre) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchBookmarks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching bookmarks (%s)...", step, total, genre.DisplayName()),
	}
}

func fetchBookUpdate(d *models.BookDetail) ProgressUpdate {
	if d == nil {
		return ProgressUpdate{Phase: FetchBook, Step: 0, Total: 1, Message: "Fetching book..."}
	}
	return ProgressUpdate{
		Phase:   FetchBook,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found book: %s (%d episodes)", d.Title, len(d.Episodes)),
		Data:    d,
	}
}

func saveCoverUpdate(path string, err error) ProgressUpdate {
	if err != nil {
		return ProgressUpdate{Phase: SaveCover, Step: 1, Total: 1, Message: fmt.Sprintf("✗ cover: %v", err)}
	}
	return ProgressUpdate{Phase: SaveCover, Step: 1, Total: 1, Message: "✓ cover saved", Data: path}
}

func episodeExportedUpdate(step, total int, ep models.Episode, err error) ProgressUpdate {
	if err != nil {
		return ProgressUpdate{
			Phase:   ExportEpisodes,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, ep.Title, err),
		}
	}
	return ProgressUpdate{
		Phase:   ExportEpisodes,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, ep.Title),
	}
}

func writeIndexUpdate(path string) ProgressUpdate {
	return ProgressUpdate{Phase: WriteIndex, Step: 1, Total: 1, Message: "Wrote " + path, Data: path}
}
