package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spoticamper/internal/tasks"
	"github.com/schollz/progressbar/v3"
)

const descriptionWidth = 60

// renderProgress consumes updates until the channel is closed.
//
// Searches drive a progress bar showing the remaining count and the last URL found. Other phases are logged.
func renderProgress(w io.Writer, updates <-chan tasks.ProgressUpdate, logger *log.Logger) {
	var bar *progressbar.ProgressBar
	for update := range updates {
		if update.Phase != tasks.SearchAlbums {
			logger.Debug(update.Message, "phase", update.Phase)
			continue
		}

		if bar == nil || update.Step == 0 {
			if update.Total == 0 {
				continue
			}
			bar = newSearchBar(w, update.Total)
		}
		if update.Step == 0 {
			continue
		}

		bar.Describe(fmt.Sprintf("%4d left %s", update.Remaining(), truncate(update.Message, descriptionWidth)))
		bar.Set(update.Step)
	}

	if bar != nil {
		bar.Finish()
	}
}

func newSearchBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription("searching bandcamp"),
		progressbar.OptionThrottle(0),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
