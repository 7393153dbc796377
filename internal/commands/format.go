package commands

import (
	"fmt"
	"strings"

	"encore/internal/music"
)

const (
	queuePageSize  = 10
	volumeBarWidth = 20

	colorPlaying = 0x1DB954
	colorInfo    = 0x5865F2
	colorError   = 0xED4245
)

// volumeBar renders a percent in [0,200] as a speaker icon and a bar.
func volumeBar(volume int) string {
	filled := (volume*volumeBarWidth + music.MaxVolume/2) / music.MaxVolume
	filled = max(0, min(volumeBarWidth, filled))

	icon := "🔇"
	switch {
	case volume > 150:
		icon = "🔊"
	case volume > 50:
		icon = "🔉"
	case volume > 0:
		icon = "🔈"
	}
	return fmt.Sprintf("%s %s%s %d%%", icon,
		strings.Repeat("█", filled), strings.Repeat("░", volumeBarWidth-filled), volume)
}

// trackLabel links the title when the source is a web page.
func trackLabel(t music.Track) string {
	if strings.HasPrefix(t.SourceURL, "http://") || strings.HasPrefix(t.SourceURL, "https://") {
		return fmt.Sprintf("[%s](%s)", t.Title, t.SourceURL)
	}
	return "**" + t.Title + "**"
}

// queuePage is one page of the upcoming tracks.
type queuePage struct {
	Page, Pages   int
	Lines         []string
	Total         int
	TotalDuration int
}

// paginateQueue renders page (1-based) of queue.
func paginateQueue(queue []music.Track, page int) (queuePage, error) {
	pages := (len(queue) + queuePageSize - 1) / queuePageSize
	if page < 1 {
		page = 1
	}
	if page > pages {
		return queuePage{}, fmt.Errorf("invalid page, there are only %d pages", pages)
	}

	start := (page - 1) * queuePageSize
	end := min(start+queuePageSize, len(queue))
	lines := make([]string, 0, end-start)
	for idx, t := range queue[start:end] {
		line := fmt.Sprintf("`%d.` %s | `%s`", start+idx+1, trackLabel(t), music.FormatDuration(t.DurationSeconds))
		if t.RequestedBy != "" {
			line += " | Requested by: " + t.RequestedBy
		}
		lines = append(lines, line)
	}

	return queuePage{
		Page:          page,
		Pages:         pages,
		Lines:         lines,
		Total:         len(queue),
		TotalDuration: music.TotalDuration(queue),
	}, nil
}
