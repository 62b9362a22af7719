package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/tabsammlung/internal/board"
)

// Markdown formats the board's collections, in order, as a markdown
// document. Starred collections are marked with a star.
func Markdown(b *board.Board, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Tabsammlung\n")
	fmt.Fprintf(&sb, "> Exported %s\n", now.Format("2006-01-02 15:04"))

	for _, c := range b.Collections() {
		items := b.RawCollectionTabs(c.ID)
		noun := "items"
		if len(items) == 1 {
			noun = "item"
		}
		star := ""
		if c.Starred {
			star = " ★"
		}
		fmt.Fprintf(&sb, "\n## %s%s (%d %s)\n\n", c.Name, star, len(items), noun)
		for _, it := range items {
			title := it.Title
			if title == "" {
				title = it.URL
			}
			if it.Created.IsZero() {
				fmt.Fprintf(&sb, "- [%s](%s)\n", title, it.URL)
				continue
			}
			fmt.Fprintf(&sb, "- [%s](%s) — %s\n", title, it.URL, relativeTime(now, it.Created))
		}
	}
	return sb.String()
}

func relativeTime(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
