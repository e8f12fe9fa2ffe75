package panels

import (
	"strings"
	"time"

	"github.com/pitwars/pitwars/tui/styles"
)

// feedEntry is one line in the event feed.
type feedEntry struct {
	when  time.Time
	level string
	text  string
}

// FeedPanel shows news and notifications, newest first.
type FeedPanel struct {
	entries  []feedEntry
	maxItems int
	width    int
	height   int
	focused  bool
}

// NewFeedPanel creates an empty feed.
func NewFeedPanel() *FeedPanel {
	return &FeedPanel{maxItems: 50}
}

// PushNews records a news event.
func (p *FeedPanel) PushNews(title, description string) {
	p.push(feedEntry{when: time.Now(), level: "news", text: title + " — " + description})
}

// PushNotification records a notification.
func (p *FeedPanel) PushNotification(level, title string) {
	p.push(feedEntry{when: time.Now(), level: level, text: title})
}

func (p *FeedPanel) push(e feedEntry) {
	p.entries = append([]feedEntry{e}, p.entries...)
	if len(p.entries) > p.maxItems {
		p.entries = p.entries[:p.maxItems]
	}
}

// SetSize updates the panel dimensions.
func (p *FeedPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetFocused updates focus state.
func (p *FeedPanel) SetFocused(focused bool) { p.focused = focused }

// View renders the panel.
func (p *FeedPanel) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Market Wire"))
	b.WriteString("\n")

	rows := p.height - 4
	if rows < 1 {
		rows = 1
	}
	if len(p.entries) == 0 {
		b.WriteString(styles.MutedStyle.Render("no news yet"))
	}
	for i, e := range p.entries {
		if i >= rows {
			break
		}
		stamp := styles.MutedStyle.Render(e.when.Format("15:04:05"))
		style := styles.RowStyle
		switch e.level {
		case "error", "warning":
			style = styles.SellStyle
		case "success":
			style = styles.BuyStyle
		}
		line := stamp + " " + style.Render(truncate(e.text, p.width-14))
		b.WriteString(line + "\n")
	}

	style := styles.PanelStyle
	if p.focused {
		style = styles.FocusedPanelStyle
	}
	return style.Width(p.width).Height(p.height).Render(b.String())
}

func truncate(s string, n int) string {
	if n <= 3 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
