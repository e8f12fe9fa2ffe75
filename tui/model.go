// Package tui is the spectator terminal client: it joins a room over
// the websocket feed and renders the market read-only.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pitwars/pitwars/tui/panels"
	"github.com/pitwars/pitwars/tui/styles"
)

// PanelFocus identifies the focused panel.
type PanelFocus int

const (
	FocusChart PanelFocus = iota
	FocusDepth
	FocusFeed
	panelCount
)

// Model is the spectator TUI application model.
type Model struct {
	chart *panels.ChartPanel
	depth *panels.DepthPanel
	feed  *panels.FeedPanel

	focused PanelFocus

	roomID   string
	price    float64
	clock    int64
	timeLeft int64
	paused   bool
	started  bool
	ended    bool
	players  int

	width  int
	height int
	err    error
}

// NewModel creates the spectator model.
func NewModel(roomID string) *Model {
	return &Model{
		chart:  panels.NewChartPanel(),
		depth:  panels.NewDepthPanel(),
		feed:   panels.NewFeedPanel(),
		roomID: roomID,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.focused = (m.focused + 1) % panelCount
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case PriceMsg:
		m.price = msg.Price
		m.chart.Push(msg.Price)
		m.depth.SetDepth(msg.Bids, msg.Asks)

	case ClockMsg:
		m.clock = msg.Value
		m.timeLeft = msg.TimeLeft

	case NewsEntryMsg:
		m.feed.PushNews(msg.Title, msg.Description)

	case NotificationEntryMsg:
		m.feed.PushNotification(msg.Level, msg.Title)

	case RoomInfoMsg:
		m.paused = msg.Paused
		m.started = msg.Started
		m.ended = msg.Ended
		m.players = msg.Players
		if m.price == 0 {
			m.price = msg.Price
		}

	case DisconnectedMsg:
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) layout() {
	if m.width == 0 {
		return
	}
	topH := (m.height - 3) * 2 / 3
	bottomH := m.height - 3 - topH
	leftW := m.width * 2 / 3
	rightW := m.width - leftW - 2

	m.chart.SetSize(leftW, topH)
	m.depth.SetSize(rightW, topH)
	m.feed.SetSize(m.width-2, bottomH)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	m.chart.SetFocused(m.focused == FocusChart)
	m.depth.SetFocused(m.focused == FocusDepth)
	m.feed.SetFocused(m.focused == FocusFeed)

	top := lipgloss.JoinHorizontal(lipgloss.Top, m.chart.View(), m.depth.View())
	return lipgloss.JoinVertical(lipgloss.Left, m.statusBar(), top, m.feed.View())
}

func (m *Model) statusBar() string {
	state := "waiting"
	switch {
	case m.ended:
		state = "ended"
	case m.paused:
		state = "paused"
	case m.started:
		state = "live"
	}
	return styles.StatusStyle.Render(
		fmt.Sprintf(" %s | %s | price %.2f | clock %d | %ds left | %d players | tab: focus, q: quit",
			m.roomID, state, m.price, m.clock, m.timeLeft, m.players))
}
