package panels

import (
	"fmt"
	"strings"

	"github.com/pitwars/pitwars/tui/styles"
)

// DepthPanel shows aggregated book depth, bids and asks side by side.
type DepthPanel struct {
	bids    [][2]float64
	asks    [][2]float64
	width   int
	height  int
	focused bool
}

// NewDepthPanel creates an empty depth panel.
func NewDepthPanel() *DepthPanel {
	return &DepthPanel{}
}

// SetDepth replaces both sides.
func (p *DepthPanel) SetDepth(bids, asks [][2]float64) {
	p.bids = bids
	p.asks = asks
}

// SetSize updates the panel dimensions.
func (p *DepthPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetFocused updates focus state.
func (p *DepthPanel) SetFocused(focused bool) { p.focused = focused }

// View renders the panel.
func (p *DepthPanel) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Order Book"))
	b.WriteString("\n")
	b.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("%10s %8s  |  %10s %8s", "BID", "QTY", "ASK", "QTY")))
	b.WriteString("\n")

	rows := p.height - 5
	if rows < 1 {
		rows = 1
	}
	for i := 0; i < rows; i++ {
		bid, ask := "", ""
		if i < len(p.bids) {
			bid = styles.BuyStyle.Render(fmt.Sprintf("%10.2f", p.bids[i][0])) +
				styles.RowStyle.Render(fmt.Sprintf(" %8.0f", p.bids[i][1]))
		} else {
			bid = strings.Repeat(" ", 19)
		}
		if i < len(p.asks) {
			ask = styles.SellStyle.Render(fmt.Sprintf("%10.2f", p.asks[i][0])) +
				styles.RowStyle.Render(fmt.Sprintf(" %8.0f", p.asks[i][1]))
		}
		b.WriteString(bid + "  |  " + ask + "\n")
	}

	style := styles.PanelStyle
	if p.focused {
		style = styles.FocusedPanelStyle
	}
	return style.Width(p.width).Height(p.height).Render(b.String())
}
