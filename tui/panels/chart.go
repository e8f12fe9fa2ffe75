package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pitwars/pitwars/tui/styles"
)

// ChartPanel renders the recent price series as a braille-free block
// chart: one column per sample, scaled into the panel height.
type ChartPanel struct {
	prices  []float64
	maxLen  int
	width   int
	height  int
	focused bool
}

// NewChartPanel creates an empty chart.
func NewChartPanel() *ChartPanel {
	return &ChartPanel{maxLen: 120}
}

// Push appends a price sample.
func (p *ChartPanel) Push(price float64) {
	p.prices = append(p.prices, price)
	if len(p.prices) > p.maxLen {
		p.prices = p.prices[1:]
	}
}

// SetSize updates the panel dimensions.
func (p *ChartPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetFocused updates focus state.
func (p *ChartPanel) SetFocused(focused bool) { p.focused = focused }

// View renders the panel.
func (p *ChartPanel) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Price"))
	b.WriteString("\n")

	innerH := p.height - 4
	innerW := p.width - 4
	if innerH < 3 {
		innerH = 3
	}
	if innerW < 10 {
		innerW = 10
	}

	if len(p.prices) < 2 {
		b.WriteString(styles.MutedStyle.Render("waiting for trades..."))
	} else {
		b.WriteString(p.renderSeries(innerW, innerH))
	}

	style := styles.PanelStyle
	if p.focused {
		style = styles.FocusedPanelStyle
	}
	return style.Width(p.width).Height(p.height).Render(b.String())
}

func (p *ChartPanel) renderSeries(width, height int) string {
	series := p.prices
	if len(series) > width {
		series = series[len(series)-width:]
	}

	lo, hi := series[0], series[0]
	for _, v := range series {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", len(series)))
	}
	for x, v := range series {
		y := int(float64(height-1) * (v - lo) / span)
		row := height - 1 - y
		grid[row][x] = '█'
	}

	up := series[len(series)-1] >= series[0]
	lineStyle := styles.BuyStyle
	if !up {
		lineStyle = styles.SellStyle
	}

	var b strings.Builder
	b.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("high %.2f", hi)))
	b.WriteString("\n")
	for _, row := range grid {
		b.WriteString(lineStyle.Render(string(row)))
		b.WriteString("\n")
	}
	b.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("low  %.2f", lo)))
	return lipgloss.NewStyle().Render(b.String())
}
